package tile_store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native/softnav"
	"github.com/gorustyt/navtile/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	dir := t.TempDir()
	stores := map[string]Store{}
	for kind, path := range map[string]string{
		KindArchive: filepath.Join(dir, "tiles.ntar"),
		KindBadger:  "",
		KindSQLite:  filepath.Join(dir, "tiles.db"),
	} {
		s, err := Open(kind, path)
		require.NoError(t, err, kind)
		t.Cleanup(func() { s.Close() })
		stores[kind] = s
	}
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	built := time.Unix(1700000000, 42)
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			_, err := s.Get(ctx, common.TileCoord{X: 1, Y: 1})
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, &Tile{Coord: common.TileCoord{X: 1, Y: 0}, Data: []byte{1}, BuiltAt: built}))
			require.NoError(t, s.Put(ctx, &Tile{Coord: common.TileCoord{X: 0, Y: 1}, Data: []byte{2}}))
			require.NoError(t, s.Put(ctx, &Tile{Coord: common.TileCoord{X: -1, Y: 0}, Data: []byte{3}}))
			require.NoError(t, s.Put(ctx, &Tile{Coord: common.TileCoord{X: 1, Y: 0}, Data: []byte{4, 5}, BuiltAt: built}))

			got, err := s.Get(ctx, common.TileCoord{X: 1, Y: 0})
			require.NoError(t, err)
			assert.Equal(t, []byte{4, 5}, got.Data, "put replaces")
			assert.True(t, got.BuiltAt.Equal(built))

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, common.TileCoord{X: -1, Y: 0}, all[0].Coord)
			assert.Equal(t, common.TileCoord{X: 1, Y: 0}, all[1].Coord)
			assert.Equal(t, common.TileCoord{X: 0, Y: 1}, all[2].Coord)

			require.NoError(t, s.Delete(ctx, common.TileCoord{X: 0, Y: 1}))
			require.ErrorIs(t, s.Delete(ctx, common.TileCoord{X: 0, Y: 1}), ErrNotFound)
			all, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestArchiveStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "tiles.ntar")
	s, err := OpenArchiveStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, &Tile{Coord: common.TileCoord{X: 2, Y: 3}, Data: []byte("tile")}))
	require.NoError(t, s.Close())

	s, err = OpenArchiveStore(path)
	require.NoError(t, err)
	got, err := s.Get(ctx, common.TileCoord{X: 2, Y: 3})
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), got.Data)
	assert.True(t, got.BuiltAt.IsZero())
}

func TestArchiveStoreFailedFlushKeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tiles.ntar")
	s, err := OpenArchiveStore(path)
	require.NoError(t, err)
	kept := common.TileCoord{X: 1, Y: 1}
	require.NoError(t, s.Put(ctx, &Tile{Coord: kept, Data: []byte("old")}))

	// A non-empty directory at the archive path makes the final rename fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))

	require.Error(t, s.Put(ctx, &Tile{Coord: common.TileCoord{X: 2, Y: 2}, Data: []byte("new")}))
	_, err = s.Get(ctx, common.TileCoord{X: 2, Y: 2})
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, s.Put(ctx, &Tile{Coord: kept, Data: []byte("replaced")}))
	got, err := s.Get(ctx, kept)
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got.Data)

	require.Error(t, s.Delete(ctx, kept))
	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept, all[0].Coord)
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open("redis", "")
	require.Error(t, err)
}

func TestSaveAndLoadAll(t *testing.T) {
	ctx := context.Background()
	b, err := recast.NewTileBuilder(softnav.Driver{}, recast.DefaultBuildSettings(), recast.DefaultAgentProfile())
	require.NoError(t, err)
	g := recast.NewInputGeometry("plane")
	g.AddPlane(common.Vec2{0, 0}, common.Vec2{38.4, 38.4}, 0, common.AreaWalkable)
	results, err := recast.BuildAll(ctx, b, g, 2)
	require.NoError(t, err)
	var tiles []*detour.NavmeshTile
	for _, r := range results {
		require.True(t, r.Success)
		tiles = append(tiles, r.Tile)
	}
	require.Len(t, tiles, 4)

	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, SaveTiles(ctx, s, tiles))
			require.NoError(t, s.Put(ctx, &Tile{Coord: common.TileCoord{X: 9, Y: 9}, Data: []byte("junk")}))

			nav, err := detour.NewNavmesh(softnav.Driver{}, b.Settings().NavmeshSettings(100, 2))
			require.NoError(t, err)
			defer nav.Close()

			q, _ := nav.QueryPool.Pop()
			_, err = LoadAll(ctx, s, nav)
			require.ErrorIs(t, err, detour.ErrQueriesOutstanding)
			nav.QueryPool.Push(q)

			n, err := LoadAll(ctx, s, nav)
			require.NoError(t, err)
			assert.Equal(t, 4, n, "junk tile is skipped")
			assert.Equal(t, 4, nav.TileCount())

			q, _ = nav.QueryPool.Pop()
			defer nav.QueryPool.Push(q)
			assert.True(t, q.HasPath(detour.DefaultQuerySettings(), common.Vec3{1, 0, 1}, common.Vec3{37, 0, 37}))
		})
	}
}
