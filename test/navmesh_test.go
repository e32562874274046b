package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/detour_crowd"
	"github.com/gorustyt/navtile/native/softnav"
	"github.com/gorustyt/navtile/recast"
	"github.com/gorustyt/navtile/tile_store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWorld builds a 2x2 tile plane with a raised platform reachable only
// by jumping, which the navmesh must keep disconnected.
func buildWorld(t *testing.T) (*recast.TileBuilder, []*detour.NavmeshTile) {
	t.Helper()
	b, err := recast.NewTileBuilder(softnav.Driver{}, recast.DefaultBuildSettings(), recast.DefaultAgentProfile())
	require.NoError(t, err)
	g := recast.NewInputGeometry("world")
	g.AddPlane(common.Vec2{0, 0}, common.Vec2{38.4, 38.4}, 0, common.AreaWalkable)
	g.AddPlane(common.Vec2{50, 50}, common.Vec2{55, 55}, 10, common.AreaWalkable)

	results, err := recast.BuildAll(context.Background(), b, g, 4)
	require.NoError(t, err)
	var tiles []*detour.NavmeshTile
	for _, r := range results {
		if r.Code == recast.ZeroVertCount {
			continue
		}
		require.True(t, r.Success, "tile %v: %v", r.Coord, r.Code)
		tiles = append(tiles, r.Tile)
	}
	return b, tiles
}

func TestBuildStoreLoadQuery(t *testing.T) {
	ctx := context.Background()
	b, tiles := buildWorld(t)
	require.Len(t, tiles, 5)

	for _, tile := range tiles {
		coord, err := tile.Coord()
		require.NoError(t, err)
		var data detour.NavMeshData
		require.NoError(t, data.FromBin(tile.Data), "tile %v", coord)
		geom, err := tile.Geometry()
		require.NoError(t, err)
		box := recast.CalculateTileBoundingBox(b.Settings(), coord).Expand(0.01)
		for _, v := range geom.Vertices {
			assert.True(t, v[0] >= box.Min[0] && v[0] <= box.Max[0] && v[2] >= box.Min[2] && v[2] <= box.Max[2],
				"tile %v vertex %v outside %v", coord, v, box)
		}
	}

	path := filepath.Join(t.TempDir(), "world.ntar")
	store, err := tile_store.Open(tile_store.KindArchive, path)
	require.NoError(t, err)
	require.NoError(t, tile_store.SaveTiles(ctx, store, tiles))
	require.NoError(t, store.Close())

	store, err = tile_store.Open(tile_store.KindArchive, path)
	require.NoError(t, err)
	defer store.Close()
	nav, err := detour.NewNavmesh(softnav.Driver{}, b.Settings().NavmeshSettings(200, 2))
	require.NoError(t, err)
	defer nav.Close()
	n, err := tile_store.LoadAll(ctx, store, nav)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	qs := detour.DefaultQuerySettings()
	q, ok := nav.QueryPool.Pop()
	require.True(t, ok)
	count := q.FindPath(qs, common.Vec3{1, 0, 1}, common.Vec3{37, 0, 37})
	require.GreaterOrEqual(t, count, 2)
	end := q.Path(count)[count-1]
	assert.InDelta(t, 37, end[0], 1e-3)
	assert.InDelta(t, 37, end[2], 1e-3)

	assert.False(t, q.HasPath(qs, common.Vec3{1, 0, 1}, common.Vec3{52, 10, 52}), "platform is disconnected")
	p, found := q.SamplePosition(common.Vec3{52, 11, 52}, qs.FindNearestPolyExtent)
	assert.True(t, found)
	assert.InDelta(t, 10, p[1], 1e-3)
	require.True(t, nav.QueryPool.Push(q))

	crowd, err := detour_crowd.NewCrowd(nav, 4, 0.5)
	require.NoError(t, err)
	idx, err := crowd.AddAgent(common.Vec3{2, 0, 2}, detour_crowd.DefaultAgentParams())
	require.NoError(t, err)
	require.True(t, crowd.MoveAgent(idx, common.Vec3{30, 0, 30}))
	for i := 0; i < 60; i++ {
		require.True(t, crowd.Update(0.2))
	}
	a, ok := crowd.Agent(idx)
	require.True(t, ok)
	assert.InDelta(t, 30, a.Position[0], 0.1)
	assert.InDelta(t, 30, a.Position[2], 0.1)
	crowd.Close()

	require.True(t, nav.Mutate(func(m *detour.TileMutator) {
		require.True(t, m.RemoveTile(common.TileCoord{X: 1, Y: 1}))
	}))
	q, ok = nav.QueryPool.Pop()
	require.True(t, ok)
	defer nav.QueryPool.Push(q)
	assert.False(t, q.HasPath(qs, common.Vec3{1, 0, 1}, common.Vec3{37, 0, 37}))
	assert.True(t, q.HasPath(qs, common.Vec3{1, 0, 1}, common.Vec3{37, 0, 1}))
}
