package debug_utils

import (
	"strings"
	"testing"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native/softnav"
	"github.com/gorustyt/navtile/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpTilesToObj(t *testing.T) {
	r := recast.BuildTestTile(softnav.Driver{}, 30)
	require.True(t, r.Success)
	geom, err := r.Tile.Geometry()
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, DumpTilesToObj([]*detour.NavmeshTile{r.Tile, r.Tile}, &sb))
	out := sb.String()
	assert.Contains(t, out, "o tile_0_0")

	parsed, err := recast.ParseObj(strings.NewReader(out), "dump", 1)
	require.NoError(t, err)
	assert.Equal(t, 2*geom.TriangleCount(), parsed.TriangleCount())
	assert.Equal(t, 2*len(geom.Vertices), len(parsed.Vertices))
	assert.InDelta(t, 1+HeightOffset, parsed.Vertices[0].Y(), 1e-4)
}

func TestDumpRejectsGarbage(t *testing.T) {
	var sb strings.Builder
	err := DumpTilesToObj([]*detour.NavmeshTile{detour.NewNavmeshTile([]byte("junk"))}, &sb)
	assert.Error(t, err)
}

func TestDumpInputGeometryRoundTrip(t *testing.T) {
	g := recast.NewInputGeometry("two planes")
	g.AddPlane(common.Vec2{0, 0}, common.Vec2{4, 4}, 0, common.AreaWalkable)
	g.AddPlane(common.Vec2{4, 0}, common.Vec2{8, 4}, 1, common.AreaWalkable)

	var sb strings.Builder
	require.NoError(t, DumpInputGeometryToObj(g, &sb))
	assert.Contains(t, sb.String(), "o two_planes")

	parsed, err := recast.ParseObj(strings.NewReader(sb.String()), "again", 1)
	require.NoError(t, err)
	assert.Equal(t, g.TriangleCount(), parsed.TriangleCount())
	assert.Equal(t, g.Bounds(), parsed.Bounds())
}

func TestSummarizeTile(t *testing.T) {
	r := recast.BuildTestTile(softnav.Driver{}, 30)
	require.True(t, r.Success)
	s, err := SummarizeTile(r.Tile)
	require.NoError(t, err)
	assert.Equal(t, common.TileCoord{}, s.Coord)
	assert.Equal(t, len(r.Tile.Data), s.Size)
	assert.Positive(t, s.Polys)
	assert.GreaterOrEqual(t, s.Triangles, int(s.Polys))
	assert.Contains(t, s.String(), "tile (0,0)")

	_, err = SummarizeTile(detour.NewNavmeshTile(nil))
	assert.Error(t, err)
}
