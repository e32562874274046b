package recast

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native"
	"github.com/gorustyt/navtile/native/softnav"
)

func assertTrue(t *testing.T, value bool, msg string, args ...any) {
	t.Helper()
	if !value {
		t.Errorf(msg, args...)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultBuildSettings()
	assertTrue(t, s.CellHeight == 0.2 && s.CellSize == 0.3 && s.TileSize == 64, "default cell sizes")
	assertTrue(t, s.Validate() == nil, "defaults validate")
	hq := HighQualityBuildSettings()
	assertTrue(t, hq.CellSize == 0.166 && hq.MaxDetailSamplingError == 0.5, "high quality settings")
	a := DefaultAgentProfile()
	assertTrue(t, a.Height == 2 && a.MaxClimb == 0.4 && a.MaxSlope == 45 && a.Radius == 0.5, "default agent")

	s.CellSize = 0
	assertTrue(t, s.Validate() != nil, "zero cell size rejected")
	a.MaxSlope = 90
	assertTrue(t, a.Validate() != nil, "vertical slope rejected")
}

func TestGetOverlappingTiles(t *testing.T) {
	box := common.NewBoundingBox(common.Vec3{-1, 0, -1}, common.Vec3{20, 0, 20})
	coords := GetOverlappingTiles(64, 0.3, box)
	assertTrue(t, len(coords) == 9, "expected 9 tiles, got %d", len(coords))
	assertTrue(t, coords[0] == common.TileCoord{X: -1, Y: -1}, "first tile %v", coords[0])
	assertTrue(t, coords[1] == common.TileCoord{X: 0, Y: -1}, "row-major order %v", coords[1])
	assertTrue(t, coords[8] == common.TileCoord{X: 1, Y: 1}, "last tile %v", coords[8])

	edge := common.NewBoundingBox(common.Vec3{19.2, 0, 5}, common.Vec3{19.2, 0, 5})
	coords = GetOverlappingTiles(64, 0.3, edge)
	assertTrue(t, len(coords) == 1 && coords[0] == common.TileCoord{X: 1, Y: 0}, "point on tile edge %v", coords)
}

func TestOverlappingTilesCoverBox(t *testing.T) {
	s := DefaultBuildSettings()
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		min := common.Vec3{rnd.Float32()*200 - 100, 0, rnd.Float32()*200 - 100}
		max := min.Add(common.Vec3{rnd.Float32() * 60, 1, rnd.Float32() * 60})
		box := common.NewBoundingBox(min, max)
		coords := GetOverlappingTilesFromSettings(s, box)
		for j := 0; j < 20; j++ {
			p := common.Vec3{
				min[0] + rnd.Float32()*(max[0]-min[0]), 0,
				min[2] + rnd.Float32()*(max[2]-min[2]),
			}
			if j == 0 {
				p = common.Vec3{max[0], 0, max[2]}
			}
			covered := false
			for _, c := range coords {
				tb := CalculateTileBoundingBox(s, c)
				if p[0] >= tb.Min[0] && p[0] <= tb.Max[0] && p[2] >= tb.Min[2] && p[2] <= tb.Max[2] {
					covered = true
					break
				}
			}
			assertTrue(t, covered, "point %v of box %v not covered by %v", p, box, coords)
		}
	}
}

func TestTileBoundingBoxRoundTrip(t *testing.T) {
	s := DefaultBuildSettings()
	for _, c := range []common.TileCoord{{X: 0, Y: 0}, {X: 3, Y: -2}, {X: -7, Y: 11}, {X: 100, Y: 100}, {X: -300, Y: -256}} {
		box := CalculateTileBoundingBox(s, c)
		assertTrue(t, box.Min[1] == 0 && box.Max[1] == 0, "height range is zero")
		coords := GetOverlappingTilesFromSettings(s, box)
		assertTrue(t, len(coords) == 1 && coords[0] == c, "round trip of %v gave %v", c, coords)
	}
	for x := int32(-300); x <= 300; x += 7 {
		for y := int32(-300); y <= 300; y += 11 {
			c := common.TileCoord{X: x, Y: y}
			coords := GetOverlappingTilesFromSettings(s, CalculateTileBoundingBox(s, c))
			assertTrue(t, len(coords) == 1 && coords[0] == c, "round trip of %v gave %v", c, coords)
		}
	}
}

func TestSnapBoundingBoxToCellHeight(t *testing.T) {
	s := DefaultBuildSettings()
	box := common.NewBoundingBox(common.Vec3{0, 0.31, 0}, common.Vec3{0, 0.31, 0})
	box = SnapBoundingBoxToCellHeight(s, box)
	assertTrue(t, common.Abs(box.Min[1]-0.2) < 1e-5, "min snapped down, got %v", box.Min[1])
	assertTrue(t, common.Abs(box.Max[1]-0.4) < 1e-5, "max snapped up, got %v", box.Max[1])
}

func TestTileInputAppend(t *testing.T) {
	in := NewTileInput(common.TileCoord{}, common.EmptyBoundingBox())
	quad := []common.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 2, 1}, {0, 0, 1}}
	in.Append(quad, []int32{0, 1, 2, 0, 2, 3}, 5)
	in.Append(quad, []int32{0, 1, 2}, 7)
	assertTrue(t, len(in.Vertices) == 8, "vertices copied")
	assertTrue(t, in.Indices[6] == 4 && in.Indices[8] == 6, "indices rebased, got %v", in.Indices)
	assertTrue(t, len(in.Areas) == 3 && in.Areas[2] == 7, "one area per triangle")
	assertTrue(t, in.Bounds.Max[1] == 2 && in.Bounds.Min[1] == 0, "bounds grow")

	err := in.AppendTriangles(quad, common.AreaWalkable)
	assertTrue(t, err != nil, "4 vertices is not a triangle list")
	err = in.AppendTriangles(quad[:3], common.AreaWalkable)
	assertTrue(t, err == nil && in.TriangleCount() == 4, "triangle appended")
}

type countingDriver struct {
	native.Driver
	builds int
	code   int32
	ok     bool
	data   []byte
}

type countingBuilder struct{ d *countingDriver }

func (d *countingDriver) CreateBuilder() (native.Builder, error) {
	return countingBuilder{d}, nil
}

func (b countingBuilder) SetSettings(*native.BuildSettings) {}
func (b countingBuilder) Destroy()                          {}
func (b countingBuilder) BuildNavmesh([]common.Vec3, []int32, []uint8) *native.GeneratedData {
	b.d.builds++
	return &native.GeneratedData{Success: b.d.ok, Error: b.d.code, NavmeshData: b.d.data}
}

func TestBuildTileValidation(t *testing.T) {
	d := &countingDriver{}
	b, err := NewTileBuilder(d, DefaultBuildSettings(), DefaultAgentProfile())
	assertTrue(t, err == nil, "builder: %v", err)

	in := NewTileInput(common.TileCoord{}, common.EmptyBoundingBox())
	in.AppendTriangles([]common.Vec3{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {0, 0, 0}, {1, 0, 0}, {1, 0, 1}}, common.AreaWalkable)
	in.Areas = in.Areas[:1]
	r := b.BuildTile(in)
	assertTrue(t, r.Code == AreaInput && !r.Success, "area mismatch, got %v", r.Code)

	in.Areas = append(in.Areas, common.AreaWalkable)
	in.Vertices = in.Vertices[:5]
	r = b.BuildTile(in)
	assertTrue(t, r.Code == VerticesInput, "vertex mismatch, got %v", r.Code)

	in.Vertices = append(in.Vertices, common.Vec3{})
	in.Indices[5] = 42
	r = b.BuildTile(in)
	assertTrue(t, r.Code == VerticesInput, "index out of range, got %v", r.Code)
	assertTrue(t, d.builds == 0, "engine must not be called on invalid input")
}

func TestBuildTileEngineCodes(t *testing.T) {
	d := &countingDriver{code: 9999}
	b, _ := NewTileBuilder(d, DefaultBuildSettings(), DefaultAgentProfile())
	in := NewTileInput(common.TileCoord{}, common.EmptyBoundingBox())
	in.AppendTriangles([]common.Vec3{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}}, common.AreaWalkable)

	r := b.BuildTile(in)
	assertTrue(t, r.Code == None && !r.Success && r.Tile == nil, "unknown code maps to None, got %v", r.Code)

	d.code = int32(RcBuildRegions)
	r = b.BuildTile(in)
	assertTrue(t, r.Code == RcBuildRegions && r.Code.IsError(), "stage failure, got %v", r.Code)

	d.code, d.ok = 0, false
	r = b.BuildTile(in)
	assertTrue(t, r.Code == None, "zero code without success is not success, got %v", r.Code)

	d.ok = true
	d.data = (&detour.NavMeshData{Header: detour.DtMeshHeader{X: 5, Y: 5}}).ToBin()
	r = b.BuildTile(in)
	assertTrue(t, r.Code == CoordMismatch && r.Tile == nil, "coordinate cross check, got %v", r.Code)

	d.data = []byte{1, 2, 3}
	r = b.BuildTile(in)
	assertTrue(t, r.Code == TileDecodeFailed, "garbage tile, got %v", r.Code)

	assertTrue(t, !ZeroVertCount.IsError() && None.IsError(), "error classification")
	assertTrue(t, ZeroVertCount.String() == "ZeroVertCount", "code name")
	assertTrue(t, BuildResultCodeFromNative(-1001) == None, "local codes are not engine codes")
}

func TestBuildTestTile(t *testing.T) {
	r := BuildTestTile(softnav.Driver{}, 30)
	assertTrue(t, r.Success && r.Code == Success, "build failed: %v", r.Code)
	assertTrue(t, r.Tile != nil && len(r.Tile.Data) > 0, "tile data")
	assertTrue(t, r.VertexCount > 0, "decoded vertices")
	assertTrue(t, r.TriangleCount > 0, "decoded triangles")
	coord, err := r.Tile.Coord()
	assertTrue(t, err == nil && coord == common.TileCoord{}, "tile coord %v %v", coord, err)
}

func TestBuildEmptyTile(t *testing.T) {
	b, _ := NewTileBuilder(softnav.Driver{}, DefaultBuildSettings(), DefaultAgentProfile())
	in := NewTileInput(common.TileCoord{X: 3, Y: 3}, common.EmptyBoundingBox())
	in.AppendTriangles([]common.Vec3{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}}, common.AreaWalkable)
	r := b.BuildTile(in)
	assertTrue(t, r.Code == ZeroVertCount && !r.Code.IsError() && !r.Success, "empty tile, got %v", r.Code)
}

const quadObj = `# a 4x4 quad
v 0 0 0
v 4 0 0
v 4 0 4
v 0 0 4
vn 0 1 0
f 1/1/1 2/2/1 3/3/1 4/4/1
f -4 -2 -1
`

func TestParseObj(t *testing.T) {
	g, err := ParseObj(strings.NewReader(quadObj), "quad.obj", 2)
	assertTrue(t, err == nil, "parse: %v", err)
	assertTrue(t, len(g.Vertices) == 4, "vertices %d", len(g.Vertices))
	assertTrue(t, g.TriangleCount() == 3, "quad fans into 2 triangles plus 1, got %d", g.TriangleCount())
	assertTrue(t, g.Bounds().Max[0] == 8, "scale applied")
	assertTrue(t, g.Triangles[6] == 0 && g.Triangles[8] == 3, "negative indices, got %v", g.Triangles[6:])

	_, err = ParseObj(strings.NewReader("v 1 x 2\n"), "bad.obj", 1)
	assertTrue(t, err != nil, "bad vertex rejected")
}

func TestInputGeometryTileInput(t *testing.T) {
	s := DefaultBuildSettings()
	g := NewInputGeometry("plane")
	g.AddPlane(common.Vec2{0, 0}, common.Vec2{38.4, 19.2}, 0, common.AreaWalkable)
	g.AddBox(common.NewBoundingBox(common.Vec3{30, 0, 5}, common.Vec3{32, 2, 7}), common.AreaNull)
	assertTrue(t, g.TriangleCount() == 14, "plane and box triangles, got %d", g.TriangleCount())

	coords := g.TileCoords(s)
	assertTrue(t, len(coords) == 2, "two tiles, got %v", coords)

	in := g.TileInput(s, common.TileCoord{X: 0, Y: 0}, 1)
	assertTrue(t, in.TriangleCount() == 2, "box is outside tile 0, got %d", in.TriangleCount())
	in = g.TileInput(s, common.TileCoord{X: 1, Y: 0}, 1)
	assertTrue(t, in.TriangleCount() == 14, "tile 1 sees everything, got %d", in.TriangleCount())
	assertTrue(t, len(in.Vertices) == len(in.Indices), "vertices are unshared")
}

func TestBuildTiles(t *testing.T) {
	g := NewInputGeometry("plane")
	g.AddPlane(common.Vec2{0, 0}, common.Vec2{38.4, 19.2}, 0, common.AreaWalkable)
	b, _ := NewTileBuilder(softnav.Driver{}, DefaultBuildSettings(), DefaultAgentProfile())

	results, err := BuildAll(context.Background(), b, g, 2)
	assertTrue(t, err == nil, "batch: %v", err)
	assertTrue(t, len(results) == 2, "results %d", len(results))
	for i, r := range results {
		assertTrue(t, r != nil && r.Success, "tile %d failed", i)
	}
	assertTrue(t, results[1].Coord == common.TileCoord{X: 1, Y: 0}, "results keep coord order")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err = BuildAll(ctx, b, g, 1)
	assertTrue(t, err == context.Canceled, "cancelled batch, got %v", err)
	assertTrue(t, len(results) == 2, "result slots kept")
}
