package softnav

import (
	"testing"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native"
	"github.com/stretchr/testify/require"
)

func testSettings(coord common.TileCoord) *native.BuildSettings {
	return &native.BuildSettings{
		BoundingBox:   common.NewBoundingBox(common.Vec3{0, 0, 0}, common.Vec3{0, 2, 0}),
		CellHeight:    0.2,
		CellSize:      0.3,
		TileSize:      64,
		TilePosition:  coord,
		AgentHeight:   2,
		AgentRadius:   0.5,
		AgentMaxClimb: 0.4,
		AgentMaxSlope: 45,
	}
}

type mesh struct {
	verts []common.Vec3
	idx   []int32
	areas []uint8
}

func (m *mesh) quad(x0, z0, x1, z1, y float32) {
	a := common.Vec3{x0, y, z0}
	b := common.Vec3{x1, y, z0}
	c := common.Vec3{x1, y, z1}
	d := common.Vec3{x0, y, z1}
	for _, v := range []common.Vec3{a, b, c, a, c, d} {
		m.idx = append(m.idx, int32(len(m.verts)))
		m.verts = append(m.verts, v)
	}
	m.areas = append(m.areas, common.AreaWalkable, common.AreaWalkable)
}

func buildTile(t *testing.T, m *mesh, coord common.TileCoord) []byte {
	t.Helper()
	b, err := Driver{}.CreateBuilder()
	require.NoError(t, err)
	b.SetSettings(testSettings(coord))
	out := b.BuildNavmesh(m.verts, m.idx, m.areas)
	require.True(t, out.Success, "build error %d", out.Error)
	data := append([]byte(nil), out.NavmeshData...)
	b.Destroy()
	return data
}

func newNavmesh(t *testing.T, tiles ...[]byte) *navMesh {
	t.Helper()
	nm, err := Driver{}.CreateNavmesh(19.2, 8, 8)
	require.NoError(t, err)
	for _, data := range tiles {
		require.True(t, nm.AddTile(data))
	}
	return nm.(*navMesh)
}

func TestBuilderMergesCoplanarTriangles(t *testing.T) {
	m := &mesh{}
	m.quad(2, 2, 10, 10, 1)
	data := buildTile(t, m, common.TileCoord{})

	h, err := detour.ReadMeshHeader(data)
	require.NoError(t, err)
	require.Equal(t, int32(1), h.PolyCount, "two coplanar triangles merge into one polygon")
	require.Equal(t, int32(4), h.VertCount)

	geom, err := detour.DecodeTileGeometry(data)
	require.NoError(t, err)
	require.Equal(t, 2, geom.TriangleCount())
}

func TestBuilderClipsToTile(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 30, 30, 1)
	data := buildTile(t, m, common.TileCoord{X: 0, Y: 0})

	h, err := detour.ReadMeshHeader(data)
	require.NoError(t, err)
	require.Equal(t, int32(0), h.X)
	require.InDelta(t, 19.2, h.Bmax[0], 1e-4)

	geom, err := detour.DecodeTileGeometry(data)
	require.NoError(t, err)
	require.NotZero(t, geom.TriangleCount())
	for _, v := range geom.Vertices {
		require.LessOrEqual(t, v[0], float32(19.2001))
		require.LessOrEqual(t, v[2], float32(19.2001))
		require.InDelta(t, 1, v[1], 1e-5)
	}

	next := buildTile(t, m, common.TileCoord{X: 1, Y: 1})
	h, err = detour.ReadMeshHeader(next)
	require.NoError(t, err)
	require.Equal(t, int32(1), h.Y)
	require.InDelta(t, 19.2, h.Bmin[2], 1e-4)
}

func TestBuilderResultCodes(t *testing.T) {
	b, _ := Driver{}.CreateBuilder()
	defer b.Destroy()
	b.SetSettings(testSettings(common.TileCoord{}))

	out := b.BuildNavmesh(nil, nil, nil)
	require.False(t, out.Success)
	require.Equal(t, native.CodeNullVerts, out.Error)

	m := &mesh{}
	m.quad(100, 100, 110, 110, 0)
	out = b.BuildNavmesh(m.verts, m.idx, m.areas)
	require.Equal(t, native.CodeZeroVertCount, out.Error, "geometry outside the tile")

	wall := []common.Vec3{{1, 0, 1}, {1, 5, 1}, {5, 0, 1}}
	out = b.BuildNavmesh(wall, []int32{0, 1, 2}, []uint8{common.AreaWalkable})
	require.Equal(t, native.CodeZeroVertCount, out.Error, "vertical triangle is too steep")

	m = &mesh{}
	m.quad(0, 0, 5, 5, 0)
	m.areas[0], m.areas[1] = common.AreaNull, common.AreaNull
	out = b.BuildNavmesh(m.verts, m.idx, m.areas)
	require.Equal(t, native.CodeZeroVertCount, out.Error, "null area is dropped")
}

func TestBuilderOutputIsTransient(t *testing.T) {
	b, _ := Driver{}.CreateBuilder()
	b.SetSettings(testSettings(common.TileCoord{}))
	m := &mesh{}
	m.quad(0, 0, 5, 5, 0)
	out := b.BuildNavmesh(m.verts, m.idx, m.areas)
	require.True(t, out.Success)
	view := out.NavmeshData
	b.Destroy()
	_, err := detour.ReadMeshHeader(view)
	require.ErrorIs(t, err, detour.ErrBadMagic)
}

func TestNavmeshAddRemove(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 10, 10, 0)
	data := buildTile(t, m, common.TileCoord{})
	nm := newNavmesh(t, data)
	require.False(t, nm.AddTile(data), "coordinate already occupied")
	require.False(t, nm.AddTile([]byte{1, 2, 3}))
	require.True(t, nm.RemoveTile(common.TileCoord{}))
	require.False(t, nm.RemoveTile(common.TileCoord{}))
	require.True(t, nm.AddTile(data))

	_, err := Driver{}.CreateNavmesh(0, 8, 8)
	require.ErrorIs(t, err, native.ErrCreateFailed)
	_, err = nm.CreateQuery(0)
	require.ErrorIs(t, err, native.ErrCreateFailed)
}

func TestQueryStraightPathAndSampling(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 30, 30, 1)
	nm := newNavmesh(t, buildTile(t, m, common.TileCoord{}))
	q, err := nm.CreateQuery(2048)
	require.NoError(t, err)
	defer q.Destroy()

	ext := common.Vec3{2, 4, 2}
	pq := &native.PathFindQuery{Source: common.Vec3{1, 1, 1}, Target: common.Vec3{10, 1, 10}, FindNearestPolyExtent: ext, MaxPathPoints: 16}
	res := &native.PathFindResult{PathPoints: make([]common.Vec3, 16)}
	q.FindStraightPath(pq, res)
	require.True(t, res.PathFound)
	require.Equal(t, int32(2), res.NumPathPoints)
	require.InDelta(t, 10, res.PathPoints[1][0], 1e-4)
	require.True(t, q.HasPath(pq))

	far := &native.PathFindQuery{Source: common.Vec3{1, 1, 1}, Target: common.Vec3{1000, 1, 1000}, FindNearestPolyExtent: ext}
	q.FindStraightPath(far, res)
	require.False(t, res.PathFound)
	require.Zero(t, res.NumPathPoints)
	require.False(t, q.HasPath(far))

	var p common.Vec3
	require.True(t, q.SamplePosition(common.Vec3{1, 2, 1}, common.Vec3{2, 2, 2}, &p))
	require.InDelta(t, 1, p[1], 1e-5)
	require.True(t, q.GetLocation(common.Vec3{1, 2, 1}, common.Vec3{2, 2, 2}, &p))
	require.InDelta(t, 1, p[1], 1e-5)
	require.False(t, q.GetLocation(common.Vec3{500, 1, 500}, common.Vec3{2, 2, 2}, &p))

	require.True(t, q.GetRandomPosition(&p))
	require.True(t, p[0] >= 0 && p[0] <= 19.21 && p[2] >= 0 && p[2] <= 19.21)
}

func TestQueryFunnelTurnsCorner(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 8, 2, 0)
	m.quad(8, 0, 10, 2, 0)
	m.quad(8, 2, 10, 10, 0)
	nm := newNavmesh(t, buildTile(t, m, common.TileCoord{}))
	q, _ := nm.CreateQuery(256)

	pq := &native.PathFindQuery{Source: common.Vec3{1, 0, 1}, Target: common.Vec3{9, 0, 9}, FindNearestPolyExtent: common.Vec3{1, 1, 1}}
	res := &native.PathFindResult{PathPoints: make([]common.Vec3, 8)}
	q.FindStraightPath(pq, res)
	require.True(t, res.PathFound)
	require.Equal(t, int32(3), res.NumPathPoints)
	require.InDelta(t, 8, res.PathPoints[1][0], 1e-3)
	require.InDelta(t, 2, res.PathPoints[1][2], 1e-3)

	short := &native.PathFindResult{PathPoints: make([]common.Vec3, 2)}
	q.FindStraightPath(pq, short)
	require.True(t, short.PathFound)
	require.Equal(t, int32(2), short.NumPathPoints, "path is cut at the buffer length")
}

func TestQueryCrossesTiles(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 38.4, 19.2, 0)
	nm := newNavmesh(t,
		buildTile(t, m, common.TileCoord{X: 0, Y: 0}),
		buildTile(t, m, common.TileCoord{X: 1, Y: 0}))
	q, _ := nm.CreateQuery(256)

	pq := &native.PathFindQuery{Source: common.Vec3{1, 0, 5}, Target: common.Vec3{35, 0, 10}, FindNearestPolyExtent: common.Vec3{1, 1, 1}}
	require.True(t, q.HasPath(pq))

	nm.RemoveTile(common.TileCoord{X: 1, Y: 0})
	require.False(t, q.HasPath(pq))
}

func TestQueryNodeLimit(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 38.4, 19.2, 0)
	nm := newNavmesh(t,
		buildTile(t, m, common.TileCoord{X: 0, Y: 0}),
		buildTile(t, m, common.TileCoord{X: 1, Y: 0}))
	q, _ := nm.CreateQuery(1)
	pq := &native.PathFindQuery{Source: common.Vec3{1, 0, 5}, Target: common.Vec3{35, 0, 10}, FindNearestPolyExtent: common.Vec3{1, 1, 1}}
	require.False(t, q.HasPath(pq))
}

func TestRaycast(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 30, 30, 1)
	nm := newNavmesh(t, buildTile(t, m, common.TileCoord{}))
	q, _ := nm.CreateQuery(256)

	rq := &native.RaycastQuery{Source: common.Vec3{1, 1, 5}, Target: common.Vec3{30, 1, 5}, FindNearestPolyExtent: common.Vec3{2, 4, 2}}
	var res native.RaycastResult
	q.Raycast(rq, &res)
	require.True(t, res.Hit)
	require.InDelta(t, 19.2, res.Position[0], 0.1)
	require.InDelta(t, -1, res.Normal[0], 1e-4)

	rq.Target = common.Vec3{10, 1, 10}
	q.Raycast(rq, &res)
	require.False(t, res.Hit)
	require.InDelta(t, 10, res.Position[0], 1e-3)
}

func TestCrowdMovesAgents(t *testing.T) {
	m := &mesh{}
	m.quad(0, 0, 19.2, 19.2, 0)
	nm := newNavmesh(t, buildTile(t, m, common.TileCoord{}))
	c, err := nm.CreateCrowd(2, 0.5)
	require.NoError(t, err)
	defer c.Destroy()

	params := &native.AgentParams{Radius: 0.5, Height: 2, MaxSpeed: 5, MaxAcceleration: 20}
	a := c.AddAgent(common.Vec3{1, 0, 1}, params)
	b := c.AddAgent(common.Vec3{2, 0, 2}, params)
	require.Equal(t, int32(0), a)
	require.Equal(t, int32(1), b)
	require.Equal(t, int32(-1), c.AddAgent(common.Vec3{3, 0, 3}, params), "crowd is full")

	require.True(t, c.RequestMoveAgent(a, common.Vec3{11, 0, 1}))
	c.Update(1)
	var ag native.CrowdAgent
	require.True(t, c.GetAgent(a, &ag))
	require.InDelta(t, 6, ag.Position[0], 1e-3)
	require.InDelta(t, 5, ag.Velocity[0], 1e-3)
	c.Update(1)
	c.GetAgent(a, &ag)
	require.InDelta(t, 11, ag.Position[0], 1e-3)

	c.RemoveAgent(b)
	require.Equal(t, int32(1), c.AgentCount())
	require.False(t, c.RequestMoveAgent(b, common.Vec3{5, 0, 5}))
	all := make([]native.CrowdAgent, 4)
	require.Equal(t, int32(1), c.GetAgents(all))
}
