//go:build cgo && ainav

package ainav

/*
#cgo LDFLAGS: -lAiNav -lstdc++ -lm
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct { float x, y, z; } ai_float3;
typedef struct { int x, y; } ai_int2;
typedef struct { ai_float3 min, max; } ai_bbox;

typedef struct {
	ai_bbox bounding_box;
	float cell_height;
	float cell_size;
	int tile_size;
	ai_int2 tile_position;
	int region_min_area;
	int region_merge_area;
	float edge_max_len;
	float edge_max_error;
	float detail_sample_dist;
	float detail_sample_max_error;
	float agent_height;
	float agent_radius;
	float agent_max_climb;
	float agent_max_slope;
} ai_build_settings;

typedef struct {
	bool success;
	int error;
	uint8_t* navmesh_data;
	int navmesh_data_length;
} ai_generated_data;

typedef struct {
	ai_float3 source;
	ai_float3 target;
	ai_float3 find_nearest_poly_extent;
	int max_path_points;
} ai_path_query;

typedef struct {
	bool path_found;
	ai_float3* path_points;
	int num_path_points;
} ai_path_result;

typedef struct {
	bool hit;
	ai_float3 position;
	ai_float3 normal;
} ai_raycast_result;

typedef struct {
	float radius;
	float height;
	float max_acceleration;
	float max_speed;
	float collision_query_range;
	float path_optimization_range;
	float separation_weight;
	int anticipate_turns;
	int optimize_vis;
	int optimize_topo;
	int obstacle_avoidance;
	int crowd_separation;
	int obstacle_avoidance_type;
	int query_filter_type;
} ai_agent_params;

typedef struct {
	int index;
	uint8_t state;
	int active;
	int partial;
	float desired_speed;
	ai_float3 position;
	ai_float3 velocity;
} ai_crowd_agent;

typedef struct {
	ai_crowd_agent* agents;
	int agent_count;
} ai_crowd_agents;

void* CreateBuilder(void);
void DestroyBuilder(void* nav);
void SetSettings(void* nav, ai_build_settings* settings);
ai_generated_data* BuildNavmesh(void* nav, ai_float3* vertices, int numVertices, int* indices, int numIndices, uint8_t* areas);

void* CreateNavmesh(float cellTileSize, int tileBits, int polyBits);
void DestroyNavmesh(void* navmesh);
int AddTile(void* navmesh, uint8_t* data, int dataLength);
int RemoveTile(void* navmesh, ai_int2* tileCoordinate);

void* QueryCreate(void* navmesh, int maxNodes);
void QueryDestroy(void* query);
void QueryFindStraightPath(void* query, ai_path_query* q, ai_path_result* result);
int QueryHasPath(void* query, ai_path_query* q);
void QueryRaycast(void* query, ai_path_query* q, ai_raycast_result* result);
int QuerySamplePosition(void* query, ai_float3* point, ai_float3* extent, ai_float3* result);
int QueryGetRandomPosition(void* query, ai_float3* result);
int QueryGetLocation(void* query, ai_float3* point, ai_float3* extent, ai_float3* result);

void* CrowdCreate(void* navmesh, int maxAgents, float maxAgentRadius);
void CrowdDestroy(void* crowd);
int CrowdAddAgent(void* crowd, ai_float3* position, ai_agent_params* params);
void CrowdRemoveAgent(void* crowd, int idx);
int CrowdGetAgentCount(void* crowd);
void CrowdSetAgentParams(void* crowd, int idx, ai_agent_params* params);
void CrowdGetAgentParams(void* crowd, int idx, ai_agent_params* params);
int CrowdRequestMoveAgent(void* crowd, int idx, ai_float3* position);
void CrowdUpdate(void* crowd, float dt);
int CrowdGetAgent(void* crowd, int idx, ai_crowd_agent* result);
void CrowdGetAgents(void* crowd, ai_crowd_agents* result);
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/native"
)

type Driver struct{}

func init() {
	native.Register(DriverName, Driver{})
}

func (Driver) Name() string { return DriverName }

func (Driver) CreateBuilder() (native.Builder, error) {
	h := C.CreateBuilder()
	if h == nil {
		return nil, native.ErrCreateFailed
	}
	return &builder{h: h}, nil
}

func (Driver) CreateNavmesh(cellTileSize float32, tileBits, polyBits int32) (native.Navmesh, error) {
	h := C.CreateNavmesh(C.float(cellTileSize), C.int(tileBits), C.int(polyBits))
	if h == nil {
		return nil, fmt.Errorf("%w: navmesh tile size %v, tile bits %d, poly bits %d",
			native.ErrCreateFailed, cellTileSize, tileBits, polyBits)
	}
	return &navmesh{h: h}, nil
}

func cvec(v common.Vec3) C.ai_float3 {
	return C.ai_float3{x: C.float(v[0]), y: C.float(v[1]), z: C.float(v[2])}
}

func gvec(v C.ai_float3) common.Vec3 {
	return common.Vec3{float32(v.x), float32(v.y), float32(v.z)}
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

type builder struct {
	h unsafe.Pointer
}

func (b *builder) SetSettings(s *native.BuildSettings) {
	cs := C.ai_build_settings{
		bounding_box:            C.ai_bbox{min: cvec(s.BoundingBox.Min), max: cvec(s.BoundingBox.Max)},
		cell_height:             C.float(s.CellHeight),
		cell_size:               C.float(s.CellSize),
		tile_size:               C.int(s.TileSize),
		tile_position:           C.ai_int2{x: C.int(s.TilePosition.X), y: C.int(s.TilePosition.Y)},
		region_min_area:         C.int(s.RegionMinArea),
		region_merge_area:       C.int(s.RegionMergeArea),
		edge_max_len:            C.float(s.EdgeMaxLen),
		edge_max_error:          C.float(s.EdgeMaxError),
		detail_sample_dist:      C.float(s.DetailSampleDist),
		detail_sample_max_error: C.float(s.DetailSampleMaxError),
		agent_height:            C.float(s.AgentHeight),
		agent_radius:            C.float(s.AgentRadius),
		agent_max_climb:         C.float(s.AgentMaxClimb),
		agent_max_slope:         C.float(s.AgentMaxSlope),
	}
	C.SetSettings(b.h, &cs)
}

// BuildNavmesh returns a view of memory owned by the native builder.
func (b *builder) BuildNavmesh(vertices []common.Vec3, indices []int32, areas []uint8) *native.GeneratedData {
	if len(vertices) == 0 || len(indices) == 0 || len(areas) == 0 {
		return &native.GeneratedData{Error: native.CodeNullVerts}
	}
	out := C.BuildNavmesh(b.h,
		(*C.ai_float3)(unsafe.Pointer(&vertices[0])), C.int(len(vertices)),
		(*C.int)(unsafe.Pointer(&indices[0])), C.int(len(indices)),
		(*C.uint8_t)(unsafe.Pointer(&areas[0])))
	if out == nil {
		return &native.GeneratedData{Error: native.CodeNullVerts}
	}
	g := &native.GeneratedData{Success: bool(out.success), Error: int32(out.error)}
	if out.navmesh_data != nil && out.navmesh_data_length > 0 {
		g.NavmeshData = unsafe.Slice((*byte)(unsafe.Pointer(out.navmesh_data)), int(out.navmesh_data_length))
	}
	return g
}

func (b *builder) Destroy() {
	if b.h != nil {
		C.DestroyBuilder(b.h)
		b.h = nil
	}
}

type navmesh struct {
	h unsafe.Pointer
}

// AddTile hands the engine its own copy of data.
func (n *navmesh) AddTile(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return C.AddTile(n.h, (*C.uint8_t)(C.CBytes(data)), C.int(len(data))) != 0
}

func (n *navmesh) RemoveTile(coord common.TileCoord) bool {
	c := C.ai_int2{x: C.int(coord.X), y: C.int(coord.Y)}
	return C.RemoveTile(n.h, &c) != 0
}

func (n *navmesh) CreateQuery(maxNodes int32) (native.Query, error) {
	h := C.QueryCreate(n.h, C.int(maxNodes))
	if h == nil {
		return nil, native.ErrCreateFailed
	}
	return &query{h: h}, nil
}

func (n *navmesh) CreateCrowd(maxAgents int32, maxAgentRadius float32) (native.Crowd, error) {
	h := C.CrowdCreate(n.h, C.int(maxAgents), C.float(maxAgentRadius))
	if h == nil {
		return nil, native.ErrCreateFailed
	}
	return &crowd{h: h, maxAgents: maxAgents}, nil
}

func (n *navmesh) Destroy() {
	if n.h != nil {
		C.DestroyNavmesh(n.h)
		n.h = nil
	}
}

// query keeps its path buffer in C memory so the result record passed to
// the engine holds no Go pointers.
type query struct {
	h       unsafe.Pointer
	path    *C.ai_float3
	pathCap int
}

func (q *query) pathBuffer(n int) *C.ai_float3 {
	if n > q.pathCap {
		C.free(unsafe.Pointer(q.path))
		q.path = (*C.ai_float3)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.ai_float3{}))))
		q.pathCap = n
	}
	return q.path
}

func pathQuery(p *native.PathFindQuery) C.ai_path_query {
	return C.ai_path_query{
		source:                   cvec(p.Source),
		target:                   cvec(p.Target),
		find_nearest_poly_extent: cvec(p.FindNearestPolyExtent),
		max_path_points:          C.int(p.MaxPathPoints),
	}
}

func (q *query) FindStraightPath(p *native.PathFindQuery, result *native.PathFindResult) {
	result.PathFound, result.NumPathPoints = false, 0
	n := min(int(p.MaxPathPoints), len(result.PathPoints))
	if n <= 0 {
		return
	}
	cq := pathQuery(p)
	cq.max_path_points = C.int(n)
	cr := C.ai_path_result{path_points: q.pathBuffer(n)}
	C.QueryFindStraightPath(q.h, &cq, &cr)
	count := min(int(cr.num_path_points), n)
	points := unsafe.Slice(cr.path_points, n)
	for i := 0; i < count; i++ {
		result.PathPoints[i] = gvec(points[i])
	}
	result.PathFound = bool(cr.path_found)
	result.NumPathPoints = int32(max(count, 0))
}

func (q *query) HasPath(p *native.PathFindQuery) bool {
	cq := pathQuery(p)
	return C.QueryHasPath(q.h, &cq) != 0
}

func (q *query) Raycast(r *native.RaycastQuery, result *native.RaycastResult) {
	cq := C.ai_path_query{
		source:                   cvec(r.Source),
		target:                   cvec(r.Target),
		find_nearest_poly_extent: cvec(r.FindNearestPolyExtent),
		max_path_points:          C.int(r.MaxPathPoints),
	}
	var cr C.ai_raycast_result
	C.QueryRaycast(q.h, &cq, &cr)
	result.Hit = bool(cr.hit)
	result.Position = gvec(cr.position)
	result.Normal = gvec(cr.normal)
}

func (q *query) SamplePosition(point, extent common.Vec3, result *common.Vec3) bool {
	p, e := cvec(point), cvec(extent)
	var out C.ai_float3
	if C.QuerySamplePosition(q.h, &p, &e, &out) == 0 {
		return false
	}
	*result = gvec(out)
	return true
}

func (q *query) GetLocation(point, extent common.Vec3, result *common.Vec3) bool {
	p, e := cvec(point), cvec(extent)
	var out C.ai_float3
	if C.QueryGetLocation(q.h, &p, &e, &out) == 0 {
		return false
	}
	*result = gvec(out)
	return true
}

func (q *query) GetRandomPosition(result *common.Vec3) bool {
	var out C.ai_float3
	if C.QueryGetRandomPosition(q.h, &out) == 0 {
		return false
	}
	*result = gvec(out)
	return true
}

func (q *query) Destroy() {
	if q.h != nil {
		C.QueryDestroy(q.h)
		q.h = nil
	}
	C.free(unsafe.Pointer(q.path))
	q.path, q.pathCap = nil, 0
}

type crowd struct {
	h         unsafe.Pointer
	maxAgents int32
	agents    *C.ai_crowd_agent
}

func cparams(p *native.AgentParams) C.ai_agent_params {
	return C.ai_agent_params{
		radius:                  C.float(p.Radius),
		height:                  C.float(p.Height),
		max_acceleration:        C.float(p.MaxAcceleration),
		max_speed:               C.float(p.MaxSpeed),
		collision_query_range:   C.float(p.CollisionQueryRange),
		path_optimization_range: C.float(p.PathOptimizationRange),
		separation_weight:       C.float(p.SeparationWeight),
		anticipate_turns:        cbool(p.AnticipateTurns),
		optimize_vis:            cbool(p.OptimizeVis),
		optimize_topo:           cbool(p.OptimizeTopo),
		obstacle_avoidance:      cbool(p.ObstacleAvoidance),
		crowd_separation:        cbool(p.CrowdSeparation),
		obstacle_avoidance_type: C.int(p.ObstacleAvoidanceType),
		query_filter_type:       C.int(p.QueryFilterType),
	}
}

func (c *crowd) AddAgent(pos common.Vec3, params *native.AgentParams) int32 {
	p, cp := cvec(pos), cparams(params)
	return int32(C.CrowdAddAgent(c.h, &p, &cp))
}

func (c *crowd) RemoveAgent(idx int32) { C.CrowdRemoveAgent(c.h, C.int(idx)) }

func (c *crowd) AgentCount() int32 { return int32(C.CrowdGetAgentCount(c.h)) }

func (c *crowd) SetAgentParams(idx int32, params *native.AgentParams) {
	cp := cparams(params)
	C.CrowdSetAgentParams(c.h, C.int(idx), &cp)
}

func (c *crowd) GetAgentParams(idx int32, params *native.AgentParams) {
	var cp C.ai_agent_params
	C.CrowdGetAgentParams(c.h, C.int(idx), &cp)
	*params = native.AgentParams{
		Radius:                float32(cp.radius),
		Height:                float32(cp.height),
		MaxAcceleration:       float32(cp.max_acceleration),
		MaxSpeed:              float32(cp.max_speed),
		CollisionQueryRange:   float32(cp.collision_query_range),
		PathOptimizationRange: float32(cp.path_optimization_range),
		SeparationWeight:      float32(cp.separation_weight),
		AnticipateTurns:       cp.anticipate_turns != 0,
		OptimizeVis:           cp.optimize_vis != 0,
		OptimizeTopo:          cp.optimize_topo != 0,
		ObstacleAvoidance:     cp.obstacle_avoidance != 0,
		CrowdSeparation:       cp.crowd_separation != 0,
		ObstacleAvoidanceType: uint8(cp.obstacle_avoidance_type),
		QueryFilterType:       uint8(cp.query_filter_type),
	}
}

func (c *crowd) RequestMoveAgent(idx int32, pos common.Vec3) bool {
	p := cvec(pos)
	return C.CrowdRequestMoveAgent(c.h, C.int(idx), &p) != 0
}

func (c *crowd) Update(dt float32) { C.CrowdUpdate(c.h, C.float(dt)) }

func goAgent(a *C.ai_crowd_agent) native.CrowdAgent {
	return native.CrowdAgent{
		Index:        int32(a.index),
		Active:       a.active != 0,
		State:        uint8(a.state),
		Partial:      a.partial != 0,
		DesiredSpeed: float32(a.desired_speed),
		Position:     gvec(a.position),
		Velocity:     gvec(a.velocity),
	}
}

func (c *crowd) GetAgent(idx int32, agent *native.CrowdAgent) bool {
	var a C.ai_crowd_agent
	if C.CrowdGetAgent(c.h, C.int(idx), &a) == 0 {
		return false
	}
	*agent = goAgent(&a)
	return true
}

func (c *crowd) GetAgents(agents []native.CrowdAgent) int32 {
	if c.maxAgents <= 0 {
		return 0
	}
	if c.agents == nil {
		c.agents = (*C.ai_crowd_agent)(C.calloc(C.size_t(c.maxAgents), C.size_t(unsafe.Sizeof(C.ai_crowd_agent{}))))
	}
	r := C.ai_crowd_agents{agents: c.agents}
	C.CrowdGetAgents(c.h, &r)
	buf := unsafe.Slice(c.agents, int(c.maxAgents))
	n := min(int(r.agent_count), len(agents), int(c.maxAgents))
	for i := 0; i < n; i++ {
		agents[i] = goAgent(&buf[i])
	}
	return int32(max(n, 0))
}

func (c *crowd) Destroy() {
	if c.h != nil {
		C.CrowdDestroy(c.h)
		c.h = nil
	}
	C.free(unsafe.Pointer(c.agents))
	c.agents = nil
}
