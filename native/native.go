// Package native describes the boundary to the navigation engine: opaque
// builder, navmesh, query and crowd handles plus the fixed-layout records
// passed across it. Drivers register themselves by name, the way database
// drivers do.
package native

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gorustyt/navtile/common"
)

var ErrCreateFailed = errors.New("native: handle creation failed")

// Build stage failure codes reported in GeneratedData.Error.
const (
	CodeRasterizeTriangles      int32 = 10
	CodeAllocCompactHeightfield int32 = 20
	CodeBuildCompactHeightfield int32 = 30
	CodeErodeWalkableArea       int32 = 40
	CodeBuildDistanceField      int32 = 50
	CodeBuildRegions            int32 = 60
	CodeAllocContourSet         int32 = 70
	CodeBuildContours           int32 = 80
	CodeAllocPolyMesh           int32 = 90
	CodeBuildPolyMesh           int32 = 100
	CodeZeroVertCount           int32 = 110
	CodeNullVerts               int32 = 120
	CodeAllocPolyMeshDetail     int32 = 130
	CodeBuildPolyMeshDetail     int32 = 140
	CodeCreateDetourMeshFirst   int32 = 1010
	CodeCreateDetourMeshLast    int32 = 1017
)

// BuildSettings is the per-tile build request.
type BuildSettings struct {
	BoundingBox          common.BoundingBox
	CellHeight           float32
	CellSize             float32
	TileSize             int32
	TilePosition         common.TileCoord
	RegionMinArea        int32
	RegionMergeArea      int32
	EdgeMaxLen           float32
	EdgeMaxError         float32
	DetailSampleDist     float32
	DetailSampleMaxError float32
	AgentHeight          float32
	AgentRadius          float32
	AgentMaxClimb        float32
	AgentMaxSlope        float32
}

// GeneratedData is owned by the builder that produced it. NavmeshData is only
// valid until that builder is destroyed.
type GeneratedData struct {
	Success     bool
	Error       int32
	NavmeshData []byte
}

type PathFindQuery struct {
	Source                common.Vec3
	Target                common.Vec3
	FindNearestPolyExtent common.Vec3
	MaxPathPoints         int32
}

// PathFindResult.PathPoints is supplied by the caller; a driver writes at
// most len(PathPoints) points.
type PathFindResult struct {
	PathFound     bool
	PathPoints    []common.Vec3
	NumPathPoints int32
}

type RaycastQuery struct {
	Source                common.Vec3
	Target                common.Vec3
	FindNearestPolyExtent common.Vec3
	MaxPathPoints         int32
}

type RaycastResult struct {
	Hit      bool
	Position common.Vec3
	Normal   common.Vec3
}

type AgentParams struct {
	Radius                float32
	Height                float32
	MaxAcceleration       float32
	MaxSpeed              float32
	CollisionQueryRange   float32
	PathOptimizationRange float32
	SeparationWeight      float32
	AnticipateTurns       bool
	OptimizeVis           bool
	OptimizeTopo          bool
	ObstacleAvoidance     bool
	CrowdSeparation       bool
	ObstacleAvoidanceType uint8
	QueryFilterType       uint8
}

type CrowdAgent struct {
	Index        int32
	Active       bool
	State        uint8
	Partial      bool
	DesiredSpeed float32
	Position     common.Vec3
	Velocity     common.Vec3
}

// Agent states.
const (
	AgentStateInvalid uint8 = iota
	AgentStateWalking
	AgentStateOffmesh
)

type Driver interface {
	Name() string
	CreateBuilder() (Builder, error)
	CreateNavmesh(cellTileSize float32, tileBits, polyBits int32) (Navmesh, error)
}

type Builder interface {
	SetSettings(settings *BuildSettings)
	BuildNavmesh(vertices []common.Vec3, indices []int32, areas []uint8) *GeneratedData
	Destroy()
}

type Navmesh interface {
	AddTile(data []byte) bool
	RemoveTile(coord common.TileCoord) bool
	CreateQuery(maxNodes int32) (Query, error)
	CreateCrowd(maxAgents int32, maxAgentRadius float32) (Crowd, error)
	Destroy()
}

// Query handles are not safe for concurrent use.
type Query interface {
	FindStraightPath(query *PathFindQuery, result *PathFindResult)
	HasPath(query *PathFindQuery) bool
	Raycast(query *RaycastQuery, result *RaycastResult)
	SamplePosition(point, extent common.Vec3, result *common.Vec3) bool
	GetLocation(point, extent common.Vec3, result *common.Vec3) bool
	GetRandomPosition(result *common.Vec3) bool
	Destroy()
}

type Crowd interface {
	AddAgent(pos common.Vec3, params *AgentParams) int32
	RemoveAgent(idx int32)
	AgentCount() int32
	SetAgentParams(idx int32, params *AgentParams)
	GetAgentParams(idx int32, params *AgentParams)
	RequestMoveAgent(idx int32, pos common.Vec3) bool
	Update(dt float32)
	GetAgent(idx int32, agent *CrowdAgent) bool
	GetAgents(agents []CrowdAgent) int32
	Destroy()
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics on a nil driver or a
// duplicate name.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("native: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("native: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

func Open(name string) (Driver, error) {
	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("native: unknown driver %q (forgotten import?)", name)
	}
	return d, nil
}

func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
