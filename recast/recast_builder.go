package recast

import (
	"fmt"
	"time"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/metrics"
	"github.com/gorustyt/navtile/native"
)

// BuildResultCode is the outcome of a tile build. Negative codes are
// detected locally, positive ones come from the engine.
//
// ZeroVertCount is common and not an error: the input had no walkable
// surface inside the tile.
type BuildResultCode int32

const (
	None                BuildResultCode = 10000
	Success             BuildResultCode = 0
	TileDecodeFailed    BuildResultCode = -1003
	CoordMismatch       BuildResultCode = -1002
	AreaInput           BuildResultCode = -1001
	VerticesInput       BuildResultCode = -1000
	CreateBuilderFailed BuildResultCode = -100

	RcRasterizeTriangles      BuildResultCode = 10
	RcAllocCompactHeightfield BuildResultCode = 20
	RcBuildCompactHeightfield BuildResultCode = 30
	RcErodeWalkableArea       BuildResultCode = 40
	RcBuildDistanceField      BuildResultCode = 50
	RcBuildRegions            BuildResultCode = 60
	RcAllocContourSet         BuildResultCode = 70
	RcBuildContours           BuildResultCode = 80
	RcAllocPolyMesh           BuildResultCode = 90
	RcBuildPolyMesh           BuildResultCode = 100
	ZeroVertCount             BuildResultCode = 110
	NullVerts                 BuildResultCode = 120
	RcAllocPolyMeshDetail     BuildResultCode = 130
	RcBuildPolyMeshDetail     BuildResultCode = 140

	// Detour tile creation failures; see the engine source for each.
	CreateDetourMesh10 BuildResultCode = 1010
	CreateDetourMesh11 BuildResultCode = 1011
	CreateDetourMesh12 BuildResultCode = 1012
	CreateDetourMesh13 BuildResultCode = 1013
	CreateDetourMesh14 BuildResultCode = 1014
	CreateDetourMesh15 BuildResultCode = 1015
	CreateDetourMesh16 BuildResultCode = 1016
	CreateDetourMesh17 BuildResultCode = 1017
)

var buildResultNames = map[BuildResultCode]string{
	None:                      "None",
	Success:                   "Success",
	TileDecodeFailed:          "TileDecodeFailed",
	CoordMismatch:             "CoordMismatch",
	AreaInput:                 "AreaInput",
	VerticesInput:             "VerticesInput",
	CreateBuilderFailed:       "CreateBuilderFailed",
	RcRasterizeTriangles:      "RcRasterizeTriangles",
	RcAllocCompactHeightfield: "RcAllocCompactHeightfield",
	RcBuildCompactHeightfield: "RcBuildCompactHeightfield",
	RcErodeWalkableArea:       "RcErodeWalkableArea",
	RcBuildDistanceField:      "RcBuildDistanceField",
	RcBuildRegions:            "RcBuildRegions",
	RcAllocContourSet:         "RcAllocContourSet",
	RcBuildContours:           "RcBuildContours",
	RcAllocPolyMesh:           "RcAllocPolyMesh",
	RcBuildPolyMesh:           "RcBuildPolyMesh",
	ZeroVertCount:             "ZeroVertCount",
	NullVerts:                 "NullVerts",
	RcAllocPolyMeshDetail:     "RcAllocPolyMeshDetail",
	RcBuildPolyMeshDetail:     "RcBuildPolyMeshDetail",
	CreateDetourMesh10:        "CreateDetourMesh10",
	CreateDetourMesh11:        "CreateDetourMesh11",
	CreateDetourMesh12:        "CreateDetourMesh12",
	CreateDetourMesh13:        "CreateDetourMesh13",
	CreateDetourMesh14:        "CreateDetourMesh14",
	CreateDetourMesh15:        "CreateDetourMesh15",
	CreateDetourMesh16:        "CreateDetourMesh16",
	CreateDetourMesh17:        "CreateDetourMesh17",
}

func (c BuildResultCode) String() string {
	if s, ok := buildResultNames[c]; ok {
		return s
	}
	return fmt.Sprintf("BuildResultCode(%d)", int32(c))
}

// IsError reports whether c is a failure. Success and ZeroVertCount are not.
func (c BuildResultCode) IsError() bool {
	return c != Success && c != ZeroVertCount
}

// BuildResultCodeFromNative maps an engine code. Codes this package does not
// know map to None, never to Success.
func BuildResultCodeFromNative(code int32) BuildResultCode {
	c := BuildResultCode(code)
	if c <= 0 || c == None {
		return None
	}
	if _, ok := buildResultNames[c]; !ok {
		return None
	}
	return c
}

// BuildResult is the outcome of building one tile. Tile is set only on
// success.
type BuildResult struct {
	Success       bool
	Code          BuildResultCode
	Coord         common.TileCoord
	Tile          *detour.NavmeshTile
	VertexCount   int
	TriangleCount int
	Elapsed       time.Duration
}

// TileBuilder builds tiles with fixed settings. It holds no engine state and
// is safe for concurrent use; every BuildTile call gets its own engine
// builder.
type TileBuilder struct {
	driver   native.Driver
	settings BuildSettings
	agent    AgentProfile
}

func NewTileBuilder(driver native.Driver, settings BuildSettings, agent AgentProfile) (*TileBuilder, error) {
	if driver == nil {
		return nil, fmt.Errorf("tile builder: nil driver")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("build settings: %w", err)
	}
	if err := agent.Validate(); err != nil {
		return nil, fmt.Errorf("agent profile: %w", err)
	}
	return &TileBuilder{driver: driver, settings: settings, agent: agent}, nil
}

func (b *TileBuilder) Settings() BuildSettings { return b.settings }

func (b *TileBuilder) Agent() AgentProfile { return b.agent }

// TileBorder is how far input geometry is gathered beyond a tile's footprint.
func (b *TileBuilder) TileBorder() float32 {
	return b.agent.Radius + 3*b.settings.CellSize
}

// BuildTile validates input, runs the engine once and copies the tile out of
// the engine's transient buffer.
func (b *TileBuilder) BuildTile(input *TileInput) (result *BuildResult) {
	start := time.Now()
	result = &BuildResult{Code: None, Coord: input.Coord}
	defer func() {
		result.Elapsed = time.Since(start)
		metrics.BuildTotal.WithLabelValues(result.Code.String()).Inc()
		metrics.BuildDuration.Observe(result.Elapsed.Seconds())
	}()

	if code := validateInput(input); code != Success {
		result.Code = code
		return result
	}

	ns := b.nativeSettings(input)
	builder, err := b.driver.CreateBuilder()
	if err != nil {
		logger.Error("create builder for tile %v: %v", input.Coord, err)
		result.Code = CreateBuilderFailed
		return result
	}
	defer builder.Destroy()

	builder.SetSettings(&ns)
	out := builder.BuildNavmesh(input.Vertices, input.Indices, input.Areas)
	result.Success = out.Success
	result.Code = BuildResultCodeFromNative(out.Error)
	if out.Success && out.Error == 0 {
		result.Code = Success
	}
	if result.Code != Success || len(out.NavmeshData) == 0 {
		result.Success = false
		if result.Code.IsError() {
			logger.Warn("build tile %v failed: %v", input.Coord, result.Code)
		}
		return result
	}

	data := make([]byte, len(out.NavmeshData))
	copy(data, out.NavmeshData)
	tile := detour.NewNavmeshTile(data)
	coord, err := tile.Coord()
	if err != nil {
		logger.Error("decode tile %v: %v", input.Coord, err)
		result.Success, result.Code = false, TileDecodeFailed
		return result
	}
	if coord != input.Coord {
		logger.Error("tile built for %v reports %v", input.Coord, coord)
		result.Success, result.Code = false, CoordMismatch
		return result
	}
	if geom, err := tile.Geometry(); err == nil && geom != nil {
		result.VertexCount = len(geom.Vertices)
		result.TriangleCount = geom.TriangleCount()
	}
	result.Tile = tile
	logger.Debug("built tile %v, %v bytes, %v verts, %v tris",
		coord, len(data), result.VertexCount, result.TriangleCount)
	return result
}

func validateInput(input *TileInput) BuildResultCode {
	if len(input.Areas) != len(input.Indices)/3 {
		return AreaInput
	}
	if len(input.Vertices) != len(input.Indices) || len(input.Indices)%3 != 0 {
		return VerticesInput
	}
	for _, idx := range input.Indices {
		if idx < 0 || int(idx) >= len(input.Vertices) {
			return VerticesInput
		}
	}
	return Success
}

func (b *TileBuilder) nativeSettings(input *TileInput) native.BuildSettings {
	minY, maxY := input.Bounds.Min[1], input.Bounds.Max[1]
	if minY > maxY {
		minY, maxY = 0, 0
	}
	box := CalculateTileBoundingBox(b.settings, input.Coord)
	box.Min[1], box.Max[1] = minY, maxY
	box = SnapBoundingBoxToCellHeight(b.settings, box)

	return native.BuildSettings{
		BoundingBox:          box,
		CellHeight:           b.settings.CellHeight,
		CellSize:             b.settings.CellSize,
		TileSize:             b.settings.TileSize,
		TilePosition:         input.Coord,
		RegionMinArea:        b.settings.MinRegionArea,
		RegionMergeArea:      b.settings.RegionMergeArea,
		EdgeMaxLen:           b.settings.MaxEdgeLen,
		EdgeMaxError:         b.settings.MaxEdgeError,
		DetailSampleDist:     b.settings.DetailSamplingDistance,
		DetailSampleMaxError: b.settings.MaxDetailSamplingError,
		AgentHeight:          b.agent.Height,
		AgentRadius:          b.agent.Radius,
		AgentMaxClimb:        b.agent.MaxClimb,
		AgentMaxSlope:        b.agent.MaxSlope,
	}
}

// BuildTestTile builds tile (0,0) from a flat width x width square at y=1.
func BuildTestTile(driver native.Driver, width float32) *BuildResult {
	b, err := NewTileBuilder(driver, DefaultBuildSettings(), DefaultAgentProfile())
	if err != nil {
		return &BuildResult{Code: CreateBuilderFailed}
	}
	coord := common.TileCoord{}
	input := NewTileInput(coord, CalculateTileBoundingBox(b.settings, coord))
	input.AppendTriangles([]common.Vec3{
		{0, 1, 0}, {0, 1, width}, {width, 1, width},
		{0, 1, 0}, {width, 1, 0}, {width, 1, width},
	}, common.AreaWalkable)
	return b.BuildTile(input)
}
