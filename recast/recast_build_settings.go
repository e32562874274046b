package recast

import (
	"fmt"

	"github.com/gorustyt/navtile/detour"
)

// BuildSettings are the mesher parameters shared by every tile of a navmesh.
// They are fixed once the navmesh is created.
type BuildSettings struct {
	/// Height of a heightfield cell. Lower is more precise on the vertical
	/// axis but slower to build.
	CellHeight float32 `json:"cell_height" yaml:"cell_height"`
	/// Width of a heightfield cell on x and z.
	CellSize float32 `json:"cell_size" yaml:"cell_size"`
	/// Cells per tile edge; a tile is CellSize*TileSize world units wide.
	TileSize int32 `json:"tile_size" yaml:"tile_size"`
	/// Minimum cell count of an isolated island region.
	MinRegionArea int32 `json:"min_region_area" yaml:"min_region_area"`
	/// Regions smaller than this are merged into neighbours when possible.
	RegionMergeArea int32 `json:"region_merge_area" yaml:"region_merge_area"`
	/// Maximum contour edge length along the mesh border.
	MaxEdgeLen float32 `json:"max_edge_len" yaml:"max_edge_len"`
	/// Maximum deviation of a simplified contour from the raw contour.
	MaxEdgeError float32 `json:"max_edge_error" yaml:"max_edge_error"`
	/// Sample distance used when building the detail mesh.
	DetailSamplingDistance float32 `json:"detail_sampling_distance" yaml:"detail_sampling_distance"`
	/// Maximum distance of the detail surface from the heightfield.
	MaxDetailSamplingError float32 `json:"max_detail_sampling_error" yaml:"max_detail_sampling_error"`
}

func DefaultBuildSettings() BuildSettings {
	return BuildSettings{
		CellHeight:             0.2,
		CellSize:               0.3,
		TileSize:               64,
		MinRegionArea:          2,
		RegionMergeArea:        20,
		MaxEdgeLen:             12,
		MaxEdgeError:           1.3,
		DetailSamplingDistance: 6,
		MaxDetailSamplingError: 1,
	}
}

func HighQualityBuildSettings() BuildSettings {
	s := DefaultBuildSettings()
	s.CellHeight = 0.083
	s.CellSize = 0.166
	s.MaxDetailSamplingError = 0.5
	return s
}

func (s BuildSettings) Validate() error {
	switch {
	case !(s.CellHeight > 0):
		return fmt.Errorf("cell height must be positive, got %v", s.CellHeight)
	case !(s.CellSize > 0):
		return fmt.Errorf("cell size must be positive, got %v", s.CellSize)
	case s.TileSize <= 0:
		return fmt.Errorf("tile size must be positive, got %d", s.TileSize)
	case s.MinRegionArea < 0 || s.RegionMergeArea < 0:
		return fmt.Errorf("region areas must not be negative, got %d and %d", s.MinRegionArea, s.RegionMergeArea)
	case s.MaxEdgeLen < 0 || s.MaxEdgeError < 0:
		return fmt.Errorf("edge tolerances must not be negative")
	case s.DetailSamplingDistance < 0 || s.MaxDetailSamplingError < 0:
		return fmt.Errorf("detail tolerances must not be negative")
	}
	return nil
}

// TileWorldSize is the edge length of one tile in world units.
func (s BuildSettings) TileWorldSize() float32 {
	return float32(s.TileSize) * s.CellSize
}

// NavmeshSettings sizes a navmesh for tiles built with s.
func (s BuildSettings) NavmeshSettings(mapSize float32, queryPoolSize int) detour.NavmeshSettings {
	return detour.DefaultNavmeshSettings(s.TileSize, s.CellSize, mapSize, queryPoolSize)
}

// AgentProfile is the traversal class baked into a build.
type AgentProfile struct {
	/// Agents can't enter areas with ceilings lower than this.
	Height float32 `json:"height" yaml:"height"`
	/// Maximum ledge height an agent can step up.
	MaxClimb float32 `json:"max_climb" yaml:"max_climb"`
	/// Maximum walkable slope in degrees.
	MaxSlope float32 `json:"max_slope" yaml:"max_slope"`
	Radius   float32 `json:"radius" yaml:"radius"`
}

func DefaultAgentProfile() AgentProfile {
	return AgentProfile{
		Height:   2.0,
		MaxClimb: 0.4,
		MaxSlope: 45,
		Radius:   0.5,
	}
}

func (a AgentProfile) Validate() error {
	switch {
	case !(a.Height > 0):
		return fmt.Errorf("agent height must be positive, got %v", a.Height)
	case a.MaxClimb < 0:
		return fmt.Errorf("agent max climb must not be negative, got %v", a.MaxClimb)
	case a.MaxSlope < 0 || a.MaxSlope >= 90:
		return fmt.Errorf("agent max slope must be in [0, 90), got %v", a.MaxSlope)
	case a.Radius < 0:
		return fmt.Errorf("agent radius must not be negative, got %v", a.Radius)
	}
	return nil
}
