// Package config loads navtool configuration. Files ending in .yaml or .yml
// are YAML, anything else is read as hjson (which accepts plain JSON).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native/softnav"
	"github.com/gorustyt/navtile/recast"
	"github.com/gorustyt/navtile/tile_store"
	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger  *logger.Config       `json:"logger" yaml:"logger"`
	Driver  string               `json:"driver" yaml:"driver"`
	Build   recast.BuildSettings `json:"build" yaml:"build"`
	Agent   recast.AgentProfile  `json:"agent" yaml:"agent"`
	Navmesh Navmesh              `json:"navmesh" yaml:"navmesh"`
	Query   detour.QuerySettings `json:"query" yaml:"query"`
	Store   Store                `json:"store" yaml:"store"`
	Server  Server               `json:"server" yaml:"server"`
}

type Navmesh struct {
	MapSize            float32 `json:"map_size" yaml:"map_size"`
	QueryPoolSize      int     `json:"query_pool_size" yaml:"query_pool_size"`
	QueryMaxNodes      int32   `json:"query_max_nodes" yaml:"query_max_nodes"`
	QueryMaxPathPoints int32   `json:"query_max_path_points" yaml:"query_max_path_points"`
	BuildWorkers       int     `json:"build_workers" yaml:"build_workers"`
}

type Store struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

type Server struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
	// BorrowTimeoutMs bounds how long a request waits for a free query.
	BorrowTimeoutMs int `json:"borrow_timeout_ms" yaml:"borrow_timeout_ms"`
}

func (s Server) BorrowTimeout() time.Duration {
	return time.Duration(s.BorrowTimeoutMs) * time.Millisecond
}

func Default() *Config {
	return &Config{
		Logger: logger.DefaultConfig(),
		Driver: softnav.DriverName,
		Build:  recast.DefaultBuildSettings(),
		Agent:  recast.DefaultAgentProfile(),
		Navmesh: Navmesh{
			MapSize:            2048,
			QueryPoolSize:      8,
			QueryMaxNodes:      detour.DefaultQueryMaxNodes,
			QueryMaxPathPoints: detour.DefaultQueryMaxPathPoints,
		},
		Query: detour.DefaultQuerySettings(),
		Store: Store{Kind: tile_store.KindArchive, Path: "tiles.ntar"},
		Server: Server{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			BorrowTimeoutMs: 2000,
		},
	}
}

// NavmeshSettings combines the build grid with the navmesh section.
func (c *Config) NavmeshSettings() detour.NavmeshSettings {
	s := c.Build.NavmeshSettings(c.Navmesh.MapSize, c.Navmesh.QueryPoolSize)
	s.QueryMaxNodes = c.Navmesh.QueryMaxNodes
	s.QueryMaxPathPoints = c.Navmesh.QueryMaxPathPoints
	return s
}

func (c *Config) Validate() error {
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.NavmeshSettings().Validate(); err != nil {
		return fmt.Errorf("navmesh: %w", err)
	}
	if c.Query.MaxPathPoints <= 0 {
		return fmt.Errorf("query: max path points must be positive, got %d", c.Query.MaxPathPoints)
	}
	if c.Logger != nil {
		if _, err := logger.ParseLogLevel(c.Logger.Level); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
	}
	return nil
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = hjson.Unmarshal(data, c)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
