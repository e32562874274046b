package detour

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/metrics"
	"github.com/gorustyt/navtile/native"
)

var ErrQueriesOutstanding = errors.New("detour: query handles still borrowed")

const (
	DefaultQueryMaxNodes      = 4096
	DefaultQueryMaxPathPoints = 512
)

// NavmeshSettings sizes a navmesh and its query pool. TileSize and CellSize
// must match the settings the tiles were built with.
type NavmeshSettings struct {
	TileSize           int32   `json:"tile_size" yaml:"tile_size"`
	CellSize           float32 `json:"cell_size" yaml:"cell_size"`
	MapSize            float32 `json:"map_size" yaml:"map_size"`
	QueryPoolSize      int     `json:"query_pool_size" yaml:"query_pool_size"`
	QueryMaxNodes      int32   `json:"query_max_nodes" yaml:"query_max_nodes"`
	QueryMaxPathPoints int32   `json:"query_max_path_points" yaml:"query_max_path_points"`
}

func DefaultNavmeshSettings(tileSize int32, cellSize, mapSize float32, queryPoolSize int) NavmeshSettings {
	return NavmeshSettings{
		TileSize:           tileSize,
		CellSize:           cellSize,
		MapSize:            mapSize,
		QueryPoolSize:      queryPoolSize,
		QueryMaxNodes:      DefaultQueryMaxNodes,
		QueryMaxPathPoints: DefaultQueryMaxPathPoints,
	}
}

func (s NavmeshSettings) Validate() error {
	switch {
	case s.TileSize <= 0:
		return fmt.Errorf("tile size must be positive, got %d", s.TileSize)
	case !(s.CellSize > 0):
		return fmt.Errorf("cell size must be positive, got %v", s.CellSize)
	case !(s.MapSize > 0):
		return fmt.Errorf("map size must be positive, got %v", s.MapSize)
	case s.QueryPoolSize <= 0:
		return fmt.Errorf("query pool size must be positive, got %d", s.QueryPoolSize)
	case s.QueryMaxNodes <= 0 || s.QueryMaxNodes > 65535:
		return fmt.Errorf("query max nodes must be in [1, 65535], got %d", s.QueryMaxNodes)
	case s.QueryMaxPathPoints <= 0:
		return fmt.Errorf("query max path points must be positive, got %d", s.QueryMaxPathPoints)
	}
	return nil
}

// TileWorldSize is the edge length of one tile in world units.
func (s NavmeshSettings) TileWorldSize() float32 {
	return float32(s.TileSize) * s.CellSize
}

// CalculateMaxTileBits returns the number of tile address bits needed for a
// square map of mapSize world units: log2 of the tile count rounded up to a
// power of two.
func CalculateMaxTileBits(tileSize int32, cellSize, mapSize float32) int32 {
	tcs := float32(tileSize) * cellSize
	w := mapSize / tcs
	maxTiles := int32(math.Ceil(float64(w * w)))
	return int32(common.Ilog2(uint32(common.CeilPow2(maxTiles))))
}

// Navmesh is a tiled navigation structure plus a fixed pool of query
// handles. Queries may run concurrently, one goroutine per borrowed handle.
// Tiles may only be added or removed while every handle is in the pool.
//
// Mutating methods must not be called concurrently with each other.
type Navmesh struct {
	settings  NavmeshSettings
	tileBits  int32
	handle    native.Navmesh
	tiles     map[common.TileCoord]struct{}
	QueryPool *QueryPool
	closed    bool
}

// NewNavmesh creates the engine navmesh and fills the query pool. On any
// failure everything created so far is released and an error returned.
func NewNavmesh(driver native.Driver, settings NavmeshSettings) (*Navmesh, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("navmesh settings: %w", err)
	}
	tileBits := CalculateMaxTileBits(settings.TileSize, settings.CellSize, settings.MapSize)
	handle, err := driver.CreateNavmesh(settings.TileWorldSize(), tileBits, DT_POLY_BITS)
	if err != nil {
		return nil, fmt.Errorf("create navmesh: %w", err)
	}
	pool, err := newQueryPool(handle, settings.QueryPoolSize, settings.QueryMaxNodes, settings.QueryMaxPathPoints)
	if err != nil {
		handle.Destroy()
		return nil, err
	}
	logger.Debug("navmesh created, driver: %v, tile bits: %v, poly bits: %v, pool: %v",
		driver.Name(), tileBits, DT_POLY_BITS, settings.QueryPoolSize)
	return &Navmesh{
		settings:  settings,
		tileBits:  tileBits,
		handle:    handle,
		tiles:     make(map[common.TileCoord]struct{}),
		QueryPool: pool,
	}, nil
}

func (n *Navmesh) Settings() NavmeshSettings { return n.settings }

func (n *Navmesh) TileBits() int32 { return n.tileBits }

// Handle exposes the engine navmesh for collaborators such as crowds.
func (n *Navmesh) Handle() native.Navmesh { return n.handle }

func (n *Navmesh) HasTile(coord common.TileCoord) bool {
	_, ok := n.tiles[coord]
	return ok
}

func (n *Navmesh) TileCount() int { return len(n.tiles) }

// TileCoords lists loaded tiles in row-major order.
func (n *Navmesh) TileCoords() []common.TileCoord {
	coords := make([]common.TileCoord, 0, len(n.tiles))
	for c := range n.tiles {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
	return coords
}

// AddOrReplaceTile installs tile at the coordinate in its header, replacing
// any tile already there. It returns false without side effects when any
// query handle is borrowed, and false when the engine rejects the tile.
func (n *Navmesh) AddOrReplaceTile(tile *NavmeshTile) bool {
	if !n.quiescent("add") {
		return false
	}
	return n.addOrReplaceTile(tile)
}

// RemoveTile removes the tile at coord. It returns false when any query
// handle is borrowed or no tile is recorded there.
func (n *Navmesh) RemoveTile(coord common.TileCoord) bool {
	if !n.quiescent("remove") {
		return false
	}
	return n.removeTile(coord)
}

func (n *Navmesh) quiescent(op string) bool {
	if n.closed || !n.QueryPool.IsFull() {
		metrics.TileMutationTotal.WithLabelValues(op, "busy").Inc()
		return false
	}
	return true
}

func (n *Navmesh) addOrReplaceTile(tile *NavmeshTile) bool {
	coord, err := tile.Coord()
	if err != nil {
		logger.Warn("add tile rejected: %v", err)
		metrics.TileMutationTotal.WithLabelValues("add", "rejected").Inc()
		return false
	}
	n.removeTile(coord)
	if !n.handle.AddTile(tile.Data) {
		logger.Warn("engine rejected tile %v", coord)
		metrics.TileMutationTotal.WithLabelValues("add", "rejected").Inc()
		return false
	}
	n.tiles[coord] = struct{}{}
	metrics.TileMutationTotal.WithLabelValues("add", "ok").Inc()
	metrics.TilesLoaded.Inc()
	return true
}

func (n *Navmesh) removeTile(coord common.TileCoord) bool {
	if _, ok := n.tiles[coord]; !ok {
		return false
	}
	if !n.handle.RemoveTile(coord) {
		logger.Warn("engine failed to remove tile %v", coord)
		metrics.TileMutationTotal.WithLabelValues("remove", "rejected").Inc()
		return false
	}
	delete(n.tiles, coord)
	metrics.TileMutationTotal.WithLabelValues("remove", "ok").Inc()
	metrics.TilesLoaded.Dec()
	return true
}

// TileMutator is handed to Mutate callbacks. It is only valid for the
// duration of the callback.
type TileMutator struct {
	n *Navmesh
}

func (m *TileMutator) AddOrReplaceTile(tile *NavmeshTile) bool {
	if m.n == nil {
		return false
	}
	return m.n.addOrReplaceTile(tile)
}

func (m *TileMutator) RemoveTile(coord common.TileCoord) bool {
	if m.n == nil {
		return false
	}
	return m.n.removeTile(coord)
}

// Mutate takes every handle out of the pool, runs fn, then puts them back.
// No query can be borrowed while fn runs. It returns false without calling
// fn when any handle is already borrowed.
func (n *Navmesh) Mutate(fn func(m *TileMutator)) bool {
	if n.closed {
		return false
	}
	held, ok := n.QueryPool.takeAll()
	if !ok {
		metrics.TileMutationTotal.WithLabelValues("batch", "busy").Inc()
		return false
	}
	m := &TileMutator{n: n}
	defer func() {
		m.n = nil
		n.QueryPool.restore(held)
	}()
	fn(m)
	return true
}

// Close destroys every pooled query and then the engine navmesh. All handles
// must have been returned first.
func (n *Navmesh) Close() error {
	if n.closed {
		return nil
	}
	if !n.QueryPool.IsFull() {
		return fmt.Errorf("%w: %d of %d in pool", ErrQueriesOutstanding, n.QueryPool.Len(), n.QueryPool.Cap())
	}
	n.QueryPool.clear()
	n.handle.Destroy()
	metrics.TilesLoaded.Sub(float64(len(n.tiles)))
	n.tiles = nil
	n.closed = true
	return nil
}
