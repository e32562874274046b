// Package tile_store persists built navmesh tiles keyed by tile coordinate.
package tile_store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/detour"
)

var ErrNotFound = errors.New("tile_store: tile not found")

// Tile is one stored tile.
type Tile struct {
	Coord   common.TileCoord
	Data    []byte
	BuiltAt time.Time
}

// Store is safe for concurrent use.
type Store interface {
	Put(ctx context.Context, tile *Tile) error
	// Get returns ErrNotFound for an unknown coordinate.
	Get(ctx context.Context, coord common.TileCoord) (*Tile, error)
	Delete(ctx context.Context, coord common.TileCoord) error
	// List returns every tile in row-major order.
	List(ctx context.Context) ([]*Tile, error)
	Close() error
}

const (
	KindArchive = "archive"
	KindBadger  = "badger"
	KindSQLite  = "sqlite"
)

func Open(kind, path string) (Store, error) {
	switch kind {
	case KindArchive:
		return OpenArchiveStore(path)
	case KindBadger:
		return OpenBadgerStore(path)
	case KindSQLite:
		return OpenSQLStore(path)
	}
	return nil, fmt.Errorf("tile_store: unknown store kind %q", kind)
}

// NewTile wraps a built tile, taking its coordinate from the tile header.
func NewTile(t *detour.NavmeshTile) (*Tile, error) {
	coord, err := t.Coord()
	if err != nil {
		return nil, err
	}
	return &Tile{Coord: coord, Data: t.Data, BuiltAt: time.Now()}, nil
}

// SaveTiles stores every tile.
func SaveTiles(ctx context.Context, s Store, tiles []*detour.NavmeshTile) error {
	for _, t := range tiles {
		rec, err := NewTile(t)
		if err != nil {
			return err
		}
		if err := s.Put(ctx, rec); err != nil {
			return fmt.Errorf("put tile %v: %w", rec.Coord, err)
		}
	}
	return nil
}

// LoadAll adds every stored tile to nav in one mutation. It fails without
// touching nav when query handles are borrowed. Tiles the engine rejects are
// logged and skipped.
func LoadAll(ctx context.Context, s Store, nav *detour.Navmesh) (int, error) {
	tiles, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	loaded := 0
	ok := nav.Mutate(func(m *detour.TileMutator) {
		for _, t := range tiles {
			if m.AddOrReplaceTile(detour.NewNavmeshTile(t.Data)) {
				loaded++
			} else {
				logger.Warn("stored tile %v rejected", t.Coord)
			}
		}
	})
	if !ok {
		return 0, detour.ErrQueriesOutstanding
	}
	logger.Info("loaded %v of %v stored tiles", loaded, len(tiles))
	return loaded, nil
}

func sortTiles(tiles []*Tile) {
	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i].Coord, tiles[j].Coord
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}
