package tile_store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/message"
)

// ArchiveStore keeps tiles in memory and writes the whole set to a single
// archive file after every change.
type ArchiveStore struct {
	mu    sync.Mutex
	path  string
	tiles map[common.TileCoord]*Tile
}

func OpenArchiveStore(path string) (*ArchiveStore, error) {
	s := &ArchiveStore{path: path, tiles: make(map[common.TileCoord]*Tile)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	records, err := message.DecodeArchive(data)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		c := common.TileCoord{X: r.X, Y: r.Y}
		s.tiles[c] = &Tile{Coord: c, Data: r.Data, BuiltAt: unixNano(r.BuiltAtUnixNano)}
	}
	return s, nil
}

func (s *ArchiveStore) Put(ctx context.Context, tile *Tile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := *tile
	t.Data = append([]byte(nil), tile.Data...)
	prev, had := s.tiles[t.Coord]
	s.tiles[t.Coord] = &t
	if err := s.flush(); err != nil {
		if had {
			s.tiles[t.Coord] = prev
		} else {
			delete(s.tiles, t.Coord)
		}
		return err
	}
	return nil
}

func (s *ArchiveStore) Get(ctx context.Context, coord common.TileCoord) (*Tile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiles[coord]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *ArchiveStore) Delete(ctx context.Context, coord common.TileCoord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.tiles[coord]
	if !ok {
		return ErrNotFound
	}
	delete(s.tiles, coord)
	if err := s.flush(); err != nil {
		s.tiles[coord] = prev
		return err
	}
	return nil
}

func (s *ArchiveStore) List(ctx context.Context) ([]*Tile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(), nil
}

func (s *ArchiveStore) list() []*Tile {
	out := make([]*Tile, 0, len(s.tiles))
	for _, t := range s.tiles {
		c := *t
		out = append(out, &c)
	}
	sortTiles(out)
	return out
}

func (s *ArchiveStore) Close() error { return nil }

// flush writes to a temporary file and renames it over the archive.
func (s *ArchiveStore) flush() error {
	tiles := s.list()
	records := make([]*message.TileRecord, len(tiles))
	for i, t := range tiles {
		records[i] = &message.TileRecord{X: t.Coord.X, Y: t.Coord.Y, Data: t.Data, BuiltAtUnixNano: nanos(t.BuiltAt)}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(message.EncodeArchive(records)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
