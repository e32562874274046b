package tile_store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorustyt/navtile/common"
	"github.com/vmihailenco/msgpack/v5"
)

const badgerPrefix = "tile/"

type badgerTile struct {
	X       int32  `msgpack:"x"`
	Y       int32  `msgpack:"y"`
	Data    []byte `msgpack:"data"`
	BuiltAt int64  `msgpack:"built_at"`
}

// BadgerStore keeps one msgpack value per tile under tile/<x>/<y>.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(c common.TileCoord) []byte {
	return []byte(fmt.Sprintf("%s%d/%d", badgerPrefix, c.X, c.Y))
}

func (s *BadgerStore) Put(ctx context.Context, tile *Tile) error {
	value, err := msgpack.Marshal(&badgerTile{X: tile.Coord.X, Y: tile.Coord.Y, Data: tile.Data, BuiltAt: nanos(tile.BuiltAt)})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(tile.Coord), value)
	})
}

func (s *BadgerStore) Get(ctx context.Context, coord common.TileCoord) (*Tile, error) {
	var out *Tile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(coord))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out, err = decodeBadgerTile(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Delete(ctx context.Context, coord common.TileCoord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := badgerKey(coord)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *BadgerStore) List(ctx context.Context) ([]*Tile, error) {
	var out []*Tile
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				t, err := decodeBadgerTile(val)
				if err != nil {
					return err
				}
				out = append(out, t)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortTiles(out)
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func decodeBadgerTile(val []byte) (*Tile, error) {
	var bt badgerTile
	if err := msgpack.Unmarshal(val, &bt); err != nil {
		return nil, err
	}
	return &Tile{Coord: common.TileCoord{X: bt.X, Y: bt.Y}, Data: bt.Data, BuiltAt: unixNano(bt.BuiltAt)}, nil
}
