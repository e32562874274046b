package tile_store

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorustyt/navtile/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type TileGorm struct {
	X       int32  `gorm:"column:x;primaryKey;autoIncrement:false"`
	Y       int32  `gorm:"column:y;primaryKey;autoIncrement:false"`
	Data    []byte `gorm:"column:data"`
	BuiltAt int64  `gorm:"column:built_at"`
}

func (TileGorm) TableName() string {
	return "nav_tiles"
}

// SQLStore keeps tiles in a sqlite table.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore opens or creates the sqlite database at dsn; ":memory:"
// gives a private in-memory database.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if sqlDb, err := db.DB(); err == nil {
		sqlDb.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&TileGorm{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Put(ctx context.Context, tile *Tile) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&TileGorm{
		X:       tile.Coord.X,
		Y:       tile.Coord.Y,
		Data:    tile.Data,
		BuiltAt: nanos(tile.BuiltAt),
	}).Error
}

func (s *SQLStore) Get(ctx context.Context, coord common.TileCoord) (*Tile, error) {
	row := new(TileGorm)
	err := s.db.WithContext(ctx).Where("x = ? AND y = ?", coord.X, coord.Y).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.tile(), nil
}

func (s *SQLStore) Delete(ctx context.Context, coord common.TileCoord) error {
	res := s.db.WithContext(ctx).Where("x = ? AND y = ?", coord.X, coord.Y).Delete(&TileGorm{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Tile, error) {
	var rows []*TileGorm
	if err := s.db.WithContext(ctx).Order("y, x").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*Tile, len(rows))
	for i, r := range rows {
		out[i] = r.tile()
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

func (r *TileGorm) tile() *Tile {
	return &Tile{Coord: common.TileCoord{X: r.X, Y: r.Y}, Data: r.Data, BuiltAt: unixNano(r.BuiltAt)}
}

func unixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
