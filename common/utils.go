package common

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Vec3 = mgl32.Vec3
type Vec2 = mgl32.Vec2

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Area ids understood by the build engine. Anything in (AreaNull, AreaWalkable]
// is a user area; AreaNull marks geometry that is never walkable.
const (
	AreaNull     uint8 = 0
	AreaWalkable uint8 = 63
)

// TileCoord addresses one tile of the grid. Y is the grid row and maps to
// world z.
type TileCoord struct {
	X int32 `json:"x" yaml:"x"`
	Y int32 `json:"y" yaml:"y"`
}

func (c TileCoord) Add(dx, dy int32) TileCoord {
	return TileCoord{X: c.X + dx, Y: c.Y + dy}
}

func (c TileCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
