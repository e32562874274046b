// Package softnav is a pure Go navigation engine behind the native driver
// contract. It triangulates input geometry per tile without voxelization,
// links polygons across tile borders and answers queries over the result.
// It is the default driver for tooling and tests.
package softnav

import (
	"fmt"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/native"
)

const DriverName = "softnav"

// Driver is stateless; the zero value is ready to use.
type Driver struct{}

func init() {
	native.Register(DriverName, Driver{})
}

func (Driver) Name() string { return DriverName }

func (Driver) CreateBuilder() (native.Builder, error) {
	return &builder{}, nil
}

func (Driver) CreateNavmesh(cellTileSize float32, tileBits, polyBits int32) (native.Navmesh, error) {
	if !(cellTileSize > 0) || tileBits < 0 || polyBits <= 0 || tileBits+polyBits > 48 {
		return nil, fmt.Errorf("%w: navmesh tile size %v, tile bits %d, poly bits %d",
			native.ErrCreateFailed, cellTileSize, tileBits, polyBits)
	}
	return &navMesh{
		cellTileSize: cellTileSize,
		maxTiles:     1 << tileBits,
		maxPolys:     1 << polyBits,
		tiles:        make(map[common.TileCoord]*meshTile),
	}, nil
}
