package detour

import (
	"github.com/gorustyt/navtile/common"
)

// NavmeshTile is one tile's serialized navigation data, ready to be added to
// a Navmesh. The bytes are owned by the tile.
type NavmeshTile struct {
	Data []byte
}

func NewNavmeshTile(data []byte) *NavmeshTile {
	return &NavmeshTile{Data: data}
}

func (t *NavmeshTile) Header() (*DtMeshHeader, error) {
	return ReadMeshHeader(t.Data)
}

// Coord is the grid coordinate stored in the tile header.
func (t *NavmeshTile) Coord() (common.TileCoord, error) {
	h, err := t.Header()
	if err != nil {
		return common.TileCoord{}, err
	}
	return common.TileCoord{X: h.X, Y: h.Y}, nil
}

// Geometry returns the tile's triangulated polygons, or nil when the tile has
// no vertices.
func (t *NavmeshTile) Geometry() (*TileGeometry, error) {
	return DecodeTileGeometry(t.Data)
}
