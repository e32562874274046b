package recast

import (
	"math"

	"github.com/gorustyt/navtile/common"
)

// GetOverlappingTiles returns every tile whose footprint touches the xz
// projection of box, in row-major order. A box that is flat on an axis still
// yields the tile containing it.
func GetOverlappingTiles(tileSize int32, cellSize float32, box common.BoundingBox) []common.TileCoord {
	tcs := float32(tileSize) * cellSize
	sx, ex := tileSpan(box.Min[0], box.Max[0], tcs)
	sy, ey := tileSpan(box.Min[2], box.Max[2], tcs)
	coords := make([]common.TileCoord, 0, int((ex-sx)*(ey-sy)))
	for y := sy; y < ey; y++ {
		for x := sx; x < ex; x++ {
			coords = append(coords, common.TileCoord{X: x, Y: y})
		}
	}
	return coords
}

func GetOverlappingTilesFromSettings(settings BuildSettings, box common.BoundingBox) []common.TileCoord {
	return GetOverlappingTiles(settings.TileSize, settings.CellSize, box)
}

// tileSpan returns the half open tile range [s, e) covering [lo, hi]. The
// division may round across a tile edge, so the range is checked against the
// same edges CalculateTileBoundingBox produces.
func tileSpan(lo, hi, tcs float32) (int32, int32) {
	s := int32(math.Floor(float64(lo / tcs)))
	e := int32(math.Ceil(float64(hi / tcs)))
	for float32(s)*tcs > lo {
		s--
	}
	for float32(s+1)*tcs <= lo && s+1 < e {
		s++
	}
	for float32(e)*tcs < hi {
		e++
	}
	for e-1 > s && float32(e-1)*tcs >= hi {
		e--
	}
	if e <= s {
		e = s + 1
	}
	return s, e
}

// CalculateTileBoundingBox returns the world footprint of coord. The height
// range is zero; builds override it with the input bounds.
//
// The footprint has no border. Input geometry must be gathered from a box
// expanded by a few cells or tiles will not connect.
func CalculateTileBoundingBox(settings BuildSettings, coord common.TileCoord) common.BoundingBox {
	tcs := settings.TileWorldSize()
	return common.BoundingBox{
		Min: common.Vec3{float32(coord.X) * tcs, 0, float32(coord.Y) * tcs},
		Max: common.Vec3{float32(coord.X+1) * tcs, 0, float32(coord.Y+1) * tcs},
	}
}

// SnapBoundingBoxToCellHeight floors Min.y and ceils Max.y to cell height
// multiples so stacked tiles agree on their shared boundary.
func SnapBoundingBoxToCellHeight(settings BuildSettings, box common.BoundingBox) common.BoundingBox {
	ch := settings.CellHeight
	box.Min[1] = float32(math.Floor(float64(box.Min[1]/ch))) * ch
	box.Max[1] = float32(math.Ceil(float64(box.Max[1]/ch))) * ch
	return box
}
