package recast

import (
	"fmt"

	"github.com/gorustyt/navtile/common"
)

// TileInput accumulates the triangles of one tile build. It is consumed by
// TileBuilder.BuildTile.
type TileInput struct {
	Coord    common.TileCoord
	Bounds   common.BoundingBox
	Vertices []common.Vec3
	Indices  []int32
	Areas    []uint8
}

func NewTileInput(coord common.TileCoord, bounds common.BoundingBox) *TileInput {
	return &TileInput{Coord: coord, Bounds: bounds}
}

// Append adds an indexed mesh with one area for all of its triangles.
// Indices are relative to vertices and are rebased onto the input.
func (t *TileInput) Append(vertices []common.Vec3, indices []int32, area uint8) {
	vbase := int32(len(t.Vertices))
	for _, v := range vertices {
		t.Vertices = append(t.Vertices, v)
		t.Bounds = t.Bounds.Merge(v)
	}
	for _, idx := range indices {
		t.Indices = append(t.Indices, idx+vbase)
	}
	for i := 0; i < len(indices)/3; i++ {
		t.Areas = append(t.Areas, area)
	}
}

// AppendTriangles adds unindexed triangles, three vertices each.
func (t *TileInput) AppendTriangles(vertices []common.Vec3, area uint8) error {
	if len(vertices)%3 != 0 {
		return fmt.Errorf("triangle vertex count %d is not a multiple of 3", len(vertices))
	}
	vbase := int32(len(t.Vertices))
	for i, v := range vertices {
		t.Vertices = append(t.Vertices, v)
		t.Indices = append(t.Indices, vbase+int32(i))
		t.Bounds = t.Bounds.Merge(v)
	}
	for i := 0; i < len(vertices)/3; i++ {
		t.Areas = append(t.Areas, area)
	}
	return nil
}

func (t *TileInput) TriangleCount() int { return len(t.Indices) / 3 }

func (t *TileInput) IsEmpty() bool { return len(t.Indices) == 0 }
