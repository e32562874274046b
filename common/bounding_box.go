package common

import "math"

// BoundingBox is an axis aligned box. A box whose Min exceeds its Max on any
// axis is empty.
type BoundingBox struct {
	Min Vec3 `json:"min" yaml:"min"`
	Max Vec3 `json:"max" yaml:"max"`
}

func NewBoundingBox(min, max Vec3) BoundingBox {
	return BoundingBox{Min: min, Max: max}
}

// EmptyBoundingBox returns the identity for Merge.
func EmptyBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

func BoundingBoxFromPoints(points []Vec3) BoundingBox {
	b := EmptyBoundingBox()
	for _, p := range points {
		b = b.Merge(p)
	}
	return b
}

func (b BoundingBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b BoundingBox) Merge(p Vec3) BoundingBox {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

func (b BoundingBox) MergeBox(o BoundingBox) BoundingBox {
	if o.IsEmpty() {
		return b
	}
	return b.Merge(o.Min).Merge(o.Max)
}

// Expand grows the box by amount on the x and z axes only.
func (b BoundingBox) Expand(amount float32) BoundingBox {
	b.Min[0] -= amount
	b.Min[2] -= amount
	b.Max[0] += amount
	b.Max[2] += amount
	return b
}

func (b BoundingBox) Intersects(o BoundingBox) bool {
	for i := 0; i < 3; i++ {
		if b.Min[i] > o.Max[i] || b.Max[i] < o.Min[i] {
			return false
		}
	}
	return true
}

// Intersects2D ignores the y axis.
func (b BoundingBox) Intersects2D(o BoundingBox) bool {
	return !(b.Min[0] > o.Max[0] || b.Max[0] < o.Min[0] ||
		b.Min[2] > o.Max[2] || b.Max[2] < o.Min[2])
}

func (b BoundingBox) ContainsPoint(p Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b BoundingBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}
