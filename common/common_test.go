package common

import (
	"math"
	"testing"
)

func assertTrue(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Error(msg)
	}
}

func TestCeilPow2(t *testing.T) {
	cases := map[int32]int32{1: 1, 2: 2, 3: 4, 5: 8, 64: 64, 65: 128, 1000: 1024}
	for in, want := range cases {
		if got := CeilPow2(in); got != want {
			t.Errorf("CeilPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestIlog2(t *testing.T) {
	assertTrue(t, Ilog2(1) == 0, "ilog2(1)")
	assertTrue(t, Ilog2(2) == 1, "ilog2(2)")
	assertTrue(t, Ilog2(1024) == 10, "ilog2(1024)")
	assertTrue(t, Ilog2(1025) == 10, "ilog2(1025)")
}

func TestBoundingBoxMerge(t *testing.T) {
	b := EmptyBoundingBox()
	assertTrue(t, b.IsEmpty(), "new box should be empty")
	b = b.Merge(Vec3{1, 2, 3}).Merge(Vec3{-1, 5, 0})
	assertTrue(t, b.Min == Vec3{-1, 2, 0}, "min after merge")
	assertTrue(t, b.Max == Vec3{1, 5, 3}, "max after merge")
	assertTrue(t, b.ContainsPoint(Vec3{0, 3, 1}), "contains center")
	assertTrue(t, !b.ContainsPoint(Vec3{0, 6, 1}), "above the box")

	m := b.MergeBox(EmptyBoundingBox())
	assertTrue(t, m == b, "merging an empty box is a no-op")
}

func TestBoundingBoxIntersects(t *testing.T) {
	a := NewBoundingBox(Vec3{0, 0, 0}, Vec3{1, 1, 1})
	b := NewBoundingBox(Vec3{1, 0, 1}, Vec3{2, 1, 2})
	c := NewBoundingBox(Vec3{1.5, 0, 1.5}, Vec3{2, 1, 2})
	assertTrue(t, a.Intersects(b), "touching boxes intersect")
	assertTrue(t, !a.Intersects(c), "disjoint boxes")
	assertTrue(t, a.Expand(0.6).Intersects2D(c), "expanded box reaches c")
}

func TestClosestHeightPointTriangle(t *testing.T) {
	a, b, c := Vec3{0, 0, 0}, Vec3{10, 10, 0}, Vec3{0, 0, 10}
	h, ok := ClosestHeightPointTriangle(Vec3{5, 0, 1}, a, b, c)
	assertTrue(t, ok, "point inside triangle")
	assertTrue(t, math.Abs(float64(h-5)) < 1e-4, "interpolated height")
	_, ok = ClosestHeightPointTriangle(Vec3{20, 0, 20}, a, b, c)
	assertTrue(t, !ok, "point outside triangle")
}
