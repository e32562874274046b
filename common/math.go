package common

import "cmp"

// / Returns the square of the value.
func Sqr[T IT](a T) T {
	return a * a
}

// / Returns the absolute value.
func Abs[T IT](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

func Clamp[T cmp.Ordered](value, minInclusive, maxInclusive T) T {
	if value < minInclusive {
		return minInclusive
	}
	if value > maxInclusive {
		return maxInclusive
	}
	return value
}

// / Derives the signed xz-plane area of the triangle ABC, or the relationship of line AB to point C.
// / @return The signed xz-plane area of the triangle.
func TriArea2D(a, b, c Vec3) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

// / Squared distance from pt to segment pq on the xz-plane, plus the
// / parametric position of the closest point along the segment.
func DistancePtSegSqr2D(pt, p, q Vec3) (t float32, d float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	l := pqx*pqx + pqz*pqz
	t = pqx*dx + pqz*dz
	if l > 0 {
		t /= l
	}
	t = Clamp(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return t, dx*dx + dz*dz
}

// / Height of the triangle abc under p, when p projects inside it on the xz-plane.
func ClosestHeightPointTriangle(p, a, b, c Vec3) (h float32, ok bool) {
	const eps = 1e-6
	v0 := c.Sub(a)
	v1 := b.Sub(a)
	v2 := p.Sub(a)

	denom := v0[0]*v1[2] - v0[2]*v1[0]
	if Abs(denom) < eps {
		return 0, false
	}
	u := v1[2]*v2[0] - v1[0]*v2[2]
	v := v0[0]*v2[2] - v0[2]*v2[0]
	if denom < 0 {
		denom = -denom
		u = -u
		v = -v
	}
	if u >= -eps && v >= -eps && (u+v) <= denom+eps {
		return a[1] + (v0[1]*u+v1[1]*v)/denom, true
	}
	return 0, false
}

// CeilPow2 rounds i up to the next power of two. Zero and one map to
// themselves.
func CeilPow2(i int32) int32 {
	i -= 1
	i |= i >> 1
	i |= i >> 2
	i |= i >> 4
	i |= i >> 8
	i |= i >> 16
	return i + 1
}

func Ilog2(v uint32) uint32 {
	var r uint32
	for v > 1 {
		v >>= 1
		r++
	}
	return r
}
