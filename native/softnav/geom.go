package softnav

import (
	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
)

// / All points are projected onto the xz-plane, so the y-values are ignored.
func pointInPolygon(pt common.Vec3, verts []common.Vec3) bool {
	c := false
	for i, j := 0, len(verts)-1; i < len(verts); j, i = i, i+1 {
		vi := verts[i]
		vj := verts[j]
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) && (pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
	}
	return c
}

// overlapSlabs checks whether two border edges, expressed as (along, y)
// slabs, touch. The segments are shrunk by px so slabs touching only at
// end points are not connected; py is the allowed vertical gap.
func overlapSlabs(amin, amax, bmin, bmax common.Vec2, px, py float32) bool {
	minx := max(amin[0]+px, bmin[0]+px)
	maxx := min(amax[0]-px, bmax[0]-px)
	if minx > maxx {
		return false
	}
	// Check vertical overlap.
	ad := (amax[1] - amin[1]) / (amax[0] - amin[0])
	ak := amin[1] - ad*amin[0]
	bd := (bmax[1] - bmin[1]) / (bmax[0] - bmin[0])
	bk := bmin[1] - bd*bmin[0]
	aminy := ad*minx + ak
	amaxy := ad*maxx + ak
	bminy := bd*minx + bk
	bmaxy := bd*maxx + bk
	dmin := bminy - aminy
	dmax := bmaxy - amaxy

	// Crossing segments always overlap.
	if dmin*dmax < 0 {
		return true
	}
	// Check for overlap at endpoints.
	thr := common.Sqr(py * 2)
	return dmin*dmin <= thr || dmax*dmax <= thr
}

func getSlabCoord(va common.Vec3, side int32) float32 {
	if side == detour.DT_SIDE_POS_X || side == detour.DT_SIDE_NEG_X {
		return va[0]
	}
	return va[2]
}

// calcSlabEndPoints maps an edge on a tile border to (along, y) pairs
// ordered along the border.
func calcSlabEndPoints(va, vb common.Vec3, side int32) (bmin, bmax common.Vec2) {
	axis := 0
	if side == detour.DT_SIDE_POS_X || side == detour.DT_SIDE_NEG_X {
		axis = 2
	}
	if va[axis] < vb[axis] {
		return common.Vec2{va[axis], va[1]}, common.Vec2{vb[axis], vb[1]}
	}
	return common.Vec2{vb[axis], vb[1]}, common.Vec2{va[axis], va[1]}
}

// pointOnSlab turns an (along, y) slab point back into world space.
func pointOnSlab(p common.Vec2, slabCoord float32, side int32) common.Vec3 {
	if side == detour.DT_SIDE_POS_X || side == detour.DT_SIDE_NEG_X {
		return common.Vec3{slabCoord, p[1], p[0]}
	}
	return common.Vec3{p[0], p[1], slabCoord}
}

func lerpSlab(a, b common.Vec2, along float32) common.Vec2 {
	if b[0] == a[0] {
		return common.Vec2{along, a[1]}
	}
	t := (along - a[0]) / (b[0] - a[0])
	return common.Vec2{along, a[1] + (b[1]-a[1])*t}
}

// polyHeight returns the fan-triangulated surface height of a polygon under
// pos.
func polyHeight(verts []common.Vec3, pos common.Vec3) (float32, bool) {
	for j := 1; j+1 < len(verts); j++ {
		if h, ok := common.ClosestHeightPointTriangle(pos, verts[0], verts[j], verts[j+1]); ok {
			return h, true
		}
	}
	return 0, false
}

func averageHeight(verts []common.Vec3) float32 {
	var h float32
	for _, v := range verts {
		h += v[1]
	}
	return h / float32(len(verts))
}

// closestPointOnPolyBoundary returns the closest point on the polygon's
// edges on the xz-plane, with height interpolated along the edge.
func closestPointOnPolyBoundary(verts []common.Vec3, pos common.Vec3) common.Vec3 {
	best := verts[0]
	bestD := float32(-1)
	for i, j := 0, len(verts)-1; i < len(verts); j, i = i, i+1 {
		t, d := common.DistancePtSegSqr2D(pos, verts[j], verts[i])
		if bestD < 0 || d < bestD {
			bestD = d
			best = verts[j].Add(verts[i].Sub(verts[j]).Mul(t))
		}
	}
	return best
}

func polyArea2D(verts []common.Vec3) float32 {
	var area float32
	for j := 1; j+1 < len(verts); j++ {
		area += common.TriArea2D(verts[0], verts[j], verts[j+1])
	}
	return area
}

// segmentIntersect2D reports where segment ab crosses segment cd on the
// xz-plane, as a parameter along ab.
func segmentIntersect2D(a, b, c, d common.Vec3) (float32, bool) {
	ux, uz := b[0]-a[0], b[2]-a[2]
	vx, vz := d[0]-c[0], d[2]-c[2]
	wx, wz := a[0]-c[0], a[2]-c[2]
	den := ux*vz - uz*vx
	if common.Abs(den) < 1e-9 {
		return 0, false
	}
	s := (vx*wz - vz*wx) / den
	t := (ux*wz - uz*wx) / den
	if s < 0 || s > 1 || t < 0 || t > 1 {
		return 0, false
	}
	return s, true
}
