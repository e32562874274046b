package softnav

import (
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native"
)

const (
	slabEpsilon   = 0.01
	raycastSteps  = 4096
	raycastStride = 1.0 / 256
)

var querySeed atomic.Int64

type polyRef struct {
	tile *meshTile
	poly int
}

// link is a traversable edge from one polygon to the next, with the portal
// segment between them.
type link struct {
	to          polyRef
	left, right common.Vec3
}

type query struct {
	nav      *navMesh
	maxNodes int
	rnd      *rand.Rand
	vbuf     []common.Vec3
}

func newQuery(nav *navMesh, maxNodes int32) *query {
	return &query{
		nav:      nav,
		maxNodes: int(maxNodes),
		rnd:      rand.New(rand.NewSource(querySeed.Add(1))),
		vbuf:     make([]common.Vec3, 0, detour.DT_VERTS_PER_POLYGON),
	}
}

func (q *query) Destroy() {
	q.nav = nil
}

// findNearestPoly returns the polygon closest to center among those whose
// bounds overlap the box center±extent.
func (q *query) findNearestPoly(center, extent common.Vec3) (polyRef, common.Vec3, bool) {
	box := common.NewBoundingBox(center.Sub(extent), center.Add(extent))
	var best polyRef
	var bestPt common.Vec3
	bestD := float32(math.MaxFloat32)
	found := false
	for _, t := range q.nav.tiles {
		if !t.bounds.Intersects(box) {
			continue
		}
		for i := range t.polys {
			pv := t.polyVerts(i, q.vbuf)
			if !common.BoundingBoxFromPoints(pv).Intersects(box) {
				continue
			}
			pt := closestPointOnPoly(pv, center)
			d := pt.Sub(center).LenSqr()
			if d < bestD {
				best, bestPt, bestD, found = polyRef{t, i}, pt, d, true
			}
		}
	}
	return best, bestPt, found
}

func closestPointOnPoly(verts []common.Vec3, pos common.Vec3) common.Vec3 {
	if pointInPolygon(pos, verts) {
		h, ok := polyHeight(verts, pos)
		if !ok {
			h = averageHeight(verts)
		}
		return common.Vec3{pos[0], h, pos[2]}
	}
	return closestPointOnPolyBoundary(verts, pos)
}

// links enumerates the neighbours of ref: internal ones from the polygon's
// neighbour table and cross-tile ones by matching border edges of the
// adjacent tile.
func (q *query) links(ref polyRef, out []link) []link {
	t := ref.tile
	p := &t.polys[ref.poly]
	nv := int(p.VertCount)
	for j := 0; j < nv; j++ {
		va := t.verts[p.Verts[j]]
		vb := t.verts[p.Verts[(j+1)%nv]]
		nei := p.Neis[j]
		switch {
		case nei == 0:
		case nei&detour.DT_EXT_LINK == 0:
			out = append(out, link{to: polyRef{t, int(nei) - 1}, left: va, right: vb})
		default:
			out = q.connectingPolys(t, va, vb, int32(nei&0x7), out)
		}
	}
	return out
}

func (q *query) connectingPolys(from *meshTile, va, vb common.Vec3, side int32, out []link) []link {
	dx, dy := detour.SideOffset(side)
	nt, ok := q.nav.tiles[from.coord.Add(dx, dy)]
	if !ok {
		return out
	}
	amin, amax := calcSlabEndPoints(va, vb, side)
	apos := getSlabCoord(va, side)
	m := uint16(detour.DT_EXT_LINK | detour.OppositeSide(side))
	for i := range nt.polys {
		p := &nt.polys[i]
		nv := int(p.VertCount)
		for j := 0; j < nv; j++ {
			if p.Neis[j] != m {
				continue
			}
			vc := nt.verts[p.Verts[j]]
			vd := nt.verts[p.Verts[(j+1)%nv]]
			if common.Abs(apos-getSlabCoord(vc, side)) > slabEpsilon {
				continue
			}
			bmin, bmax := calcSlabEndPoints(vc, vd, side)
			if !overlapSlabs(amin, amax, bmin, bmax, slabEpsilon, nt.header.WalkableClimb) {
				continue
			}
			lo := max(amin[0], bmin[0])
			hi := min(amax[0], bmax[0])
			l := pointOnSlab(lerpSlab(amin, amax, lo), apos, side)
			r := pointOnSlab(lerpSlab(amin, amax, hi), apos, side)
			out = append(out, link{to: polyRef{nt, i}, left: l, right: r})
			break
		}
	}
	return out
}

// search runs a breadth first expansion from start bounded by maxNodes and
// returns the parent links of every reached polygon.
func (q *query) search(start, end polyRef) (map[polyRef]link, bool) {
	parents := map[polyRef]link{start: {to: start}}
	if start == end {
		return parents, true
	}
	open := []polyRef{start}
	var buf []link
	for len(open) > 0 {
		cur := open[0]
		open = open[1:]
		buf = q.links(cur, buf[:0])
		for _, l := range buf {
			if _, seen := parents[l.to]; seen {
				continue
			}
			if len(parents) >= q.maxNodes {
				return parents, false
			}
			parents[l.to] = link{to: cur, left: l.left, right: l.right}
			if l.to == end {
				return parents, true
			}
			open = append(open, l.to)
		}
	}
	return parents, false
}

func (q *query) HasPath(pq *native.PathFindQuery) bool {
	if q.nav == nil {
		return false
	}
	start, _, ok := q.findNearestPoly(pq.Source, pq.FindNearestPolyExtent)
	if !ok {
		return false
	}
	end, _, ok := q.findNearestPoly(pq.Target, pq.FindNearestPolyExtent)
	if !ok {
		return false
	}
	_, found := q.search(start, end)
	return found
}

func (q *query) FindStraightPath(pq *native.PathFindQuery, res *native.PathFindResult) {
	res.PathFound = false
	res.NumPathPoints = 0
	if q.nav == nil {
		return
	}
	start, startPt, ok := q.findNearestPoly(pq.Source, pq.FindNearestPolyExtent)
	if !ok {
		return
	}
	end, endPt, ok := q.findNearestPoly(pq.Target, pq.FindNearestPolyExtent)
	if !ok {
		return
	}
	parents, found := q.search(start, end)
	if !found {
		return
	}

	// Walk back from end collecting portals, then orient each one as seen
	// from the polygon it is entered from.
	var portals [][2]common.Vec3
	for cur := end; cur != start; {
		l := parents[cur]
		from := l.to
		left, right := orientPortal(from, l.left, l.right)
		portals = append(portals, [2]common.Vec3{left, right})
		cur = from
	}
	for i, j := 0, len(portals)-1; i < j; i, j = i+1, j-1 {
		portals[i], portals[j] = portals[j], portals[i]
	}
	all := make([][2]common.Vec3, 0, len(portals)+2)
	all = append(all, [2]common.Vec3{startPt, startPt})
	all = append(all, portals...)
	all = append(all, [2]common.Vec3{endPt, endPt})

	points := stringPull(all)
	n := min(len(points), len(res.PathPoints))
	if pq.MaxPathPoints > 0 {
		n = min(n, int(pq.MaxPathPoints))
	}
	copy(res.PathPoints, points[:n])
	res.NumPathPoints = int32(n)
	res.PathFound = true
}

func orientPortal(from polyRef, a, b common.Vec3) (left, right common.Vec3) {
	center := polyCenter(from)
	mid := a.Add(b).Mul(0.5)
	if common.TriArea2D(center, mid, a) > 0 {
		return b, a
	}
	return a, b
}

func polyCenter(ref polyRef) common.Vec3 {
	p := &ref.tile.polys[ref.poly]
	var c common.Vec3
	for j := 0; j < int(p.VertCount); j++ {
		c = c.Add(ref.tile.verts[p.Verts[j]])
	}
	return c.Mul(1 / float32(p.VertCount))
}

// stringPull is the simple stupid funnel algorithm over (left, right)
// portals. The first and last portals are the degenerate start and end.
func stringPull(portals [][2]common.Vec3) []common.Vec3 {
	apex := portals[0][0]
	left, right := portals[0][0], portals[0][1]
	apexIndex, leftIndex, rightIndex := 0, 0, 0
	pts := []common.Vec3{apex}
	for i := 1; i < len(portals); i++ {
		l, r := portals[i][0], portals[i][1]

		if common.TriArea2D(apex, right, r) <= 0 {
			if apex == right || common.TriArea2D(apex, left, r) > 0 {
				right = r
				rightIndex = i
			} else {
				pts = append(pts, left)
				apex = left
				apexIndex = leftIndex
				left, right = apex, apex
				leftIndex, rightIndex = apexIndex, apexIndex
				i = apexIndex
				continue
			}
		}

		if common.TriArea2D(apex, left, l) >= 0 {
			if apex == left || common.TriArea2D(apex, right, l) < 0 {
				left = l
				leftIndex = i
			} else {
				pts = append(pts, right)
				apex = right
				apexIndex = rightIndex
				left, right = apex, apex
				leftIndex, rightIndex = apexIndex, apexIndex
				i = apexIndex
				continue
			}
		}
	}
	end := portals[len(portals)-1][0]
	if pts[len(pts)-1] != end {
		pts = append(pts, end)
	}
	return pts
}

func (q *query) SamplePosition(point, extent common.Vec3, result *common.Vec3) bool {
	if q.nav == nil {
		return false
	}
	ref, pt, ok := q.findNearestPoly(point, extent)
	if !ok {
		return false
	}
	pt[1] = averageHeight(ref.tile.polyVerts(ref.poly, q.vbuf))
	*result = pt
	return true
}

func (q *query) GetLocation(point, extent common.Vec3, result *common.Vec3) bool {
	if q.nav == nil {
		return false
	}
	_, pt, ok := q.findNearestPoly(point, extent)
	if !ok {
		return false
	}
	*result = pt
	return true
}

// onMesh finds a polygon containing p on the xz-plane whose surface is
// within climb of the reference height.
func (q *query) onMesh(p common.Vec3, refHeight, climb float32) (polyRef, float32, bool) {
	for _, t := range q.nav.tiles {
		if p[0] < t.bounds.Min[0] || p[0] > t.bounds.Max[0] || p[2] < t.bounds.Min[2] || p[2] > t.bounds.Max[2] {
			continue
		}
		for i := range t.polys {
			pv := t.polyVerts(i, q.vbuf)
			if !pointInPolygon(p, pv) {
				continue
			}
			h, ok := polyHeight(pv, p)
			if !ok {
				h = averageHeight(pv)
			}
			if common.Abs(h-refHeight) <= climb {
				return polyRef{t, i}, h, true
			}
		}
	}
	return polyRef{}, 0, false
}

func (q *query) Raycast(rq *native.RaycastQuery, res *native.RaycastResult) {
	*res = native.RaycastResult{Position: rq.Source}
	if q.nav == nil {
		return
	}
	ref, startPt, ok := q.findNearestPoly(rq.Source, rq.FindNearestPolyExtent)
	if !ok {
		return
	}
	climb := max(ref.tile.header.WalkableClimb, slabEpsilon)
	dir := common.Vec3{rq.Target[0] - startPt[0], 0, rq.Target[2] - startPt[2]}
	dist := dir.Len()
	res.Position = startPt
	if dist == 0 {
		return
	}
	stride := max(q.nav.cellTileSize*raycastStride, slabEpsilon)
	steps := int(math.Ceil(float64(dist / stride)))
	steps = common.Clamp(steps, 1, raycastSteps)

	last, lastRef := startPt, ref
	for k := 1; k <= steps; k++ {
		t := float32(k) / float32(steps)
		p := common.Vec3{startPt[0] + dir[0]*t, last[1], startPt[2] + dir[2]*t}
		r, h, ok := q.onMesh(p, last[1], climb)
		if !ok {
			res.Hit = true
			res.Position = last
			res.Normal = q.wallNormal(lastRef, last, p, dir)
			return
		}
		p[1] = h
		last, lastRef = p, r
	}
	res.Position = last
}

// wallNormal returns the xz normal of the polygon edge crossed between a and
// b, facing against the ray.
func (q *query) wallNormal(ref polyRef, a, b, dir common.Vec3) common.Vec3 {
	pv := ref.tile.polyVerts(ref.poly, q.vbuf)
	back := common.Vec3{-dir[0], 0, -dir[2]}.Normalize()
	for i, j := 0, len(pv)-1; i < len(pv); j, i = i, i+1 {
		if _, ok := segmentIntersect2D(a, b, pv[j], pv[i]); !ok {
			continue
		}
		e := pv[i].Sub(pv[j])
		n := common.Vec3{-e[2], 0, e[0]}
		if n.Len() == 0 {
			break
		}
		n = n.Normalize()
		if n.Dot(back) < 0 {
			n = n.Mul(-1)
		}
		return n
	}
	return back
}

func (q *query) GetRandomPosition(result *common.Vec3) bool {
	if q.nav == nil {
		return false
	}
	type candidate struct {
		ref  polyRef
		area float32
	}
	var cands []candidate
	var total float32
	for _, t := range q.nav.tiles {
		for i := range t.polys {
			a := common.Abs(polyArea2D(t.polyVerts(i, q.vbuf)))
			if a <= 0 {
				continue
			}
			cands = append(cands, candidate{polyRef{t, i}, a})
			total += a
		}
	}
	if len(cands) == 0 {
		return false
	}
	pick := q.rnd.Float32() * total
	chosen := cands[len(cands)-1].ref
	for _, c := range cands {
		if pick < c.area {
			chosen = c.ref
			break
		}
		pick -= c.area
	}
	*result = randomPointInPoly(chosen.tile.polyVerts(chosen.poly, q.vbuf), q.rnd)
	return true
}

func randomPointInPoly(verts []common.Vec3, rnd *rand.Rand) common.Vec3 {
	var total float32
	areas := make([]float32, 0, len(verts))
	for j := 1; j+1 < len(verts); j++ {
		a := common.Abs(common.TriArea2D(verts[0], verts[j], verts[j+1]))
		areas = append(areas, a)
		total += a
	}
	pick := rnd.Float32() * total
	tri := len(areas) - 1
	for i, a := range areas {
		if pick < a {
			tri = i
			break
		}
		pick -= a
	}
	a, b, c := verts[0], verts[tri+1], verts[tri+2]
	s, t := rnd.Float32(), rnd.Float32()
	if s+t > 1 {
		s, t = 1-s, 1-t
	}
	return a.Add(b.Sub(a).Mul(s)).Add(c.Sub(a).Mul(t))
}
