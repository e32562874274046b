package softnav

import (
	"math"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native"
)

const (
	polyFlagWalk  = 0x01
	coplanarDot   = 0.999
	convexEpsilon = 1e-6
)

type builder struct {
	settings native.BuildSettings
	out      []byte
}

func (b *builder) SetSettings(settings *native.BuildSettings) {
	b.settings = *settings
}

func (b *builder) Destroy() {
	for i := range b.out {
		b.out[i] = 0
	}
	b.out = nil
}

// clipVert is a polygon vertex produced while clipping a triangle to the
// tile footprint. It remembers which source edge it lies on so that the
// same crossing is computed identically by every tile sharing the edge.
type clipVert struct {
	p      common.Vec3
	orig   int8
	e0, e1 int8
}

type buildPoly struct {
	verts  []uint16
	area   uint8
	normal common.Vec3
}

func (b *builder) BuildNavmesh(vertices []common.Vec3, indices []int32, areas []uint8) *native.GeneratedData {
	s := &b.settings
	if len(vertices) == 0 {
		return &native.GeneratedData{Error: native.CodeNullVerts}
	}
	if len(indices)%3 != 0 || len(areas) < len(indices)/3 {
		return &native.GeneratedData{Error: native.CodeRasterizeTriangles}
	}

	tcs := float32(s.TileSize) * s.CellSize
	minx := float32(s.TilePosition.X) * tcs
	maxx := float32(s.TilePosition.X+1) * tcs
	minz := float32(s.TilePosition.Y) * tcs
	maxz := float32(s.TilePosition.Y+1) * tcs
	walkableCos := float32(math.Cos(float64(s.AgentMaxSlope) / 180.0 * math.Pi))

	weld := make(map[common.Vec3]uint16)
	var verts []common.Vec3
	var polys []buildPoly
	for t := 0; t < len(indices)/3; t++ {
		area := areas[t]
		if area == common.AreaNull {
			continue
		}
		var tri [3]common.Vec3
		for k := 0; k < 3; k++ {
			idx := indices[t*3+k]
			if idx < 0 || int(idx) >= len(vertices) {
				return &native.GeneratedData{Error: native.CodeRasterizeTriangles}
			}
			tri[k] = vertices[idx]
		}
		n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
		if n.Len() == 0 {
			continue
		}
		n = n.Normalize()
		if common.Abs(n[1]) < walkableCos {
			continue
		}
		if n[1] < 0 {
			n = n.Mul(-1)
		}

		loop := clipTriangle(tri, minx, maxx, minz, maxz)
		if len(loop) < 3 {
			continue
		}
		if polyArea2D(loop) > 0 {
			for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
				loop[i], loop[j] = loop[j], loop[i]
			}
		}
		if common.Abs(polyArea2D(loop)) < convexEpsilon {
			continue
		}
		idx := make([]uint16, 0, len(loop))
		for _, p := range loop {
			vi, ok := weld[p]
			if !ok {
				if len(verts) >= 0xfffe {
					return &native.GeneratedData{Error: native.CodeCreateDetourMeshFirst}
				}
				vi = uint16(len(verts))
				weld[p] = vi
				verts = append(verts, p)
			}
			if len(idx) == 0 || idx[len(idx)-1] != vi {
				idx = append(idx, vi)
			}
		}
		if len(idx) > 1 && idx[0] == idx[len(idx)-1] {
			idx = idx[:len(idx)-1]
		}
		if len(idx) < 3 {
			continue
		}
		for _, p := range splitPolygon(idx) {
			polys = append(polys, buildPoly{verts: p, area: area, normal: n})
		}
	}
	if len(polys) == 0 {
		return &native.GeneratedData{Error: native.CodeZeroVertCount}
	}

	polys = mergePolys(polys, verts)
	data := b.encodeTile(verts, polys, minx, maxx, minz, maxz)
	b.out = append(b.out[:0], data...)
	return &native.GeneratedData{Success: true, NavmeshData: b.out}
}

// clipTriangle clips tri to the xz rectangle with Sutherland-Hodgman.
func clipTriangle(tri [3]common.Vec3, minx, maxx, minz, maxz float32) []common.Vec3 {
	poly := []clipVert{
		{p: tri[0], orig: 0, e0: -1, e1: -1},
		{p: tri[1], orig: 1, e0: -1, e1: -1},
		{p: tri[2], orig: 2, e0: -1, e1: -1},
	}
	poly = clipPlane(tri, poly, 0, minx, true)
	poly = clipPlane(tri, poly, 0, maxx, false)
	poly = clipPlane(tri, poly, 2, minz, true)
	poly = clipPlane(tri, poly, 2, maxz, false)
	out := make([]common.Vec3, 0, len(poly))
	for _, v := range poly {
		if len(out) > 0 && out[len(out)-1] == v.p {
			continue
		}
		out = append(out, v.p)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func clipPlane(tri [3]common.Vec3, poly []clipVert, axis int, c float32, keepGreater bool) []clipVert {
	if len(poly) == 0 {
		return nil
	}
	inside := func(p common.Vec3) bool {
		if keepGreater {
			return p[axis] >= c
		}
		return p[axis] <= c
	}
	out := make([]clipVert, 0, len(poly)+1)
	for i := range poly {
		cur := poly[i]
		next := poly[(i+1)%len(poly)]
		in := inside(cur.p)
		if in {
			out = append(out, cur)
		}
		if in != inside(next.p) {
			out = append(out, crossing(tri, cur, next, axis, c))
		}
	}
	return out
}

func crossing(tri [3]common.Vec3, u, v clipVert, axis int, c float32) clipVert {
	if a, b, ok := commonEdge(u, v); ok {
		pa, pb := tri[a], tri[b]
		if lessVec(pb, pa) {
			pa, pb = pb, pa
		}
		t := (c - pa[axis]) / (pb[axis] - pa[axis])
		p := pa.Add(pb.Sub(pa).Mul(t))
		p[axis] = c
		return clipVert{p: p, orig: -1, e0: a, e1: b}
	}
	// u and v lie on an earlier clip line, so the crossing is a footprint
	// corner.
	p := u.p
	p[axis] = c
	p[1] = planeHeight(tri, p[0], p[2])
	return clipVert{p: p, orig: -1, e0: -1, e1: -1}
}

func lessVec(a, b common.Vec3) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func edgesOf(v clipVert) [][2]int8 {
	if v.orig >= 0 {
		k := v.orig
		return [][2]int8{canonEdge(k, (k+1)%3), canonEdge((k+2)%3, k)}
	}
	if v.e0 >= 0 {
		return [][2]int8{{v.e0, v.e1}}
	}
	return nil
}

func canonEdge(a, b int8) [2]int8 {
	if a > b {
		a, b = b, a
	}
	return [2]int8{a, b}
}

func commonEdge(u, v clipVert) (int8, int8, bool) {
	for _, eu := range edgesOf(u) {
		for _, ev := range edgesOf(v) {
			if eu == ev {
				return eu[0], eu[1], true
			}
		}
	}
	return 0, 0, false
}

func planeHeight(tri [3]common.Vec3, x, z float32) float32 {
	p := common.Vec3{x, 0, z}
	v0 := tri[2].Sub(tri[0])
	v1 := tri[1].Sub(tri[0])
	v2 := p.Sub(tri[0])
	denom := v0[0]*v1[2] - v0[2]*v1[0]
	if common.Abs(denom) < 1e-9 {
		return averageHeight(tri[:])
	}
	u := (v1[2]*v2[0] - v1[0]*v2[2]) / denom
	v := (v0[0]*v2[2] - v0[2]*v2[0]) / denom
	return tri[0][1] + v0[1]*u + v1[1]*v
}

// splitPolygon fans a convex loop into pieces of at most
// DT_VERTS_PER_POLYGON vertices.
func splitPolygon(idx []uint16) [][]uint16 {
	var out [][]uint16
	for len(idx) > detour.DT_VERTS_PER_POLYGON {
		head := append([]uint16(nil), idx[:detour.DT_VERTS_PER_POLYGON]...)
		out = append(out, head)
		rest := []uint16{idx[0]}
		rest = append(rest, idx[detour.DT_VERTS_PER_POLYGON-1:]...)
		idx = rest
	}
	return append(out, idx)
}

func edgeKey(a, b uint16) uint32 {
	if a > b {
		a, b = b, a
	}
	return uint32(a)<<16 | uint32(b)
}

// mergePolys greedily joins neighbouring coplanar polygons of the same area
// while the result stays convex and within the vertex limit, longest shared
// edge first.
func mergePolys(polys []buildPoly, verts []common.Vec3) []buildPoly {
	alive := make([]bool, len(polys))
	for i := range alive {
		alive[i] = true
	}
	for {
		owners := make(map[uint32][]int)
		for i, p := range polys {
			if !alive[i] {
				continue
			}
			for j := range p.verts {
				k := edgeKey(p.verts[j], p.verts[(j+1)%len(p.verts)])
				owners[k] = append(owners[k], i)
			}
		}
		bestLen := float32(-1)
		var bestMerged []uint16
		bestA, bestB := -1, -1
		for k, ps := range owners {
			if len(ps) != 2 {
				continue
			}
			a, b := ps[0], ps[1]
			pa, pb := polys[a], polys[b]
			if pa.area != pb.area || pa.normal.Dot(pb.normal) < coplanarDot {
				continue
			}
			if len(pa.verts)+len(pb.verts)-2 > detour.DT_VERTS_PER_POLYGON {
				continue
			}
			merged, ok := mergeLoops(pa.verts, pb.verts, verts)
			if !ok {
				continue
			}
			va, vb := verts[k>>16], verts[k&0xffff]
			l := va.Sub(vb).Len()
			if l > bestLen || (l == bestLen && (a < bestA || (a == bestA && b < bestB))) {
				bestLen, bestMerged, bestA, bestB = l, merged, a, b
			}
		}
		if bestA < 0 {
			break
		}
		polys[bestA].verts = bestMerged
		alive[bestB] = false
	}
	out := polys[:0]
	for i, p := range polys {
		if alive[i] {
			out = append(out, p)
		}
	}
	return out
}

func mergeLoops(a, b []uint16, verts []common.Vec3) ([]uint16, bool) {
	na, nb := len(a), len(b)
	ea, eb := -1, -1
	for i := 0; i < na && ea < 0; i++ {
		for j := 0; j < nb; j++ {
			if a[i] == b[(j+1)%nb] && a[(i+1)%na] == b[j] {
				ea, eb = i, j
				break
			}
		}
	}
	if ea < 0 {
		return nil, false
	}
	merged := make([]uint16, 0, na+nb-2)
	for i := 0; i < na-1; i++ {
		merged = append(merged, a[(ea+1+i)%na])
	}
	for i := 0; i < nb-1; i++ {
		merged = append(merged, b[(eb+1+i)%nb])
	}
	seen := make(map[uint16]bool, len(merged))
	for _, v := range merged {
		if seen[v] {
			return nil, false
		}
		seen[v] = true
	}
	n := len(merged)
	for i := 0; i < n; i++ {
		p0 := verts[merged[(i+n-1)%n]]
		p1 := verts[merged[i]]
		p2 := verts[merged[(i+1)%n]]
		if common.TriArea2D(p0, p1, p2) > convexEpsilon {
			return nil, false
		}
	}
	return merged, true
}

func borderSide(va, vb common.Vec3, minx, maxx, minz, maxz float32) (int32, bool) {
	switch {
	case va[0] == maxx && vb[0] == maxx:
		return detour.DT_SIDE_POS_X, true
	case va[2] == maxz && vb[2] == maxz:
		return detour.DT_SIDE_POS_Z, true
	case va[0] == minx && vb[0] == minx:
		return detour.DT_SIDE_NEG_X, true
	case va[2] == minz && vb[2] == minz:
		return detour.DT_SIDE_NEG_Z, true
	}
	return 0, false
}

func (b *builder) encodeTile(verts []common.Vec3, polys []buildPoly, minx, maxx, minz, maxz float32) []byte {
	s := &b.settings
	owners := make(map[uint32][]int)
	for i, p := range polys {
		for j := range p.verts {
			k := edgeKey(p.verts[j], p.verts[(j+1)%len(p.verts)])
			owners[k] = append(owners[k], i)
		}
	}

	data := &detour.NavMeshData{NavVerts: verts}
	maxLinks := int32(0)
	for i, p := range polys {
		var dp detour.DtPoly
		dp.VertCount = uint8(len(p.verts))
		dp.Flags = polyFlagWalk
		dp.SetArea(p.area)
		dp.SetType(detour.DT_POLYTYPE_GROUND)
		for j := range p.verts {
			dp.Verts[j] = p.verts[j]
			va, vb := p.verts[j], p.verts[(j+1)%len(p.verts)]
			for _, o := range owners[edgeKey(va, vb)] {
				if o != i {
					dp.Neis[j] = uint16(o + 1)
					maxLinks++
					break
				}
			}
			if dp.Neis[j] != 0 {
				continue
			}
			if side, ok := borderSide(verts[va], verts[vb], minx, maxx, minz, maxz); ok {
				dp.Neis[j] = uint16(detour.DT_EXT_LINK | side)
				maxLinks += 4
			}
		}
		data.NavPolys = append(data.NavPolys, dp)
	}

	ymin, ymax := s.BoundingBox.Min[1], s.BoundingBox.Max[1]
	for _, v := range verts {
		ymin = min(ymin, v[1])
		ymax = max(ymax, v[1])
	}
	data.Header = detour.DtMeshHeader{
		X:              s.TilePosition.X,
		Y:              s.TilePosition.Y,
		MaxLinkCount:   maxLinks,
		OffMeshBase:    int32(len(polys)),
		WalkableHeight: s.AgentHeight,
		WalkableRadius: s.AgentRadius,
		WalkableClimb:  s.AgentMaxClimb,
		Bmin:           [3]float32{minx, ymin, minz},
		Bmax:           [3]float32{maxx, ymax, maxz},
		BvQuantFactor:  1 / s.CellSize,
	}
	return data.ToBin()
}
