package detour

import (
	"errors"
	"fmt"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/rw"
)

var (
	ErrTileTooShort = errors.New("detour: tile data shorter than mesh header")
	ErrBadMagic     = errors.New("detour: wrong tile magic")
	ErrBadVersion   = errors.New("detour: wrong tile version")
	ErrCorruptTile  = errors.New("detour: corrupt tile data")
)

// NavMeshData is the decoded form of one serialized tile. Links are not kept;
// the encoder reserves MaxLinkCount zeroed link records for the engine.
type NavMeshData struct {
	Header      DtMeshHeader
	NavVerts    []common.Vec3
	NavPolys    []DtPoly
	NavDMeshes  []DtPolyDetail
	NavDVerts   []common.Vec3
	NavDTris    []uint8 // 4 bytes per triangle: a, b, c, edge flags
	NavBvtree   []DtBVNode
	OffMeshCons []DtOffMeshConnection
}

func dtAlign4(x int) int { return rw.Align4(x) }

// ToBin writes the tile in the engine's native layout. Section counts in the
// header are taken from the slices; MaxLinkCount is kept as set.
func (d *NavMeshData) ToBin() []byte {
	h := d.Header
	h.Magic = DT_NAVMESH_MAGIC
	h.Version = DT_NAVMESH_VERSION
	h.VertCount = int32(len(d.NavVerts))
	h.PolyCount = int32(len(d.NavPolys))
	h.DetailMeshCount = int32(len(d.NavDMeshes))
	h.DetailVertCount = int32(len(d.NavDVerts))
	h.DetailTriCount = int32(len(d.NavDTris) / 4)
	h.BvNodeCount = int32(len(d.NavBvtree))
	h.OffMeshConCount = int32(len(d.OffMeshCons))
	d.Header = h

	w := rw.NewTileDataWriter()
	h.ToBin(w)
	w.PadAlign4()
	for _, v := range d.NavVerts {
		w.WriteFloat32s(v[:])
	}
	w.PadAlign4()
	for i := range d.NavPolys {
		d.NavPolys[i].ToBin(w)
	}
	w.PadAlign4()
	w.PadZero(LinkSize * int(h.MaxLinkCount))
	w.PadAlign4()
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].ToBin(w)
	}
	w.PadAlign4()
	for _, v := range d.NavDVerts {
		w.WriteFloat32s(v[:])
	}
	w.PadAlign4()
	for _, v := range d.NavDTris[:4*h.DetailTriCount] {
		w.WriteUInt8(v)
	}
	w.PadAlign4()
	for i := range d.NavBvtree {
		d.NavBvtree[i].ToBin(w)
	}
	w.PadAlign4()
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].ToBin(w)
	}
	w.PadAlign4()
	return w.Bytes()
}

// FromBin parses every section of a serialized tile.
func (d *NavMeshData) FromBin(data []byte) error {
	h, err := ReadMeshHeader(data)
	if err != nil {
		return err
	}
	if h.VertCount < 0 || h.PolyCount < 0 || h.MaxLinkCount < 0 || h.DetailMeshCount < 0 ||
		h.DetailVertCount < 0 || h.DetailTriCount < 0 || h.BvNodeCount < 0 || h.OffMeshConCount < 0 {
		return fmt.Errorf("%w: negative section count", ErrCorruptTile)
	}
	need := int64(h.VertCount)*12 + int64(h.PolyCount)*PolySize + int64(h.MaxLinkCount)*LinkSize +
		int64(h.DetailMeshCount)*PolyDetailSize + int64(h.DetailVertCount)*12 + int64(h.DetailTriCount)*4 +
		int64(h.BvNodeCount)*BVNodeSize + int64(h.OffMeshConCount)*OffMeshConnectionSize
	if need > int64(len(data)) {
		return fmt.Errorf("%w: sections need %d bytes, have %d", ErrCorruptTile, need, len(data))
	}
	d.Header = *h
	r := rw.NewTileDataReader(data)
	r.Skip(dtAlign4(MeshHeaderSize))

	d.NavVerts = make([]common.Vec3, h.VertCount)
	for i := range d.NavVerts {
		r.ReadFloat32s(d.NavVerts[i][:])
	}
	r.SkipTo(dtAlign4(r.Offset()))
	d.NavPolys = make([]DtPoly, h.PolyCount)
	for i := range d.NavPolys {
		d.NavPolys[i].FromBin(r)
	}
	r.SkipTo(dtAlign4(r.Offset()))
	r.Skip(LinkSize * int(h.MaxLinkCount))
	r.SkipTo(dtAlign4(r.Offset()))
	d.NavDMeshes = make([]DtPolyDetail, h.DetailMeshCount)
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].FromBin(r)
	}
	r.SkipTo(dtAlign4(r.Offset()))
	d.NavDVerts = make([]common.Vec3, h.DetailVertCount)
	for i := range d.NavDVerts {
		r.ReadFloat32s(d.NavDVerts[i][:])
	}
	r.SkipTo(dtAlign4(r.Offset()))
	d.NavDTris = make([]uint8, 4*h.DetailTriCount)
	for i := range d.NavDTris {
		d.NavDTris[i] = r.ReadUInt8()
	}
	r.SkipTo(dtAlign4(r.Offset()))
	d.NavBvtree = make([]DtBVNode, h.BvNodeCount)
	for i := range d.NavBvtree {
		d.NavBvtree[i].FromBin(r)
	}
	r.SkipTo(dtAlign4(r.Offset()))
	d.OffMeshCons = make([]DtOffMeshConnection, h.OffMeshConCount)
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].FromBin(r)
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTile, err)
	}
	return nil
}

// ReadMeshHeader validates and returns the header prefix of a tile.
func ReadMeshHeader(data []byte) (*DtMeshHeader, error) {
	if len(data) < MeshHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTileTooShort, len(data))
	}
	h := new(DtMeshHeader).FromBin(rw.NewTileDataReader(data))
	if h.Magic != DT_NAVMESH_MAGIC {
		return nil, fmt.Errorf("%w: %#x", ErrBadMagic, uint32(h.Magic))
	}
	if h.Version != DT_NAVMESH_VERSION {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	return h, nil
}

// TileGeometry is the polygon surface of a tile, fan triangulated.
type TileGeometry struct {
	Vertices []common.Vec3
	Indices  []int32
}

func (g *TileGeometry) TriangleCount() int { return len(g.Indices) / 3 }

// DecodeTileGeometry extracts the polygon vertices of a tile and triangulates
// each polygon as a fan around its first vertex, k-2 triangles for k
// vertices. Only the header, vertex and polygon sections are read. A tile
// without vertices yields nil geometry and no error.
func DecodeTileGeometry(data []byte) (*TileGeometry, error) {
	h, err := ReadMeshHeader(data)
	if err != nil {
		return nil, err
	}
	if h.VertCount <= 0 {
		return nil, nil
	}
	if h.PolyCount < 0 || int64(h.VertCount)*12 > int64(len(data)) {
		return nil, fmt.Errorf("%w: %d vertices, %d polygons in %d bytes", ErrCorruptTile, h.VertCount, h.PolyCount, len(data))
	}

	r := rw.NewTileDataReader(data)
	r.Skip(dtAlign4(MeshHeaderSize))
	geom := &TileGeometry{Vertices: make([]common.Vec3, h.VertCount)}
	for i := range geom.Vertices {
		r.ReadFloat32s(geom.Vertices[i][:])
	}
	r.SkipTo(dtAlign4(r.Offset()))

	var poly DtPoly
	for i := int32(0); i < h.PolyCount; i++ {
		poly.FromBin(r)
		if r.Err() != nil {
			break
		}
		k := int(poly.VertCount)
		if k > DT_VERTS_PER_POLYGON {
			return nil, fmt.Errorf("%w: polygon %d has %d vertices", ErrCorruptTile, i, k)
		}
		for j := 0; j < k; j++ {
			if int32(poly.Verts[j]) >= h.VertCount {
				return nil, fmt.Errorf("%w: polygon %d vertex index %d out of range", ErrCorruptTile, i, poly.Verts[j])
			}
		}
		for j := 1; j+1 < k; j++ {
			geom.Indices = append(geom.Indices, int32(poly.Verts[0]), int32(poly.Verts[j]), int32(poly.Verts[j+1]))
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTile, err)
	}
	return geom, nil
}
