package detour

import (
	"github.com/gorustyt/navtile/common/rw"
)

const (
	/// The maximum number of vertices per navigation polygon.
	DT_VERTS_PER_POLYGON = 6

	/// A flag that indicates that an entity links to an external entity.
	/// (E.g. A polygon edge is a portal that links to another polygon.)
	DT_EXT_LINK = 0x8000

	/// A magic number used to detect compatibility of navigation tile data.
	DT_NAVMESH_MAGIC = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'

	/// A version number used to detect compatibility of navigation tile data.
	DT_NAVMESH_VERSION = 7

	/// The maximum number of user defined area ids.
	DT_MAX_AREAS = 64

	/// Polygon bits per tile reference. 256 polygons per tile.
	DT_POLY_BITS = 8
)

const (
	/// The polygon is a standard convex polygon that is part of the surface of the mesh.
	DT_POLYTYPE_GROUND = 0
	/// The polygon is an off-mesh connection consisting of two vertices.
	DT_POLYTYPE_OFFMESH_CONNECTION = 1
)

// Portal sides stored in the low bits of an external neighbour entry.
const (
	DT_SIDE_POS_X = 0
	DT_SIDE_POS_Z = 2
	DT_SIDE_NEG_X = 4
	DT_SIDE_NEG_Z = 6
)

// Serialized record sizes. Links use 64 bit polygon references.
const (
	MeshHeaderSize        = 100
	PolySize              = 32
	LinkSize              = 16
	PolyDetailSize        = 12
	BVNodeSize            = 16
	OffMeshConnectionSize = 36
)

func OppositeSide(side int32) int32 { return (side + 4) & 0x7 }

// SideOffset returns the neighbouring tile offset for a portal side.
func SideOffset(side int32) (dx, dy int32) {
	switch side & 0x7 {
	case DT_SIDE_POS_X:
		return 1, 0
	case DT_SIDE_POS_Z:
		return 0, 1
	case DT_SIDE_NEG_X:
		return -1, 0
	case DT_SIDE_NEG_Z:
		return 0, -1
	}
	return 0, 0
}

// / Defines a polygon within a tile.
type DtPoly struct {
	/// Index to first link in linked list.
	FirstLink uint32

	/// The indices of the polygon's vertices.
	Verts [DT_VERTS_PER_POLYGON]uint16

	/// Packed data representing neighbor polygons references and flags for each edge.
	/// Zero is a border, index+1 an internal neighbour, DT_EXT_LINK|side a tile portal.
	Neis [DT_VERTS_PER_POLYGON]uint16

	/// The user defined polygon flags.
	Flags uint16

	/// The number of vertices in the polygon.
	VertCount uint8

	/// The bit packed area id and polygon type.
	AreaAndType uint8
}

func (p *DtPoly) ToBin(w *rw.Writer) {
	w.WriteUInt32(p.FirstLink)
	w.WriteUInt16s(p.Verts[:])
	w.WriteUInt16s(p.Neis[:])
	w.WriteUInt16(p.Flags)
	w.WriteUInt8(p.VertCount)
	w.WriteUInt8(p.AreaAndType)
}

func (p *DtPoly) FromBin(r *rw.Reader) *DtPoly {
	p.FirstLink = r.ReadUInt32()
	r.ReadUInt16s(p.Verts[:])
	r.ReadUInt16s(p.Neis[:])
	p.Flags = r.ReadUInt16()
	p.VertCount = r.ReadUInt8()
	p.AreaAndType = r.ReadUInt8()
	return p
}

// / Sets the user defined area id. [Limit: < #DT_MAX_AREAS]
func (p *DtPoly) SetArea(a uint8) { p.AreaAndType = (p.AreaAndType & 0xc0) | (a & 0x3f) }

// / Sets the polygon type.
func (p *DtPoly) SetType(t uint8) { p.AreaAndType = (p.AreaAndType & 0x3f) | (t << 6) }

func (p *DtPoly) GetArea() uint8 { return p.AreaAndType & 0x3f }

func (p *DtPoly) GetType() uint8 { return p.AreaAndType >> 6 }

// IsPortal reports whether edge j links to a neighbouring tile.
func (p *DtPoly) IsPortal(j int) bool { return p.Neis[j]&DT_EXT_LINK != 0 }

// / Defines the location of detail sub-mesh data within a tile.
type DtPolyDetail struct {
	VertBase  uint32
	TriBase   uint32
	VertCount uint8
	TriCount  uint8
}

func (d *DtPolyDetail) ToBin(w *rw.Writer) {
	w.WriteUInt32(d.VertBase)
	w.WriteUInt32(d.TriBase)
	w.WriteUInt8(d.VertCount)
	w.WriteUInt8(d.TriCount)
	w.PadZero(2)
}

func (d *DtPolyDetail) FromBin(r *rw.Reader) *DtPolyDetail {
	d.VertBase = r.ReadUInt32()
	d.TriBase = r.ReadUInt32()
	d.VertCount = r.ReadUInt8()
	d.TriCount = r.ReadUInt8()
	r.Skip(2)
	return d
}

// / Bounding volume node.
type DtBVNode struct {
	Bmin [3]uint16
	Bmax [3]uint16
	I    int32 ///< The node's index. (Negative for escape sequence.)
}

func (d *DtBVNode) ToBin(w *rw.Writer) {
	w.WriteUInt16s(d.Bmin[:])
	w.WriteUInt16s(d.Bmax[:])
	w.WriteInt32(d.I)
}

func (d *DtBVNode) FromBin(r *rw.Reader) *DtBVNode {
	r.ReadUInt16s(d.Bmin[:])
	r.ReadUInt16s(d.Bmax[:])
	d.I = r.ReadInt32()
	return d
}

// / An off-mesh connection is a user defined traversable connection made up to two vertices.
type DtOffMeshConnection struct {
	Pos    [6]float32
	Rad    float32
	Poly   uint16
	Flags  uint8
	Side   uint8
	UserId uint32
}

func (d *DtOffMeshConnection) ToBin(w *rw.Writer) {
	w.WriteFloat32s(d.Pos[:])
	w.WriteFloat32(d.Rad)
	w.WriteUInt16(d.Poly)
	w.WriteUInt8(d.Flags)
	w.WriteUInt8(d.Side)
	w.WriteUInt32(d.UserId)
}

func (d *DtOffMeshConnection) FromBin(r *rw.Reader) *DtOffMeshConnection {
	r.ReadFloat32s(d.Pos[:])
	d.Rad = r.ReadFloat32()
	d.Poly = r.ReadUInt16()
	d.Flags = r.ReadUInt8()
	d.Side = r.ReadUInt8()
	d.UserId = r.ReadUInt32()
	return d
}

// / Provides high level information related to a tile.
type DtMeshHeader struct {
	Magic           int32 ///< Tile magic number. (Used to identify the data format.)
	Version         int32 ///< Tile data format version number.
	X               int32 ///< The x-position of the tile within the tile grid.
	Y               int32 ///< The y-position of the tile within the tile grid.
	Layer           int32
	UserId          uint32
	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	DetailVertCount int32
	DetailTriCount  int32
	BvNodeCount     int32
	OffMeshConCount int32
	OffMeshBase     int32
	WalkableHeight  float32
	WalkableRadius  float32
	WalkableClimb   float32
	Bmin            [3]float32
	Bmax            [3]float32

	/// The bounding volume quantization factor.
	BvQuantFactor float32
}

func (d *DtMeshHeader) ToBin(w *rw.Writer) {
	w.WriteInt32(d.Magic)
	w.WriteInt32(d.Version)
	w.WriteInt32(d.X)
	w.WriteInt32(d.Y)
	w.WriteInt32(d.Layer)
	w.WriteUInt32(d.UserId)
	w.WriteInt32(d.PolyCount)
	w.WriteInt32(d.VertCount)
	w.WriteInt32(d.MaxLinkCount)
	w.WriteInt32(d.DetailMeshCount)
	w.WriteInt32(d.DetailVertCount)
	w.WriteInt32(d.DetailTriCount)
	w.WriteInt32(d.BvNodeCount)
	w.WriteInt32(d.OffMeshConCount)
	w.WriteInt32(d.OffMeshBase)
	w.WriteFloat32(d.WalkableHeight)
	w.WriteFloat32(d.WalkableRadius)
	w.WriteFloat32(d.WalkableClimb)
	w.WriteFloat32s(d.Bmin[:])
	w.WriteFloat32s(d.Bmax[:])
	w.WriteFloat32(d.BvQuantFactor)
}

func (d *DtMeshHeader) FromBin(r *rw.Reader) *DtMeshHeader {
	d.Magic = r.ReadInt32()
	d.Version = r.ReadInt32()
	d.X = r.ReadInt32()
	d.Y = r.ReadInt32()
	d.Layer = r.ReadInt32()
	d.UserId = r.ReadUInt32()
	d.PolyCount = r.ReadInt32()
	d.VertCount = r.ReadInt32()
	d.MaxLinkCount = r.ReadInt32()
	d.DetailMeshCount = r.ReadInt32()
	d.DetailVertCount = r.ReadInt32()
	d.DetailTriCount = r.ReadInt32()
	d.BvNodeCount = r.ReadInt32()
	d.OffMeshConCount = r.ReadInt32()
	d.OffMeshBase = r.ReadInt32()
	d.WalkableHeight = r.ReadFloat32()
	d.WalkableRadius = r.ReadFloat32()
	d.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(d.Bmin[:])
	r.ReadFloat32s(d.Bmax[:])
	d.BvQuantFactor = r.ReadFloat32()
	return d
}
