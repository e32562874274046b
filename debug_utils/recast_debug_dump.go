// Package debug_utils dumps navmesh tiles and build input to Wavefront OBJ
// and prints tile summaries.
package debug_utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/recast"
)

// HeightOffset lifts dumped tile surfaces above the input geometry so both
// can be viewed together.
const HeightOffset = 0.1

// DumpTilesToObj writes the polygon surface of every tile as one OBJ object
// per tile. Tiles that fail to decode are reported and skipped.
func DumpTilesToObj(tiles []*detour.NavmeshTile, w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("# Navmesh tiles\n")
	base := 1
	for _, t := range tiles {
		coord, err := t.Coord()
		if err != nil {
			return err
		}
		geom, err := t.Geometry()
		if err != nil {
			return fmt.Errorf("tile %v: %w", coord, err)
		}
		fmt.Fprintf(bw, "\no tile_%d_%d\n", coord.X, coord.Y)
		if geom == nil {
			continue
		}
		writeMesh(bw, geom.Vertices, geom.Indices, base, HeightOffset)
		base += len(geom.Vertices)
	}
	return bw.Flush()
}

// DumpInputGeometryToObj writes build input in the format ParseObj reads.
func DumpInputGeometryToObj(g *recast.InputGeometry, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Input geometry %s\no %s\n", g.Name, objName(g.Name))
	writeMesh(bw, g.Vertices, g.Triangles, 1, 0)
	return bw.Flush()
}

func writeMesh(w *bufio.Writer, verts []common.Vec3, tris []int32, base int, lift float32) {
	for _, v := range verts {
		fmt.Fprintf(w, "v %f %f %f\n", v[0], v[1]+lift, v[2])
	}
	for i := 0; i+2 < len(tris); i += 3 {
		fmt.Fprintf(w, "f %d %d %d\n", int(tris[i])+base, int(tris[i+1])+base, int(tris[i+2])+base)
	}
}

func objName(name string) string {
	if name == "" {
		return "geometry"
	}
	return strings.Join(strings.Fields(name), "_")
}

type TileSummary struct {
	Coord       common.TileCoord
	Size        int
	Polys       int32
	Verts       int32
	Triangles   int
	DetailTris  int32
	BvNodes     int32
	OffMeshCons int32
	Bounds      common.BoundingBox
}

func SummarizeTile(t *detour.NavmeshTile) (*TileSummary, error) {
	h, err := t.Header()
	if err != nil {
		return nil, err
	}
	geom, err := t.Geometry()
	if err != nil {
		return nil, err
	}
	s := &TileSummary{
		Coord:       common.TileCoord{X: h.X, Y: h.Y},
		Size:        len(t.Data),
		Polys:       h.PolyCount,
		Verts:       h.VertCount,
		DetailTris:  h.DetailTriCount,
		BvNodes:     h.BvNodeCount,
		OffMeshCons: h.OffMeshConCount,
		Bounds:      common.BoundingBox{Min: common.Vec3(h.Bmin), Max: common.Vec3(h.Bmax)},
	}
	if geom != nil {
		s.Triangles = geom.TriangleCount()
	}
	return s, nil
}

func (s *TileSummary) String() string {
	return fmt.Sprintf("tile %v: %d bytes, %d polys, %d verts, %d tris, %d detail tris, %d bv nodes, %d off-mesh, bounds %v..%v",
		s.Coord, s.Size, s.Polys, s.Verts, s.Triangles, s.DetailTris, s.BvNodes, s.OffMeshCons, s.Bounds.Min, s.Bounds.Max)
}
