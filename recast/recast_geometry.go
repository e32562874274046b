package recast

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gorustyt/navtile/common"
)

// InputGeometry is an indexed triangle soup with one area per triangle,
// typically loaded from an OBJ file. It is read only once built and may be
// shared by concurrent tile builds.
type InputGeometry struct {
	Name      string
	Vertices  []common.Vec3
	Triangles []int32
	Areas     []uint8
	bounds    common.BoundingBox
}

func NewInputGeometry(name string) *InputGeometry {
	return &InputGeometry{Name: name, bounds: common.EmptyBoundingBox()}
}

func (g *InputGeometry) Bounds() common.BoundingBox { return g.bounds }

func (g *InputGeometry) TriangleCount() int { return len(g.Triangles) / 3 }

func (g *InputGeometry) addVertex(v common.Vec3) int32 {
	g.Vertices = append(g.Vertices, v)
	g.bounds = g.bounds.Merge(v)
	return int32(len(g.Vertices) - 1)
}

func (g *InputGeometry) addTriangle(a, b, c int32, area uint8) {
	g.Triangles = append(g.Triangles, a, b, c)
	g.Areas = append(g.Areas, area)
}

// AddMesh appends an indexed mesh. Indices are relative to vertices.
func (g *InputGeometry) AddMesh(vertices []common.Vec3, indices []int32, area uint8) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || int(idx) >= len(vertices) {
			return fmt.Errorf("index %d out of range [0, %d)", idx, len(vertices))
		}
	}
	vbase := int32(len(g.Vertices))
	for _, v := range vertices {
		g.addVertex(v)
	}
	for i := 0; i < len(indices); i += 3 {
		g.addTriangle(vbase+indices[i], vbase+indices[i+1], vbase+indices[i+2], area)
	}
	return nil
}

// AddPlane appends a flat rectangle at height y spanning min to max on x and
// z.
func (g *InputGeometry) AddPlane(min, max common.Vec2, y float32, area uint8) {
	a := g.addVertex(common.Vec3{min[0], y, min[1]})
	b := g.addVertex(common.Vec3{max[0], y, min[1]})
	c := g.addVertex(common.Vec3{max[0], y, max[1]})
	d := g.addVertex(common.Vec3{min[0], y, max[1]})
	g.addTriangle(a, c, b, area)
	g.addTriangle(a, d, c, area)
}

// AddBox appends the 12 triangles of an axis aligned box.
func (g *InputGeometry) AddBox(box common.BoundingBox, area uint8) {
	lo, hi := box.Min, box.Max
	var v [8]int32
	for i := range v {
		p := lo
		if i&1 != 0 {
			p[0] = hi[0]
		}
		if i&2 != 0 {
			p[1] = hi[1]
		}
		if i&4 != 0 {
			p[2] = hi[2]
		}
		v[i] = g.addVertex(p)
	}
	faces := [6][4]int{
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
		{0, 2, 3, 1}, // -z
		{4, 5, 7, 6}, // +z
	}
	for _, f := range faces {
		g.addTriangle(v[f[0]], v[f[1]], v[f[2]], area)
		g.addTriangle(v[f[0]], v[f[2]], v[f[3]], area)
	}
}

// TileInput gathers the triangles overlapping coord's footprint grown by
// border on x and z. Vertices are duplicated per triangle.
func (g *InputGeometry) TileInput(settings BuildSettings, coord common.TileCoord, border float32) *TileInput {
	box := CalculateTileBoundingBox(settings, coord).Expand(border)
	input := NewTileInput(coord, common.EmptyBoundingBox())
	tri := make([]common.Vec3, 3)
	for t := 0; t < g.TriangleCount(); t++ {
		for k := 0; k < 3; k++ {
			tri[k] = g.Vertices[g.Triangles[t*3+k]]
		}
		if !common.BoundingBoxFromPoints(tri).Intersects2D(box) {
			continue
		}
		input.AppendTriangles(tri, g.Areas[t])
	}
	return input
}

// TileCoords lists the tiles overlapping the geometry.
func (g *InputGeometry) TileCoords(settings BuildSettings) []common.TileCoord {
	if g.bounds.IsEmpty() {
		return nil
	}
	return GetOverlappingTilesFromSettings(settings, g.bounds)
}

// LoadObj reads a Wavefront OBJ file. Only v and f records are used; every
// face is walkable.
func LoadObj(p string, scale float32) (*InputGeometry, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseObj(f, path.Base(p), scale)
}

func ParseObj(r io.Reader, name string, scale float32) (*InputGeometry, error) {
	g := NewInputGeometry(name)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		var err error
		switch fields[0] {
		case "v":
			err = g.parseVertex(fields[1:], scale)
		case "f":
			err = g.parseFace(fields[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *InputGeometry) parseVertex(ss []string, scale float32) error {
	if len(ss) < 3 {
		return fmt.Errorf("vertex needs 3 coordinates, got %d", len(ss))
	}
	var v common.Vec3
	for i := 0; i < 3; i++ {
		x, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return err
		}
		v[i] = float32(x) * scale
	}
	g.addVertex(v)
	return nil
}

// parseFace fans polygons of up to 32 vertices into triangles. Triangles
// referencing unknown vertices are skipped.
func (g *InputGeometry) parseFace(ss []string) error {
	n := int32(len(g.Vertices))
	var data []int32
	for _, s := range ss {
		vs := strings.Split(s, "/")
		vi, err := strconv.Atoi(vs[0])
		if err != nil {
			return err
		}
		if vi < 0 {
			data = append(data, int32(vi)+n)
		} else {
			data = append(data, int32(vi)-1)
		}
		if len(data) >= 32 {
			break
		}
	}
	for i := 2; i < len(data); i++ {
		a, b, c := data[0], data[i-1], data[i]
		if a < 0 || a >= n || b < 0 || b >= n || c < 0 || c >= n {
			continue
		}
		g.addTriangle(a, b, c, common.AreaWalkable)
	}
	return nil
}
