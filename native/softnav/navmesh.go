package softnav

import (
	"fmt"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native"
)

type meshTile struct {
	coord  common.TileCoord
	header detour.DtMeshHeader
	verts  []common.Vec3
	polys  []detour.DtPoly
	bounds common.BoundingBox
}

func (t *meshTile) polyVerts(i int, buf []common.Vec3) []common.Vec3 {
	p := &t.polys[i]
	buf = buf[:0]
	for j := 0; j < int(p.VertCount); j++ {
		buf = append(buf, t.verts[p.Verts[j]])
	}
	return buf
}

// navMesh holds decoded tiles. Like the engine it stands in for, it does no
// locking: tiles change only while no query runs.
type navMesh struct {
	cellTileSize float32
	maxTiles     int
	maxPolys     int
	tiles        map[common.TileCoord]*meshTile
}

func (n *navMesh) AddTile(data []byte) bool {
	var d detour.NavMeshData
	if err := d.FromBin(data); err != nil {
		return false
	}
	coord := common.TileCoord{X: d.Header.X, Y: d.Header.Y}
	if _, occupied := n.tiles[coord]; occupied || d.Header.Layer != 0 {
		return false
	}
	if len(d.NavPolys) > n.maxPolys || len(n.tiles) >= n.maxTiles {
		return false
	}
	for i := range d.NavPolys {
		p := &d.NavPolys[i]
		if int(p.VertCount) > detour.DT_VERTS_PER_POLYGON {
			return false
		}
		for j := 0; j < int(p.VertCount); j++ {
			if int(p.Verts[j]) >= len(d.NavVerts) {
				return false
			}
		}
	}
	t := &meshTile{
		coord:  coord,
		header: d.Header,
		verts:  d.NavVerts,
		polys:  d.NavPolys,
		bounds: common.NewBoundingBox(common.Vec3(d.Header.Bmin), common.Vec3(d.Header.Bmax)),
	}
	n.tiles[coord] = t
	return true
}

func (n *navMesh) RemoveTile(coord common.TileCoord) bool {
	if _, ok := n.tiles[coord]; !ok {
		return false
	}
	delete(n.tiles, coord)
	return true
}

func (n *navMesh) CreateQuery(maxNodes int32) (native.Query, error) {
	if maxNodes <= 0 || maxNodes > 65535 {
		return nil, fmt.Errorf("%w: query max nodes %d", native.ErrCreateFailed, maxNodes)
	}
	return newQuery(n, maxNodes), nil
}

func (n *navMesh) CreateCrowd(maxAgents int32, maxAgentRadius float32) (native.Crowd, error) {
	if maxAgents <= 0 || !(maxAgentRadius > 0) {
		return nil, fmt.Errorf("%w: crowd max agents %d, radius %v", native.ErrCreateFailed, maxAgents, maxAgentRadius)
	}
	return newCrowd(n, maxAgents, maxAgentRadius), nil
}

func (n *navMesh) Destroy() {
	n.tiles = nil
}
