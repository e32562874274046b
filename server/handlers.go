package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/tile_store"
)

type PathRequest struct {
	Start         common.Vec3  `json:"start"`
	End           common.Vec3  `json:"end"`
	Extent        *common.Vec3 `json:"extent,omitempty"`
	MaxPathPoints int32        `json:"max_path_points,omitempty"`
}

type PathResponse struct {
	Found  bool          `json:"found"`
	Path   []common.Vec3 `json:"path"`
	Length int           `json:"length"`
}

type PointRequest struct {
	Point  common.Vec3  `json:"point"`
	Extent *common.Vec3 `json:"extent,omitempty"`
}

type PointResponse struct {
	Found bool        `json:"found"`
	Point common.Vec3 `json:"point"`
}

type RaycastResponse struct {
	Hit      bool        `json:"hit"`
	Position common.Vec3 `json:"position"`
	Normal   common.Vec3 `json:"normal"`
}

type TilesResponse struct {
	Count int                `json:"count"`
	Tiles []common.TileCoord `json:"tiles"`
}

type GeometryResponse struct {
	Coord    common.TileCoord `json:"coord"`
	Vertices []common.Vec3    `json:"vertices"`
	Indices  []int32          `json:"indices"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) settings(extent *common.Vec3, maxPoints int32) detour.QuerySettings {
	qs := s.opts.Query
	if extent != nil {
		qs.FindNearestPolyExtent = *extent
	}
	if maxPoints > 0 && maxPoints < qs.MaxPathPoints {
		qs.MaxPathPoints = maxPoints
	}
	return qs
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(q *detour.Query)) bool {
	if err := s.withQuery(r.Context(), fn); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) findPathHandler(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	qs := s.settings(req.Extent, req.MaxPathPoints)
	var resp PathResponse
	ok := s.query(w, r, func(q *detour.Query) {
		n := q.FindPath(qs, req.Start, req.End)
		resp.Path = append([]common.Vec3{}, q.Path(n)...)
	})
	if !ok {
		return
	}
	resp.Length = len(resp.Path)
	resp.Found = resp.Length > 0
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) hasPathHandler(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	qs := s.settings(req.Extent, req.MaxPathPoints)
	var found bool
	if s.query(w, r, func(q *detour.Query) { found = q.HasPath(qs, req.Start, req.End) }) {
		writeJSON(w, http.StatusOK, PathResponse{Found: found, Path: []common.Vec3{}})
	}
}

func (s *Server) pointHandler(w http.ResponseWriter, r *http.Request, fn func(q *detour.Query, p, ext common.Vec3) (common.Vec3, bool)) {
	var req PointRequest
	if !decode(w, r, &req) {
		return
	}
	qs := s.settings(req.Extent, 0)
	var resp PointResponse
	if s.query(w, r, func(q *detour.Query) {
		resp.Point, resp.Found = fn(q, req.Point, qs.FindNearestPolyExtent)
	}) {
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) samplePositionHandler(w http.ResponseWriter, r *http.Request) {
	s.pointHandler(w, r, (*detour.Query).SamplePosition)
}

func (s *Server) getLocationHandler(w http.ResponseWriter, r *http.Request) {
	s.pointHandler(w, r, (*detour.Query).GetLocation)
}

func (s *Server) randomPositionHandler(w http.ResponseWriter, r *http.Request) {
	var resp PointResponse
	if s.query(w, r, func(q *detour.Query) { resp.Point, resp.Found = q.RandomPosition() }) {
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) raycastHandler(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decode(w, r, &req) {
		return
	}
	qs := s.settings(req.Extent, req.MaxPathPoints)
	var hit detour.RaycastHit
	if s.query(w, r, func(q *detour.Query) { hit = q.Raycast(qs, req.Start, req.End) }) {
		writeJSON(w, http.StatusOK, RaycastResponse{Hit: hit.Hit, Position: hit.Position, Normal: hit.Normal})
	}
}

func (s *Server) listTilesHandler(w http.ResponseWriter, r *http.Request) {
	s.gate.RLock()
	coords := s.nav.TileCoords()
	s.gate.RUnlock()
	writeJSON(w, http.StatusOK, TilesResponse{Count: len(coords), Tiles: coords})
}

// putTileHandler installs a raw tile from the request body and persists it
// when a store is configured.
func (s *Server) putTileHandler(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxTileUpload))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	tile := detour.NewNavmeshTile(data)
	coord, err := tile.Coord()
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid tile: %v", err), http.StatusBadRequest)
		return
	}
	var added bool
	var persistErr error
	ok := s.mutate(func(m *detour.TileMutator) {
		prev := s.storedTile(r.Context(), coord)
		if added = m.AddOrReplaceTile(tile); !added || s.store == nil {
			return
		}
		if persistErr = s.persist(r.Context(), tile); persistErr == nil {
			return
		}
		m.RemoveTile(coord)
		if prev != nil && !m.AddOrReplaceTile(detour.NewNavmeshTile(prev.Data)) {
			logger.Warn("restore tile %v failed", coord)
		}
	})
	if !ok {
		http.Error(w, "navmesh busy", http.StatusServiceUnavailable)
		return
	}
	if !added {
		http.Error(w, fmt.Sprintf("tile %v rejected", coord), http.StatusUnprocessableEntity)
		return
	}
	if persistErr != nil {
		logger.Error("persist tile %v: %v", coord, persistErr)
		http.Error(w, "persist tile", http.StatusInternalServerError)
		return
	}
	logger.Info("tile %v installed, %v bytes", coord, len(data))
	writeJSON(w, http.StatusOK, coord)
}

func (s *Server) persist(ctx context.Context, tile *detour.NavmeshTile) error {
	rec, err := tile_store.NewTile(tile)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, rec)
}

// storedTile returns the persisted copy of a loaded tile, or nil.
func (s *Server) storedTile(ctx context.Context, coord common.TileCoord) *tile_store.Tile {
	if s.store == nil || !s.nav.HasTile(coord) {
		return nil
	}
	t, err := s.store.Get(ctx, coord)
	if err != nil {
		return nil
	}
	return t
}

func tileCoord(r *http.Request) (common.TileCoord, error) {
	vars := mux.Vars(r)
	x, err := strconv.ParseInt(vars["x"], 10, 32)
	if err != nil {
		return common.TileCoord{}, err
	}
	y, err := strconv.ParseInt(vars["y"], 10, 32)
	if err != nil {
		return common.TileCoord{}, err
	}
	return common.TileCoord{X: int32(x), Y: int32(y)}, nil
}

func (s *Server) deleteTileHandler(w http.ResponseWriter, r *http.Request) {
	coord, err := tileCoord(r)
	if err != nil {
		http.Error(w, "Invalid tile coordinate", http.StatusBadRequest)
		return
	}
	var removed bool
	if !s.mutate(func(m *detour.TileMutator) { removed = m.RemoveTile(coord) }) {
		http.Error(w, "navmesh busy", http.StatusServiceUnavailable)
		return
	}
	if !removed {
		http.Error(w, fmt.Sprintf("tile %v not loaded", coord), http.StatusNotFound)
		return
	}
	if s.store != nil {
		if err := s.store.Delete(r.Context(), coord); err != nil && !errors.Is(err, tile_store.ErrNotFound) {
			logger.Error("delete stored tile %v: %v", coord, err)
		}
	}
	writeJSON(w, http.StatusOK, coord)
}

func (s *Server) tileGeometryHandler(w http.ResponseWriter, r *http.Request) {
	coord, err := tileCoord(r)
	if err != nil {
		http.Error(w, "Invalid tile coordinate", http.StatusBadRequest)
		return
	}
	if s.store == nil {
		http.Error(w, "no tile store", http.StatusNotFound)
		return
	}
	t, err := s.store.Get(r.Context(), coord)
	if errors.Is(err, tile_store.ErrNotFound) {
		http.Error(w, fmt.Sprintf("tile %v not stored", coord), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	geom, err := detour.DecodeTileGeometry(t.Data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := GeometryResponse{Coord: coord, Vertices: []common.Vec3{}, Indices: []int32{}}
	if geom != nil {
		resp.Vertices, resp.Indices = geom.Vertices, geom.Indices
	}
	writeJSON(w, http.StatusOK, resp)
}
