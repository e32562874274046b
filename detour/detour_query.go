package detour

import (
	"sync/atomic"
	"time"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/metrics"
	"github.com/gorustyt/navtile/native"
)

// QuerySettings controls how far a query searches for the nearest polygon
// and how many path points it may return.
type QuerySettings struct {
	FindNearestPolyExtent common.Vec3 `json:"find_nearest_poly_extent" yaml:"find_nearest_poly_extent"`
	MaxPathPoints         int32       `json:"max_path_points" yaml:"max_path_points"`
}

func DefaultQuerySettings() QuerySettings {
	return QuerySettings{
		FindNearestPolyExtent: common.Vec3{2, 4, 2},
		MaxPathPoints:         512,
	}
}

// LenientQuerySettings searches a wider area around the endpoints.
func LenientQuerySettings() QuerySettings {
	return QuerySettings{
		FindNearestPolyExtent: common.Vec3{10, 10, 10},
		MaxPathPoints:         2048,
	}
}

type RaycastHit struct {
	Hit      bool
	Position common.Vec3
	Normal   common.Vec3
}

// Query is a borrowed engine query handle with its own path buffer. It must
// be used by one goroutine at a time and returned to the pool it came from.
type Query struct {
	handle        native.Query
	maxPathPoints int32
	resultPath    []common.Vec3
	pool          *QueryPool
	borrowed      atomic.Bool
}

func newQuery(h native.Query, maxPathPoints int32, pool *QueryPool) *Query {
	return &Query{
		handle:        h,
		maxPathPoints: maxPathPoints,
		resultPath:    make([]common.Vec3, maxPathPoints),
		pool:          pool,
	}
}

func (q *Query) MaxPathPoints() int32 { return q.maxPathPoints }

// FindPath computes a straight path from source to target and returns the
// number of points written to the path buffer, 0 when no path exists. At
// most min(settings.MaxPathPoints, MaxPathPoints()) points are produced.
func (q *Query) FindPath(settings QuerySettings, source, target common.Vec3) int {
	defer observe("find_path", time.Now())
	limit := min(settings.MaxPathPoints, q.maxPathPoints)
	if limit <= 0 {
		return 0
	}
	req := native.PathFindQuery{
		Source:                source,
		Target:                target,
		FindNearestPolyExtent: settings.FindNearestPolyExtent,
		MaxPathPoints:         limit,
	}
	res := native.PathFindResult{PathPoints: q.resultPath[:limit]}
	q.handle.FindStraightPath(&req, &res)
	if !res.PathFound {
		return 0
	}
	return int(common.Clamp(res.NumPathPoints, 0, limit))
}

// Path returns the first count points of the last FindPath result. The
// slice aliases the query's buffer and is overwritten by the next FindPath.
func (q *Query) Path(count int) []common.Vec3 {
	return q.resultPath[:common.Clamp(count, 0, len(q.resultPath))]
}

func (q *Query) HasPath(settings QuerySettings, source, target common.Vec3) bool {
	defer observe("has_path", time.Now())
	req := native.PathFindQuery{
		Source:                source,
		Target:                target,
		FindNearestPolyExtent: settings.FindNearestPolyExtent,
		MaxPathPoints:         min(settings.MaxPathPoints, q.maxPathPoints),
	}
	return q.handle.HasPath(&req)
}

// SamplePosition snaps point onto the nearest polygon within extent, using
// polygon height rather than detail height.
func (q *Query) SamplePosition(point, extent common.Vec3) (common.Vec3, bool) {
	defer observe("sample_position", time.Now())
	var out common.Vec3
	if !q.handle.SamplePosition(point, extent, &out) {
		return common.Vec3{}, false
	}
	return out, true
}

// GetLocation is SamplePosition with the surface height under the point.
func (q *Query) GetLocation(point, extent common.Vec3) (common.Vec3, bool) {
	defer observe("get_location", time.Now())
	var out common.Vec3
	if !q.handle.GetLocation(point, extent, &out) {
		return common.Vec3{}, false
	}
	return out, true
}

// RandomPosition picks a point on a random polygon of the loaded tiles.
func (q *Query) RandomPosition() (common.Vec3, bool) {
	defer observe("random_position", time.Now())
	var out common.Vec3
	if !q.handle.GetRandomPosition(&out) {
		return common.Vec3{}, false
	}
	return out, true
}

// Raycast walks the surface from source towards target. Hit is set when the
// walk leaves the mesh before reaching target; Position is then the last
// point on the mesh and Normal the wall normal there.
func (q *Query) Raycast(settings QuerySettings, source, target common.Vec3) RaycastHit {
	defer observe("raycast", time.Now())
	req := native.RaycastQuery{
		Source:                source,
		Target:                target,
		FindNearestPolyExtent: settings.FindNearestPolyExtent,
		MaxPathPoints:         min(settings.MaxPathPoints, q.maxPathPoints),
	}
	var res native.RaycastResult
	q.handle.Raycast(&req, &res)
	return RaycastHit{Hit: res.Hit, Position: res.Position, Normal: res.Normal}
}

func (q *Query) destroy() {
	if q.handle != nil {
		q.handle.Destroy()
		q.handle = nil
	}
}

func observe(op string, start time.Time) {
	metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
