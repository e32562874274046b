package detour

import (
	"fmt"

	"github.com/gorustyt/navtile/metrics"
	"github.com/gorustyt/navtile/native"
)

// QueryPool is a fixed set of query handles. Pop and Push never block and
// are safe for concurrent use.
type QueryPool struct {
	queries chan *Query
	size    int
}

func newQueryPool(nav native.Navmesh, size int, maxNodes, maxPathPoints int32) (*QueryPool, error) {
	p := &QueryPool{queries: make(chan *Query, size), size: size}
	for i := 0; i < size; i++ {
		h, err := nav.CreateQuery(maxNodes)
		if err != nil {
			p.clear()
			return nil, fmt.Errorf("create query %d of %d: %w", i+1, size, err)
		}
		p.queries <- newQuery(h, maxPathPoints, p)
	}
	return p, nil
}

// Pop borrows a handle, or reports false when all are in use.
func (p *QueryPool) Pop() (*Query, bool) {
	select {
	case q := <-p.queries:
		q.borrowed.Store(true)
		metrics.QueryBorrowTotal.WithLabelValues("ok").Inc()
		return q, true
	default:
		metrics.QueryBorrowTotal.WithLabelValues("empty").Inc()
		return nil, false
	}
}

// Push returns a borrowed handle. Handles from another pool, or ones not
// currently borrowed, are refused.
func (p *QueryPool) Push(q *Query) bool {
	if q == nil || q.pool != p || !q.borrowed.CompareAndSwap(true, false) {
		return false
	}
	select {
	case p.queries <- q:
		return true
	default:
		q.borrowed.Store(true)
		return false
	}
}

// IsFull reports whether no handle is borrowed.
func (p *QueryPool) IsFull() bool { return len(p.queries) == p.size }

func (p *QueryPool) Len() int { return len(p.queries) }

func (p *QueryPool) Cap() int { return p.size }

// takeAll removes every handle, or none when some are borrowed.
func (p *QueryPool) takeAll() ([]*Query, bool) {
	held := make([]*Query, 0, p.size)
	for len(held) < p.size {
		select {
		case q := <-p.queries:
			held = append(held, q)
		default:
			p.restore(held)
			return nil, false
		}
	}
	return held, true
}

func (p *QueryPool) restore(held []*Query) {
	for _, q := range held {
		p.queries <- q
	}
}

func (p *QueryPool) clear() {
	for {
		select {
		case q := <-p.queries:
			q.destroy()
		default:
			return
		}
	}
}
