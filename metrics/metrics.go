// Package metrics holds the process-wide prometheus collectors for tile
// builds, query pool borrowing and tile mutation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildTotal counts tile builds by result code name.
	BuildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navtile_build_total",
		Help: "Total tile builds by result code",
	}, []string{"code"})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "navtile_build_duration_seconds",
		Help:    "Tile build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})

	// QueryBorrowTotal counts pool pops by outcome, "ok" or "empty".
	QueryBorrowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navtile_query_borrow_total",
		Help: "Total query handle borrow attempts by outcome",
	}, []string{"result"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "navtile_query_duration_seconds",
		Help:    "Navigation query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~160ms
	}, []string{"op"})

	// TileMutationTotal counts add/remove attempts; result is "ok",
	// "rejected" (engine refused) or "busy" (queries outstanding).
	TileMutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navtile_tile_mutation_total",
		Help: "Total tile add/remove attempts by outcome",
	}, []string{"op", "result"})

	TilesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navtile_tiles_loaded",
		Help: "Tiles currently held by navmeshes in this process",
	})
)
