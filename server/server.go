// Package server exposes a navmesh over HTTP. Query requests borrow a handle
// from the navmesh pool; tile uploads wait for in-flight queries to drain
// before mutating.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/tile_store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const maxTileUpload = 64 << 20

type Options struct {
	Query          detour.QuerySettings
	AllowedOrigins []string
	// BorrowTimeout bounds the wait for a free query handle. Zero waits
	// until the request is cancelled.
	BorrowTimeout time.Duration
}

type Server struct {
	nav   *detour.Navmesh
	store tile_store.Store
	opts  Options

	// gate is held shared while a request uses a query handle and
	// exclusively while tiles change, so mutations never see a borrowed
	// handle.
	gate    sync.RWMutex
	handler http.Handler
}

// New serves nav. store may be nil, in which case uploaded tiles are not
// persisted and tile geometry is unavailable.
func New(nav *detour.Navmesh, store tile_store.Store, opts Options) *Server {
	s := &Server{nav: nav, store: store, opts: opts}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/path", s.findPathHandler).Methods("POST")
	api.HandleFunc("/has_path", s.hasPathHandler).Methods("POST")
	api.HandleFunc("/sample", s.samplePositionHandler).Methods("POST")
	api.HandleFunc("/location", s.getLocationHandler).Methods("POST")
	api.HandleFunc("/raycast", s.raycastHandler).Methods("POST")
	api.HandleFunc("/random", s.randomPositionHandler).Methods("GET")
	api.HandleFunc("/tiles", s.listTilesHandler).Methods("GET")
	api.HandleFunc("/tiles", s.putTileHandler).Methods("PUT")
	api.HandleFunc("/tiles/{x}/{y}", s.deleteTileHandler).Methods("DELETE")
	api.HandleFunc("/tiles/{x}/{y}/geometry", s.tileGeometryHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(r)
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

var errNoQuery = errors.New("no query handle available")

// withQuery runs fn with a borrowed handle, retrying the borrow until one is
// free or the request's deadline passes.
func (s *Server) withQuery(ctx context.Context, fn func(q *detour.Query)) error {
	if s.opts.BorrowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.BorrowTimeout)
		defer cancel()
	}
	s.gate.RLock()
	defer s.gate.RUnlock()

	wait := 50 * time.Microsecond
	for {
		if q, ok := s.nav.QueryPool.Pop(); ok {
			defer s.nav.QueryPool.Push(q)
			fn(q)
			return nil
		}
		select {
		case <-ctx.Done():
			return errNoQuery
		case <-time.After(wait):
		}
		if wait < 5*time.Millisecond {
			wait *= 2
		}
	}
}

// mutate runs fn once every in-flight query has returned its handle.
func (s *Server) mutate(fn func(m *detour.TileMutator)) bool {
	s.gate.Lock()
	defer s.gate.Unlock()
	return s.nav.Mutate(fn)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("navmesh server listening on %v", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("navmesh server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
