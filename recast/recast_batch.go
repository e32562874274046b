package recast

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/logger"
)

// BuildTiles builds coords from geom on up to workers goroutines. Results are
// in coords order. A tile no input triangle reaches is reported as
// ZeroVertCount without running the engine. When ctx is cancelled, tiles not
// yet started are skipped, their slots left nil, and ctx.Err() returned.
func BuildTiles(ctx context.Context, b *TileBuilder, geom *InputGeometry, coords []common.TileCoord, workers int) ([]*BuildResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(coords) {
		workers = len(coords)
	}
	batch := uuid.NewString()
	start := time.Now()
	logger.Info("batch %v: building %v tiles on %v workers", batch, len(coords), workers)

	results := make([]*BuildResult, len(coords))
	jobs := make(chan int)
	border := b.TileBorder()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				input := geom.TileInput(b.settings, coords[i], border)
				if input.IsEmpty() {
					results[i] = &BuildResult{Code: ZeroVertCount, Coord: coords[i]}
					continue
				}
				results[i] = b.BuildTile(input)
			}
		}()
	}

	var err error
feed:
	for i := range coords {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	built := 0
	for _, r := range results {
		if r != nil && r.Success {
			built++
		}
	}
	logger.Info("batch %v: %v of %v tiles built in %v", batch, built, len(coords), time.Since(start))
	return results, err
}

// BuildAll builds every tile overlapping geom.
func BuildAll(ctx context.Context, b *TileBuilder, geom *InputGeometry, workers int) ([]*BuildResult, error) {
	return BuildTiles(ctx, b, geom, geom.TileCoords(b.settings), workers)
}
