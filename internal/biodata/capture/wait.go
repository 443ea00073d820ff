package capture

import (
	"context"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds concurrent image loads during a capture
const maxParallelLoads = 4

// waitForImages loads every source within timeout. Sources that fail or do
// not settle in time are logged and left out of the result.
func waitForImages(ctx context.Context, loader ImageLoader, sources []string,
	timeout time.Duration, logger *log.Logger) map[string]image.Image {
	var mu sync.Mutex
	loaded := make(map[string]image.Image, len(sources))
	if len(sources) == 0 {
		return loaded
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		g := new(errgroup.Group)
		g.SetLimit(maxParallelLoads)
		for _, src := range sources {
			g.Go(func() error {
				img, err := loader.Load(ctx, src)
				if err != nil {
					logger.Printf("image failed to load, continuing without it: %v", err)
					return nil
				}
				mu.Lock()
				loaded[src] = img
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Printf("image wait ended before all images settled: %v", ctx.Err())
	}

	mu.Lock()
	defer mu.Unlock()
	result := make(map[string]image.Image, len(loaded))
	for k, v := range loaded {
		result[k] = v
	}
	return result
}
