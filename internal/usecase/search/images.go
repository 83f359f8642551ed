package search

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// loadImages reads image payloads for a batch of items with a worker pool
// bounded by available CPU parallelism. Output order matches item order.
func loadImages(ctx context.Context, items domain.Items) ([]domain.Image, error) {
	images := make([]domain.Image, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(it.ImagePath)
			if err != nil {
				return fmt.Errorf("read image %s: %w", it.ImagePath, err)
			}
			images[i] = domain.Image{Path: it.ImagePath, Data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
