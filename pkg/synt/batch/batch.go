// Package batch splits a sample range into chunks and consumes them on a
// bounded pool of goroutines.
package batch

import (
	"context"
	"fmt"
	log "log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// Producer fetches the samples of one chunk. An empty result skips the chunk.
type Producer func(ctx context.Context, offset, length int) ([]store.Sample, error)

// Consumer processes one chunk. It is called concurrently from several workers.
type Consumer func(ctx context.Context, samples []store.Sample) error

// Options control chunking and parallelism.
type Options struct {
	ChunkSize int
	Total     int
	// Workers is the pool size; zero or less means runtime.NumCPU().
	Workers int
}

// Stats summarizes a finished run.
type Stats struct {
	Chunks  int // chunks handed to a consumer
	Skipped int // chunks whose producer returned nothing
	Samples int64
}

// Run walks [0, Total) in ChunkSize steps. Producers run in the calling
// goroutine; consumers run on the worker pool. Run blocks until every
// dispatched chunk finished. The first consumer error cancels dispatching of
// further chunks and is returned wrapped in internalerr.ErrWorkerFailure;
// work already done by other chunks is kept.
func Run(ctx context.Context, produce Producer, consume Consumer, opts Options) (Stats, error) {
	var stats Stats
	if opts.ChunkSize <= 0 {
		return stats, fmt.Errorf("chunk size %d: %w", opts.ChunkSize, internalerr.ErrInvalidInput)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	var consumed atomic.Int64
	var produceErr error

	for offset := 0; offset < opts.Total; offset += opts.ChunkSize {
		if egCtx.Err() != nil {
			break
		}

		length := opts.ChunkSize
		if offset+length > opts.Total {
			length = opts.Total - offset
		}

		samples, err := produce(egCtx, offset, length)
		if err != nil {
			produceErr = fmt.Errorf("produce chunk at offset %d: %w", offset, err)
			break
		}
		if len(samples) == 0 {
			stats.Skipped++
			continue
		}

		stats.Chunks++
		offset := offset
		// Blocks while all workers are busy.
		eg.Go(func() error {
			if err := consume(egCtx, samples); err != nil {
				return fmt.Errorf("chunk at offset %d: %w: %w", offset, internalerr.ErrWorkerFailure, err)
			}
			consumed.Add(int64(len(samples)))
			return nil
		})
	}

	err := eg.Wait()
	stats.Samples = consumed.Load()
	log.Debug("batch finished", "chunks", stats.Chunks, "skipped", stats.Skipped, "samples", stats.Samples, "workers", workers)

	if err != nil {
		return stats, err
	}
	if produceErr != nil {
		return stats, produceErr
	}
	return stats, ctx.Err()
}
