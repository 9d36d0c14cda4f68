// Package features counts per-label word presence over corpus samples.
package features

import (
	"context"
	"fmt"
	log "log/slog"

	"github.com/cognicore/synt/pkg/synt/batch"
	"github.com/cognicore/synt/pkg/synt/store"
)

// Tokenizer splits sample text into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizedSample is a sample reduced to its distinct tokens.
type TokenizedSample struct {
	Label  store.Label
	Tokens []string
}

// Sink receives word counts. Implementations must apply increments atomically
// because Consume runs on several workers at once.
type Sink interface {
	HasWordCounts(ctx context.Context) (bool, error)
	IncrementSamples(ctx context.Context, samples []TokenizedSample) error
}

// Fetcher reads balanced samples from the corpus.
type Fetcher interface {
	FetchSamples(ctx context.Context, limit, offset int) ([]store.Sample, error)
}

// Counter tokenizes samples and forwards distinct-word counts to a sink.
type Counter struct {
	tokenizer Tokenizer
	sink      Sink
}

// NewCounter creates a counter.
func NewCounter(tokenizer Tokenizer, sink Sink) *Counter {
	return &Counter{tokenizer: tokenizer, sink: sink}
}

// Unique returns the distinct tokens in first-seen order.
func Unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Consume tokenizes one chunk and sends it to the sink in a single call.
// Samples without tokens are dropped and not counted as processed.
func (c *Counter) Consume(ctx context.Context, samples []store.Sample) error {
	chunk := make([]TokenizedSample, 0, len(samples))
	for _, s := range samples {
		tokens := c.tokenizer.Tokenize(s.Text)
		if len(tokens) == 0 {
			continue
		}
		chunk = append(chunk, TokenizedSample{Label: s.Label, Tokens: Unique(tokens)})
	}
	if len(chunk) == 0 {
		return nil
	}
	return c.sink.IncrementSamples(ctx, chunk)
}

// StoreFeatureCounts counts total samples drawn from fetcher in chunks of
// chunkSize on workers goroutines. It does nothing and returns false when the
// sink already holds word counts, so a rerun never double counts.
//
// An odd chunkSize is rounded down to an even one: balanced fetches split
// each chunk between the labels and would otherwise skip a row per step.
func (c *Counter) StoreFeatureCounts(ctx context.Context, fetcher Fetcher, total, chunkSize, workers int) (bool, error) {
	if chunkSize > 0 {
		chunkSize = max(2, chunkSize-chunkSize%2)
	}

	done, err := c.sink.HasWordCounts(ctx)
	if err != nil {
		return false, fmt.Errorf("check word counts: %w", err)
	}
	if done {
		log.Info("word counts already stored, skipping feature counting")
		return false, nil
	}

	produce := func(ctx context.Context, offset, length int) ([]store.Sample, error) {
		if offset+length > total {
			length = total - offset
		}
		if length < 1 {
			return nil, nil
		}
		return fetcher.FetchSamples(ctx, length, offset)
	}

	stats, err := batch.Run(ctx, produce, c.Consume, batch.Options{
		ChunkSize: chunkSize,
		Total:     total,
		Workers:   workers,
	})
	if err != nil {
		return false, fmt.Errorf("store feature counts: %w", err)
	}
	log.Info("feature counts stored", "samples", stats.Samples, "chunks", stats.Chunks)
	return true, nil
}
