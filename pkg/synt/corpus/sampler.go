// Package corpus draws balanced samples from the corpus store and keeps the
// balanced sample limit cached.
package corpus

import (
	"context"
	"fmt"
	log "log/slog"
	"strconv"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// LimitKey is the cache key holding the balanced sample limit.
const LimitKey = "limit"

// Sampler reads balanced, paginated samples from a corpus.
type Sampler struct {
	corpus store.Corpus
	cache  store.Cache
}

// NewSampler creates a sampler. The cache holds the sample limit between runs.
func NewSampler(corpus store.Corpus, cache store.Cache) *Sampler {
	return &Sampler{corpus: corpus, cache: cache}
}

// ComputeSampleLimit scans the corpus and returns min(positive, negative).
// The result is not cached; use SampleLimit for the memoized value.
func (s *Sampler) ComputeSampleLimit(ctx context.Context) (int, error) {
	limit := -1
	for _, label := range store.Labels {
		n, err := s.corpus.CountByLabel(ctx, label)
		if err != nil {
			return 0, fmt.Errorf("count %s samples: %w", label, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("corpus has no %s samples, collect or import samples first: %w", label, internalerr.ErrPrecondition)
		}
		if limit < 0 || n < limit {
			limit = n
		}
	}
	return limit, nil
}

// SampleLimit returns the cached limit, computing and caching it on first use.
func (s *Sampler) SampleLimit(ctx context.Context) (int, error) {
	raw, found, err := s.cache.Get(ctx, LimitKey)
	if err != nil {
		return 0, fmt.Errorf("read sample limit: %w", err)
	}
	if found {
		limit, err := strconv.Atoi(string(raw))
		if err == nil {
			return limit, nil
		}
		log.Warn("ignoring unreadable cached sample limit", "value", string(raw))
	}

	limit, err := s.ComputeSampleLimit(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, LimitKey, []byte(strconv.Itoa(limit))); err != nil {
		return 0, fmt.Errorf("cache sample limit: %w", err)
	}
	log.Debug("sample limit computed", "limit", limit)
	return limit, nil
}

// Invalidate drops the cached limit so the next SampleLimit call rescans.
func (s *Sampler) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, LimitKey)
}

// FetchSamples returns up to limit samples split evenly between the labels.
//
// The limit is clamped to [2, SampleLimit] and rounded down to an even number;
// each label contributes limit/2 rows starting at offset/2. Positive samples
// come first, then negative ones.
func (s *Sampler) FetchSamples(ctx context.Context, limit, offset int) ([]store.Sample, error) {
	maxLimit, err := s.SampleLimit(ctx)
	if err != nil {
		return nil, err
	}

	if limit < 2 {
		limit = 2
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if limit%2 != 0 {
		limit--
	}
	if offset < 0 {
		offset = 0
	}

	half := limit / 2
	if half == 0 {
		return nil, nil
	}

	var out []store.Sample
	for _, label := range store.Labels {
		rows, err := s.corpus.Samples(ctx, label, half, offset/2)
		if err != nil {
			return nil, fmt.Errorf("fetch %s samples: %w", label, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// ChunkLimit returns the largest even chunk a single FetchSamples call serves
// in full, capped at want when want is positive.
func (s *Sampler) ChunkLimit(ctx context.Context, want int) (int, error) {
	maxLimit, err := s.SampleLimit(ctx)
	if err != nil {
		return 0, err
	}
	chunk := maxLimit
	if want > 0 && want < chunk {
		chunk = want
	}
	return max(2, chunk-chunk%2), nil
}

// FetchRange returns up to total balanced samples starting at offset. Unlike
// FetchSamples it pages through both labels in chunks FetchSamples serves in
// full, so offset+total may reach twice the sample limit. Rows are balanced
// per chunk.
func (s *Sampler) FetchRange(ctx context.Context, total, offset int) ([]store.Sample, error) {
	maxLimit, err := s.SampleLimit(ctx)
	if err != nil {
		return nil, err
	}
	chunk, err := s.ChunkLimit(ctx, 0)
	if err != nil {
		return nil, err
	}
	// Past the limit only the larger label has rows left.
	if offset < 0 {
		offset = 0
	}
	total = min(total, 2*maxLimit-offset)
	total -= total % 2

	var out []store.Sample
	for done := 0; done < total; done += chunk {
		rows, err := s.FetchSamples(ctx, min(chunk, total-done), offset+done)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		out = append(out, rows...)
	}
	return out, nil
}
