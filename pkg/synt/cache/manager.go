// Package cache owns the key-value namespace holding word counts and every
// statistic derived from them.
package cache

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"

	"github.com/cognicore/synt/pkg/synt/features"
	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/stats"
	"github.com/cognicore/synt/pkg/synt/store"
)

// Keys of the derived statistics.
const (
	FreqDistKey     = "label_fd"
	WordScoresKey   = "word_scores"
	BestFeaturesKey = "best_words"
)

// WordCountsKey returns the sorted-set key holding a label's word counts.
func WordCountsKey(label store.Label) string {
	return string(label) + "_wordcounts"
}

// ProcessedKey returns the counter key of a label's processed samples.
func ProcessedKey(label store.Label) string {
	return string(label) + "_processed"
}

// Manager stores and derives the feature statistics.
type Manager struct {
	store     store.Cache
	marshaler Marshaler
}

// NewManager creates a manager on top of a cache store.
func NewManager(c store.Cache) *Manager {
	return &Manager{store: c, marshaler: NewMarshaler()}
}

// Store returns the underlying cache store.
func (m *Manager) Store() store.Cache {
	return m.store
}

// StoreBlob encodes v and stores it under key.
func (m *Manager) StoreBlob(ctx context.Context, key string, v any) error {
	ba, err := m.marshaler.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return m.store.Set(ctx, key, ba)
}

// LoadBlob decodes the value under key into target. It returns an error
// wrapping internalerr.ErrNotFound when the key is absent or unreadable.
func (m *Manager) LoadBlob(ctx context.Context, key string, target any) error {
	ba, found, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("blob %s: %w", key, internalerr.ErrNotFound)
	}
	if err := m.marshaler.Unmarshal(ba, target); err != nil {
		return fmt.Errorf("blob %s: %w", key, err)
	}
	return nil
}

// IncrementWordCounts counts one sample: every distinct token once, plus the
// label's processed counter.
func (m *Manager) IncrementWordCounts(ctx context.Context, label store.Label, tokens []string) error {
	return m.IncrementSamples(ctx, []features.TokenizedSample{{Label: label, Tokens: tokens}})
}

// IncrementSamples counts a chunk of samples in one atomic batch.
func (m *Manager) IncrementSamples(ctx context.Context, samples []features.TokenizedSample) error {
	var incs []store.Increment
	processed := make(map[store.Label]int64, len(store.Labels))

	for _, s := range samples {
		if s.Label != store.Positive && s.Label != store.Negative {
			return fmt.Errorf("label %q: %w", s.Label, internalerr.ErrInvalidInput)
		}
		key := WordCountsKey(s.Label)
		for _, tok := range features.Unique(s.Tokens) {
			incs = append(incs, store.Increment{Key: key, Member: tok, By: 1})
		}
		processed[s.Label]++
	}
	for _, label := range store.Labels {
		if n := processed[label]; n > 0 {
			incs = append(incs, store.Increment{Key: ProcessedKey(label), By: n})
		}
	}
	if len(incs) == 0 {
		return nil
	}
	return m.store.Increment(ctx, incs)
}

// HasWordCounts reports whether word counts were already stored.
func (m *Manager) HasWordCounts(ctx context.Context) (bool, error) {
	return m.store.Exists(ctx, WordCountsKey(store.Positive))
}

// Processed returns how many samples of the label were counted.
func (m *Manager) Processed(ctx context.Context, label store.Label) (int64, error) {
	raw, found, err := m.store.Get(ctx, ProcessedKey(label))
	if err != nil || !found {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", ProcessedKey(label), err)
	}
	return n, nil
}

// BuildFrequencyDistributions snapshots both labels' word counts into a
// conditional frequency distribution and stores it.
func (m *Manager) BuildFrequencyDistributions(ctx context.Context) (stats.ConditionalFreqDist, error) {
	cfd := stats.NewConditionalFreqDist()
	for _, label := range store.Labels {
		words, err := m.store.RevRange(ctx, WordCountsKey(label), 0, -1)
		if err != nil {
			return nil, fmt.Errorf("read %s word counts: %w", label, err)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("no %s word counts, store feature counts first: %w", label, internalerr.ErrPrecondition)
		}
		fd := cfd[label]
		for _, w := range words {
			fd.Inc(w.Member, int64(w.Score))
		}
	}

	if err := m.StoreBlob(ctx, FreqDistKey, cfd); err != nil {
		return nil, err
	}
	log.Debug("frequency distributions stored",
		"positive", cfd.Get(store.Positive).N(), "negative", cfd.Get(store.Negative).N())
	return cfd, nil
}

// FrequencyDistributions loads the stored distributions.
func (m *Manager) FrequencyDistributions(ctx context.Context) (stats.ConditionalFreqDist, error) {
	var cfd stats.ConditionalFreqDist
	if err := m.LoadBlob(ctx, FreqDistKey, &cfd); err != nil {
		if errors.Is(err, internalerr.ErrNotFound) {
			return nil, fmt.Errorf("build frequency distributions first: %w", internalerr.ErrPrecondition)
		}
		return nil, err
	}
	return cfd, nil
}

// ComputeWordScores scores every word of the stored distributions and stores
// the scores.
func (m *Manager) ComputeWordScores(ctx context.Context) (stats.WordScores, error) {
	cfd, err := m.FrequencyDistributions(ctx)
	if err != nil {
		return nil, err
	}

	scores := stats.Scores(cfd)
	if err := m.StoreBlob(ctx, WordScoresKey, scores); err != nil {
		return nil, err
	}
	log.Debug("word scores stored", "words", len(scores))
	return scores, nil
}

// WordScores loads the stored scores.
func (m *Manager) WordScores(ctx context.Context) (stats.WordScores, error) {
	var scores stats.WordScores
	if err := m.LoadBlob(ctx, WordScoresKey, &scores); err != nil {
		if errors.Is(err, internalerr.ErrNotFound) {
			return nil, fmt.Errorf("compute word scores first: %w", internalerr.ErrPrecondition)
		}
		return nil, err
	}
	return scores, nil
}

// SelectBestFeatures stores the n highest scoring words. n <= 0 is a no-op.
func (m *Manager) SelectBestFeatures(ctx context.Context, n int) ([]stats.ScoredWord, error) {
	if n <= 0 {
		return nil, nil
	}

	scores, err := m.WordScores(ctx)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("word scores are empty, compute word scores first: %w", internalerr.ErrPrecondition)
	}

	best := stats.Best(scores, n)
	if err := m.StoreBlob(ctx, BestFeaturesKey, best); err != nil {
		return nil, err
	}
	log.Debug("best features stored", "requested", n, "selected", len(best))
	return best, nil
}

// BestFeatures returns the selected words with scores, highest first.
// ok is false when no selection has been stored yet.
func (m *Manager) BestFeatures(ctx context.Context) ([]stats.ScoredWord, bool, error) {
	var best []stats.ScoredWord
	if err := m.LoadBlob(ctx, BestFeaturesKey, &best); err != nil {
		if errors.Is(err, internalerr.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return best, true, nil
}

// BestWords returns the selected words as a set. ok is false when no
// selection has been stored yet.
func (m *Manager) BestWords(ctx context.Context) (map[string]struct{}, bool, error) {
	best, ok, err := m.BestFeatures(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	words := make(map[string]struct{}, len(best))
	for _, sw := range best {
		words[sw.Word] = struct{}{}
	}
	return words, true, nil
}

// TopWords returns the label's words ranked start..end (inclusive) by count.
// ok is false when the label has no word counts.
func (m *Manager) TopWords(ctx context.Context, label store.Label, start, end int64) ([]store.ScoredMember, bool, error) {
	key := WordCountsKey(label)
	exists, err := m.store.Exists(ctx, key)
	if err != nil || !exists {
		return nil, false, err
	}
	words, err := m.store.RevRange(ctx, key, start, end)
	if err != nil {
		return nil, false, err
	}
	return words, true, nil
}

// Purge drops the whole namespace: counts, derived statistics, classifiers
// and the cached sample limit.
func (m *Manager) Purge(ctx context.Context) error {
	log.Info("purging cache namespace")
	return m.store.Flush(ctx)
}

var _ features.Sink = (*Manager)(nil)
