// Package synt trains and queries sentiment classifiers over a labeled
// corpus, keeping word statistics and models in a shared cache.
package synt

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/synt/pkg/synt/cache"
	"github.com/cognicore/synt/pkg/synt/classify"
	"github.com/cognicore/synt/pkg/synt/corpus"
	"github.com/cognicore/synt/pkg/synt/features"
	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// Synt is the main pipeline facade
type Synt struct {
	corpus      store.Corpus
	cache       store.Cache
	tokenizer   features.Tokenizer
	sampler     *corpus.Sampler
	manager     *cache.Manager
	counter     *features.Counter
	classifiers *classify.Store
	chunkSize   int
	workers     int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Synt instance
type Options struct {
	Corpus    store.Corpus
	Cache     store.Cache
	Tokenizer features.Tokenizer
	// ChunkSize is the number of samples per counting chunk.
	ChunkSize int
	// Workers bounds concurrent chunk consumers; 0 means the CPU count.
	Workers int
}

// New creates a Synt instance with the given dependencies
func New(opts Options) *Synt {
	manager := cache.NewManager(opts.Cache)
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10000
	}
	return &Synt{
		corpus:      opts.Corpus,
		cache:       opts.Cache,
		tokenizer:   opts.Tokenizer,
		sampler:     corpus.NewSampler(opts.Corpus, opts.Cache),
		manager:     manager,
		counter:     features.NewCounter(opts.Tokenizer, manager),
		classifiers: classify.NewStore(manager),
		chunkSize:   chunkSize,
		workers:     opts.Workers,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Close releases the corpus and the cache.
func (s *Synt) Close() error {
	return errors.Join(s.corpus.Close(), s.cache.Close())
}

// Manager exposes the cache manager for statistics queries.
func (s *Synt) Manager() *cache.Manager { return s.manager }

// Sampler exposes the balanced corpus sampler.
func (s *Synt) Sampler() *corpus.Sampler { return s.sampler }

// TrainOptions controls a training run
type TrainOptions struct {
	// Name is the key the classifier is stored under; defaults to the algorithm.
	Name      string
	Algorithm classify.Algorithm
	// Samples is the number of balanced samples across both labels; 0 means
	// every balanced row, twice the sample limit.
	Samples int
	// BestFeatures limits features to the top scoring words; 0 keeps every word.
	BestFeatures int
	// Purge flushes the cache namespace before training.
	Purge bool
}

// TrainResult describes a finished training run
type TrainResult struct {
	RunID        string
	Name         string
	Algorithm    classify.Algorithm
	Samples      int
	Counted      bool
	BestFeatures int
	Duration     time.Duration
}

func (s *Synt) newRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Train counts features, derives word scores and best features, trains a
// classifier on a balanced sample and stores it.
func (s *Synt) Train(ctx context.Context, opts TrainOptions) (TrainResult, error) {
	start := time.Now()
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = classify.NaiveBayes
	}
	trainer, err := algorithm.Trainer()
	if err != nil {
		return TrainResult{}, err
	}
	name := opts.Name
	if name == "" {
		name = string(algorithm)
	}

	res := TrainResult{RunID: s.newRunID(), Name: name, Algorithm: algorithm}
	logger := log.With("run", res.RunID, "classifier", name)

	if opts.Purge {
		if err := s.manager.Purge(ctx); err != nil {
			return res, fmt.Errorf("purge: %w", err)
		}
	}

	limit, err := s.sampler.SampleLimit(ctx)
	if err != nil {
		return res, err
	}
	// The limit is per label; a balanced run covers both.
	total := opts.Samples
	if total <= 0 || total > 2*limit {
		total = 2 * limit
	}
	chunk, err := s.sampler.ChunkLimit(ctx, s.chunkSize)
	if err != nil {
		return res, err
	}
	logger.Info("training started", "algorithm", algorithm, "samples", total, "chunk", chunk)

	res.Counted, err = s.counter.StoreFeatureCounts(ctx, s.sampler, total, chunk, s.workers)
	if err != nil {
		return res, err
	}
	if _, err := s.manager.BuildFrequencyDistributions(ctx); err != nil {
		return res, err
	}
	if _, err := s.manager.ComputeWordScores(ctx); err != nil {
		return res, err
	}

	var best map[string]struct{}
	if opts.BestFeatures > 0 {
		selected, err := s.manager.SelectBestFeatures(ctx, opts.BestFeatures)
		if err != nil {
			return res, err
		}
		res.BestFeatures = len(selected)
		best, _, err = s.manager.BestWords(ctx)
		if err != nil {
			return res, err
		}
	}

	trained := classify.Trained{Best: best}
	samples, err := s.sampler.FetchRange(ctx, total, 0)
	if err != nil {
		return res, err
	}
	examples := make([]classify.LabeledFeatures, 0, len(samples))
	for _, smp := range samples {
		examples = append(examples, classify.LabeledFeatures{
			Features: trained.Features(s.tokenizer.Tokenize(smp.Text)),
			Label:    smp.Label,
		})
	}
	res.Samples = len(examples)

	trained.Model, err = trainer.Train(ctx, examples)
	if err != nil {
		return res, fmt.Errorf("train %s: %w", name, err)
	}
	if err := s.classifiers.Save(ctx, name, trained); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	logger.Info("training finished", "examples", res.Samples, "best_features", res.BestFeatures, "duration", res.Duration)
	return res, nil
}

func (s *Synt) loadClassifier(ctx context.Context, name string) (classify.Trained, error) {
	trained, ok, err := s.classifiers.Load(ctx, name)
	if err != nil {
		return classify.Trained{}, err
	}
	if !ok {
		return classify.Trained{}, fmt.Errorf("classifier %q, train a classifier first: %w", name, internalerr.ErrNotFound)
	}
	return trained, nil
}

// Guess scores text as P(positive) - P(negative), a value in [-1, 1].
// Text without usable features scores 0.
func (s *Synt) Guess(ctx context.Context, name, text string) (float64, error) {
	trained, err := s.loadClassifier(ctx, name)
	if err != nil {
		return 0, err
	}

	f := trained.Features(s.tokenizer.Tokenize(text))
	if len(f) == 0 {
		return 0, nil
	}
	probs := trained.Model.ProbClassify(f)
	return probs[store.Positive] - probs[store.Negative], nil
}

// Accuracy classifies samples balanced held-out samples starting at offset
// and returns the fraction labeled correctly along with the number tested.
func (s *Synt) Accuracy(ctx context.Context, name string, samples, offset int) (float64, int, error) {
	trained, err := s.loadClassifier(ctx, name)
	if err != nil {
		return 0, 0, err
	}

	test, err := s.sampler.FetchRange(ctx, samples, offset)
	if err != nil {
		return 0, 0, err
	}
	if len(test) == 0 {
		return 0, 0, fmt.Errorf("no samples at offset %d: %w", offset, internalerr.ErrPrecondition)
	}

	correct := 0
	for _, smp := range test {
		if trained.Model.Classify(trained.Features(s.tokenizer.Tokenize(smp.Text))) == smp.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(test)), len(test), nil
}
