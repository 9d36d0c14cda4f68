package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// Store is an in-memory implementation of store.Corpus and store.Cache for
// tests and dry runs. Sorted sets, counters and blobs live in separate maps;
// a key belongs to exactly one of them, as in Redis.
type Store struct {
	mu      sync.RWMutex
	texts   map[string]struct{}
	samples map[store.Label][]store.Sample

	blobs map[string][]byte
	zsets map[string]map[string]float64

	// Writes counts mutating cache calls. Tests use it to assert no-op paths.
	Writes int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		texts:   make(map[string]struct{}),
		samples: make(map[store.Label][]store.Sample),
		blobs:   make(map[string][]byte),
		zsets:   make(map[string]map[string]float64),
	}
}

// Close implements store.Corpus and store.Cache.
func (s *Store) Close() error { return nil }

// Insert adds samples, ignoring texts already stored.
func (s *Store) Insert(ctx context.Context, samples []store.Sample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, smp := range samples {
		if smp.Text == "" {
			continue
		}
		if smp.Label != store.Positive && smp.Label != store.Negative {
			return added, fmt.Errorf("sample label %q: %w", smp.Label, internalerr.ErrInvalidInput)
		}
		if _, dup := s.texts[smp.Text]; dup {
			continue
		}
		s.texts[smp.Text] = struct{}{}
		s.samples[smp.Label] = append(s.samples[smp.Label], smp)
		added++
	}
	return added, nil
}

// CountByLabel returns the number of samples with the label.
func (s *Store) CountByLabel(ctx context.Context, label store.Label) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[label]), nil
}

// Samples returns up to limit samples of one label in insertion order.
func (s *Store) Samples(ctx context.Context, label store.Label, limit, offset int) ([]store.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.samples[label]
	if limit <= 0 || offset >= len(rows) {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]store.Sample, end-offset)
	copy(out, rows[offset:end])
	return out, nil
}

// Get returns a blob or counter value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores a blob, replacing any value under the key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Writes++
	delete(s.zsets, key)
	v := make([]byte, len(value))
	copy(v, value)
	s.blobs[key] = v
	return nil
}

// Exists reports whether the key holds any value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.blobs[key]; ok {
		return true, nil
	}
	_, ok := s.zsets[key]
	return ok, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Writes++
	for _, k := range keys {
		delete(s.blobs, k)
		delete(s.zsets, k)
	}
	return nil
}

// Increment applies all increments under one lock, mirroring MULTI/EXEC.
func (s *Store) Increment(ctx context.Context, incs []store.Increment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate first so a bad batch leaves nothing applied.
	for _, inc := range incs {
		if inc.Member == "" {
			if _, isSet := s.zsets[inc.Key]; isSet {
				return fmt.Errorf("increment %q: key holds a sorted set: %w", inc.Key, internalerr.ErrInvalidInput)
			}
			if v, ok := s.blobs[inc.Key]; ok {
				if _, err := strconv.ParseInt(string(v), 10, 64); err != nil {
					return fmt.Errorf("increment %q: value is not an integer: %w", inc.Key, internalerr.ErrInvalidInput)
				}
			}
		} else if _, isBlob := s.blobs[inc.Key]; isBlob {
			return fmt.Errorf("increment %q: key holds a string: %w", inc.Key, internalerr.ErrInvalidInput)
		}
	}

	s.Writes++
	for _, inc := range incs {
		if inc.Member == "" {
			cur, _ := strconv.ParseInt(string(s.blobs[inc.Key]), 10, 64)
			s.blobs[inc.Key] = []byte(strconv.FormatInt(cur+inc.By, 10))
			continue
		}
		set, ok := s.zsets[inc.Key]
		if !ok {
			set = make(map[string]float64)
			s.zsets[inc.Key] = set
		}
		set[inc.Member] += float64(inc.By)
	}
	return nil
}

// RevRange returns members ordered by score descending. Equal scores are
// ordered by member descending, matching ZREVRANGE.
func (s *Store) RevRange(ctx context.Context, key string, start, stop int64) ([]store.ScoredMember, error) {
	s.mu.RLock()
	set, ok := s.zsets[key]
	all := make([]store.ScoredMember, 0, len(set))
	for m, sc := range set {
		all = append(all, store.ScoredMember{Member: m, Score: sc})
	}
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Member > all[j].Member
	})

	n := int64(len(all))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil, nil
	}
	return all[start : stop+1], nil
}

// Flush drops every cached key. Corpus samples are kept.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Writes++
	s.blobs = make(map[string][]byte)
	s.zsets = make(map[string]map[string]float64)
	return nil
}

var (
	_ store.Corpus = (*Store)(nil)
	_ store.Cache  = (*Store)(nil)
)
