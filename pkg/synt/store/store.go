package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/synt/pkg/synt/internalerr"
)

// Label is a sentiment category.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
)

// Labels lists every supported label in a fixed order.
var Labels = []Label{Positive, Negative}

// ParseLabel accepts full label names and their common prefixes ("pos", "neg").
func ParseLabel(s string) (Label, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return "", fmt.Errorf("empty label: %w", internalerr.ErrInvalidInput)
	case strings.HasPrefix(s, "pos"):
		return Positive, nil
	case strings.HasPrefix(s, "neg"):
		return Negative, nil
	}
	return "", fmt.Errorf("unknown label %q: %w", s, internalerr.ErrInvalidInput)
}

// Sample is one labeled text row of the corpus.
type Sample struct {
	Text  string
	Label Label
}

// Corpus is the persistent store of labeled samples.
type Corpus interface {
	Close() error

	// Insert adds samples, ignoring texts already present. Returns rows added.
	Insert(ctx context.Context, samples []Sample) (int, error)
	CountByLabel(ctx context.Context, label Label) (int, error)
	Samples(ctx context.Context, label Label, limit, offset int) ([]Sample, error)
}

// Cache is the key-value store holding counts and derived statistics.
// All mutation goes through atomic primitives of the backing store.
type Cache interface {
	Close() error

	// Get returns found=false with a nil error when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error

	// Increment applies every increment in one atomic transaction.
	Increment(ctx context.Context, incs []Increment) error

	// RevRange returns sorted-set members with scores, highest score first.
	// start and stop are inclusive; negative indexes count from the end.
	RevRange(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)

	// Flush drops every key of the namespace.
	Flush(ctx context.Context) error
}

// Increment is a single counter update. An empty Member addresses a plain
// integer counter; otherwise Member is incremented inside the sorted set Key.
type Increment struct {
	Key    string
	Member string
	By     int64
}

// ScoredMember is one entry of a sorted set.
type ScoredMember struct {
	Member string
	Score  float64
}
