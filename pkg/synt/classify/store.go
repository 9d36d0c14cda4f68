package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sort"
	"strings"

	"github.com/cognicore/synt/pkg/synt/internalerr"
)

// KeyPrefix namespaces classifiers away from the pipeline's own cache keys.
const KeyPrefix = "classifier:"

// Key returns the cache key a classifier name is stored under.
func Key(name string) string {
	return KeyPrefix + name
}

// BlobStore persists encoded values by key.
type BlobStore interface {
	StoreBlob(ctx context.Context, key string, v any) error
	LoadBlob(ctx context.Context, key string, target any) error
}

// Trained is a model together with the feature set it was trained on.
type Trained struct {
	Model Model
	// Best restricts features to these words; nil means every word.
	Best map[string]struct{}
}

// Features extracts the features the model was trained with.
func (t Trained) Features(tokens []string) Features {
	return BestWordFeatures(tokens, t.Best)
}

// Store keeps trained models under a name.
type Store struct {
	blobs BlobStore
}

// NewStore creates a classifier store.
func NewStore(blobs BlobStore) *Store {
	return &Store{blobs: blobs}
}

type storedModel struct {
	Algorithm Algorithm       `json:"algorithm"`
	Model     json.RawMessage `json:"model"`
	// Best is absent when the model uses every word.
	Best []string `json:"best,omitempty"`
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty classifier name: %w", internalerr.ErrInvalidInput)
	}
	return nil
}

// Save stores the model under name, replacing any previous one.
func (s *Store) Save(ctx context.Context, name string, t Trained) error {
	if err := validName(name); err != nil {
		return err
	}
	raw, err := json.Marshal(t.Model)
	if err != nil {
		return fmt.Errorf("encode classifier %s: %w", name, err)
	}

	sm := storedModel{Algorithm: t.Model.Algorithm(), Model: raw}
	if t.Best != nil {
		sm.Best = make([]string, 0, len(t.Best))
		for w := range t.Best {
			sm.Best = append(sm.Best, w)
		}
		sort.Strings(sm.Best)
	}
	return s.blobs.StoreBlob(ctx, Key(name), sm)
}

// Load returns the model stored under name. ok is false when nothing usable is
// stored: the name is absent, the blob is corrupt, or the algorithm unknown.
// Only store errors are returned.
func (s *Store) Load(ctx context.Context, name string) (Trained, bool, error) {
	if err := validName(name); err != nil {
		return Trained{}, false, err
	}

	var sm storedModel
	if err := s.blobs.LoadBlob(ctx, Key(name), &sm); err != nil {
		if errors.Is(err, internalerr.ErrNotFound) {
			return Trained{}, false, nil
		}
		return Trained{}, false, err
	}

	m, err := sm.Algorithm.decode(sm.Model)
	if err != nil {
		log.Warn("ignoring unreadable classifier", "name", name, "algorithm", sm.Algorithm, "error", err)
		return Trained{}, false, nil
	}

	t := Trained{Model: m}
	if sm.Best != nil {
		t.Best = make(map[string]struct{}, len(sm.Best))
		for _, w := range sm.Best {
			t.Best[w] = struct{}{}
		}
	}
	return t, true, nil
}
