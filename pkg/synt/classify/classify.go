// Package classify trains sentiment classifiers on word-presence features
// and keeps trained models in the cache.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// Features maps a feature name to its presence.
type Features map[string]bool

// LabeledFeatures is one training example.
type LabeledFeatures struct {
	Features Features
	Label    store.Label
}

// Model is a trained classifier.
type Model interface {
	Algorithm() Algorithm
	Classify(f Features) store.Label
	// ProbClassify returns a probability per label; values sum to 1.
	ProbClassify(f Features) map[store.Label]float64
}

// Trainer produces a model from labeled examples.
type Trainer interface {
	Train(ctx context.Context, examples []LabeledFeatures) (Model, error)
}

// Algorithm names a supported classifier.
type Algorithm string

const (
	NaiveBayes Algorithm = "naivebayes"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{NaiveBayes}

// ParseAlgorithm resolves an algorithm by name, case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, a := range Algorithms {
		if a == n {
			return a, nil
		}
	}
	return "", fmt.Errorf("classifier %q: %w", name, internalerr.ErrInvalidInput)
}

// Trainer returns the trainer implementing the algorithm.
func (a Algorithm) Trainer() (Trainer, error) {
	switch a {
	case NaiveBayes:
		return NaiveBayesTrainer{}, nil
	}
	return nil, fmt.Errorf("classifier %q: %w", a, internalerr.ErrInvalidInput)
}

// decode restores a model serialized by Store.Save.
func (a Algorithm) decode(raw json.RawMessage) (Model, error) {
	switch a {
	case NaiveBayes:
		var m NaiveBayesModel
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if len(m.LogPriors) == 0 {
			return nil, fmt.Errorf("naive bayes model without priors: %w", internalerr.ErrInvalidInput)
		}
		return &m, nil
	}
	return nil, fmt.Errorf("classifier %q: %w", a, internalerr.ErrInvalidInput)
}
