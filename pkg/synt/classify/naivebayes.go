package classify

import (
	"context"
	"fmt"
	"math"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// NaiveBayesTrainer trains a Bernoulli naive Bayes model with Laplace smoothing.
type NaiveBayesTrainer struct{}

// NaiveBayesModel holds log probabilities learned from word presence.
// Features never seen in training are ignored at classification time.
type NaiveBayesModel struct {
	LogPriors map[store.Label]float64 `json:"log_priors"`
	// LogLikelihood[label][feature] = log P(feature present | label).
	LogLikelihood map[store.Label]map[string]float64 `json:"log_likelihood"`
	// LogUnseen[label] is log P(feature present | label) for a known feature
	// that never occurred with the label.
	LogUnseen map[store.Label]float64 `json:"log_unseen"`
}

// Train counts label frequencies and feature presence per label.
func (NaiveBayesTrainer) Train(ctx context.Context, examples []LabeledFeatures) (Model, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("no training examples: %w", internalerr.ErrPrecondition)
	}

	docs := make(map[store.Label]int)
	present := make(map[store.Label]map[string]int)
	for i, ex := range examples {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		docs[ex.Label]++
		if present[ex.Label] == nil {
			present[ex.Label] = make(map[string]int)
		}
		for f, on := range ex.Features {
			if on {
				present[ex.Label][f]++
			}
		}
	}

	m := &NaiveBayesModel{
		LogPriors:     make(map[store.Label]float64, len(docs)),
		LogLikelihood: make(map[store.Label]map[string]float64, len(docs)),
		LogUnseen:     make(map[store.Label]float64, len(docs)),
	}
	total := float64(len(examples))
	for label, n := range docs {
		denom := float64(n) + 2
		m.LogPriors[label] = math.Log(float64(n) / total)
		m.LogUnseen[label] = math.Log(1 / denom)

		ll := make(map[string]float64, len(present[label]))
		for f, c := range present[label] {
			ll[f] = math.Log((float64(c) + 1) / denom)
		}
		m.LogLikelihood[label] = ll
	}
	return m, nil
}

// Algorithm implements Model.
func (m *NaiveBayesModel) Algorithm() Algorithm { return NaiveBayes }

func (m *NaiveBayesModel) known(f string) bool {
	for _, ll := range m.LogLikelihood {
		if _, ok := ll[f]; ok {
			return true
		}
	}
	return false
}

func (m *NaiveBayesModel) logScores(features Features) map[store.Label]float64 {
	scores := make(map[store.Label]float64, len(m.LogPriors))
	for label, prior := range m.LogPriors {
		scores[label] = prior
	}
	for f, on := range features {
		if !on || !m.known(f) {
			continue
		}
		for label := range scores {
			if lp, ok := m.LogLikelihood[label][f]; ok {
				scores[label] += lp
			} else {
				scores[label] += m.LogUnseen[label]
			}
		}
	}
	return scores
}

// ProbClassify implements Model.
func (m *NaiveBayesModel) ProbClassify(features Features) map[store.Label]float64 {
	scores := m.logScores(features)

	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	probs := make(map[store.Label]float64, len(scores))
	for label, s := range scores {
		p := math.Exp(s - maxScore)
		probs[label] = p
		sum += p
	}
	for label := range probs {
		probs[label] /= sum
	}
	return probs
}

// Classify implements Model. Ties go to the first label in store.Labels.
func (m *NaiveBayesModel) Classify(features Features) store.Label {
	scores := m.logScores(features)
	var best store.Label
	bestScore := math.Inf(-1)
	for _, label := range store.Labels {
		s, ok := scores[label]
		if ok && s > bestScore {
			best, bestScore = label, s
		}
	}
	return best
}
