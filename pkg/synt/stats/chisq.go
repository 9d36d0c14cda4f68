package stats

import (
	"sort"

	"github.com/cognicore/synt/pkg/synt/store"
)

// ChiSq calculates the chi-square statistic of a 2x2 contingency table
//
//	          label    ¬label
//	word      nii      nix-nii
//	¬word     nxi-nii  rest
//
// Where:
//   - nii = occurrences of the word within the label
//   - nix = occurrences of the word across all labels
//   - nxi = total occurrences of all words within the label
//   - nxx = grand total of occurrences
//
// ChiSq = nxx * (nii*noo - nio*noi)^2 / ((nii+nio)(nii+noi)(nio+noo)(noi+noo)).
// A zero marginal yields 0.
func ChiSq(nii, nix, nxi, nxx int64) float64 {
	ii := float64(nii)
	io := float64(nix - nii)
	oi := float64(nxi - nii)
	oo := float64(nxx) - ii - io - oi

	denominator := (ii + io) * (ii + oi) * (io + oo) * (oi + oo)
	if denominator == 0 {
		return 0
	}

	d := ii*oo - io*oi
	return float64(nxx) * d * d / denominator
}

// WordScores maps a word to its summed chi-square score.
type WordScores map[string]float64

// Scores computes one score per word present in any label: the sum over
// labels of ChiSq(freq in label, freq overall, label total, grand total).
func Scores(cfd ConditionalFreqDist) WordScores {
	total := cfd.Total()
	grand := cfd.N()

	labelTotals := make(map[store.Label]int64, len(cfd))
	for label, fd := range cfd {
		labelTotals[label] = fd.N()
	}

	scores := make(WordScores, len(total))
	for word, overall := range total {
		var score float64
		for label, fd := range cfd {
			score += ChiSq(fd.Freq(word), overall, labelTotals[label], grand)
		}
		scores[word] = score
	}
	return scores
}

// ScoredWord is one selected feature with its score.
type ScoredWord struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Best returns at most n words ordered by score, highest first. Words are
// first laid out lexicographically, so ties keep that stable order.
func Best(scores WordScores, n int) []ScoredWord {
	if n <= 0 {
		return nil
	}

	out := make([]ScoredWord, 0, len(scores))
	for w, s := range scores {
		out = append(out, ScoredWord{Word: w, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > n {
		out = out[:n]
	}
	return out
}
