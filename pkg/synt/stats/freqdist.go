package stats

import (
	"sort"

	"github.com/cognicore/synt/pkg/synt/store"
)

// FreqDist maps a word to the number of samples it appeared in.
type FreqDist map[string]int64

// Inc adds n to the word's count.
func (fd FreqDist) Inc(word string, n int64) {
	fd[word] += n
}

// Freq returns the count of a word, zero when absent.
func (fd FreqDist) Freq(word string) int64 {
	return fd[word]
}

// N returns the sum of all counts.
func (fd FreqDist) N() int64 {
	var n int64
	for _, c := range fd {
		n += c
	}
	return n
}

// Words returns the words sorted lexicographically.
func (fd FreqDist) Words() []string {
	words := make([]string, 0, len(fd))
	for w := range fd {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// ConditionalFreqDist holds one frequency distribution per label.
type ConditionalFreqDist map[store.Label]FreqDist

// NewConditionalFreqDist returns a distribution with an empty FreqDist for every label.
func NewConditionalFreqDist() ConditionalFreqDist {
	cfd := make(ConditionalFreqDist, len(store.Labels))
	for _, l := range store.Labels {
		cfd[l] = FreqDist{}
	}
	return cfd
}

// Get returns the distribution of a label, empty when the label is unknown.
func (cfd ConditionalFreqDist) Get(label store.Label) FreqDist {
	if fd, ok := cfd[label]; ok {
		return fd
	}
	return FreqDist{}
}

// Conditions returns the labels with a distribution, in store.Labels order.
func (cfd ConditionalFreqDist) Conditions() []store.Label {
	var out []store.Label
	for _, l := range store.Labels {
		if _, ok := cfd[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// N returns the grand total across all labels.
func (cfd ConditionalFreqDist) N() int64 {
	var n int64
	for _, fd := range cfd {
		n += fd.N()
	}
	return n
}

// Total returns a single distribution summing every label.
func (cfd ConditionalFreqDist) Total() FreqDist {
	total := FreqDist{}
	for _, fd := range cfd {
		for w, c := range fd {
			total.Inc(w, c)
		}
	}
	return total
}
