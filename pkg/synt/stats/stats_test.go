package stats

import (
	"math"
	"testing"

	"github.com/cognicore/synt/pkg/synt/store"
)

func exampleCFD() ConditionalFreqDist {
	cfd := NewConditionalFreqDist()
	for w, c := range map[string]int64{"good": 2, "great": 1, "job": 1, "nice": 1} {
		cfd[store.Positive].Inc(w, c)
	}
	for w, c := range map[string]int64{"bad": 2, "terrible": 1, "day": 1, "awful": 1} {
		cfd[store.Negative].Inc(w, c)
	}
	return cfd
}

func TestFreqDistN(t *testing.T) {
	cfd := exampleCFD()

	if n := cfd.Get(store.Positive).N(); n != 5 {
		t.Errorf("Expected positive N 5, got %d", n)
	}
	if n := cfd.N(); n != 10 {
		t.Errorf("Expected grand total 10, got %d", n)
	}
	if f := cfd.Get(store.Positive).Freq("missing"); f != 0 {
		t.Errorf("Missing word should have frequency 0, got %d", f)
	}
}

func TestConditions(t *testing.T) {
	cfd := ConditionalFreqDist{store.Negative: FreqDist{"bad": 1}}
	conds := cfd.Conditions()
	if len(conds) != 1 || conds[0] != store.Negative {
		t.Errorf("Expected [negative], got %v", conds)
	}
}

func TestChiSqKnownValue(t *testing.T) {
	// good: 2 of 5 positive occurrences, absent from negative, 10 overall.
	got := ChiSq(2, 2, 5, 10)
	if math.Abs(got-2.5) > 1e-9 {
		t.Errorf("Expected 2.5, got %f", got)
	}
}

func TestChiSqIndependent(t *testing.T) {
	// Word spread exactly like the labels: no association.
	if got := ChiSq(1, 2, 5, 10); got != 0 {
		t.Errorf("Independent word should score 0, got %f", got)
	}
}

func TestChiSqZeroMarginal(t *testing.T) {
	if got := ChiSq(0, 0, 0, 0); got != 0 {
		t.Errorf("Empty table should score 0, got %f", got)
	}
	if got := ChiSq(3, 3, 3, 3); got != 0 {
		t.Errorf("Degenerate table should score 0, got %f", got)
	}
}

func TestScoresCoverEveryWord(t *testing.T) {
	cfd := exampleCFD()
	scores := Scores(cfd)

	if len(scores) != 8 {
		t.Fatalf("Expected 8 scored words, got %d", len(scores))
	}
	if math.Abs(scores["good"]-5.0) > 1e-9 {
		t.Errorf("Expected good to score 5.0, got %f", scores["good"])
	}
	for w, s := range scores {
		if s < 0 || math.IsNaN(s) {
			t.Errorf("Score of %s should be a non-negative number, got %f", w, s)
		}
	}
}

func TestScoresSharedWordIsLeastDiscriminative(t *testing.T) {
	cfd := exampleCFD()
	cfd[store.Positive].Inc("movie", 1)
	cfd[store.Negative].Inc("movie", 1)

	scores := Scores(cfd)
	if scores["movie"] != 0 {
		t.Errorf("Word appearing equally in balanced labels should score 0, got %f", scores["movie"])
	}
	if scores["good"] <= scores["movie"] {
		t.Errorf("good (%f) should outscore movie (%f)", scores["good"], scores["movie"])
	}
}

func TestBestOrderingAndTies(t *testing.T) {
	scores := WordScores{"b": 1, "a": 1, "c": 3, "d": 0.5}

	best := Best(scores, 3)
	want := []string{"c", "a", "b"}
	if len(best) != len(want) {
		t.Fatalf("Expected %d words, got %d", len(want), len(best))
	}
	for i, w := range want {
		if best[i].Word != w {
			t.Errorf("Position %d: expected %s, got %s", i, w, best[i].Word)
		}
	}
}

func TestBestLength(t *testing.T) {
	scores := WordScores{"a": 1, "b": 2}

	if got := Best(scores, 10); len(got) != 2 {
		t.Errorf("Expected min(n, len) = 2, got %d", len(got))
	}
	if got := Best(scores, 0); got != nil {
		t.Errorf("n = 0 should select nothing, got %v", got)
	}
}
