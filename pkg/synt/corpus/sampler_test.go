package corpus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
	"github.com/cognicore/synt/pkg/synt/store/memstore"
)

func seed(t *testing.T, st *memstore.Store, pos, neg int) {
	t.Helper()
	var batch []store.Sample
	for i := 0; i < pos; i++ {
		batch = append(batch, store.Sample{Text: fmt.Sprintf("pos %d", i), Label: store.Positive})
	}
	for i := 0; i < neg; i++ {
		batch = append(batch, store.Sample{Text: fmt.Sprintf("neg %d", i), Label: store.Negative})
	}
	if _, err := st.Insert(context.Background(), batch); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestComputeSampleLimitIsMin(t *testing.T) {
	tests := []struct {
		pos, neg, want int
	}{
		{4, 4, 4},
		{7, 3, 3},
		{2, 9, 2},
	}
	for _, tc := range tests {
		st := memstore.New()
		seed(t, st, tc.pos, tc.neg)
		got, err := NewSampler(st, st).ComputeSampleLimit(context.Background())
		if err != nil {
			t.Fatalf("ComputeSampleLimit(%d,%d): %v", tc.pos, tc.neg, err)
		}
		if got != tc.want {
			t.Errorf("ComputeSampleLimit(%d,%d) = %d, want %d", tc.pos, tc.neg, got, tc.want)
		}
	}
}

func TestComputeSampleLimitEmptyLabel(t *testing.T) {
	st := memstore.New()
	seed(t, st, 3, 0)

	_, err := NewSampler(st, st).ComputeSampleLimit(context.Background())
	if !errors.Is(err, internalerr.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
}

func TestSampleLimitCached(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 5, 3)
	s := NewSampler(st, st)

	if got, _ := s.SampleLimit(ctx); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}

	// More rows arrive; the cached value stays until invalidated.
	seed2 := []store.Sample{{Text: "late neg 1", Label: store.Negative}, {Text: "late neg 2", Label: store.Negative}}
	st.Insert(ctx, seed2)
	if got, _ := s.SampleLimit(ctx); got != 3 {
		t.Errorf("expected cached 3, got %d", got)
	}

	if err := s.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if got, _ := s.SampleLimit(ctx); got != 5 {
		t.Errorf("expected recomputed 5, got %d", got)
	}
}

func TestFetchSamplesBalanced(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 10, 10)
	s := NewSampler(st, st)

	for _, limit := range []int{0, 1, 2, 3, 5, 8, 10, 25} {
		got, err := s.FetchSamples(ctx, limit, 0)
		if err != nil {
			t.Fatalf("FetchSamples(%d): %v", limit, err)
		}
		max := limit
		if max < 2 {
			max = 2
		}
		if len(got) > max {
			t.Errorf("FetchSamples(%d) returned %d samples", limit, len(got))
		}
		pos, neg := 0, 0
		for _, smp := range got {
			if smp.Label == store.Positive {
				pos++
			} else {
				neg++
			}
		}
		if d := pos - neg; d > 1 || d < -1 {
			t.Errorf("FetchSamples(%d) unbalanced: %d pos, %d neg", limit, pos, neg)
		}
	}
}

func TestFetchSamplesClampsToLimit(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 4, 4)

	got, err := NewSampler(st, st).FetchSamples(ctx, 100, 0)
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}
	// Clamped to the sample limit (4), two per label.
	if len(got) != 4 {
		t.Errorf("expected 4 samples, got %d", len(got))
	}
	if got[0].Label != store.Positive || got[len(got)-1].Label != store.Negative {
		t.Errorf("expected positive slice then negative slice, got %v", got)
	}
}

func TestFetchSamplesOffsetIsHalved(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 6, 6)

	got, err := NewSampler(st, st).FetchSamples(ctx, 2, 4)
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0].Text != "pos 2" || got[1].Text != "neg 2" {
		t.Errorf("offset 4 should read row 2 of each label, got %v", got)
	}
}

func TestFetchRangeCoversBothLabelsInFull(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 5, 7)
	s := NewSampler(st, st)

	got, err := s.FetchRange(ctx, 100, 0)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	// The limit is 5 per label; odd limits page in chunks of 4.
	seen := make(map[string]bool)
	pos, neg := 0, 0
	for _, smp := range got {
		if seen[smp.Text] {
			t.Errorf("duplicate sample %q", smp.Text)
		}
		seen[smp.Text] = true
		if smp.Label == store.Positive {
			pos++
		} else {
			neg++
		}
	}
	if pos != 5 || neg != 5 {
		t.Errorf("expected 5 samples per label, got %d pos, %d neg", pos, neg)
	}
}

func TestFetchRangeHeldOut(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 6, 6)
	s := NewSampler(st, st)

	got, err := s.FetchRange(ctx, 5, 6)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("odd total should round down to 4, got %d", len(got))
	}
	if got[0].Text != "pos 3" || got[len(got)-1].Text != "neg 4" {
		t.Errorf("offset 6 should start at row 3 of each label, got %v", got)
	}
}

func TestChunkLimit(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 7, 9)
	s := NewSampler(st, st)

	tests := map[int]int{0: 6, 3: 2, 4: 4, 1: 2, 10000: 6}
	for want, expected := range tests {
		got, err := s.ChunkLimit(ctx, want)
		if err != nil {
			t.Fatalf("ChunkLimit(%d): %v", want, err)
		}
		if got != expected {
			t.Errorf("ChunkLimit(%d) = %d, want %d", want, got, expected)
		}
	}
}

func TestFetchRangeStopsAtBalancedEnd(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, 4, 8)
	s := NewSampler(st, st)

	got, err := s.FetchRange(ctx, 10, 8)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rows past the balanced range should not be served, got %v", got)
	}
}
