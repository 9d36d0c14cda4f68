package memstore

import (
	"context"
	"sync"
	"testing"

	"github.com/cognicore/synt/pkg/synt/store"
)

func TestInsert_IgnoresDuplicateText(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, err := s.Insert(ctx, []store.Sample{
		{Text: "good", Label: store.Positive},
		{Text: "good", Label: store.Negative},
		{Text: "bad", Label: store.Negative},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 added, got %d", n)
	}
	if c, _ := s.CountByLabel(ctx, store.Negative); c != 1 {
		t.Errorf("expected 1 negative, got %d", c)
	}
}

func TestSamples_Paging(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Insert(ctx, []store.Sample{
		{Text: "a1", Label: store.Positive},
		{Text: "a2", Label: store.Positive},
		{Text: "a3", Label: store.Positive},
	})

	got, _ := s.Samples(ctx, store.Positive, 2, 1)
	if len(got) != 2 || got[0].Text != "a2" || got[1].Text != "a3" {
		t.Errorf("unexpected page: %v", got)
	}
	if got, _ := s.Samples(ctx, store.Positive, 2, 5); len(got) != 0 {
		t.Errorf("expected empty page past end, got %v", got)
	}
}

func TestIncrement_SortedSetAndCounter(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Increment(ctx, []store.Increment{
		{Key: "z", Member: "b", By: 1},
		{Key: "z", Member: "a", By: 1},
		{Key: "z", Member: "b", By: 1},
		{Key: "n", By: 1},
		{Key: "n", By: 2},
	})
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}

	got, _ := s.RevRange(ctx, "z", 0, -1)
	if len(got) != 2 || got[0].Member != "b" || got[0].Score != 2 {
		t.Errorf("unexpected range: %v", got)
	}

	v, ok, _ := s.Get(ctx, "n")
	if !ok || string(v) != "3" {
		t.Errorf("expected counter 3, got %q (found=%v)", v, ok)
	}
}

func TestIncrement_WrongTypeAppliesNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Set(ctx, "blob", []byte("not a set"))

	err := s.Increment(ctx, []store.Increment{
		{Key: "ok", Member: "w", By: 1},
		{Key: "blob", Member: "w", By: 1},
	})
	if err == nil {
		t.Fatal("expected wrong type error")
	}
	if ok, _ := s.Exists(ctx, "ok"); ok {
		t.Error("failed batch must not be partially applied")
	}
}

func TestRevRange_TiesAndBounds(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Increment(ctx, []store.Increment{
		{Key: "z", Member: "apple", By: 1},
		{Key: "z", Member: "zebra", By: 1},
		{Key: "z", Member: "mango", By: 3},
	})

	got, _ := s.RevRange(ctx, "z", 0, 10)
	want := []string{"mango", "zebra", "apple"}
	if len(got) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Member != w {
			t.Errorf("position %d: expected %s, got %s", i, w, got[i].Member)
		}
	}

	if got, _ := s.RevRange(ctx, "z", 1, 1); len(got) != 1 || got[0].Member != "zebra" {
		t.Errorf("unexpected single slice: %v", got)
	}
	if got, _ := s.RevRange(ctx, "missing", 0, -1); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}
}

func TestIncrement_Concurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment(ctx, []store.Increment{{Key: "z", Member: "w", By: 1}})
		}()
	}
	wg.Wait()

	got, _ := s.RevRange(ctx, "z", 0, 0)
	if len(got) != 1 || got[0].Score != 50 {
		t.Errorf("expected score 50, got %v", got)
	}
}

func TestFlush_KeepsCorpus(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Insert(ctx, []store.Sample{{Text: "good", Label: store.Positive}})
	s.Set(ctx, "k", []byte("v"))

	s.Flush(ctx)

	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("cache key should be gone after flush")
	}
	if n, _ := s.CountByLabel(ctx, store.Positive); n != 1 {
		t.Error("corpus should survive a cache flush")
	}
}
