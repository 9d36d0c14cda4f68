package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cognicore/synt/pkg/synt/store"
)

func openTestStore(t *testing.T) store.Corpus {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "samples.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteIntegrationBasic tests insert, count and paging
func TestSQLiteIntegrationBasic(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	samples := []store.Sample{
		{Text: "good", Label: store.Positive},
		{Text: "great", Label: store.Positive},
		{Text: "good job", Label: store.Positive},
		{Text: "bad", Label: store.Negative},
		{Text: "awful", Label: store.Negative},
	}
	added, err := st.Insert(ctx, samples)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if added != 5 {
		t.Errorf("Expected 5 rows added, got %d", added)
	}

	pos, err := st.CountByLabel(ctx, store.Positive)
	if err != nil {
		t.Fatalf("CountByLabel: %v", err)
	}
	if pos != 3 {
		t.Errorf("Expected 3 positive rows, got %d", pos)
	}

	page, err := st.Samples(ctx, store.Positive, 2, 1)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(page))
	}
	for _, s := range page {
		if s.Label != store.Positive {
			t.Errorf("Expected positive label, got %q", s.Label)
		}
	}
	if page[0].Text != "great" {
		t.Errorf("Offset 1 should start at insertion order row 2, got %q", page[0].Text)
	}
}

// TestSQLiteIntegrationDuplicateText verifies text uniqueness is enforced by the store
func TestSQLiteIntegrationDuplicateText(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if _, err := st.Insert(ctx, []store.Sample{{Text: "same", Label: store.Positive}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	added, err := st.Insert(ctx, []store.Sample{
		{Text: "same", Label: store.Negative},
		{Text: "other", Label: store.Negative},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if added != 1 {
		t.Errorf("Duplicate text should be ignored, got %d added", added)
	}

	neg, _ := st.CountByLabel(ctx, store.Negative)
	if neg != 1 {
		t.Errorf("Expected 1 negative row, got %d", neg)
	}
}

func TestSQLiteIntegrationRejectsUnknownLabel(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Insert(context.Background(), []store.Sample{{Text: "meh", Label: "neutral"}})
	if err == nil {
		t.Fatal("Expected error for unknown label")
	}
}

// TestSQLiteIntegrationReopen verifies a pre-existing corpus is reused as-is
func TestSQLiteIntegrationReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "samples.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	var batch []store.Sample
	for i := 0; i < 10; i++ {
		batch = append(batch, store.Sample{Text: fmt.Sprintf("text %d", i), Label: store.Negative})
	}
	if _, err := st.Insert(ctx, batch); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	n, err := st.CountByLabel(ctx, store.Negative)
	if err != nil {
		t.Fatalf("CountByLabel: %v", err)
	}
	if n != 10 {
		t.Errorf("Expected 10 rows after reopen, got %d", n)
	}
}

func TestSQLiteIntegrationPastEnd(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	st.Insert(ctx, []store.Sample{{Text: "only", Label: store.Positive}})

	page, err := st.Samples(ctx, store.Positive, 5, 10)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(page))
	}
}

// TestSQLiteIntegrationPagesInInsertOrder tests that consecutive pages neither
// overlap nor skip rows, even when text ordering differs from insert order
func TestSQLiteIntegrationPagesInInsertOrder(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	var want []string
	var batch []store.Sample
	for i := 0; i < 25; i++ {
		text := fmt.Sprintf("%c review %d", 'z'-i, i)
		want = append(want, text)
		batch = append(batch, store.Sample{Text: text, Label: store.Negative})
	}
	if _, err := st.Insert(ctx, batch); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var got []string
	for offset := 0; offset < 30; offset += 4 {
		page, err := st.Samples(ctx, store.Negative, 4, offset)
		if err != nil {
			t.Fatalf("Samples at %d: %v", offset, err)
		}
		for _, s := range page {
			got = append(got, s.Text)
		}
	}

	if len(got) != len(want) {
		t.Fatalf("Expected %d rows across pages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Row %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
