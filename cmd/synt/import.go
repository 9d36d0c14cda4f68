package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
	"github.com/cognicore/synt/pkg/synt/store/sqlite"
)

const importBatch = 5000

func runImport(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs, configPath := newFlagSet("import")
	format := fs.String("format", "", "Input format: tsv or jsonl (default: from file extension, else tsv)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	comp, err := loadComponents(*configPath)
	if err != nil {
		return err
	}
	corpus, err := sqlite.OpenSQLite(ctx, comp.Config.DBFile)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer corpus.Close()

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	total := 0
	for _, in := range inputs {
		r := stdin
		if in != "-" {
			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		n, err := importSamples(ctx, corpus, r, detectFormat(*format, in))
		total += n
		if err != nil {
			return fmt.Errorf("import %s: %w", in, err)
		}
	}

	fmt.Fprintf(stdout, "imported %d new samples into %s\n", total, comp.Config.DBFile)
	return nil
}

func detectFormat(flagValue, path string) string {
	if flagValue != "" {
		return strings.ToLower(flagValue)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return "jsonl"
	}
	return "tsv"
}

// importSamples streams r into the corpus in batches and returns the number
// of newly stored samples.
func importSamples(ctx context.Context, corpus store.Corpus, r io.Reader, format string) (int, error) {
	batch := make([]store.Sample, 0, importBatch)
	added := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := corpus.Insert(ctx, batch)
		added += n
		batch = batch[:0]
		return err
	}

	err := readSamples(r, format, func(s store.Sample) error {
		batch = append(batch, s)
		if len(batch) == importBatch {
			return flush()
		}
		return nil
	})
	if err != nil {
		return added, err
	}
	return added, flush()
}

type jsonSample struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// readSamples parses TSV (label<TAB>text) or JSONL ({"text","label"}) lines.
// Blank lines and lines starting with # are skipped.
func readSamples(r io.Reader, format string, emit func(store.Sample) error) error {
	if format != "tsv" && format != "jsonl" {
		return fmt.Errorf("format %q: %w", format, internalerr.ErrInvalidInput)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rawLabel, text string
		if format == "jsonl" {
			var js jsonSample
			if err := json.Unmarshal([]byte(line), &js); err != nil {
				return fmt.Errorf("line %d: %w: %v", lineNo, internalerr.ErrInvalidInput, err)
			}
			rawLabel, text = js.Label, js.Text
		} else {
			var ok bool
			rawLabel, text, ok = strings.Cut(line, "\t")
			if !ok {
				return fmt.Errorf("line %d: expected label<TAB>text: %w", lineNo, internalerr.ErrInvalidInput)
			}
		}

		label, err := store.ParseLabel(rawLabel)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if err := emit(store.Sample{Text: text, Label: label}); err != nil {
			return err
		}
	}
	return scanner.Err()
}
