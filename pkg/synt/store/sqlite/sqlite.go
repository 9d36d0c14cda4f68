package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// sqliteStore implements the store.Corpus interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite corpus with WAL mode enabled. The parent directory
// is created when missing and the item table is created only if it does not
// exist yet, so pre-existing corpora are reused as-is.
func OpenSQLite(ctx context.Context, path string) (store.Corpus, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create corpus dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS item (
	id INTEGER PRIMARY KEY,
	text TEXT UNIQUE,
	sentiment TEXT
);

CREATE INDEX IF NOT EXISTS item_sentiment ON item(sentiment);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Insert adds samples in a single transaction. Duplicate texts are ignored.
func (s *sqliteStore) Insert(ctx context.Context, samples []store.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO item (text, sentiment) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, smp := range samples {
		if smp.Text == "" {
			continue
		}
		if smp.Label != store.Positive && smp.Label != store.Negative {
			return 0, fmt.Errorf("sample label %q: %w", smp.Label, internalerr.ErrInvalidInput)
		}
		res, err := stmt.ExecContext(ctx, smp.Text, string(smp.Label))
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// CountByLabel returns the number of rows carrying the label
func (s *sqliteStore) CountByLabel(ctx context.Context, label store.Label) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item WHERE sentiment = ?`, string(label)).Scan(&n)
	return n, err
}

// Samples returns up to limit rows of one label, starting at offset
func (s *sqliteStore) Samples(ctx context.Context, label store.Label, limit, offset int) ([]store.Sample, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT text, sentiment FROM item WHERE sentiment = ? ORDER BY id LIMIT ? OFFSET ?`,
		string(label), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Sample
	for rows.Next() {
		var text, sentiment string
		if err := rows.Scan(&text, &sentiment); err != nil {
			return nil, err
		}
		out = append(out, store.Sample{Text: text, Label: store.Label(sentiment)})
	}
	return out, rows.Err()
}
