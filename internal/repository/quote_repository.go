package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/iliyamo/signature-echo/internal/model"
)

// QuoteRepo reads and writes the `quote` table.  The SQL is portable between
// MySQL and SQLite.
type QuoteRepo struct{ DB *sql.DB }

func NewQuoteRepo(db *sql.DB) *QuoteRepo { return &QuoteRepo{DB: db} }

// EnsureSchema creates the quote table when it does not exist.
func (r *QuoteRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS quote (id VARCHAR(64) NOT NULL PRIMARY KEY, text TEXT NOT NULL)")
	return err
}

// List returns every quote ordered by id.
func (r *QuoteRepo) List(ctx context.Context) ([]model.Quote, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, text FROM quote ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := []model.Quote{}
	for rows.Next() {
		var q model.Quote
		if err := rows.Scan(&q.ID, &q.Text); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// GetText returns the text of quote id, or ErrNotFound.
func (r *QuoteRepo) GetText(ctx context.Context, id string) (string, error) {
	var text string
	err := r.DB.QueryRowContext(ctx, "SELECT text FROM quote WHERE id=? LIMIT 1", id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return text, err
}

// Insert adds a quote.
func (r *QuoteRepo) Insert(ctx context.Context, q model.Quote) error {
	_, err := r.DB.ExecContext(ctx, "INSERT INTO quote (id, text) VALUES (?, ?)", q.ID, q.Text)
	return err
}

// Seed inserts the quotes whose id is not stored yet and returns how many
// were added.
func (r *QuoteRepo) Seed(ctx context.Context, quotes []model.Quote) (int, error) {
	added := 0
	for _, q := range quotes {
		_, err := r.GetText(ctx, q.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		if err := r.Insert(ctx, q); err != nil {
			return added, fmt.Errorf("seed quote %s: %w", q.ID, err)
		}
		added++
	}
	return added, nil
}

// SeedFromFile reads a JSON array of quotes from path and seeds them.
func (r *QuoteRepo) SeedFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var quotes []model.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return r.Seed(ctx, quotes)
}
