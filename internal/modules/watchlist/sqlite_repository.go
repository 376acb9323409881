package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/database"
	"github.com/aristath/arbscan/internal/modules/signals"
)

// SQLiteRepository persists the watchlist in the watchlist database.
type SQLiteRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *database.DB, log zerolog.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db.Conn(),
		log: log.With().Str("component", "watchlist_repository").Logger(),
	}
}

// Upsert stores or replaces the entry for its code.
func (r *SQLiteRepository) Upsert(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	addedAt := e.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watchlist (stock_code, stock_name, enabled, note, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(stock_code) DO UPDATE SET
			stock_name = excluded.stock_name,
			enabled = excluded.enabled,
			note = excluded.note`,
		e.StockCode, e.StockName, boolToInt(e.Enabled), e.Note,
		addedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert watchlist %s: %w", e.StockCode, errors.Join(signals.ErrRepositoryIO, err))
	}
	return nil
}

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	e := &Entry{}
	var enabled int
	var addedAt string
	if err := row.Scan(&e.StockCode, &e.StockName, &enabled, &e.Note, &addedAt); err != nil {
		return nil, err
	}
	e.Enabled = enabled != 0
	if ts, err := time.Parse(time.RFC3339, addedAt); err == nil {
		e.AddedAt = ts
	}
	return e, nil
}

// Get returns the entry for stockCode, or nil when absent.
func (r *SQLiteRepository) Get(ctx context.Context, stockCode string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT stock_code, stock_name, enabled, note, added_at
		FROM watchlist WHERE stock_code = ?`, stockCode)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watchlist %s: %w", stockCode, errors.Join(signals.ErrRepositoryIO, err))
	}
	return e, nil
}

// List returns all entries ordered by stock code.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stock_code, stock_name, enabled, note, added_at
		FROM watchlist ORDER BY stock_code ASC`)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", errors.Join(signals.ErrRepositoryIO, err))
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", errors.Join(signals.ErrRepositoryIO, err))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist: %w", errors.Join(signals.ErrRepositoryIO, err))
	}
	return out, nil
}

// EnabledCodes returns the codes of enabled entries, ordered.
func (r *SQLiteRepository) EnabledCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stock_code FROM watchlist WHERE enabled = 1 ORDER BY stock_code ASC`)
	if err != nil {
		return nil, fmt.Errorf("enabled codes: %w", errors.Join(signals.ErrRepositoryIO, err))
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code: %w", errors.Join(signals.ErrRepositoryIO, err))
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate codes: %w", errors.Join(signals.ErrRepositoryIO, err))
	}
	return codes, nil
}

// SetEnabled flips the enabled flag; a missing code is a no-op.
func (r *SQLiteRepository) SetEnabled(ctx context.Context, stockCode string, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE watchlist SET enabled = ? WHERE stock_code = ?`,
		boolToInt(enabled), stockCode)
	if err != nil {
		return fmt.Errorf("set enabled %s: %w", stockCode, errors.Join(signals.ErrRepositoryIO, err))
	}
	return nil
}

// Remove drops the entry for stockCode.
func (r *SQLiteRepository) Remove(ctx context.Context, stockCode string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM watchlist WHERE stock_code = ?`, stockCode)
	if err != nil {
		return fmt.Errorf("remove watchlist %s: %w", stockCode, errors.Join(signals.ErrRepositoryIO, err))
	}
	return nil
}

// Count returns the number of entries.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watchlist`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count watchlist: %w", errors.Join(signals.ErrRepositoryIO, err))
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
