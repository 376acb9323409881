package signals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/database"
)

const signalColumns = `signal_id, timestamp, stock_code, stock_name, stock_price,
	change_pct, etf_code, etf_name, etf_weight, etf_price, etf_premium, etf_amount,
	reason, confidence, risk_level, actual_weight, weight_rank, top10_ratio,
	limit_time, seal_amount`

// SQLiteRepository persists signals in the signals database. Writes go
// through transactions so partial failures leave the table untouched.
type SQLiteRepository struct {
	db  *sql.DB
	clk clock.Clock
	log zerolog.Logger
}

// NewSQLiteRepository creates a repository over db. A nil clk falls back to
// the process-wide clock.
func NewSQLiteRepository(db *database.DB, clk clock.Clock, log zerolog.Logger) *SQLiteRepository {
	if clk == nil {
		clk = clock.Get()
	}
	return &SQLiteRepository{
		db:  db.Conn(),
		clk: clk,
		log: log.With().Str("component", "signal_repository").Logger(),
	}
}

func insertSignal(tx *sql.Tx, s *TradingSignal) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO signals (`+signalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SignalID, s.Timestamp, s.StockCode, s.StockName, s.StockPrice,
		s.ChangePct, s.ETFCode, s.ETFName, s.ETFWeight, s.ETFPrice, s.ETFPremium,
		s.ETFAmount, s.Reason, string(s.Confidence), string(s.RiskLevel),
		s.ActualWeight, s.WeightRank, s.Top10Ratio, s.LimitTime, s.SealAmount)
	return err
}

// Save stores s, replacing any signal with the same id.
func (r *SQLiteRepository) Save(ctx context.Context, s *TradingSignal) error {
	if err := s.Validate(); err != nil {
		return err
	}
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		return insertSignal(tx, s)
	})
	if err != nil {
		r.log.Error().Err(err).Str("signal_id", s.SignalID).Msg("Failed to save signal")
		return fmt.Errorf("save signal %s: %w", s.SignalID, errors.Join(ErrRepositoryIO, err))
	}
	return nil
}

// SaveAll stores all signals in one transaction.
func (r *SQLiteRepository) SaveAll(ctx context.Context, signals []*TradingSignal) error {
	for _, s := range signals {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, s := range signals {
			if err := insertSignal(tx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Int("count", len(signals)).Msg("Failed to save signals")
		return fmt.Errorf("save %d signals: %w", len(signals), errors.Join(ErrRepositoryIO, err))
	}
	return nil
}

func scanSignal(row interface{ Scan(...any) error }) (*TradingSignal, error) {
	s := &TradingSignal{}
	var confidence, risk string
	err := row.Scan(&s.SignalID, &s.Timestamp, &s.StockCode, &s.StockName,
		&s.StockPrice, &s.ChangePct, &s.ETFCode, &s.ETFName, &s.ETFWeight,
		&s.ETFPrice, &s.ETFPremium, &s.ETFAmount, &s.Reason, &confidence, &risk,
		&s.ActualWeight, &s.WeightRank, &s.Top10Ratio, &s.LimitTime, &s.SealAmount)
	if err != nil {
		return nil, err
	}
	s.Confidence = Confidence(confidence)
	s.RiskLevel = RiskLevel(risk)
	return s, nil
}

func (r *SQLiteRepository) query(ctx context.Context, where string, args ...any) ([]*TradingSignal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+signalColumns+" FROM signals "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", errors.Join(ErrRepositoryIO, err))
	}
	defer rows.Close()

	var out []*TradingSignal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", errors.Join(ErrRepositoryIO, err))
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", errors.Join(ErrRepositoryIO, err))
	}
	return out, nil
}

// Get returns the signal with signalID, or nil when absent.
func (r *SQLiteRepository) Get(ctx context.Context, signalID string) (*TradingSignal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+signalColumns+" FROM signals WHERE signal_id = ?", signalID)
	s, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signal %s: %w", signalID, errors.Join(ErrRepositoryIO, err))
	}
	return s, nil
}

// GetAll returns every signal ordered by timestamp.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*TradingSignal, error) {
	return r.query(ctx, "ORDER BY timestamp ASC, signal_id ASC")
}

// GetToday returns signals timestamped on the clock's current A-share date.
func (r *SQLiteRepository) GetToday(ctx context.Context) ([]*TradingSignal, error) {
	today := r.clk.Now(clock.ChinaTZ).Format("2006-01-02")
	return r.query(ctx, "WHERE timestamp LIKE ? ORDER BY timestamp ASC", today+"%")
}

// GetRecent returns up to limit signals, newest first.
func (r *SQLiteRepository) GetRecent(ctx context.Context, limit int) ([]*TradingSignal, error) {
	return r.query(ctx, "ORDER BY timestamp DESC, signal_id DESC LIMIT ?", limit)
}

// Count returns the number of stored signals.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM signals").Scan(&count); err != nil {
		return 0, fmt.Errorf("count signals: %w", errors.Join(ErrRepositoryIO, err))
	}
	return count, nil
}

// Clear drops all signals.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM signals"); err != nil {
		return fmt.Errorf("clear signals: %w", errors.Join(ErrRepositoryIO, err))
	}
	return nil
}
