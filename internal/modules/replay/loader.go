package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
)

// SeriesKind distinguishes stock and ETF cache files.
type SeriesKind string

const (
	KindStock SeriesKind = "stock"
	KindETF   SeriesKind = "etf"
)

// Timestamp layouts used as cache keys.
const (
	dailyKeyLayout    = "2006-01-02"
	intradayKeyLayout = "2006-01-02 15:04:05"
)

// keyLayout returns the timestamp layout for a granularity.
func keyLayout(g Granularity) string {
	if g.IsDaily() {
		return dailyKeyLayout
	}
	return intradayKeyLayout
}

// quoteRecord is the on-disk quote shape.
type quoteRecord struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
	Amount    float64 `json:"amount"`
	IsLimitUp bool    `json:"is_limit_up"`
	Timestamp string  `json:"timestamp"`
}

// Series is one security's loaded history: quotes keyed by formatted
// timestamp.
type Series struct {
	Code        string
	Kind        SeriesKind
	Granularity Granularity
	quotes      map[string]market.Quote
	keys        []string // sorted
}

// At returns the quote at a formatted timestamp key.
func (s *Series) At(key string) (market.Quote, bool) {
	q, ok := s.quotes[key]
	return q, ok
}

// Len returns the number of records.
func (s *Series) Len() int { return len(s.keys) }

// Keys returns the sorted timestamp keys.
func (s *Series) Keys() []string { return s.keys }

// Range returns the first and last covered keys, empty when no data.
func (s *Series) Range() (string, string) {
	if len(s.keys) == 0 {
		return "", ""
	}
	return s.keys[0], s.keys[len(s.keys)-1]
}

// CacheFileName builds the canonical cache file name for one series.
func CacheFileName(kind SeriesKind, code, startDate, endDate string, g Granularity) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s.json", kind, code, startDate, endDate, g)
}

// Loader reads and writes historical quote cache files under one directory.
type Loader struct {
	dir string
	log zerolog.Logger
}

// NewLoader creates a loader over dir.
func NewLoader(dir string, log zerolog.Logger) *Loader {
	return &Loader{
		dir: dir,
		log: log.With().Str("component", "historical_loader").Logger(),
	}
}

// Load reads one series from its cache file. The limit-up flag for stocks is
// recomputed from the board-specific threshold, never trusted from disk.
func (l *Loader) Load(kind SeriesKind, code, startDate, endDate string, g Granularity) (*Series, error) {
	path := filepath.Join(l.dir, CacheFileName(kind, code, startDate, endDate, g))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("series %s/%s: %w", kind, code, market.ErrNoData)
		}
		return nil, fmt.Errorf("read series %s: %w", path, err)
	}

	var records map[string]quoteRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse series %s: %w", path, err)
	}

	layout := keyLayout(g)
	series := &Series{
		Code:        code,
		Kind:        kind,
		Granularity: g,
		quotes:      make(map[string]market.Quote, len(records)),
	}
	for key, rec := range records {
		ts, err := time.ParseInLocation(layout, key, clock.ChinaTZ)
		if err != nil {
			return nil, fmt.Errorf("series %s: bad timestamp key %q: %w", path, key, err)
		}
		quote := market.Quote{
			Code:      rec.Code,
			Name:      rec.Name,
			Price:     rec.Price,
			ChangePct: rec.ChangePct,
			High:      rec.High,
			Low:       rec.Low,
			Volume:    rec.Volume,
			Amount:    rec.Amount,
			Timestamp: ts,
		}
		if quote.Code == "" {
			quote.Code = code
		}
		if kind == KindStock {
			quote.IsLimitUp = market.IsLimitUpHistorical(quote.Code, quote.ChangePct)
		}
		series.quotes[key] = quote
		series.keys = append(series.keys, key)
	}
	sort.Strings(series.keys)

	l.log.Debug().
		Str("code", code).
		Str("kind", string(kind)).
		Int("records", series.Len()).
		Msg("Loaded historical series")
	return series, nil
}

// Save writes one series' raw records atomically (tmp + rename), creating
// the cache directory when needed.
func (l *Loader) Save(kind SeriesKind, code, startDate, endDate string, g Granularity, records map[string]quoteRecord) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", l.dir, err)
	}
	path := filepath.Join(l.dir, CacheFileName(kind, code, startDate, endDate, g))

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode series %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(l.dir, ".series_*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to %s: %w", path, err)
	}
	return nil
}

// SaveQuotes converts quotes to raw records and saves them; the convenience
// path for tests and data preparation.
func (l *Loader) SaveQuotes(kind SeriesKind, code, startDate, endDate string, g Granularity, quotes map[string]market.Quote) error {
	records := make(map[string]quoteRecord, len(quotes))
	layout := keyLayout(g)
	for key, q := range quotes {
		records[key] = quoteRecord{
			Code:      q.Code,
			Name:      q.Name,
			Price:     q.Price,
			ChangePct: q.ChangePct,
			High:      q.High,
			Low:       q.Low,
			Volume:    q.Volume,
			Amount:    q.Amount,
			IsLimitUp: q.IsLimitUp,
			Timestamp: q.Timestamp.Format(layout),
		}
	}
	return l.Save(kind, code, startDate, endDate, g, records)
}
