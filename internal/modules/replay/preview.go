package replay

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/modules/market"
)

// Security data status classifications.
const (
	StatusComplete = "complete" // >= 90% of expected points
	StatusPartial  = "partial"  // 50-90%
	StatusMissing  = "missing"  // < 50%
)

// SecurityStatus is one security's coverage in the preview range.
type SecurityStatus struct {
	Code     string  `json:"code"`
	Kind     string  `json:"kind"`
	Observed int     `json:"observed"`
	Expected int     `json:"expected"`
	Rate     float64 `json:"rate"`
	Status   string  `json:"status"`
}

// QualityPreview reports whether cached data supports a replay range before
// the run starts.
type QualityPreview struct {
	PreviewID string `json:"preview_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	TradingDays  int      `json:"trading_days"`
	CoveredDays  int      `json:"covered_days"`
	MissingDates []string `json:"missing_dates"` // compact

	MonthCoverage map[string]float64 `json:"month_coverage"` // YYYYMM -> fraction

	Stocks []SecurityStatus `json:"stocks"`
	ETFs   []SecurityStatus `json:"etfs"`

	Score float64 `json:"score"` // 0-100
	Grade string  `json:"grade"`
}

func classify(rate float64) string {
	switch {
	case rate >= 0.90:
		return StatusComplete
	case rate >= 0.50:
		return StatusPartial
	default:
		return StatusMissing
	}
}

func gradeFor(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "B+"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	default:
		return "D"
	}
}

// expectedPoints returns how many records a fully-covered series holds.
func expectedPoints(tradingDays int, g Granularity) int {
	if g.IsDaily() {
		return tradingDays
	}
	return tradingDays * (240/g.Minutes() + 1)
}

// completeRate returns the fraction of securities classified complete.
func completeRate(statuses []SecurityStatus) float64 {
	if len(statuses) == 0 {
		return 0
	}
	complete := 0
	for _, s := range statuses {
		if s.Status == StatusComplete {
			complete++
		}
	}
	return float64(complete) / float64(len(statuses))
}

// BuildQualityPreview inspects loaded series against the replay calendar.
// stockCodes and etfCodes name the securities the run will touch; provider
// holds whatever series have been loaded for them.
func BuildQualityPreview(
	cfg BacktestConfig,
	stockCodes, etfCodes []string,
	provider *HistoricalQuoteProvider,
	log zerolog.Logger,
) (*QualityPreview, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	calendar, err := market.BuildTradingCalendar(cfg.StartDate, cfg.EndDate, true, log)
	if err != nil {
		return nil, err
	}

	preview := &QualityPreview{
		PreviewID:     uuid.NewString(),
		StartDate:     cfg.StartDate,
		EndDate:       cfg.EndDate,
		TradingDays:   calendar.Len(),
		MonthCoverage: make(map[string]float64),
	}

	expected := expectedPoints(calendar.Len(), cfg.Granularity)
	preview.Stocks = securityStatuses(stockCodes, KindStock, expected, provider)
	preview.ETFs = securityStatuses(etfCodes, KindETF, expected, provider)

	// A trading day counts as covered when every stock series has at least
	// one record on it.
	monthDays := make(map[string]int)
	monthCovered := make(map[string]int)
	for _, day := range calendar.Days() {
		date := market.CompactDate(day)
		month := date[:6]
		monthDays[month]++

		if dayCovered(day.Format(dailyKeyLayout), stockCodes, cfg.Granularity, provider) {
			preview.CoveredDays++
			monthCovered[month]++
		} else {
			preview.MissingDates = append(preview.MissingDates, date)
		}
	}
	for month, total := range monthDays {
		preview.MonthCoverage[month] = float64(monthCovered[month]) / float64(total)
	}
	sort.Strings(preview.MissingDates)

	daysCoverage := 0.0
	if calendar.Len() > 0 {
		daysCoverage = float64(preview.CoveredDays) / float64(calendar.Len())
	}
	preview.Score = 40*completeRate(preview.Stocks) + 30*completeRate(preview.ETFs) + 30*daysCoverage
	preview.Grade = gradeFor(preview.Score)
	return preview, nil
}

func securityStatuses(codes []string, kind SeriesKind, expected int, provider *HistoricalQuoteProvider) []SecurityStatus {
	out := make([]SecurityStatus, 0, len(codes))
	for _, code := range codes {
		observed := 0
		provider.mu.RLock()
		if s, ok := provider.series[code]; ok {
			observed = s.Len()
		}
		provider.mu.RUnlock()

		rate := 0.0
		if expected > 0 {
			rate = float64(observed) / float64(expected)
			if rate > 1 {
				rate = 1
			}
		}
		out = append(out, SecurityStatus{
			Code:     code,
			Kind:     string(kind),
			Observed: observed,
			Expected: expected,
			Rate:     rate,
			Status:   classify(rate),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// dayCovered reports whether every listed stock has data on datePrefix.
func dayCovered(datePrefix string, stockCodes []string, g Granularity, provider *HistoricalQuoteProvider) bool {
	if len(stockCodes) == 0 {
		return false
	}
	provider.mu.RLock()
	defer provider.mu.RUnlock()

	for _, code := range stockCodes {
		s, ok := provider.series[code]
		if !ok {
			return false
		}
		found := false
		if g.IsDaily() {
			_, found = s.At(datePrefix)
		} else {
			i := sort.SearchStrings(s.keys, datePrefix)
			found = i < len(s.keys) && len(s.keys[i]) >= len(datePrefix) && s.keys[i][:len(datePrefix)] == datePrefix
		}
		if !found {
			return false
		}
	}
	return true
}
