package signals

import (
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/aristath/arbscan/internal/registry"
)

// Sink delivers emitted signals to operators.
type Sink interface {
	Send(s *TradingSignal) error
}

// Senders is the sink plugin registry. Custom delivery channels register
// here and are selected by name in configuration.
var Senders = registry.New[Sink]("sender", zlog.Logger)

func init() {
	Senders.Register("log", func(cfg map[string]any) (Sink, error) {
		return NewLogSink(zlog.Logger), nil
	}, registry.Meta{Priority: 0, Version: "1.0.0", Description: "log output (default)"})

	Senders.Register("null", func(cfg map[string]any) (Sink, error) {
		return NullSink{}, nil
	}, registry.Meta{Priority: 0, Version: "1.0.0", Description: "discard (notifications disabled)"})
}

// LogSink writes each signal as a structured log record.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink logging through l.
func NewLogSink(l zerolog.Logger) *LogSink {
	return &LogSink{log: l.With().Str("component", "signal_sink").Logger()}
}

// Send logs the signal. Never fails.
func (s *LogSink) Send(sig *TradingSignal) error {
	s.log.Info().
		Str("signal_id", sig.SignalID).
		Str("stock", sig.StockName+"("+sig.StockCode+")").
		Str("etf", sig.ETFName+"("+sig.ETFCode+")").
		Float64("price", sig.StockPrice).
		Float64("change_pct", sig.ChangePct*100).
		Float64("weight_pct", sig.ETFWeight*100).
		Int("weight_rank", sig.WeightRank).
		Str("confidence", string(sig.Confidence)).
		Str("risk", string(sig.RiskLevel)).
		Str("reason", sig.Reason).
		Msg("Trading signal")
	return nil
}

// NullSink discards signals; used in tests and when notifications are
// disabled.
type NullSink struct{}

// Send does nothing.
func (NullSink) Send(*TradingSignal) error {
	return nil
}

// SinkFromConfig returns the configured sink: the log sink when enabled,
// otherwise the null sink. Unknown names fall back to the log sink.
func SinkFromConfig(enabled bool, name string, log zerolog.Logger) Sink {
	if !enabled {
		return NullSink{}
	}
	if name == "" {
		name = "log"
	}
	sink, err := Senders.Create(name, nil)
	if err != nil {
		log.Warn().Str("sender", name).Err(err).Msg("Unknown sender, using log sink")
		return NewLogSink(log)
	}
	return sink
}
