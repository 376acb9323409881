// Package tencent fetches live A-share quotes from the Tencent finance
// endpoint (qt.gtimg.cn). The endpoint is free and unauthenticated; a
// circuit breaker keeps a flaky upstream from stalling the scan loop.
package tencent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
)

const (
	// DefaultBaseURL is the public quote endpoint.
	DefaultBaseURL = "https://qt.gtimg.cn"

	// batchSize caps codes per request, per the vendor's limit.
	batchSize = 100

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client is a market.QuoteProvider backed by the Tencent quote endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	clk     clock.Clock
	log     zerolog.Logger
}

// NewClient creates a quote client. Empty baseURL falls back to the public
// endpoint, zero timeout to 5s, nil clk to the process-wide clock.
func NewClient(baseURL string, timeout time.Duration, clk clock.Clock, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if clk == nil {
		clk = clock.Get()
	}

	componentLog := log.With().Str("component", "tencent_client").Logger()

	settings := gobreaker.Settings{
		Name:        "tencent-quotes",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLog.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		clk:     clk,
		log:     componentLog,
	}
}

// GetQuote fetches one security's live quote. A code the vendor does not
// know yields market.ErrNoData; an open breaker or a timed-out request
// yields market.ErrProviderTimeout so the chain degrades to "no quote".
func (c *Client) GetQuote(ctx context.Context, code string) (*market.Quote, error) {
	quotes, err := c.GetQuotes(ctx, []string{code})
	if err != nil {
		return nil, err
	}
	q, ok := quotes[code]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", code, market.ErrNoData)
	}
	return q, nil
}

// GetQuotes fetches quotes for up to 100 codes per request, batching larger
// lists. Codes the vendor does not know are absent from the result.
func (c *Client) GetQuotes(ctx context.Context, codes []string) (map[string]*market.Quote, error) {
	out := make(map[string]*market.Quote, len(codes))

	for start := 0; start < len(codes); start += batchSize {
		end := min(start+batchSize, len(codes))
		batch := codes[start:end]

		body, err := c.fetch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, code := range batch {
			q, ok := c.parseQuote(code, body)
			if !ok {
				continue
			}
			out[code] = q
		}
	}
	return out, nil
}

// fetch performs one endpoint request through the circuit breaker and
// returns the GBK-decoded body.
func (c *Client) fetch(ctx context.Context, codes []string) (string, error) {
	vendors := make([]string, len(codes))
	for i, code := range codes {
		vendors[i] = vendorCode(code)
	}
	url := fmt.Sprintf("%s/q=%s", c.baseURL, strings.Join(vendors, ","))

	body, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("quote endpoint returned %d", resp.StatusCode)
		}

		// The endpoint responds in GBK.
		decoded, err := io.ReadAll(transform.NewReader(resp.Body, simplifiedchinese.GBK.NewDecoder()))
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return string(decoded), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("quote endpoint unavailable: %w", market.ErrProviderTimeout)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("quote request: %w", market.ErrProviderTimeout)
		}
		return "", fmt.Errorf("quote request: %w", err)
	}
	return body.(string), nil
}

// Response field indices, tilde-separated. The vendor reports change as a
// percentage, volume in lots and turnover in 10k CNY.
const (
	fieldName      = 1
	fieldPrice     = 3
	fieldTimestamp = 30
	fieldChangePct = 32
	fieldHigh      = 33
	fieldLow       = 34
	fieldVolume    = 36
	fieldAmount    = 37

	minFields = 38
)

// parseQuote extracts one security's quote from a response body holding
// lines like `v_sh600519="1~...~";`.
func (c *Client) parseQuote(code, body string) (*market.Quote, bool) {
	marker := fmt.Sprintf(`v_%s="`, vendorCode(code))
	start := strings.Index(body, marker)
	if start == -1 {
		return nil, false
	}
	start += len(marker)
	end := strings.Index(body[start:], `";`)
	if end == -1 {
		return nil, false
	}

	fields := strings.Split(body[start:start+end], "~")
	if len(fields) < minFields {
		c.log.Warn().Str("code", code).Int("fields", len(fields)).Msg("Malformed quote line")
		return nil, false
	}

	changePct := parseFloat(fields[fieldChangePct]) / 100

	q := &market.Quote{
		Code:      code,
		Name:      fields[fieldName],
		Price:     parseFloat(fields[fieldPrice]),
		ChangePct: changePct,
		High:      parseFloat(fields[fieldHigh]),
		Low:       parseFloat(fields[fieldLow]),
		Volume:    parseFloat(fields[fieldVolume]) * 100,    // lots of 100 shares
		Amount:    parseFloat(fields[fieldAmount]) * 10_000, // 10k CNY units
		IsLimitUp: market.IsLimitUpLive(code, changePct),
		Timestamp: c.parseTimestamp(fields[fieldTimestamp]),
	}
	return q, true
}

// parseTimestamp reads the vendor's yyyyMMddHHmmss stamp, falling back to
// the clock when absent or malformed.
func (c *Client) parseTimestamp(raw string) time.Time {
	if ts, err := time.ParseInLocation("20060102150405", raw, clock.ChinaTZ); err == nil {
		return ts
	}
	return c.clk.Now(clock.ChinaTZ)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// vendorCode maps a bare security code to the vendor's exchange-prefixed
// form: Shanghai for 5/6/9 prefixes, Beijing for 4/8, Shenzhen otherwise.
func vendorCode(code string) string {
	switch {
	case strings.HasPrefix(code, "5"), strings.HasPrefix(code, "6"), strings.HasPrefix(code, "9"):
		return "sh" + code
	case strings.HasPrefix(code, "4"), strings.HasPrefix(code, "8"):
		return "bj" + code
	default:
		return "sz" + code
	}
}
