package market

import "strings"

// Board-specific single-day rise caps for A-shares. STAR Market (688xxx),
// ChiNext (300xxx) and the Beijing exchange (8xxxxx, 43xxxx) cap at 20%,
// main boards at 10%.
const (
	limitUpMain   = 0.10
	limitUpGrowth = 0.20

	// limitUpTolerance absorbs rounding in vendor change percentages when
	// flagging live quotes.
	limitUpTolerance = 0.005
)

// LimitUpThreshold returns the fractional limit-up cap for a security code.
func LimitUpThreshold(code string) float64 {
	if strings.HasPrefix(code, "688") ||
		strings.HasPrefix(code, "300") ||
		strings.HasPrefix(code, "8") ||
		strings.HasPrefix(code, "43") {
		return limitUpGrowth
	}
	return limitUpMain
}

// IsLimitUpHistorical recomputes the limit-up flag for replay data, where
// change percentages are exact.
func IsLimitUpHistorical(code string, changePct float64) bool {
	return changePct >= LimitUpThreshold(code)
}

// IsLimitUpLive flags a live quote as at limit up, allowing a small
// tolerance below the cap.
func IsLimitUpLive(code string, changePct float64) bool {
	return changePct >= LimitUpThreshold(code)-limitUpTolerance
}
