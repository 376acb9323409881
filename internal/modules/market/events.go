package market

import "time"

// EventType names the market occurrence a detector fires on.
type EventType string

const (
	EventLimitUp      EventType = "limit_up"
	EventBreakout     EventType = "breakout"
	EventShortSqueeze EventType = "short_squeeze"
)

// Event is a detected market occurrence for one security at one instant.
type Event struct {
	Type         EventType      `json:"event_type"`
	SecurityCode string         `json:"security_code"`
	SecurityName string         `json:"security_name"`
	Price        float64        `json:"price"`
	ChangePct    float64        `json:"change_pct"`
	TriggerPrice float64        `json:"trigger_price"`
	TriggerTime  time.Time      `json:"trigger_time"`
	Volume       float64        `json:"volume"`
	Amount       float64        `json:"amount"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Meta returns a metadata value, or nil when absent.
func (e *Event) Meta(key string) any {
	if e.Metadata == nil {
		return nil
	}
	return e.Metadata[key]
}

// MetaFloat returns a metadata value as float64 when it is one.
func (e *Event) MetaFloat(key string) (float64, bool) {
	v, ok := e.Meta(key).(float64)
	return v, ok
}
