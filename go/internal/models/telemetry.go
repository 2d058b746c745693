package models

import "time"

// Telemetry actions recorded by the server itself.
const (
	ActionGameResolved       = "game resolved"
	ActionNextProblem        = "next problem"
	ActionConfederateMessage = "CONFEDERATE MESSAGE"
)

// TelemetryEvent is one research data point. ID is assigned once when the
// event is queued and stays the same across write retries.
type TelemetryEvent struct {
	ID          string    `json:"id,omitempty"`
	User        string    `json:"user"`
	Confederate *string   `json:"confederate,omitempty"`
	Action      string    `json:"action"`
	Text        *string   `json:"text,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	X           *float64  `json:"x,omitempty"`
	Y           *float64  `json:"y,omitempty"`
	Resolution  *string   `json:"resolution,omitempty"`
}

// Owner returns the name the event is filed under. Confederate messages are
// attributed to the confederate, everything else to the user.
func (e TelemetryEvent) Owner() string {
	if e.Action == ActionConfederateMessage && e.Confederate != nil {
		return *e.Confederate
	}
	return e.User
}
