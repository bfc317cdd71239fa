package types

import "time"

// SpeakRequest is the inbound speech request from the director engine.
// Decode JSON into a value pre-filled with Defaults so an absent priority
// keeps its 0.5 default (0.0 is meaningful: highest).
type SpeakRequest struct {
	Trigger     string         `json:"trigger"`
	Content     string         `json:"content"`
	Priority    float64        `json:"priority"`
	Source      string         `json:"source"`
	IsInterrupt bool           `json:"is_interrupt"`
	EventID     string         `json:"event_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Defaults returns a SpeakRequest with field defaults applied, ready to
// be overwritten by a JSON decode.
func Defaults() SpeakRequest {
	return SpeakRequest{
		Priority: 0.5,
		Source:   "DIRECTOR",
	}
}

// SpeakResult is what the director engine gets back for every request.
type SpeakResult struct {
	Delivered   bool   `json:"delivered"`
	GateResult  string `json:"gate_result"`
	Interrupted *bool  `json:"interrupted,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

type Event struct {
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}
