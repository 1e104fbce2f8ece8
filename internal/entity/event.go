package entity

import "time"

const (
	RenderStatusDelivered = "delivered"
	RenderStatusRejected  = "rejected"
	RenderStatusFailed    = "failed"
	RenderStatusTimeout   = "timeout"
)

// RenderEvent describes the outcome of one render request.
type RenderEvent struct {
	RequestID  string    `json:"request_id"`
	ChatID     int64     `json:"chat_id"`
	Background int       `json:"background,omitempty"`
	Lines      int       `json:"lines,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
