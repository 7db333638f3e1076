package faults

import "time"

// Fault records an upstream AI failure for auditing. Best-effort: a failed
// audit write never affects the request that produced it.
type Fault struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Endpoint    string    `json:"endpoint"`
	Phase       string    `json:"phase"` // e.g. "ai_call", "parse", "persist"
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
