package chat

import "time"

// Session captures a transient chat view; nothing survives past the process.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
