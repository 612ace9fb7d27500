package models

import "time"

// Session is a bounded, TTL-evicted conversational identity (spec §3).
type Session struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	LastActivity  time.Time `json:"lastActivity"`
	MessageCount  int       `json:"messageCount"`
}
