package domain

import "time"

// Turn is one consolidated speaker utterance in a session transcript.
type Turn struct {
	Speaker   string    `json:"speaker"`
	Party     Party     `json:"party,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Tokens    int       `json:"tokens,omitempty"`
}

// RawTurn is a persisted, unmerged transcript segment.
type RawTurn struct {
	SessionID string    `json:"session_id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
