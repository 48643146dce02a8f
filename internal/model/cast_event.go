package model

import (
	"bytes"
	"encoding/json"
)

// CastCreated is the only webhook event type that can lead to a trade.
const CastCreated = "cast.created"

// EventKey identifies a webhook delivery for deduplication.
//
// It is type concatenated with created_at, so two distinct events of the same
// type sharing a created_at value collide and the second is dropped.
type EventKey string

type Author struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type CastData struct {
	Author Author `json:"author"`
	Text   string `json:"text"`
}

// CastEvent represents the fields consumed from an incoming webhook payload.
type CastEvent struct {
	Type      string          `json:"type"`
	CreatedAt json.RawMessage `json:"created_at"`
	Data      CastData        `json:"data"`
}

// Key derives the idempotency key. A string created_at contributes its
// unquoted value and any other JSON value its literal text.
func (e CastEvent) Key() EventKey {
	return EventKey(e.Type + e.createdAtText())
}

func (e CastEvent) createdAtText() string {
	raw := bytes.TrimSpace(e.CreatedAt)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
