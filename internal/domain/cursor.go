package domain

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Watermark is a position in the (created_at DESC, id DESC) message order
type Watermark struct {
	CreatedAt time.Time `json:"t"`
	ID        int64     `json:"i"`
}

// WatermarkOf returns the position of a message
func WatermarkOf(m *Message) Watermark {
	return Watermark{CreatedAt: m.CreatedAt, ID: m.ID}
}

// Before reports whether w sorts before o in (created_at DESC, id DESC) order,
// i.e. w is newer than o.
func (w Watermark) Before(o Watermark) bool {
	if !w.CreatedAt.Equal(o.CreatedAt) {
		return w.CreatedAt.After(o.CreatedAt)
	}
	return w.ID > o.ID
}

// Cursor is the decoded form of the opaque pagination token
type Cursor struct {
	Position Watermark `json:"p"`
	Reverse  bool      `json:"r,omitempty"`
}

// Encode renders the cursor as an opaque URL-safe token
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by Cursor.Encode. An empty token is no cursor.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.Position.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}
