package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{
		Position: Watermark{CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 123000, time.UTC), ID: 42},
		Reverse:  true,
	}

	got, err := DecodeCursor(c.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor failed: %v", err)
	}
	if !got.Position.CreatedAt.Equal(c.Position.CreatedAt) || got.Position.ID != 42 || !got.Reverse {
		t.Errorf("expected %+v, got %+v", c, got)
	}
}

func TestDecodeCursorEmpty(t *testing.T) {
	c, err := DecodeCursor("")
	if err != nil || c != nil {
		t.Errorf("expected no cursor and no error, got %v, %v", c, err)
	}
}

func TestDecodeCursorInvalid(t *testing.T) {
	for _, token := range []string{"%%%", "bm90IGpzb24", "e30"} {
		if _, err := DecodeCursor(token); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("%q: expected ErrInvalidCursor, got %v", token, err)
		}
	}
}

func TestWatermarkOrder(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := Watermark{CreatedAt: t0, ID: 5}
	newer := Watermark{CreatedAt: t0.Add(time.Second), ID: 1}
	sameTimeHigherID := Watermark{CreatedAt: t0, ID: 6}

	if !newer.Before(older) {
		t.Error("later timestamps sort first")
	}
	if !sameTimeHigherID.Before(older) {
		t.Error("equal timestamps fall back to id descending")
	}
	if older.Before(older) {
		t.Error("a watermark never sorts before itself")
	}
}
