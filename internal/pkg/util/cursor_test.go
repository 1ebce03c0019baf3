package util

import (
	"testing"
	"time"
)

func TestMessageCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 8, 30, 15, 123456000, time.UTC)
	cursor := EncodeMessageCursor(createdAt, 42)

	gotTime, gotID, err := DecodeMessageCursor(cursor)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if gotID != 42 {
		t.Fatalf("expected id=42, got %d", gotID)
	}
	if !gotTime.Equal(createdAt) {
		t.Fatalf("expected time=%v, got %v", createdAt, gotTime)
	}
}

func TestDecodeMessageCursorEmpty(t *testing.T) {
	gotTime, gotID, err := DecodeMessageCursor("")
	if err != nil {
		t.Fatalf("empty cursor should not error: %v", err)
	}
	if !gotTime.IsZero() || gotID != 0 {
		t.Fatalf("empty cursor should decode to zero values, got %v / %d", gotTime, gotID)
	}
}

func TestDecodeMessageCursorInvalid(t *testing.T) {
	cases := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"not json", "bm90LWpzb24="},
		{"negative id", "Wy0xLC0yXQ=="}, // [-1,-2]
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := DecodeMessageCursor(tc.cursor); err == nil {
				t.Fatalf("expected error for cursor %q", tc.cursor)
			}
		})
	}
}

func TestMessageCursorOrderStable(t *testing.T) {
	// 同一时刻不同 ID 的消息必须产生不同游标
	ts := time.Now()
	a := EncodeMessageCursor(ts, 1)
	b := EncodeMessageCursor(ts, 2)
	if a == b {
		t.Fatalf("cursors for different ids should differ")
	}
}
