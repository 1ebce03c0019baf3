package realtime

import (
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	before := time.Now().UnixMilli()
	event := NewEvent(EventMessageNew, 12, map[string]string{"k": "v"})
	after := time.Now().UnixMilli()

	if event.Type != EventMessageNew {
		t.Fatalf("expected type %s, got %s", EventMessageNew, event.Type)
	}
	if event.ConversationID != 12 {
		t.Fatalf("expected conversation_id=12, got %d", event.ConversationID)
	}
	if event.Timestamp < before || event.Timestamp > after {
		t.Fatalf("timestamp %d outside [%d, %d]", event.Timestamp, before, after)
	}
}

func TestUserChannel(t *testing.T) {
	if got := UserChannel(42); got != "im:user:channel:42" {
		t.Fatalf("unexpected channel name %s", got)
	}
}
