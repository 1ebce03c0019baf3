package realtime

import (
	"sync"
	"testing"
)

func TestRegisterReplacesOldSession(t *testing.T) {
	registry := NewSessionRegistry()

	first := NewSession(7, nil)
	if old := registry.Register(first); old != nil {
		t.Fatalf("expected no displaced session on first register, got %v", old)
	}

	second := NewSession(7, nil)
	old := registry.Register(second)
	if old != first {
		t.Fatalf("expected first session to be displaced")
	}

	current, ok := registry.Get(7)
	if !ok || current != second {
		t.Fatalf("expected second session to be current")
	}
	if registry.Count() != 1 {
		t.Fatalf("expected single session per user, got %d", registry.Count())
	}
}

func TestUnregisterIgnoresStaleSession(t *testing.T) {
	registry := NewSessionRegistry()

	stale := NewSession(7, nil)
	registry.Register(stale)
	fresh := NewSession(7, nil)
	registry.Register(fresh)

	// 旧连接的清理逻辑晚于新连接建立时，不能把新连接摘掉
	registry.Unregister(stale)
	if !registry.IsOnline(7) {
		t.Fatalf("fresh session should survive stale unregister")
	}

	registry.Unregister(fresh)
	if registry.IsOnline(7) {
		t.Fatalf("expected user offline after unregistering current session")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewSessionRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				session := NewSession(userID, nil)
				registry.Register(session)
				registry.Get(userID)
				registry.Unregister(session)
			}
		}(uint64(i % 4))
	}
	wg.Wait()

	if registry.Count() > 4 {
		t.Fatalf("unexpected session count %d", registry.Count())
	}
}
