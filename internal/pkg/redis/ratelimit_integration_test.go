package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// 集成测试需要真实 Redis，未配置 MERCATO_TEST_REDIS 时跳过

func mustInitTestRedis(t *testing.T) {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("MERCATO_TEST_REDIS"))
	if addr == "" {
		t.Skip("integration test skipped: MERCATO_TEST_REDIS is not set")
	}

	Rdb = redis.NewClient(&redis.Options{Addr: addr})
	if err := Rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("integration test skipped: Redis unreachable: %v", err)
	}
}

func TestAllowInWindow(t *testing.T) {
	mustInitTestRedis(t)
	ctx := context.Background()

	key := fmt.Sprintf("im:ratelimit:test:%d", time.Now().UnixNano())
	t.Cleanup(func() { Rdb.Del(ctx, key) })

	for i := 0; i < 3; i++ {
		allowed, err := AllowInWindow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("AllowInWindow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed under limit", i+1)
		}
	}

	allowed, err := AllowInWindow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("AllowInWindow: %v", err)
	}
	if allowed {
		t.Fatalf("expected 4th request in window to be rejected")
	}
}

func TestAllowInWindowSlides(t *testing.T) {
	mustInitTestRedis(t)
	ctx := context.Background()

	key := fmt.Sprintf("im:ratelimit:test:%d", time.Now().UnixNano())
	t.Cleanup(func() { Rdb.Del(ctx, key) })

	window := 500 * time.Millisecond
	for i := 0; i < 2; i++ {
		if allowed, err := AllowInWindow(ctx, key, 2, window); err != nil || !allowed {
			t.Fatalf("warmup request %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
	if allowed, _ := AllowInWindow(ctx, key, 2, window); allowed {
		t.Fatalf("expected rejection while window is full")
	}

	// 窗口滑过后旧事件过期，重新放行
	time.Sleep(window + 100*time.Millisecond)
	allowed, err := AllowInWindow(ctx, key, 2, window)
	if err != nil {
		t.Fatalf("AllowInWindow after window: %v", err)
	}
	if !allowed {
		t.Fatalf("expected request to be allowed after the window slid past")
	}
}
