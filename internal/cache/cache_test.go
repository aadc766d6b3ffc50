package cache

import (
	"context"
	"testing"
	"time"

	"github.com/energimultiguna/cngops/internal/config"
	"github.com/energimultiguna/cngops/pkg/models"
)

func TestExpiringLapsesAndSweeps(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := newExpiring[string, int](time.Minute)
	m.now = func() time.Time { return now }

	m.put("a", 1)
	if v, ok := m.get("a"); !ok || v != 1 {
		t.Fatalf("get(a) = %v, %v", v, ok)
	}

	now = now.Add(30 * time.Second)
	m.put("b", 2)
	now = now.Add(30 * time.Second)
	if _, ok := m.get("a"); ok {
		t.Fatalf("entry returned at its deadline")
	}
	if v, ok := m.get("b"); !ok || v != 2 {
		t.Fatalf("live entry lapsed early: %v, %v", v, ok)
	}

	now = now.Add(time.Hour)
	m.put("c", 3)
	if n := m.len(); n != 1 {
		t.Fatalf("lapsed entries not swept on write, len = %d", n)
	}

	m.drop("c")
	if _, ok := m.get("c"); ok {
		t.Fatalf("dropped entry still returned")
	}
}

func TestExpiringWithoutTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := newExpiring[string, int](0)
	m.now = func() time.Time { return now }

	m.put("a", 1)
	now = now.Add(24 * time.Hour)
	if v, ok := m.get("a"); !ok || v != 1 {
		t.Fatalf("entry without ttl lapsed: %v, %v", v, ok)
	}
}

func TestNewRedisClientRejectsEmptyAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisClient(config.RedisConfig{Addr: "  "}); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestMemoryTrackerCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryTrackerCache(time.Hour)
	s := &models.TrackerSeries{PlateNumber: "B 1 CNG"}

	if _, ok := c.Get(ctx, "B 1 CNG"); ok {
		t.Fatalf("empty cache hit")
	}
	c.Set(ctx, "B 1 CNG", s)
	if got, ok := c.Get(ctx, "B 1 CNG"); !ok || got != s {
		t.Fatalf("Get = %v, %v", got, ok)
	}
	c.Invalidate(ctx, "B 1 CNG")
	if _, ok := c.Get(ctx, "B 1 CNG"); ok {
		t.Fatalf("invalidated entry still returned")
	}
}

func TestRedisKey(t *testing.T) {
	t.Parallel()

	c := NewRedisTrackerCache(nil, time.Minute, nil)
	if got := c.key("B 1 CNG"); got != "tracker:B 1 CNG" {
		t.Fatalf("key = %q", got)
	}
}
