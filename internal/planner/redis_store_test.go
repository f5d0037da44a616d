package planner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	"github.com/alicebob/miniredis/v2"
)

// newTestRedisStore runs against an in-process miniredis, or a real server
// when REDIS_TEST_URL is set (e.g. redis://localhost:6379/15).
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_URL")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	client, err := NewRedisClient(addr)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, "planner-test-"+NewID())
	t.Cleanup(func() { client.Del(context.Background(), s.ItemsKey, s.OrderKey) })
	return s
}

func TestNewRedisClient_AcceptsURLAndHostPort(t *testing.T) {
	c, err := NewRedisClient("redis://localhost:6379/3")
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if c.Options().DB != 3 {
		t.Fatalf("expected db 3, got %d", c.Options().DB)
	}
	c2, err := NewRedisClient("cache:6380")
	if err != nil {
		t.Fatalf("host:port: %v", err)
	}
	if c2.Options().Addr != "cache:6380" {
		t.Fatalf("unexpected addr %q", c2.Options().Addr)
	}
	if _, err := NewRedisClient("redis://%zz"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRedisStore_UpsertKeepsOrder(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if _, err := s.Upsert(ctx, models.PlannerItem{ID: id, Topic: "t"}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if _, err := s.Upsert(ctx, models.PlannerItem{ID: "1", Topic: "changed", Status: "posted"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 || items[0].ID != "1" || items[0].Status != "posted" || items[2].ID != "3" {
		t.Fatalf("unexpected items: %#v", items)
	}
}

func TestRedisStore_NamedFieldsOverwriteEvenWhenEmpty(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, models.PlannerItem{ID: "1", Topic: "AI tools", Prompt: "old prompt", Status: "planned"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.Upsert(ctx, models.PlannerItem{ID: "1", Status: "generated"}, FieldID, FieldPrompt, FieldStatus)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	want := models.PlannerItem{ID: "1", Topic: "AI tools", Status: "generated"}
	if got != want {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	stored, found, err := s.Get(ctx, "1")
	if err != nil || !found || stored != want {
		t.Fatalf("stored %#v found=%v err=%v", stored, found, err)
	}
}

func TestRedisStore_DeleteDropsFromOrder(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	_, _ = s.Upsert(ctx, models.PlannerItem{ID: "a"})
	_, _ = s.Upsert(ctx, models.PlannerItem{ID: "b"})

	ok, err := s.Delete(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("expected delete ok, got ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "a"); ok {
		t.Fatalf("expected second delete to report false")
	}
	items, _ := s.List(ctx)
	if len(items) != 1 || items[0].ID != "b" {
		t.Fatalf("unexpected items after delete: %#v", items)
	}
}

func TestRedisStore_ConcurrentUpserts(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Upsert(ctx, models.PlannerItem{ID: fmt.Sprintf("c-%d", i), Topic: "t"}); err != nil {
				t.Errorf("Upsert %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 20 {
		t.Fatalf("expected 20 items, got %d", len(items))
	}
}
