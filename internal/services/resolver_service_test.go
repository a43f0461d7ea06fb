package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

func TestResolverStoreAndResolve(t *testing.T) {
	store := newTestStore(t)
	now, _ := fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := &ResolverService{Store: store, Now: now}
	ctx := context.Background()

	if svc.Resolve(ctx, "https://social.example.com/p/42") != "" {
		t.Fatal("empty cache must miss")
	}

	id := svc.StoreResolution(ctx, "https://social.example.com/p/42?utm_source=app",
		"https://cdn.example.com/42.jpg", "og_meta")
	if id == "" {
		t.Fatal("StoreResolution returned empty id")
	}

	// Same post without tracking params resolves through the
	// normalized key.
	if got := svc.Resolve(ctx, "https://social.example.com/p/42"); got != "https://cdn.example.com/42.jpg" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolverRepeatStoreMerges(t *testing.T) {
	store := newTestStore(t)
	now, _ := fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := &ResolverService{Store: store, Now: now}
	ctx := context.Background()

	first := svc.StoreResolution(ctx, "https://social.example.com/p/42?a=1",
		"https://cdn.example.com/old.jpg", "og_meta")
	second := svc.StoreResolution(ctx, "https://social.example.com/p/42?b=2",
		"https://cdn.example.com/new.jpg", "og_meta")
	if first == "" || second == "" {
		t.Fatalf("ids = %q, %q", first, second)
	}
	if first != second {
		t.Fatalf("repeat store created a second row: %q vs %q", first, second)
	}

	var count int64
	store.DB.Model(&domain.SourceURLCache{}).Count(&count)
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
	if got := svc.Resolve(ctx, "https://social.example.com/p/42"); got != "https://cdn.example.com/new.jpg" {
		t.Fatalf("Resolve after refresh = %q", got)
	}
}

func TestResolverHitBumpsAccessCount(t *testing.T) {
	store := newTestStore(t)
	now, _ := fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := &ResolverService{Store: store, Now: now}
	ctx := context.Background()

	id := svc.StoreResolution(ctx, "https://social.example.com/p/42",
		"https://cdn.example.com/42.jpg", "og_meta")
	svc.Resolve(ctx, "https://social.example.com/p/42")
	svc.Resolve(ctx, "https://social.example.com/p/42")

	var got domain.SourceURLCache
	if err := store.DB.First(&got, "id = ?", id).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	// Insert counts as the first access; two cache hits bump it twice.
	if got.AccessCount != 3 {
		t.Fatalf("access count = %d, want 3", got.AccessCount)
	}
}

func TestResolverDisabledStoreIsNeutral(t *testing.T) {
	svc := &ResolverService{}
	ctx := context.Background()

	if svc.Resolve(ctx, "https://social.example.com/p/42") != "" {
		t.Fatal("disabled store Resolve must return empty")
	}
	if svc.StoreResolution(ctx, "https://social.example.com/p/42", "https://cdn.example.com/x.jpg", "og_meta") != "" {
		t.Fatal("disabled store StoreResolution must return empty")
	}
}

func TestResolverRejectsEmptyInputs(t *testing.T) {
	store := newTestStore(t)
	svc := &ResolverService{Store: store}
	ctx := context.Background()

	if svc.StoreResolution(ctx, "", "https://cdn.example.com/x.jpg", "og_meta") != "" {
		t.Fatal("empty original url must be rejected")
	}
	if svc.StoreResolution(ctx, "https://social.example.com/p/42", "", "og_meta") != "" {
		t.Fatal("empty resolved url must be rejected")
	}
}
