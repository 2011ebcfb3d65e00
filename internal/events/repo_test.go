package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:events_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ContactEvent{}); err != nil {
		t.Fatalf("migrate contact events: %v", err)
	}
	return db
}

func seedEvent(t *testing.T, repo Repository, email string, eventType enums.EventType, at time.Time) {
	t.Helper()
	err := repo.Create(context.Background(), &models.ContactEvent{
		Email:     email,
		Type:      eventType,
		Metadata:  "{}",
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestCountSinceRespectsWindowAndType(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seedEvent(t, repo, "maya@example.com", enums.EventTypeClicked, now.Add(-time.Hour))
	seedEvent(t, repo, "maya@example.com", enums.EventTypeClicked, now.Add(-8*24*time.Hour))
	seedEvent(t, repo, "maya@example.com", enums.EventTypeBooked, now.Add(-time.Hour))
	seedEvent(t, repo, "other@example.com", enums.EventTypeClicked, now.Add(-time.Hour))

	count, err := repo.CountSince(ctx, "maya@example.com", enums.EventTypeClicked, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 click in window, got %d", count)
	}
}

func TestListOrdersNewestFirstWithCursor(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		seedEvent(t, repo, "maya@example.com", enums.EventTypeEmailSent, now.Add(-time.Duration(i)*time.Hour))
	}

	first, next, err := repo.List(ctx, listEventsParams{Email: "maya@example.com", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 events, got %d", len(first))
	}
	if next == nil {
		t.Fatal("expected next cursor")
	}
	if !first[0].CreatedAt.After(first[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	rest, next, err := repo.List(ctx, listEventsParams{Email: "maya@example.com", Limit: 2, Cursor: next})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 remaining event, got %d", len(rest))
	}
	if next != nil {
		t.Fatal("expected no further cursor")
	}
}

func TestDeleteOlderThanPurgesOnlyStaleRows(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seedEvent(t, repo, "maya@example.com", enums.EventTypeClicked, now.Add(-200*24*time.Hour))
	seedEvent(t, repo, "maya@example.com", enums.EventTypeClicked, now.Add(-time.Hour))

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-180*24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}

	count, err := repo.CountSince(ctx, "maya@example.com", enums.EventTypeClicked, now.Add(-365*24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 remaining event, got %d", count)
	}
}
