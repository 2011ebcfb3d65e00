package jobs

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
	dsn := "file:jobs_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.EmailJob{}); err != nil {
		t.Fatalf("migrate email jobs: %v", err)
	}
	return db
}

func seedJob(t *testing.T, repo Repository, job models.EmailJob) models.EmailJob {
	t.Helper()
	if job.Email == "" {
		job.Email = "maya@example.com"
	}
	if job.Type == "" {
		job.Type = enums.JobTypeLeadNoBooking1
	}
	if job.Payload == "" {
		job.Payload = "{}"
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if err := repo.Create(context.Background(), &job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func TestDueJobsOrdersOldestFirstAndBoundsBatch(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 1; i <= 4; i++ {
		seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-time.Duration(i) * time.Hour)})
	}
	seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(time.Hour)}) // not due

	due, err := repo.DueJobs(ctx, now, 3, 10*time.Minute)
	if err != nil {
		t.Fatalf("due jobs: %v", err)
	}
	if len(due) != 3 {
		t.Fatalf("expected batch of 3, got %d", len(due))
	}
	for i := 1; i < len(due); i++ {
		if due[i].ScheduledFor.Before(due[i-1].ScheduledFor) {
			t.Fatal("expected oldest-first ordering")
		}
	}
}

func TestDueJobsSkipsFreshClaimsButIncludesStaleOnes(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	claimTTL := 10 * time.Minute

	freshClaim := now.Add(-time.Minute)
	staleClaim := now.Add(-time.Hour)
	worker := "worker-1"
	seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-time.Hour), ClaimedAt: &freshClaim, ClaimedBy: &worker})
	stale := seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-time.Hour), ClaimedAt: &staleClaim, ClaimedBy: &worker})

	due, err := repo.DueJobs(ctx, now, 10, claimTTL)
	if err != nil {
		t.Fatalf("due jobs: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected only the stale claim, got %d jobs", len(due))
	}
	if due[0].ID != stale.ID {
		t.Fatal("expected the stale-claimed job to be due again")
	}
}

func TestClaimIsExclusive(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	job := seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-time.Minute)})

	won, err := repo.Claim(ctx, job.ID, "worker-1", now, 10*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !won {
		t.Fatal("expected first claim to win")
	}

	won, err = repo.Claim(ctx, job.ID, "worker-2", now, 10*time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if won {
		t.Fatal("expected second claim to lose")
	}
}

func TestClaimSucceedsOnStaleClaim(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	staleClaim := now.Add(-time.Hour)
	worker := "worker-1"
	job := seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-2 * time.Hour), ClaimedAt: &staleClaim, ClaimedBy: &worker})

	won, err := repo.Claim(ctx, job.ID, "worker-2", now, 10*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !won {
		t.Fatal("expected stale claim to be taken over")
	}

	reloaded, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ClaimedBy == nil || *reloaded.ClaimedBy != "worker-2" {
		t.Fatalf("expected worker-2 to hold the claim, got %+v", reloaded.ClaimedBy)
	}
}

func TestMarkSentIsTerminal(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	job := seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-time.Minute)})

	updated, err := repo.MarkSent(ctx, job.ID, now)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if !updated {
		t.Fatal("expected mark sent to succeed")
	}

	// terminal: neither cancel nor a second send may touch the row
	if updated, err = repo.Cancel(ctx, job.ID, "too late", now); err != nil {
		t.Fatalf("cancel: %v", err)
	} else if updated {
		t.Fatal("cancel must not modify a sent job")
	}
	if updated, err = repo.MarkSent(ctx, job.ID, now); err != nil {
		t.Fatalf("second mark sent: %v", err)
	} else if updated {
		t.Fatal("sent is terminal")
	}
}

func TestCancelPendingByTypesFiltersTypeSet(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seedJob(t, repo, models.EmailJob{Type: enums.JobTypeLeadNoBooking1, ScheduledFor: now.Add(time.Hour)})
	seedJob(t, repo, models.EmailJob{Type: enums.JobTypeLeadNoBooking2, ScheduledFor: now.Add(time.Hour)})
	keep := seedJob(t, repo, models.EmailJob{Type: enums.JobTypePreClassReminder, ScheduledFor: now.Add(time.Hour)})

	count, err := repo.CancelPendingByTypes(ctx, "maya@example.com", enums.LeadNurtureJobTypes, "lead converted", now)
	if err != nil {
		t.Fatalf("cancel by types: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 canceled jobs, got %d", count)
	}

	due, err := repo.DueJobs(ctx, now.Add(2*time.Hour), 10, 10*time.Minute)
	if err != nil {
		t.Fatalf("due jobs: %v", err)
	}
	if len(due) != 1 || due[0].ID != keep.ID {
		t.Fatalf("expected only the reminder to remain due, got %d jobs", len(due))
	}

	reloaded, err := repo.GetByID(ctx, due[0].ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.CanceledAt != nil {
		t.Fatal("reminder must not be canceled")
	}
}

func TestRescheduleReleasesClaimAndPushesSchedule(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	job := seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-time.Minute)})

	if _, err := repo.Claim(ctx, job.ID, "worker-1", now, 10*time.Minute); err != nil {
		t.Fatalf("claim: %v", err)
	}

	nextRun := now.Add(10 * time.Minute)
	updated, err := repo.Reschedule(ctx, job.ID, "provider timeout", nextRun)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !updated {
		t.Fatal("expected reschedule to succeed")
	}

	reloaded, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", reloaded.Attempts)
	}
	if reloaded.ClaimedAt != nil || reloaded.ClaimedBy != nil {
		t.Fatal("expected claim to be released")
	}
	if reloaded.LastError == nil || *reloaded.LastError != "provider timeout" {
		t.Fatalf("unexpected last error %+v", reloaded.LastError)
	}
	if !reloaded.ScheduledFor.After(now) {
		t.Fatal("expected schedule to move into the future")
	}
}

func TestMarkFailedIsTerminal(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	job := seedJob(t, repo, models.EmailJob{ScheduledFor: now.Add(-time.Minute), Attempts: 4})

	updated, err := repo.MarkFailed(ctx, job.ID, "gave up", now)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !updated {
		t.Fatal("expected mark failed to succeed")
	}

	due, err := repo.DueJobs(ctx, now.Add(48*time.Hour), 10, 10*time.Minute)
	if err != nil {
		t.Fatalf("due jobs: %v", err)
	}
	if len(due) != 0 {
		t.Fatal("failed jobs must never become due")
	}
}

func TestCountSentSinceWindow(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	recent := now.Add(-time.Hour)
	old := now.Add(-8 * 24 * time.Hour)

	seedJob(t, repo, models.EmailJob{ScheduledFor: now, SentAt: &recent})
	seedJob(t, repo, models.EmailJob{ScheduledFor: now, SentAt: &old})
	seedJob(t, repo, models.EmailJob{ScheduledFor: now}) // pending

	count, err := repo.CountSentSince(ctx, "maya@example.com", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("count sent: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 sent job in window, got %d", count)
	}
}

func TestRebookNudgeExistsIgnoresCanceled(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	offeringID := uuid.New()

	exists, err := repo.RebookNudgeExists(ctx, "maya@example.com", offeringID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected no nudge yet")
	}

	job := seedJob(t, repo, models.EmailJob{Type: enums.JobTypeRebookNudge, OfferingID: &offeringID, ScheduledFor: now.Add(24 * time.Hour)})
	exists, err = repo.RebookNudgeExists(ctx, "maya@example.com", offeringID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected nudge to be found")
	}

	if _, err := repo.Cancel(ctx, job.ID, "unsubscribed", now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	exists, err = repo.RebookNudgeExists(ctx, "maya@example.com", offeringID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("canceled nudges must not block a fresh one")
	}
}

func TestDeleteTerminalOlderThanKeepsPendingRows(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	sentAt := now.Add(-100 * 24 * time.Hour)

	seedJob(t, repo, models.EmailJob{ScheduledFor: now, SentAt: &sentAt, CreatedAt: sentAt})
	pending := seedJob(t, repo, models.EmailJob{ScheduledFor: now, CreatedAt: sentAt})

	deleted, err := repo.DeleteTerminalOlderThan(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}

	reloaded, err := repo.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("reload pending: %v", err)
	}
	if reloaded == nil {
		t.Fatal("pending job must survive retention cleanup")
	}
}
