package contacts

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
)

type fakeRepository struct {
	getByEmailFn     func(ctx context.Context, email string) (*models.Contact, error)
	createFn         func(ctx context.Context, contact *models.Contact) error
	updateFn         func(ctx context.Context, contact *models.Contact) error
	setActiveFn      func(ctx context.Context, email string, active bool, now time.Time) (bool, error)
	setFreePassFn    func(ctx context.Context, email, token string, expiresAt, now time.Time) (bool, error)
	redeemFreePassFn func(ctx context.Context, email, token string, now time.Time) (bool, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, contact *models.Contact) error {
	if f.createFn != nil {
		return f.createFn(ctx, contact)
	}
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, contact *models.Contact) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, contact)
	}
	return nil
}

func (f *fakeRepository) GetByEmail(ctx context.Context, email string) (*models.Contact, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (f *fakeRepository) SetActive(ctx context.Context, email string, active bool, now time.Time) (bool, error) {
	if f.setActiveFn != nil {
		return f.setActiveFn(ctx, email, active, now)
	}
	return false, nil
}

func (f *fakeRepository) SetFreePass(ctx context.Context, email, token string, expiresAt, now time.Time) (bool, error) {
	if f.setFreePassFn != nil {
		return f.setFreePassFn(ctx, email, token, expiresAt, now)
	}
	return false, nil
}

func (f *fakeRepository) RedeemFreePass(ctx context.Context, email, token string, now time.Time) (bool, error) {
	if f.redeemFreePassFn != nil {
		return f.redeemFreePassFn(ctx, email, token, now)
	}
	return false, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Maya@Example.COM "); got != "maya@example.com" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func TestCaptureCreatesNewContact(t *testing.T) {
	var created *models.Contact
	repo := &fakeRepository{
		createFn: func(ctx context.Context, contact *models.Contact) error {
			created = contact
			return nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.Capture(context.Background(), CaptureParams{
		Email:     " Maya@Example.com ",
		FirstName: "Maya",
		Source:    "landing_page",
	})
	if err != nil {
		t.Fatalf("unexpected capture error: %v", err)
	}
	if !result.Created {
		t.Fatal("expected created flag")
	}
	if created == nil {
		t.Fatal("expected create call")
	}
	if created.Email != "maya@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.FirstName == nil || *created.FirstName != "Maya" {
		t.Fatalf("unexpected first name %+v", created.FirstName)
	}
	if !created.IsActive {
		t.Fatal("new contacts start active")
	}
}

func TestCaptureRefreshesExistingWithoutReactivating(t *testing.T) {
	existing := &models.Contact{Email: "maya@example.com", IsActive: false}
	var updated *models.Contact
	repo := &fakeRepository{
		getByEmailFn: func(ctx context.Context, email string) (*models.Contact, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, contact *models.Contact) error {
			updated = contact
			return nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.Capture(context.Background(), CaptureParams{Email: "maya@example.com", FirstName: "Maya"})
	if err != nil {
		t.Fatalf("unexpected capture error: %v", err)
	}
	if result.Created {
		t.Fatal("expected existing contact")
	}
	if updated == nil {
		t.Fatal("expected update call")
	}
	if updated.IsActive {
		t.Fatal("capture must not reactivate an unsubscribed contact")
	}
	if updated.LastSeenAt.IsZero() {
		t.Fatal("expected last seen to be refreshed")
	}
}

func TestCaptureRequiresEmail(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	if _, err := svc.Capture(context.Background(), CaptureParams{Email: "   "}); err == nil {
		t.Fatal("expected validation error")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnsubscribeNotFound(t *testing.T) {
	repo := &fakeRepository{
		setActiveFn: func(ctx context.Context, email string, active bool, now time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := newServiceWithRepo(repo)
	err := svc.Unsubscribe(context.Background(), "nobody@example.com")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResubscribeSetsActive(t *testing.T) {
	var gotActive bool
	repo := &fakeRepository{
		setActiveFn: func(ctx context.Context, email string, active bool, now time.Time) (bool, error) {
			gotActive = active
			return true, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.Resubscribe(context.Background(), "maya@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotActive {
		t.Fatal("expected active=true")
	}
}

func TestIssueFreePassReturnsToken(t *testing.T) {
	repo := &fakeRepository{
		setFreePassFn: func(ctx context.Context, email, token string, expiresAt, now time.Time) (bool, error) {
			if token == "" {
				t.Fatal("expected generated token")
			}
			if !expiresAt.After(now) {
				t.Fatal("expected future expiry")
			}
			return true, nil
		},
	}
	svc := newServiceWithRepo(repo)
	token, err := svc.IssueFreePass(context.Background(), "maya@example.com", 72*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected token")
	}
}

func TestRedeemFreePassConflictWhenUsed(t *testing.T) {
	repo := &fakeRepository{
		redeemFreePassFn: func(ctx context.Context, email, token string, now time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := newServiceWithRepo(repo)
	err := svc.RedeemFreePass(context.Background(), "maya@example.com", "tok")
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
