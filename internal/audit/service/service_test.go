package service

import (
	"context"
	"testing"
	"time"

	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	lastFilter repository.Filter
	cutoff     time.Time
	entries    []repository.Entry
}

func (f *fakeStore) List(_ context.Context, filter repository.Filter) ([]repository.Entry, int, error) {
	f.lastFilter = filter
	return f.entries, len(f.entries), nil
}

func (f *fakeStore) Stats(_ context.Context, recent int) (*repository.Stats, error) {
	return &repository.Stats{Total: len(f.entries), ByService: map[string]int{}}, nil
}

func (f *fakeStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

var (
	admin = authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin}
	tech  = authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician}
	now   = time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
)

func newTestService(store *fakeStore) *Service {
	svc := New(store, 30*24*time.Hour, logger.New("test"))
	svc.now = func() time.Time { return now }
	return svc
}

func TestListAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})
	if _, err := svc.List(context.Background(), tech, "", "", 0, 0); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Stats(context.Background(), tech); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden stats, got %v", err)
	}
}

func TestListNormalizesFilter(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	page, err := svc.List(context.Background(), admin, " payments ", "warning", -5, 10000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.lastFilter.Service != "payments" || store.lastFilter.Level != repository.LevelWarning {
		t.Fatalf("unexpected filter: %+v", store.lastFilter)
	}
	if page.Offset != 0 || page.Limit != maxPageSize {
		t.Fatalf("expected clamped paging, got offset=%d limit=%d", page.Offset, page.Limit)
	}

	if _, err := svc.List(context.Background(), admin, "", "LOUD", 0, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCleanupUsesDaysOrRetention(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	deleted, err := svc.Cleanup(context.Background(), admin, 7)
	if err != nil || deleted != 3 {
		t.Fatalf("cleanup: %d %v", deleted, err)
	}
	if !store.cutoff.Equal(now.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", store.cutoff)
	}

	if _, err := svc.PurgeExpired(context.Background()); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !store.cutoff.Equal(now.Add(-30 * 24 * time.Hour)) {
		t.Fatalf("expected retention cutoff, got %s", store.cutoff)
	}

	if _, err := svc.Cleanup(context.Background(), admin, -1); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Cleanup(context.Background(), tech, 7); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
