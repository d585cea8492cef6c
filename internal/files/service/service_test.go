package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"vehicle_inspection_backend/internal/adapters/storage"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/files/repository"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type fakeRepo struct {
	mu        sync.Mutex
	files     map[uuid.UUID]repository.File
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{files: make(map[uuid.UUID]repository.File)}
}

func (f *fakeRepo) Create(_ context.Context, file *repository.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.ID] = *file
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, apperr.NotFound("file not found")
	}
	return &file, nil
}

func (f *fakeRepo) ListByOwner(_ context.Context, ownerRef uuid.UUID) ([]repository.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.File, 0)
	for _, file := range f.files {
		if file.OwnerRef == ownerRef {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return apperr.NotFound("file not found")
	}
	delete(f.files, id)
	return nil
}

func (f *fakeRepo) Stats(context.Context) (*repository.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repository.Stats{ByCategory: map[string]int{}}
	for _, file := range f.files {
		stats.TotalFiles++
		stats.TotalBytes += file.SizeBytes
		stats.ByCategory[file.Category]++
	}
	return stats, nil
}

type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploadErr  error
	presignErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) EnsureBucketExists(context.Context, string) error { return nil }

func (s *fakeStore) UploadFile(_ context.Context, bucket, key, _ string, r io.Reader, _ int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
	return nil
}

func (s *fakeStore) GenerateDownloadURL(_ context.Context, bucket, key, _ string) (*storage.PresignedURL, error) {
	if s.presignErr != nil {
		return nil, s.presignErr
	}
	return &storage.PresignedURL{URL: "https://files.test/" + bucket + "/" + key, FileKey: key}, nil
}

func (s *fakeStore) DeleteObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeOwners map[uuid.UUID]uuid.UUID

func (o fakeOwners) OwnerCustomer(_ context.Context, ref uuid.UUID) (uuid.UUID, error) {
	customer, ok := o[ref]
	if !ok {
		return uuid.Nil, apperr.NotFound("appointment not found")
	}
	return customer, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	store    *fakeStore
	bus      *recordingBus
	owners   fakeOwners
	customer authz.Actor
	other    authz.Actor
	tech     authz.Actor
	admin    authz.Actor
	apptID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newFakeRepo(),
		store:    newFakeStore(),
		bus:      &recordingBus{},
		customer: authz.Actor{ID: uuid.New(), Role: authz.RoleCustomer},
		other:    authz.Actor{ID: uuid.New(), Role: authz.RoleCustomer},
		tech:     authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician},
		admin:    authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin},
		apptID:   uuid.New(),
	}
	f.owners = fakeOwners{f.apptID: f.customer.ID}
	f.svc = New(f.repo, f.store, f.bus, logger.New("test"), Config{
		PhotoBucket:       "photos",
		CertificateBucket: "certs",
		MaxFileSize:       1024,
	})
	f.svc.SetOwnerResolver(f.owners)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) upload(t *testing.T, actor authz.Actor) *StoredFile {
	t.Helper()
	stored, err := f.svc.Store(context.Background(), actor, StoreInput{
		OwnerRef:  f.apptID,
		Category:  repository.CategoryInspection,
		PhotoType: "Damage",
		Filename:  "../front bumper.png",
		Data:      pngBytes,
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return stored
}

func TestStoreTechnicianPhoto(t *testing.T) {
	f := newFixture(t)
	stored := f.upload(t, f.tech)

	if stored.File.ContentType != "image/png" {
		t.Fatalf("expected image/png, got %s", stored.File.ContentType)
	}
	if stored.File.PhotoType == nil || *stored.File.PhotoType != repository.PhotoDamage {
		t.Fatalf("expected normalized photo type, got %v", stored.File.PhotoType)
	}
	if stored.File.OriginalFilename != "front bumper.png" {
		t.Fatalf("expected directory stripped from filename, got %q", stored.File.OriginalFilename)
	}
	want := "inspection/" + f.apptID.String() + "/" + stored.File.ID.String() + ".png"
	if stored.File.ObjectKey != want {
		t.Fatalf("expected key %s, got %s", want, stored.File.ObjectKey)
	}
	if stored.URL == "" {
		t.Fatal("expected a download url")
	}
	if f.store.count() != 1 {
		t.Fatalf("expected one stored object, got %d", f.store.count())
	}
	if len(f.bus.events) != 1 {
		t.Fatalf("expected FileStored event, got %d events", len(f.bus.events))
	}
	if _, ok := f.bus.events[0].(events.FileStored); !ok {
		t.Fatalf("expected FileStored, got %T", f.bus.events[0])
	}
}

func TestStoreRejectsOversizedAndNonImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Store(ctx, f.tech, StoreInput{OwnerRef: f.apptID, Data: bytes.Repeat([]byte{1}, 2048)})
	if !apperr.Is(err, apperr.KindPayloadTooLarge) {
		t.Fatalf("expected payload too large, got %v", err)
	}

	_, err = f.svc.Store(ctx, f.tech, StoreInput{OwnerRef: f.apptID, Data: []byte("%PDF-1.4 not an image")})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for pdf, got %v", err)
	}

	_, err = f.svc.Store(ctx, f.tech, StoreInput{OwnerRef: f.apptID})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty upload, got %v", err)
	}

	_, err = f.svc.Store(ctx, f.tech, StoreInput{OwnerRef: f.apptID, Category: "invoice", Data: pngBytes})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for category, got %v", err)
	}
	if f.store.count() != 0 {
		t.Fatalf("rejected uploads must not reach storage, got %d objects", f.store.count())
	}
}

func TestStoreCustomerOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, f.customer)

	_, err := f.svc.Store(ctx, f.other, StoreInput{OwnerRef: f.apptID, Data: pngBytes})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for another customer's appointment, got %v", err)
	}

	_, err = f.svc.Store(ctx, f.other, StoreInput{OwnerRef: uuid.New(), Data: pngBytes})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for unknown owner, got %v", err)
	}

	if _, err := f.svc.Store(ctx, f.other, StoreInput{OwnerRef: f.other.ID, Data: pngBytes}); err != nil {
		t.Fatalf("customer should attach general files to themselves: %v", err)
	}
}

func TestStoreRemovesObjectWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Store(context.Background(), f.tech, StoreInput{OwnerRef: f.apptID, Data: pngBytes})
	if err == nil {
		t.Fatal("expected error")
	}
	if f.store.count() != 0 {
		t.Fatalf("expected orphan object removed, got %d", f.store.count())
	}
	if len(f.bus.events) != 0 {
		t.Fatal("no event expected on failure")
	}
}

func TestStoreSurvivesPresignFailure(t *testing.T) {
	f := newFixture(t)
	f.store.presignErr = errors.New("presign unavailable")

	stored := f.upload(t, f.tech)
	if stored.URL != "" {
		t.Fatalf("expected empty url, got %s", stored.URL)
	}
}

func TestReadAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored := f.upload(t, f.tech)

	if _, err := f.svc.Get(ctx, f.customer, stored.File.ID); err != nil {
		t.Fatalf("owner should read: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.other, stored.File.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	list, err := f.svc.ListByOwner(ctx, f.customer, f.apptID)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one file, got %d (%v)", len(list), err)
	}
	if _, err := f.svc.ListByOwner(ctx, f.other, f.apptID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden list, got %v", err)
	}
	if _, err := f.svc.Get(ctx, f.tech, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteOnlyByUploaderOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored := f.upload(t, f.tech)

	if err := f.svc.Delete(ctx, f.customer, stored.File.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.admin, stored.File.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if f.store.count() != 0 {
		t.Fatal("expected object removed")
	}
	if _, ok := f.bus.events[len(f.bus.events)-1].(events.FileDeleted); !ok {
		t.Fatalf("expected FileDeleted, got %T", f.bus.events[len(f.bus.events)-1])
	}
	if err := f.svc.Delete(ctx, f.admin, stored.File.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestStatsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, f.tech)

	if _, err := f.svc.Stats(ctx, f.tech); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	stats, err := f.svc.Stats(ctx, f.admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalFiles != 1 || stats.ByCategory[repository.CategoryInspection] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestArchiveCertificate(t *testing.T) {
	f := newFixture(t)
	apptID := uuid.New()

	if err := f.svc.ArchiveCertificate(context.Background(), apptID, "CERT-2026-000001", []byte("%PDF-1.7")); err != nil {
		t.Fatalf("archive: %v", err)
	}
	key := "certs/certificates/" + apptID.String() + "/CERT-2026-000001.pdf"
	if _, ok := f.store.objects[key]; !ok {
		t.Fatalf("expected object %s, have %v", key, f.store.objects)
	}
}
