package service

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/adapters/storage"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/files/repository"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultMaxFileSize = 10 << 20
	maxDescription     = 500
	certificateFolder  = "certificates"
	contentTypePDF     = "application/pdf"
)

// Config selects buckets and the upload limit.
type Config struct {
	PhotoBucket       string
	CertificateBucket string
	MaxFileSize       int64
}

// StoreInput describes one upload.
type StoreInput struct {
	OwnerRef    uuid.UUID
	Category    string
	PhotoType   string
	Filename    string
	Description string
	Data        []byte
}

// StoredFile is a file record with a short-lived download URL.
type StoredFile struct {
	File repository.File
	URL  string
}

// Service provides business logic for uploads
type Service struct {
	repo     repository.FileRepository
	store    storage.ObjectStore
	owners   OwnerResolver
	eventBus events.Bus
	log      *logger.Logger
	cfg      Config
	now      func() time.Time
}

// New creates a new files service
func New(repo repository.FileRepository, store storage.ObjectStore, eventBus events.Bus, log *logger.Logger, cfg Config) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	return &Service{
		repo:     repo,
		store:    store,
		eventBus: eventBus,
		log:      log,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetOwnerResolver injects the lookup that ties uploads to customers.
func (s *Service) SetOwnerResolver(r OwnerResolver) {
	s.owners = r
}

// MaxFileSize returns the upload limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// Store validates and persists an image upload.
func (s *Service) Store(ctx context.Context, actor authz.Actor, in StoreInput) (*StoredFile, error) {
	if err := authz.Authorize(authz.OpFileStore, actor); err != nil {
		return nil, err
	}
	if in.OwnerRef == uuid.Nil {
		return nil, apperr.Validation("ownerRef is required")
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = repository.CategoryGeneral
	}
	if !validCategory(category) {
		return nil, apperr.Validation("unknown file category").WithDetails(map[string]string{"category": in.Category})
	}
	var photoType *string
	if pt := strings.ToLower(strings.TrimSpace(in.PhotoType)); pt != "" {
		if !validPhotoType(pt) {
			return nil, apperr.Validation("unknown photo type").WithDetails(map[string]string{"photoType": in.PhotoType})
		}
		photoType = &pt
	}

	size := int64(len(in.Data))
	if size == 0 {
		return nil, apperr.Validation("file is empty")
	}
	if size > s.cfg.MaxFileSize {
		return nil, apperr.PayloadTooLarge("file exceeds the upload limit").
			WithDetails(map[string]int64{"maxBytes": s.cfg.MaxFileSize, "sizeBytes": size})
	}
	contentType, ok := storage.DetectImageType(in.Data)
	if !ok {
		return nil, apperr.Validation("only jpeg, png, gif and webp images are accepted").
			WithDetails(map[string][]string{"allowed": allowedTypes()})
	}

	if actor.Role == authz.RoleCustomer {
		if err := s.checkCustomerOwnsRef(ctx, actor, in.OwnerRef); err != nil {
			return nil, err
		}
	}

	file := repository.File{
		ID:               uuid.New(),
		OwnerRef:         in.OwnerRef,
		Category:         category,
		PhotoType:        photoType,
		OriginalFilename: storage.SafeFilename(in.Filename),
		ContentType:      contentType,
		SizeBytes:        size,
		UploadedBy:       actor.ID,
		Description:      trimmedOrNil(in.Description, maxDescription),
		UploadedAt:       s.now(),
	}
	file.ObjectKey = storage.ObjectKey(category+"/"+in.OwnerRef.String(), file.ID.String(), contentType)

	if err := s.store.UploadFile(ctx, s.cfg.PhotoBucket, file.ObjectKey, contentType, bytes.NewReader(in.Data), size); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store file", err)
	}
	if err := s.repo.Create(ctx, &file); err != nil {
		if delErr := s.store.DeleteObject(ctx, s.cfg.PhotoBucket, file.ObjectKey); delErr != nil {
			s.log.WithContext(ctx).SideEffectDropped("files.orphan_cleanup", delErr)
		}
		return nil, err
	}

	s.eventBus.Publish(ctx, events.FileStored{
		BaseEvent:  events.NewBaseEvent(),
		FileID:     file.ID,
		OwnerRef:   file.OwnerRef,
		Category:   file.Category,
		UploadedBy: file.UploadedBy,
		SizeBytes:  file.SizeBytes,
	})
	s.log.WithContext(ctx).Info("file stored", "fileId", file.ID, "ownerRef", file.OwnerRef, "sizeBytes", size)

	return &StoredFile{File: file, URL: s.downloadURL(ctx, file)}, nil
}

// Get returns one file with a download URL.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*StoredFile, error) {
	if err := authz.Authorize(authz.OpFileRead, actor); err != nil {
		return nil, err
	}
	file, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == authz.RoleCustomer && file.UploadedBy != actor.ID {
		if err := s.checkCustomerOwnsRef(ctx, actor, file.OwnerRef); err != nil {
			return nil, err
		}
	}
	return &StoredFile{File: *file, URL: s.downloadURL(ctx, *file)}, nil
}

// ListByOwner returns the uploads attached to an appointment or inspection.
func (s *Service) ListByOwner(ctx context.Context, actor authz.Actor, ownerRef uuid.UUID) ([]StoredFile, error) {
	if err := authz.Authorize(authz.OpFileRead, actor); err != nil {
		return nil, err
	}
	files, err := s.repo.ListByOwner(ctx, ownerRef)
	if err != nil {
		return nil, err
	}
	if actor.Role == authz.RoleCustomer && !(len(files) > 0 && allUploadedBy(files, actor.ID)) {
		if err := s.checkCustomerOwnsRef(ctx, actor, ownerRef); err != nil {
			return nil, err
		}
	}

	out := make([]StoredFile, 0, len(files))
	for _, f := range files {
		out = append(out, StoredFile{File: f, URL: s.downloadURL(ctx, f)})
	}
	return out, nil
}

// Delete removes an upload. Only the uploader or an administrator may delete.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(authz.OpFileDelete, actor); err != nil {
		return err
	}
	file, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if file.UploadedBy != actor.ID && !actor.IsAdmin() {
		return apperr.Forbidden("only the uploader or an administrator may delete this file")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteObject(ctx, s.cfg.PhotoBucket, file.ObjectKey); err != nil {
		s.log.WithContext(ctx).SideEffectDropped("files.object_delete", err)
	}

	s.eventBus.Publish(ctx, events.FileDeleted{
		BaseEvent: events.NewBaseEvent(),
		FileID:    id,
		ActorID:   actor.ID,
	})
	return nil
}

// Stats summarizes stored uploads for administrators.
func (s *Service) Stats(ctx context.Context, actor authz.Actor) (*repository.Stats, error) {
	if err := authz.Authorize(authz.OpFileStats, actor); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx)
}

// ArchiveCertificate keeps an issued certificate in the certificate bucket.
// The key is derived from the certificate number, so re-issuing overwrites.
func (s *Service) ArchiveCertificate(ctx context.Context, appointmentID uuid.UUID, number string, document []byte) error {
	key := certificateFolder + "/" + appointmentID.String() + "/" + storage.SafeFilename(number) + ".pdf"
	if err := s.store.UploadFile(ctx, s.cfg.CertificateBucket, key, contentTypePDF, bytes.NewReader(document), int64(len(document))); err != nil {
		return err
	}
	s.log.WithContext(ctx).Info("certificate archived", "appointmentId", appointmentID, "number", number)
	return nil
}

func (s *Service) checkCustomerOwnsRef(ctx context.Context, actor authz.Actor, ownerRef uuid.UUID) error {
	if ownerRef == actor.ID {
		return nil
	}
	if s.owners == nil {
		return apperr.Forbidden("file owner cannot be verified")
	}
	customerID, err := s.owners.OwnerCustomer(ctx, ownerRef)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Forbidden("file owner cannot be verified")
		}
		return err
	}
	if customerID != actor.ID {
		return apperr.Forbidden("files belong to another customer")
	}
	return nil
}

func (s *Service) downloadURL(ctx context.Context, f repository.File) string {
	presigned, err := s.store.GenerateDownloadURL(ctx, s.cfg.PhotoBucket, f.ObjectKey, f.OriginalFilename)
	if err != nil {
		s.log.WithContext(ctx).SideEffectDropped("files.presign", err)
		return ""
	}
	return presigned.URL
}

func validCategory(c string) bool {
	switch c {
	case repository.CategoryAppointment, repository.CategoryInspection, repository.CategoryGeneral:
		return true
	}
	return false
}

func validPhotoType(p string) bool {
	switch p {
	case repository.PhotoBefore, repository.PhotoAfter, repository.PhotoDamage, repository.PhotoDefect:
		return true
	}
	return false
}

func allowedTypes() []string {
	out := make([]string, 0, len(storage.AllowedImageTypes))
	for ct := range storage.AllowedImageTypes {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

func allUploadedBy(files []repository.File, userID uuid.UUID) bool {
	for _, f := range files {
		if f.UploadedBy != userID {
			return false
		}
	}
	return true
}

func trimmedOrNil(value string, max int) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if r := []rune(value); len(r) > max {
		value = string(r[:max])
	}
	return &value
}
