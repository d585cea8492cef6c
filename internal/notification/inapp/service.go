package inapp

import (
	"context"

	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/notification/sse"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Store is the persistence the inbox needs.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
}

var _ Store = (*Repository)(nil)

type Service struct {
	repo Store
	sse  *sse.Service
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// SetSSE injects the live stream used to push new inbox entries.
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

// Store persists a notification and pushes it to connected clients of the user.
func (s *Service) Store(ctx context.Context, p CreateParams) (Notification, error) {
	notif, err := s.repo.Create(ctx, p)
	if err != nil {
		s.log.WithContext(ctx).Error("failed to persist notification", "error", err, "userId", p.UserID)
		return Notification{}, err
	}

	if s.sse != nil {
		s.sse.Publish(p.UserID, sse.Event{
			Type: sse.EventNotification,
			Data: notif,
		})
	}
	return notif, nil
}

// Page is one page of a user's inbox.
type Page struct {
	Items    []Notification
	Total    int
	Unread   int
	Page     int
	PageSize int
}

func (s *Service) List(ctx context.Context, actor authz.Actor, unreadOnly bool, page, pageSize int) (Page, error) {
	if err := authz.Authorize(authz.OpNotificationInbox, actor); err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, actor.ID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page{}, err
	}
	unread, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Unread: unread, Page: page, PageSize: pageSize}, nil
}

func (s *Service) MarkRead(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(authz.OpNotificationInbox, actor); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, actor.ID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, actor authz.Actor) (int64, error) {
	if err := authz.Authorize(authz.OpNotificationInbox, actor); err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, actor.ID)
}

func (s *Service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(authz.OpNotificationInbox, actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, actor.ID, id)
}
