package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	From        string
	EmailActive bool
}

func New(store StoreAPI, mailer Mailer, from string, emailActive bool) *Service {
	return &Service{store: store, Mailer: mailer, From: from, EmailActive: emailActive}
}

// Create stores an in-portal notification and, when email delivery is on,
// mirrors it to the user's inbox. Mail failures are logged and swallowed; the
// portal notification is the source of truth.
func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, userID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil || !s.EmailActive {
		return nil
	}
	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.From, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

// NotifyStaff addresses a staff member through their portal account. Staff
// without an account are skipped silently.
func (s *Service) NotifyStaff(ctx context.Context, staffID, ntype, title, body string) error {
	userID, err := s.store.UserIDForStaff(ctx, staffID)
	if err != nil {
		return err
	}
	if userID == "" {
		return nil
	}
	return s.Create(ctx, userID, ntype, title, body)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}
