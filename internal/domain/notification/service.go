package notification

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"texpro/internal/pkg/clock"
)

// Service is the notification sink: it persists deliveries, applies per-user
// preferences and pushes live updates to connected clients.
type Service struct {
	repo  *Repository
	hub   *Hub
	clock clock.Clock
}

func NewService(repo *Repository, hub *Hub, clk clock.Clock) *Service {
	return &Service{repo: repo, hub: hub, clock: clk}
}

// Delivery is one candidate notification for one recipient.
type Delivery struct {
	UserID        int64
	Type          Type
	Priority      Priority
	Title         string
	Message       string
	RelatedEntity string
	RelatedID     int64
	Payload       map[string]any
}

// Deliver applies the recipient's preferences and stores the notification.
// Suppressed deliveries return (nil, nil).
func (s *Service) Deliver(ctx context.Context, d Delivery) (*Notification, error) {
	prefs, err := s.repo.GetPreferences(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !prefs.ShouldDeliver(d.Type, d.Priority, now) {
		return nil, nil
	}

	var raw json.RawMessage
	if len(d.Payload) > 0 {
		b, err := json.Marshal(d.Payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	n := &Notification{
		UserID:        d.UserID,
		Type:          d.Type,
		Priority:      d.Priority,
		Title:         d.Title,
		Message:       d.Message,
		RelatedEntity: d.RelatedEntity,
		RelatedID:     d.RelatedID,
		Data:          raw,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Push(n)
	}
	return n, nil
}

// DeliverAll fans one message out to several recipients. Failed recipients
// are logged and skipped; delivery is best-effort per recipient.
func (s *Service) DeliverAll(ctx context.Context, userIDs []int64, d Delivery) {
	for _, id := range userIDs {
		d.UserID = id
		if _, err := s.Deliver(ctx, d); err != nil {
			log.Printf("notification delivery failed user_id=%d type=%s: %v", id, d.Type, err)
		}
	}
}

func (s *Service) List(ctx context.Context, userID int64, limit, offset int) ([]Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	list, err := s.repo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		unread = 0
	}

	return list, unread, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID int64) error {
	return s.repo.MarkAsRead(ctx, notificationID, userID, s.clock.Now())
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID, s.clock.Now())
}

func (s *Service) GetPreferences(ctx context.Context, userID int64) (*UserPreferences, error) {
	return s.repo.GetPreferences(ctx, userID)
}

func (s *Service) UpdatePreferences(ctx context.Context, p *UserPreferences) error {
	if p.QuietHoursStart != nil && (*p.QuietHoursStart < 0 || *p.QuietHoursStart > 23) {
		return ErrInvalidQuietHours
	}
	if p.QuietHoursEnd != nil && (*p.QuietHoursEnd < 0 || *p.QuietHoursEnd > 23) {
		return ErrInvalidQuietHours
	}
	if (p.QuietHoursStart == nil) != (p.QuietHoursEnd == nil) {
		return ErrInvalidQuietHours
	}
	return s.repo.SavePreferences(ctx, p)
}

// CleanupOld removes read notifications older than the retention window.
func (s *Service) CleanupOld(ctx context.Context, retention time.Duration) (int64, error) {
	start := time.Now()
	deleted, err := s.repo.DeleteOlderThan(ctx, retention, s.clock.Now())
	if err != nil {
		log.Printf("notification cleanup failed: %v", err)
		return 0, err
	}
	log.Printf("notification cleanup deleted=%d took=%v", deleted, time.Since(start))
	return deleted, nil
}
