package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/validation"
)

// Service covers everything after dispatch: listing, reading, deleting, stats.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger.Named("lifecycle"), now: time.Now}
}

// ListMine returns the caller's notifications that have not expired.
func (s *Service) ListMine(ctx context.Context, actor auth.Identity) ([]*Notification, error) {
	now := s.now().UTC()
	ns, err := s.store.FindByRecipient(ctx, actor.UserID, &now)
	return ns, storeErr(err)
}

// ListForUser returns every notification of userID, expired ones included.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Notification, error) {
	ns, err := s.store.FindByRecipient(ctx, userID, nil)
	return ns, storeErr(err)
}

func (s *Service) ListAll(ctx context.Context, f ListFilter) ([]*Notification, error) {
	if err := validation.Struct(f); err != nil {
		return nil, err
	}
	ns, err := s.store.Find(ctx, f)
	return ns, storeErr(err)
}

// MarkRead moves the notification to read. Re-marking refreshes readAt.
func (s *Service) MarkRead(ctx context.Context, actor auth.Identity, id string) (*Notification, error) {
	if err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	n, err := s.store.MarkRead(ctx, id, s.now().UTC())
	if err != nil {
		return nil, storeErr(err)
	}
	s.logger.Debug("notification marked read", zap.String("notificationId", id), zap.String("userId", actor.UserID))
	return n, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	s.logger.Info("notification deleted", zap.String("notificationId", id), zap.String("userId", actor.UserID))
	return nil
}

// Stats counts notifications per type, broken down by status.
func (s *Service) Stats(ctx context.Context) ([]TypeStats, error) {
	rows, err := s.store.CountByTypeAndStatus(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return regroupStats(rows), nil
}

// authorize lets admins act on any notification and everyone else only on
// their own.
func (s *Service) authorize(ctx context.Context, actor auth.Identity, id string) error {
	n, err := s.store.FindByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if !actor.IsAdmin() && n.RecipientID != actor.UserID {
		return apperr.ErrForbidden
	}
	return nil
}

// regroupStats folds flat {type, status, count} rows into one entry per type,
// keeping the order in which types and statuses first appear.
func regroupStats(rows []CountRow) []TypeStats {
	stats := []TypeStats{}
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.Type]
		if !ok {
			i = len(stats)
			index[row.Type] = i
			stats = append(stats, TypeStats{Type: row.Type})
		}
		stats[i].Statuses = append(stats[i].Statuses, StatusCount{Status: row.Status, Count: row.Count})
	}
	return stats
}

func storeErr(err error) error {
	if err == nil || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
}
