package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
)

// Service appends audit entries and mirrors each one to the audit log stream.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger.Named("audit"), now: time.Now}
}

// Record assigns the entry its identity and timestamp, then appends it.
func (s *Service) Record(ctx context.Context, e *Entry) error {
	e.ID = primitive.NewObjectID()
	e.Timestamp = s.now().UTC()

	if err := s.store.Append(ctx, e); err != nil {
		return fmt.Errorf("%w: append audit entry: %w", apperr.ErrPersistence, err)
	}

	fields := []zap.Field{
		zap.String("auditId", e.ID.Hex()),
		zap.String("action", e.Action),
		zap.String("entityType", e.EntityType),
		zap.String("userId", e.UserID),
		zap.String("userRole", e.UserRole),
		zap.Any("details", e.Details),
	}
	if e.EntityID != nil {
		fields = append(fields, zap.String("entityId", e.EntityID.Hex()))
	}
	s.logger.Info("audit entry recorded", fields...)
	return nil
}

func (s *Service) List(ctx context.Context, q Query) ([]*Entry, error) {
	entries, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: list audit entries: %w", apperr.ErrPersistence, err)
	}
	return entries, nil
}
