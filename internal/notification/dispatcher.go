package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/audit"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/recipient"
	"CampusNotify/internal/validation"
)

// AuditRecorder appends one audit entry.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry) error
}

// RecipientResolver expands a cohort into recipient identifiers.
type RecipientResolver interface {
	Resolve(ctx context.Context, role recipient.Role, f recipient.Filters) ([]string, error)
}

// Dispatcher creates notifications and records exactly one audit entry per
// successful call.
//
// The notification write and the audit append are two separate steps with no
// rollback. If the audit append fails after notifications were stored, the
// call reports ErrPersistence and the orphaned notifications are logged.
type Dispatcher struct {
	store    Store
	audit    AuditRecorder
	resolver RecipientResolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewDispatcher(store Store, recorder AuditRecorder, resolver RecipientResolver, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		audit:    recorder,
		resolver: resolver,
		logger:   logger.Named("dispatch"),
		now:      time.Now,
	}
}

// Send persists one notification for req.RecipientID and audits it.
func (d *Dispatcher) Send(ctx context.Context, actor auth.Identity, req SendRequest) (*Notification, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	role, err := recipient.ParseRole(req.RecipientRole)
	if err != nil {
		return nil, err
	}

	n := &Notification{
		RecipientID:   req.RecipientID,
		RecipientRole: role,
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
		Priority:      priorityOrDefault(req.Priority),
		Status:        StatusSent,
		SentAt:        d.now().UTC(),
		ExpiresAt:     req.ExpiresAt,
		RelatedEntity: req.RelatedEntity,
		Course:        req.Course,
		AcademicYear:  req.AcademicYear,
		Semester:      req.Semester,
		Metadata:      req.Metadata,
	}
	if err := d.store.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("%w: insert notification: %w", apperr.ErrPersistence, err)
	}

	entityID := n.ID
	entry := &audit.Entry{
		Action:     audit.ActionNotificationSent,
		EntityType: audit.EntityNotification,
		EntityID:   &entityID,
		UserID:     actor.UserID,
		UserRole:   actor.Role.String(),
		Details: map[string]any{
			"type":        n.Type,
			"recipientId": n.RecipientID,
		},
		NewValues:    n,
		Course:       n.Course,
		AcademicYear: n.AcademicYear,
		Semester:     n.Semester,
	}
	if err := d.audit.Record(ctx, entry); err != nil {
		d.logger.Error("notification stored without audit entry",
			zap.String("notificationId", n.ID.Hex()),
			zap.String("userId", actor.UserID),
			zap.Error(err),
		)
		return nil, asPersistence(err)
	}

	d.logger.Info("notification sent",
		zap.String("notificationId", n.ID.Hex()),
		zap.String("recipientId", n.RecipientID),
		zap.String("type", n.Type),
	)
	return n, nil
}

// BulkResult reports how many recipients a cohort resolved to and how many
// notifications were stored for them.
type BulkResult struct {
	Resolved int
	Inserted int
}

// SendBulk sends identical content to every member of the requested cohort.
func (d *Dispatcher) SendBulk(ctx context.Context, actor auth.Identity, req BulkRequest) (BulkResult, error) {
	if err := validation.Struct(req); err != nil {
		return BulkResult{}, err
	}
	role, err := recipient.ParseRole(req.RecipientRole)
	if err != nil {
		return BulkResult{}, err
	}

	ids, err := d.resolver.Resolve(ctx, role, req.filters())
	if err != nil {
		return BulkResult{}, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}
	if len(ids) == 0 {
		return BulkResult{}, apperr.ErrNoRecipientsFound
	}

	sentAt := d.now().UTC()
	priority := priorityOrDefault(req.Priority)
	batch := make([]*Notification, len(ids))
	for i, id := range ids {
		batch[i] = &Notification{
			RecipientID:   id,
			RecipientRole: role,
			Type:          req.Type,
			Title:         req.Title,
			Message:       req.Message,
			Priority:      priority,
			Status:        StatusSent,
			SentAt:        sentAt,
			ExpiresAt:     req.ExpiresAt,
			Course:        req.Course,
			AcademicYear:  req.AcademicYear,
			Semester:      req.Semester,
		}
	}

	inserted, insertErr := d.store.InsertMany(ctx, batch)
	if insertErr != nil {
		if inserted == 0 {
			return BulkResult{}, fmt.Errorf("%w: insert notifications: %w", apperr.ErrPersistence, insertErr)
		}
		d.logger.Warn("bulk send partially stored",
			zap.Int("requested", len(ids)),
			zap.Int("inserted", inserted),
			zap.Error(insertErr),
		)
	}

	entry := &audit.Entry{
		Action:     audit.ActionBulkNotificationSent,
		EntityType: audit.EntityNotification,
		UserID:     actor.UserID,
		UserRole:   actor.Role.String(),
		Details: map[string]any{
			"type":     req.Type,
			"count":    len(ids),
			"inserted": inserted,
		},
		NewValues: map[string]any{
			"recipientIds": ids,
			"type":         req.Type,
			"title":        req.Title,
		},
		Course:       req.Course,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
	}
	if err := d.audit.Record(ctx, entry); err != nil {
		d.logger.Error("bulk notifications stored without audit entry",
			zap.String("recipientRole", role.String()),
			zap.Int("inserted", inserted),
			zap.String("userId", actor.UserID),
			zap.Error(err),
		)
		return BulkResult{}, asPersistence(err)
	}

	d.logger.Info("bulk notification sent",
		zap.String("recipientRole", role.String()),
		zap.String("type", req.Type),
		zap.Int("count", len(ids)),
		zap.Int("inserted", inserted),
	)
	return BulkResult{Resolved: len(ids), Inserted: inserted}, nil
}

func priorityOrDefault(p Priority) Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

func asPersistence(err error) error {
	if errors.Is(err, apperr.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
}
