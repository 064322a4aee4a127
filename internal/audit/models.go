package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActionNotificationSent     = "notification_sent"
	ActionBulkNotificationSent = "bulk_notification_sent"

	EntityNotification = "notification"
)

// Entry is one immutable audit record.
type Entry struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Action       string              `bson:"action" json:"action"`
	EntityType   string              `bson:"entityType" json:"entityType"`
	EntityID     *primitive.ObjectID `bson:"entityId" json:"entityId"` // nil for bulk actions
	UserID       string              `bson:"userId" json:"userId"`
	UserRole     string              `bson:"userRole" json:"userRole"`
	Details      map[string]any      `bson:"details,omitempty" json:"details,omitempty"`
	NewValues    any                 `bson:"newValues,omitempty" json:"newValues,omitempty"`
	Course       string              `bson:"course,omitempty" json:"course,omitempty"`
	AcademicYear string              `bson:"academicYear,omitempty" json:"academicYear,omitempty"`
	Semester     int                 `bson:"semester,omitempty" json:"semester,omitempty"`
	Timestamp    time.Time           `bson:"timestamp" json:"timestamp"`
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Query narrows an audit listing. Bound from the query string.
type Query struct {
	Action       string `query:"action"`
	EntityType   string `query:"entityType"`
	UserID       string `query:"userId"`
	Course       string `query:"course"`
	AcademicYear string `query:"academicYear"`
	Semester     int    `query:"semester" validate:"omitempty,min=1,max=8"`
	Limit        int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

func (q Query) filter() bson.M {
	filter := bson.M{}
	if q.Action != "" {
		filter["action"] = q.Action
	}
	if q.EntityType != "" {
		filter["entityType"] = q.EntityType
	}
	if q.UserID != "" {
		filter["userId"] = q.UserID
	}
	if q.Course != "" {
		filter["course"] = q.Course
	}
	if q.AcademicYear != "" {
		filter["academicYear"] = q.AcademicYear
	}
	if q.Semester != 0 {
		filter["semester"] = q.Semester
	}
	return filter
}

func (q Query) limit() int64 {
	switch {
	case q.Limit <= 0:
		return DefaultListLimit
	case q.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return int64(q.Limit)
	}
}
