package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"CampusNotify/internal/recipient"
)

type Status string

const (
	StatusSent Status = "sent"
	StatusRead Status = "read"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// RelatedEntity loosely points at whatever triggered the notification.
type RelatedEntity struct {
	Type string `bson:"type" json:"type" validate:"required"`
	ID   string `bson:"id" json:"id" validate:"required"`
}

// Notification is a message addressed to exactly one recipient.
// ReadAt is set iff Status is read; SentAt and RecipientID never change.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID   string             `bson:"recipientId" json:"recipientId"`
	RecipientRole recipient.Role     `bson:"recipientRole" json:"recipientRole"`
	Type          string             `bson:"type" json:"type"`
	Title         string             `bson:"title" json:"title"`
	Message       string             `bson:"message" json:"message"`
	Priority      Priority           `bson:"priority" json:"priority"`
	Status        Status             `bson:"status" json:"status"`
	SentAt        time.Time          `bson:"sentAt" json:"sentAt"`
	ReadAt        *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
	ExpiresAt     *time.Time         `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	RelatedEntity *RelatedEntity     `bson:"relatedEntity,omitempty" json:"relatedEntity,omitempty"`
	Course        string             `bson:"course,omitempty" json:"course,omitempty"`
	AcademicYear  string             `bson:"academicYear,omitempty" json:"academicYear,omitempty"`
	Semester      int                `bson:"semester,omitempty" json:"semester,omitempty"`
	Metadata      map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// ActiveAt reports whether n is still visible in its recipient's own feed at t.
func (n *Notification) ActiveAt(t time.Time) bool {
	return n.ExpiresAt == nil || n.ExpiresAt.After(t)
}

// SendRequest is the payload of a single dispatch.
type SendRequest struct {
	RecipientID   string         `json:"recipientId" validate:"required"`
	RecipientRole string         `json:"recipientRole" validate:"required"`
	Type          string         `json:"type" validate:"required"`
	Title         string         `json:"title" validate:"required"`
	Message       string         `json:"message" validate:"required"`
	Priority      Priority       `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	RelatedEntity *RelatedEntity `json:"relatedEntity"`
	Course        string         `json:"course"`
	AcademicYear  string         `json:"academicYear"`
	Semester      int            `json:"semester" validate:"omitempty,min=1,max=8"`
	Metadata      map[string]any `json:"metadata"`
	ExpiresAt     *time.Time     `json:"expiresAt"`
}

// BulkRequest addresses every member of a cohort. Course names the department
// that narrows student, staff and faculty cohorts; Department is only
// consulted when Course is empty.
type BulkRequest struct {
	RecipientRole string     `json:"recipientRole" validate:"required"`
	Type          string     `json:"type" validate:"required"`
	Title         string     `json:"title" validate:"required"`
	Message       string     `json:"message" validate:"required"`
	Priority      Priority   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Department    string     `json:"department"`
	Course        string     `json:"course"`
	AcademicYear  string     `json:"academicYear"`
	Semester      int        `json:"semester" validate:"omitempty,min=1,max=8"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

func (r BulkRequest) filters() recipient.Filters {
	department := r.Course
	if department == "" {
		department = r.Department
	}
	return recipient.Filters{
		Department:   department,
		AcademicYear: r.AcademicYear,
		Semester:     r.Semester,
	}
}

// ListFilter holds the optional equality filters of the admin listing.
type ListFilter struct {
	Type         string `query:"type"`
	Status       Status `query:"status" validate:"omitempty,oneof=sent read"`
	Course       string `query:"course"`
	AcademicYear string `query:"academicYear"`
	Semester     int    `query:"semester" validate:"omitempty,min=1,max=8"`
}

func (f ListFilter) toBSON() bson.M {
	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Course != "" {
		filter["course"] = f.Course
	}
	if f.AcademicYear != "" {
		filter["academicYear"] = f.AcademicYear
	}
	if f.Semester != 0 {
		filter["semester"] = f.Semester
	}
	return filter
}

type StatusCount struct {
	Status Status `json:"status"`
	Count  int64  `json:"count"`
}

// TypeStats is the per-type breakdown returned by the statistics endpoint.
type TypeStats struct {
	Type     string        `json:"type"`
	Statuses []StatusCount `json:"statuses"`
}

// CountRow is one {type, status} group as produced by the store.
type CountRow struct {
	Type   string `bson:"type"`
	Status Status `bson:"status"`
	Count  int64  `bson:"count"`
}
