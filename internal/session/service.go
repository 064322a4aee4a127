package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"CampusNotify/internal/apperr"
)

const CollectionName = "academicsessions"

// readTimeout bounds a shared registry read, which outlives any single caller.
const readTimeout = 10 * time.Second

// Semester bounds offered as filter values.
const (
	FirstSemester = 1
	LastSemester  = 8
)

// Registry supplies the raw session identifiers on record, e.g. "2024-25-BA".
type Registry interface {
	SessionIDs(ctx context.Context) ([]string, error)
}

// MongoRegistry reads session identifiers from the academic session collection.
type MongoRegistry struct {
	collection *mongo.Collection
}

func NewMongoRegistry(db *mongo.Database) *MongoRegistry {
	return &MongoRegistry{collection: db.Collection(CollectionName)}
}

func (r *MongoRegistry) SessionIDs(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "sessionId", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// ParseAcademicYear turns "2024-25-BA" into "2024-2025". Identifiers with
// fewer than two segments are returned unchanged.
func ParseAcademicYear(sessionID string) string {
	parts := strings.Split(sessionID, "-")
	if len(parts) < 2 {
		return sessionID
	}
	return parts[0] + "-20" + parts[1]
}

// AcademicYears maps every identifier to its year, dropping repeats and
// keeping first-seen order.
func AcademicYears(sessionIDs []string) []string {
	seen := make(map[string]struct{}, len(sessionIDs))
	years := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		year := ParseAcademicYear(id)
		if _, dup := seen[year]; dup {
			continue
		}
		seen[year] = struct{}{}
		years = append(years, year)
	}
	return years
}

func Semesters() []int {
	s := make([]int, 0, LastSemester-FirstSemester+1)
	for i := FirstSemester; i <= LastSemester; i++ {
		s = append(s, i)
	}
	return s
}

// FilterOptions is the set of values a client may offer for term filtering.
type FilterOptions struct {
	AcademicYears []string `json:"academicYears"`
	Semesters     []int    `json:"semesters"`
}

// Service derives filter options. Concurrent callers share one registry read.
type Service struct {
	registry Registry
	group    singleflight.Group
	logger   *zap.Logger
}

func NewService(registry Registry, logger *zap.Logger) *Service {
	return &Service{registry: registry, logger: logger.Named("session")}
}

// FilterOptions returns the academic years on record and the semester range.
// The registry read runs detached from ctx so that one caller giving up does
// not fail the others waiting on the same read.
func (s *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	ch := s.group.DoChan("academic-years", func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readTimeout)
		defer cancel()
		ids, err := s.registry.SessionIDs(readCtx)
		if err != nil {
			return nil, err
		}
		return AcademicYears(ids), nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return FilterOptions{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		s.logger.Error("failed to read academic sessions", zap.Error(res.Err))
		return FilterOptions{}, fmt.Errorf("%w: read academic sessions: %w", apperr.ErrPersistence, res.Err)
	}
	if res.Shared {
		s.logger.Debug("academic session read shared with concurrent caller")
	}

	years := res.Val.([]string)
	return FilterOptions{
		AcademicYears: append([]string(nil), years...),
		Semesters:     Semesters(),
	}, nil
}
