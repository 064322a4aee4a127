package recipient

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
)

// Collections holding each user category.
const (
	StudentCollection = "students"
	FacultyCollection = "faculties"
	AdminCollection   = "admins"
)

const staffDesignation = "staff"

// Filters narrows a cohort. Zero values are not applied.
type Filters struct {
	Department   string
	AcademicYear string
	Semester     int
}

// IDFinder returns the identifiers of the documents matching filter.
type IDFinder interface {
	FindIDs(ctx context.Context, filter bson.M) ([]string, error)
}

// CategoryResolver resolves the members of one user category.
type CategoryResolver interface {
	ResolveByFilters(ctx context.Context, f Filters) ([]string, error)
}

type studentResolver struct{ finder IDFinder }

func studentFilter(f Filters) bson.M {
	filter := bson.M{}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	if f.AcademicYear != "" {
		filter["year"] = f.AcademicYear
	}
	if f.Semester != 0 {
		filter["semester"] = f.Semester
	}
	return filter
}

func (r studentResolver) ResolveByFilters(ctx context.Context, f Filters) ([]string, error) {
	return r.finder.FindIDs(ctx, studentFilter(f))
}

type staffResolver struct{ finder IDFinder }

func staffFilter(f Filters) bson.M {
	filter := bson.M{"designation": staffDesignation}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	return filter
}

func (r staffResolver) ResolveByFilters(ctx context.Context, f Filters) ([]string, error) {
	return r.finder.FindIDs(ctx, staffFilter(f))
}

type facultyResolver struct{ finder IDFinder }

func facultyFilter(f Filters) bson.M {
	filter := bson.M{"designation": bson.M{"$ne": staffDesignation}}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	return filter
}

func (r facultyResolver) ResolveByFilters(ctx context.Context, f Filters) ([]string, error) {
	return r.finder.FindIDs(ctx, facultyFilter(f))
}

// Admins are never filtered.
type adminResolver struct{ finder IDFinder }

func (r adminResolver) ResolveByFilters(ctx context.Context, _ Filters) ([]string, error) {
	return r.finder.FindIDs(ctx, bson.M{})
}

// Registry maps every Role to the resolver for its category.
type Registry struct {
	resolvers map[Role]CategoryResolver
}

// NewRegistry builds a registry from one finder per collection.
func NewRegistry(students, faculties, admins IDFinder) *Registry {
	return &Registry{resolvers: map[Role]CategoryResolver{
		RoleStudent: studentResolver{finder: students},
		RoleStaff:   staffResolver{finder: faculties},
		RoleFaculty: facultyResolver{finder: faculties},
		RoleAdmin:   adminResolver{finder: admins},
	}}
}

// NewMongoRegistry wires the registry to the user directory collections.
func NewMongoRegistry(db *mongo.Database, logger *zap.Logger) *Registry {
	return NewRegistry(
		NewCollectionFinder(db.Collection(StudentCollection), logger),
		NewCollectionFinder(db.Collection(FacultyCollection), logger),
		NewCollectionFinder(db.Collection(AdminCollection), logger),
	)
}

// Resolve returns the recipient identifiers for role narrowed by f.
// An empty result is not an error.
func (r *Registry) Resolve(ctx context.Context, role Role, f Filters) ([]string, error) {
	resolver, ok := r.resolvers[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrInvalidRole, role)
	}
	ids, err := resolver.ResolveByFilters(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("resolve %s recipients: %w", role, err)
	}
	return ids, nil
}
