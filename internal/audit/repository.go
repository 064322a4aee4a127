package audit

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "auditlogs"

// Store is append-only: entries are never updated or removed.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	Find(ctx context.Context, q Query) ([]*Entry, error)
}

// Repository persists audit entries in MongoDB.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(CollectionName)}
}

func (r *Repository) Append(ctx context.Context, e *Entry) error {
	_, err := r.collection.InsertOne(ctx, e)
	return err
}

// Find returns matching entries, newest first.
func (r *Repository) Find(ctx context.Context, q Query) ([]*Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(q.limit())
	cursor, err := r.collection.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, err
	}
	entries := []*Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
