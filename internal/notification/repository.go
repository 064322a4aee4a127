package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"

	"CampusNotify/internal/apperr"
)

const CollectionName = "notifications"

// Store is the persistence boundary of the notification lifecycle.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	// InsertMany attempts every document and reports how many were stored.
	// A non-nil error alongside a positive count describes a partial batch.
	InsertMany(ctx context.Context, ns []*Notification) (int, error)
	FindByID(ctx context.Context, id string) (*Notification, error)
	// FindByRecipient lists a recipient's notifications, newest first. When
	// activeAt is set, notifications expired at that instant are skipped.
	FindByRecipient(ctx context.Context, recipientID string, activeAt *time.Time) ([]*Notification, error)
	Find(ctx context.Context, f ListFilter) ([]*Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) (*Notification, error)
	Delete(ctx context.Context, id string) error
	CountByTypeAndStatus(ctx context.Context) ([]CountRow, error)
}

// Repository is the MongoDB-backed Store.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(CollectionName)}
}

var newestFirst = bson.D{{Key: "sentAt", Value: -1}}

func (r *Repository) Insert(ctx context.Context, n *Notification) error {
	res, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid
	}
	return nil
}

// InsertMany writes the batch unordered so one bad document does not stop the rest.
func (r *Repository) InsertMany(ctx context.Context, ns []*Notification) (int, error) {
	docs := make([]interface{}, len(ns))
	for i, n := range ns {
		docs[i] = n
	}

	res, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(res.InsertedIDs), nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		var combined error
		for _, we := range bulkErr.WriteErrors {
			combined = multierr.Append(combined, fmt.Errorf("document %d: %s", we.Index, we.Message))
		}
		if bulkErr.WriteConcernError != nil {
			combined = multierr.Append(combined, fmt.Errorf("write concern: %s", bulkErr.WriteConcernError.Message))
		}
		inserted := len(ns) - len(bulkErr.WriteErrors)
		if inserted < 0 {
			inserted = 0
		}
		return inserted, combined
	}
	return 0, err
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	var n Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func recipientFilter(recipientID string, activeAt *time.Time) bson.M {
	filter := bson.M{"recipientId": recipientID}
	if activeAt != nil {
		filter["$or"] = bson.A{
			bson.M{"expiresAt": bson.M{"$exists": false}},
			bson.M{"expiresAt": nil},
			bson.M{"expiresAt": bson.M{"$gt": *activeAt}},
		}
	}
	return filter
}

func (r *Repository) FindByRecipient(ctx context.Context, recipientID string, activeAt *time.Time) ([]*Notification, error) {
	return r.find(ctx, recipientFilter(recipientID, activeAt))
}

func (r *Repository) Find(ctx context.Context, f ListFilter) ([]*Notification, error) {
	return r.find(ctx, f.toBSON())
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]*Notification, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	notifications := []*Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead sets status=read and refreshes readAt, returning the updated record.
func (r *Repository) MarkRead(ctx context.Context, id string, at time.Time) (*Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	update := bson.M{"$set": bson.M{"status": StatusRead, "readAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n Notification
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.ErrNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func statsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "type", Value: "$type"}, {Key: "status", Value: "$status"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "type", Value: "$_id.type"},
			{Key: "status", Value: "$_id.status"},
			{Key: "count", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "type", Value: 1}, {Key: "count", Value: -1}, {Key: "status", Value: 1}}}},
	}
}

func (r *Repository) CountByTypeAndStatus(ctx context.Context) ([]CountRow, error) {
	cursor, err := r.collection.Aggregate(ctx, statsPipeline())
	if err != nil {
		return nil, err
	}
	var rows []CountRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
