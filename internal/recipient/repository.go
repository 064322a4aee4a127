package recipient

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CollectionFinder reads identifiers out of a user collection.
type CollectionFinder struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewCollectionFinder(collection *mongo.Collection, logger *zap.Logger) *CollectionFinder {
	return &CollectionFinder{
		collection: collection,
		logger:     logger.Named("recipient").With(zap.String("collection", collection.Name())),
	}
}

// FindIDs projects only _id and renders ObjectIDs as hex. Documents whose
// _id is neither an ObjectID nor a string cannot be addressed and are skipped
// with a warning.
func (f *CollectionFinder) FindIDs(ctx context.Context, filter bson.M) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := f.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := []string{}
	skipped := 0
	for cursor.Next(ctx) {
		raw := cursor.Current.Lookup("_id")
		id, ok := idString(raw)
		if !ok {
			skipped++
			f.logger.Warn("skipping recipient with unsupported _id type",
				zap.Stringer("bsonType", raw.Type),
				zap.String("value", raw.String()),
			)
			continue
		}
		ids = append(ids, id)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		f.logger.Warn("cohort resolved with unaddressable documents",
			zap.Int("resolved", len(ids)),
			zap.Int("skipped", skipped),
		)
	}
	return ids, nil
}

func idString(v bson.RawValue) (string, bool) {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex(), true
	}
	if s, ok := v.StringValueOK(); ok {
		return s, true
	}
	return "", false
}
