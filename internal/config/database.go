package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

type MongoDBClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDBClient connects, pings and registers a disconnect hook on lc.
func NewMongoDBClient(lc fx.Lifecycle, cfg *MongoDBConfig, logger *zap.Logger) (*MongoDBClient, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.Database))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing MongoDB connection")
			return client.Disconnect(ctx)
		},
	})

	db := client.Database(cfg.Database)
	return &MongoDBClient{Client: client, Database: db}, db, nil
}

func (c *MongoDBClient) GetCollection(name string) *mongo.Collection {
	return c.Database.Collection(name)
}

// IndexSpec names the indexes one collection needs.
type IndexSpec struct {
	Collection string
	Models     []mongo.IndexModel
}

// ServiceIndexes covers the read paths of the notification and audit stores.
func ServiceIndexes() []IndexSpec {
	return []IndexSpec{
		{
			Collection: "notifications",
			Models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "sentAt", Value: -1}}},
				{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}}},
				{Keys: bson.D{{Key: "course", Value: 1}, {Key: "academicYear", Value: 1}, {Key: "semester", Value: 1}}},
			},
		},
		{
			Collection: "auditlogs",
			Models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "timestamp", Value: -1}}},
				{Keys: bson.D{{Key: "action", Value: 1}, {Key: "timestamp", Value: -1}}},
			},
		},
	}
}

// EnsureIndexes creates any missing index. Existing indexes are left as they are.
func EnsureIndexes(ctx context.Context, db *mongo.Database, specs []IndexSpec, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	for _, spec := range specs {
		names, err := db.Collection(spec.Collection).Indexes().CreateMany(ctx, spec.Models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.Collection, err)
		}
		logger.Info("indexes ensured", zap.String("collection", spec.Collection), zap.Strings("indexes", names))
	}
	return nil
}

// RegisterIndexes runs EnsureIndexes when the application starts.
func RegisterIndexes(lc fx.Lifecycle, db *mongo.Database, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return EnsureIndexes(ctx, db, ServiceIndexes(), logger)
		},
	})
}
