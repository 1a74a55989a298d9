package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"report-generator/internal/config"
	"report-generator/internal/logger"
	"report-generator/internal/models"
)

// MongoDBClient stores idempotency keys in a MongoDB collection. Expired
// documents are removed by a TTL index on expiresAt.
type MongoDBClient struct {
	client     *mongo.Client
	collection *mongo.Collection
	ttl        time.Duration
}

// buildMongoURI returns the connection URI and a variant safe to log
func buildMongoURI(cfg config.MongoDBConfig) (uri, logURI string) {
	if cfg.URI != "" {
		return cfg.URI, "(configured URI)"
	}
	authSource := cfg.AuthSource
	if authSource == "" {
		authSource = "admin"
	}
	if cfg.Username != "" && cfg.Password != "" {
		userInfo := url.UserPassword(cfg.Username, cfg.Password)
		uri = fmt.Sprintf("mongodb://%s@%s:%s/%s?authSource=%s",
			userInfo.String(), cfg.Host, cfg.Port, cfg.Database, url.QueryEscape(authSource))
		logURI = fmt.Sprintf("mongodb://%s:***@%s:%s/%s?authSource=%s",
			url.User(cfg.Username).String(), cfg.Host, cfg.Port, cfg.Database, url.QueryEscape(authSource))
		return uri, logURI
	}
	uri = fmt.Sprintf("mongodb://%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)
	return uri, uri
}

// NewMongoDBClient connects, pings and ensures the TTL index
func NewMongoDBClient(ctx context.Context, cfg config.MongoDBConfig, ttl time.Duration) (*MongoDBClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	uri, logURI := buildMongoURI(cfg)
	logger.Info("Attempting to connect to MongoDB", "uri", logURI)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB at %s: %w", logURI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB at %s: %w", logURI, err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		// Index might already exist with other options
		logger.Warn("MongoDB index creation", "error", err)
	}

	logger.Info("Connected to MongoDB idempotency store", "database", cfg.Database, "collection", cfg.Collection)
	return &MongoDBClient{client: client, collection: collection, ttl: ttl}, nil
}

// Close closes the MongoDB client connection
func (m *MongoDBClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoDBClient) Claim(ctx context.Context, key string) (*models.IdempotencyEntry, error) {
	for attempt := 0; attempt < 2; attempt++ {
		now := time.Now().UTC()
		_, err := m.collection.InsertOne(ctx, newEntry(key, now, m.ttl))
		if err == nil {
			return nil, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}

		var existing models.IdempotencyEntry
		err = m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&existing)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		if existing.ExpiresAt.After(now) {
			return &existing, nil
		}
		// The TTL monitor runs about once a minute; drop stale entries here.
		if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key, "expiresAt": existing.ExpiresAt}); err != nil {
			return nil, fmt.Errorf("failed to drop expired idempotency key: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to claim idempotency key %q after retry", key)
}

func (m *MongoDBClient) Complete(ctx context.Context, key string, status int, body []byte) error {
	update := bson.M{"$set": bson.M{
		"completed": true,
		"status":    status,
		"body":      body,
	}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": key}, update)
	if err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (m *MongoDBClient) Release(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
