package worldsrc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
)

// MongoConfig contains connection settings for the MongoDB world source.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. anima
	Collection string // e.g. worlds
}

// MongoSource reads world documents from a MongoDB collection.
// The document's updatedAt field (unix ms) is the world version.
type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// NewMongoSource establishes connection and returns the source.
func NewMongoSource(cfg MongoConfig) (*MongoSource, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "anima"
	}
	if cfg.Collection == "" {
		cfg.Collection = "worlds"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &MongoSource{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}, nil
}

// LastModified implements Source using a projection on updatedAt only.
func (m *MongoSource) LastModified(ctx context.Context, worldID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc struct {
		UpdatedAt int64 `bson:"updatedAt"`
	}
	opts := options.FindOne().SetProjection(bson.M{"updatedAt": 1})
	err := m.collection.FindOne(ctx, bson.M{"_id": worldID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, ErrWorldNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("world %s: %w", worldID, err)
	}
	return doc.UpdatedAt, nil
}

// Load implements Source.
func (m *MongoSource) Load(ctx context.Context, worldID string) (*population.WorldConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc WorldDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": worldID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrWorldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", worldID, err)
	}
	return doc.ToConfig()
}

// Put upserts a world document and stamps updatedAt with the current time.
func (m *MongoSource) Put(ctx context.Context, doc *WorldDocument) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	doc.Version = time.Now().UnixMilli()
	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("world %s: %w", doc.ID, err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
