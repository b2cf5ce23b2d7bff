package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/domain/repositories"
)

const filesCollection = "files"

// MongoCatalog persists uploaded-file records in MongoDB so the chat
// CLI can list the documents a workspace has ingested.
type MongoCatalog struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.FileCatalog = (*MongoCatalog)(nil)

// NewMongoCatalog connects to MongoDB using MONGODB_URI and
// MONGODB_DATABASE, with development defaults when unset.
func NewMongoCatalog(ctx context.Context, logger *zap.Logger) (*MongoCatalog, error) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "clausechain"
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(dbName).Collection(filesCollection)

	// Index on uploaded_at so List can return newest-first efficiently.
	go func() {
		indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelIndex()

		_, err := collection.Indexes().CreateOne(indexCtx, mongo.IndexModel{
			Keys: bson.D{{Key: "uploaded_at", Value: -1}},
		})
		if err != nil {
			logger.Error("failed to create file catalog index", zap.Error(err))
		}
	}()

	logger.Info("connected to MongoDB file catalog",
		zap.String("database", dbName),
		zap.String("collection", filesCollection))

	return &MongoCatalog{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

type fileDocument struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	Size       int64     `bson:"size"`
	UploadedAt time.Time `bson:"uploaded_at"`
}

// Record stores one successfully uploaded file.
func (c *MongoCatalog) Record(ctx context.Context, record *entities.FileRecord) error {
	doc := fileDocument{
		ID:         record.ID,
		Name:       record.Name,
		Size:       record.Size,
		UploadedAt: record.UploadedAt,
	}
	if _, err := c.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}
	return nil
}

// List returns all recorded files, newest first.
func (c *MongoCatalog) List(ctx context.Context) ([]entities.FileRecord, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})

	cursor, err := c.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []fileDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}

	records := make([]entities.FileRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, entities.FileRecord{
			ID:         doc.ID,
			Name:       doc.Name,
			Size:       doc.Size,
			UploadedAt: doc.UploadedAt,
		})
	}
	return records, nil
}

// Close disconnects from MongoDB.
func (c *MongoCatalog) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		c.logger.Error("failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	return nil
}
