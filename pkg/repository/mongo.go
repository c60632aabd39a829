package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
)

// MongoRepository keeps the order audit trail.
type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
	now      func() time.Time
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return newMongoRepository(client, cfg), nil
}

func newMongoRepository(client *mongo.Client, cfg *config.MongoDBConfig) *MongoRepository {
	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
		now:      time.Now,
	}
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, entry *models.AuditEntry) error {
	collection := m.database.Collection(m.config.Collection)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.now().UTC()
	}
	_, err := collection.InsertOne(ctx, entry)
	return err
}

// GetAuditLogs returns the newest entries for one order first.
func (m *MongoRepository) GetAuditLogs(ctx context.Context, orderID string, limit int64) ([]*models.AuditEntry, error) {
	collection := m.database.Collection(m.config.Collection)

	filter := bson.M{"order_id": orderID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []*models.AuditEntry{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
