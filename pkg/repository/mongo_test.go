package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
)

func TestMongoRepository_AuditLog(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	cfg := &config.MongoDBConfig{Database: "bistro", Collection: "order_audit"}

	mt.Run("create fills id and timestamp", func(mt *mtest.T) {
		repo := newMongoRepository(mt.Client, cfg)
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return fixed }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		entry := &models.AuditEntry{Service: "order-service", Action: "create_order", OrderID: "o1"}
		require.NoError(mt, repo.CreateAuditLog(context.Background(), entry))

		assert.NotEmpty(mt, entry.ID)
		assert.Equal(mt, fixed, entry.CreatedAt)
	})

	mt.Run("get decodes newest first", func(mt *mtest.T) {
		repo := newMongoRepository(mt.Client, cfg)
		ns := "bistro.order_audit"
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "a2"},
			{Key: "service", Value: "order-service"},
			{Key: "action", Value: "update_status"},
			{Key: "order_id", Value: "o1"},
			{Key: "data", Value: bson.D{{Key: "status", Value: "ready"}}},
			{Key: "created_at", Value: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)},
		})
		second := mtest.CreateCursorResponse(1, ns, mtest.NextBatch, bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "service", Value: "order-service"},
			{Key: "action", Value: "create_order"},
			{Key: "order_id", Value: "o1"},
			{Key: "created_at", Value: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		})
		done := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, second, done)

		logs, err := repo.GetAuditLogs(context.Background(), "o1", 10)
		require.NoError(mt, err)
		require.Len(mt, logs, 2)
		assert.Equal(mt, "update_status", logs[0].Action)
		assert.Equal(mt, "ready", logs[0].Data["status"])
		assert.Equal(mt, "create_order", logs[1].Action)
	})
}
