package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// HealthCheck implements ports.HealthChecker for MongoDB.
type HealthCheck struct {
	client *mongo.Client
}

// NewHealthCheck creates a MongoDB health checker.
func NewHealthCheck(client *mongo.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, readpref.Primary())
}

func (h *HealthCheck) Name() string {
	return "mongodb"
}
