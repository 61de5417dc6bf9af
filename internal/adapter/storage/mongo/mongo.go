// Package mongo implements the document-store adapters on MongoDB.
// Each account, transfer, proposal and receipt is one document, so every
// port operation maps to a single-document atomic write.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"governance-ledger/config"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	colAccounts  = "accounts"
	colTransfers = "transfers"
	colProposals = "proposals"
	colReceipts  = "vote_receipts"
	colMembers   = "members"
	colAudit     = "audit_logs"
)

// NewClient connects to MongoDB and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.MongoConfig, log zerolog.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	log.Info().
		Str("database", cfg.Database).
		Msg("MongoDB connection established")

	return client, nil
}

// EnsureIndexes creates the indexes the adapters rely on for uniqueness
// and ordering. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		colTransfers: {
			{
				Keys: bson.D{{Key: "idempotency_key", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colProposals: {
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}},
		},
		colReceipts: {
			{
				Keys:    bson.D{{Key: "proposal_id", Value: 1}, {Key: "voter_address", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colMembers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colAudit: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for col, models := range indexes {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", col, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
