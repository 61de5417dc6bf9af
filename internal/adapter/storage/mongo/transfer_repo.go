package mongo

import (
	"context"
	"fmt"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type transferDoc struct {
	ID             string    `bson:"_id"`
	IdempotencyKey *string   `bson:"idempotency_key,omitempty"`
	FromAccount    string    `bson:"from_account"`
	ToAccount      string    `bson:"to_account"`
	Amount         int64     `bson:"amount"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func (d transferDoc) toDomain() (*domain.Transfer, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing transfer id %q: %w", d.ID, err)
	}
	return &domain.Transfer{
		ID:             id,
		IdempotencyKey: d.IdempotencyKey,
		FromAccount:    d.FromAccount,
		ToAccount:      d.ToAccount,
		Amount:         d.Amount,
		Status:         domain.TransferStatus(d.Status),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

// TransferRepo implements ports.TransferJournal.
type TransferRepo struct {
	col *mongo.Collection
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(db *mongo.Database) *TransferRepo {
	return &TransferRepo{col: db.Collection(colTransfers)}
}

func (r *TransferRepo) Create(ctx context.Context, t *domain.Transfer) error {
	doc := transferDoc{
		ID:             t.ID.String(),
		IdempotencyKey: t.IdempotencyKey,
		FromAccount:    t.FromAccount,
		ToAccount:      t.ToAccount,
		Amount:         t.Amount,
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateTransfer
		}
		return fmt.Errorf("inserting transfer: %w", err)
	}
	return nil
}

func (r *TransferRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *TransferRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	return r.findOne(ctx, bson.M{"idempotency_key": key})
}

func (r *TransferRepo) findOne(ctx context.Context, filter bson.M) (*domain.Transfer, error) {
	var doc transferDoc
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding transfer: %w", err)
	}
	return doc.toDomain()
}

// UpdateStatus is a compare-and-set on the stored status.
func (r *TransferRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransferStatus) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id.String(), "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("updating transfer status: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("checking transfer: %w", err)
	}
	if n == 0 {
		return domain.ErrTransferNotFound
	}
	return domain.ErrTransferSettled
}

func (r *TransferRepo) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transfer, error) {
	filter := bson.M{
		"status":     string(domain.TransferStatusPending),
		"created_at": bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing pending transfers: %w", err)
	}
	defer cur.Close(ctx)

	var docs []transferDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding pending transfers: %w", err)
	}

	out := make([]domain.Transfer, 0, len(docs))
	for _, d := range docs {
		t, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}
