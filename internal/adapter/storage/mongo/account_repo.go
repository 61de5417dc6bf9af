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

type entryDoc struct {
	ID           string    `bson:"id"`
	Kind         string    `bson:"kind"`
	Amount       int64     `bson:"amount"`
	Counterparty *string   `bson:"counterparty,omitempty"`
	TransferID   *string   `bson:"transfer_id,omitempty"`
	Reason       *string   `bson:"reason,omitempty"`
	Timestamp    time.Time `bson:"timestamp"`
}

type accountDoc struct {
	ID        string     `bson:"_id"`
	Balance   int64      `bson:"balance"`
	History   []entryDoc `bson:"history"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

func toEntryDoc(e domain.TokenTransaction) entryDoc {
	d := entryDoc{
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		Amount:       e.Amount,
		Counterparty: e.Counterparty,
		Timestamp:    e.Timestamp,
	}
	if e.TransferID != nil {
		s := e.TransferID.String()
		d.TransferID = &s
	}
	if e.Reason != nil {
		s := string(*e.Reason)
		d.Reason = &s
	}
	return d
}

func (d entryDoc) toDomain() (domain.TokenTransaction, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.TokenTransaction{}, fmt.Errorf("parsing entry id %q: %w", d.ID, err)
	}
	e := domain.TokenTransaction{
		ID:           id,
		Kind:         domain.TransactionKind(d.Kind),
		Amount:       d.Amount,
		Counterparty: d.Counterparty,
		Timestamp:    d.Timestamp,
	}
	if d.TransferID != nil {
		tid, err := uuid.Parse(*d.TransferID)
		if err != nil {
			return domain.TokenTransaction{}, fmt.Errorf("parsing transfer id %q: %w", *d.TransferID, err)
		}
		e.TransferID = &tid
	}
	if d.Reason != nil {
		r := domain.AllocationKind(*d.Reason)
		e.Reason = &r
	}
	return e, nil
}

// AccountRepo implements ports.AccountStore. The balance and the embedded
// history array live in one document and change in one update.
type AccountRepo struct {
	col *mongo.Collection
	now func() time.Time
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(db *mongo.Database) *AccountRepo {
	return &AccountRepo{
		col: db.Collection(colAccounts),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	doc := accountDoc{
		ID:        a.ID,
		Balance:   a.Balance,
		History:   make([]entryDoc, 0, len(a.History)),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	for _, e := range a.History {
		doc.History = append(doc.History, toEntryDoc(e))
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	var doc accountDoc
	err := r.col.FindOne(ctx, bson.M{"_id": accountID}).Decode(&doc)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding account: %w", err)
	}

	a := &domain.Account{
		ID:        doc.ID,
		Balance:   doc.Balance,
		History:   make([]domain.TokenTransaction, 0, len(doc.History)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, d := range doc.History {
		e, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		a.History = append(a.History, e)
	}
	return a, nil
}

// AtomicUpdate applies the delta with a single conditional FindOneAndUpdate.
// The filter rejects an entry id already in history and, for debits, a
// balance that cannot cover the amount.
func (r *AccountRepo) AtomicUpdate(ctx context.Context, accountID string, e domain.TokenTransaction) (int64, error) {
	filter := bson.M{
		"_id":        accountID,
		"history.id": bson.M{"$ne": e.ID.String()},
	}
	if e.Amount < 0 {
		filter["balance"] = bson.M{"$gte": -e.Amount}
	}
	update := bson.M{
		"$inc":  bson.M{"balance": e.Amount},
		"$push": bson.M{"history": toEntryDoc(e)},
		"$set":  bson.M{"updated_at": r.now()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"balance": 1})

	var out struct {
		Balance int64 `bson:"balance"`
	}
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err == nil {
		return out.Balance, nil
	}
	if !isNotFound(err) {
		return 0, fmt.Errorf("updating account: %w", err)
	}
	return 0, r.explainMiss(ctx, accountID, e.ID)
}

// explainMiss classifies a filter miss of AtomicUpdate.
func (r *AccountRepo) explainMiss(ctx context.Context, accountID string, entryID uuid.UUID) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": accountID})
	if err != nil {
		return fmt.Errorf("checking account: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	entry, err := r.GetEntry(ctx, accountID, entryID)
	if err != nil {
		return err
	}
	if entry != nil {
		return domain.ErrDuplicateEntry
	}
	return domain.ErrInsufficientBalance
}

// GetEntry projects the single matching element of the history array.
func (r *AccountRepo) GetEntry(ctx context.Context, accountID string, entryID uuid.UUID) (*domain.TokenTransaction, error) {
	opts := options.FindOne().SetProjection(bson.M{
		"history": bson.M{"$elemMatch": bson.M{"id": entryID.String()}},
	})

	var doc accountDoc
	err := r.col.FindOne(ctx, bson.M{"_id": accountID, "history.id": entryID.String()}, opts).Decode(&doc)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding history entry: %w", err)
	}
	if len(doc.History) == 0 {
		return nil, nil
	}
	e, err := doc.History[0].toDomain()
	if err != nil {
		return nil, err
	}
	return &e, nil
}
