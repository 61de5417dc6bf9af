package mongo

import (
	"context"
	"fmt"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type memberDoc struct {
	ID            string    `bson:"_id"`
	Email         string    `bson:"email"`
	PasswordHash  string    `bson:"password_hash"`
	WalletAddress *string   `bson:"wallet_address,omitempty"`
	Role          string    `bson:"role"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// MemberRepo implements ports.MemberRepository.
type MemberRepo struct {
	col *mongo.Collection
}

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(db *mongo.Database) *MemberRepo {
	return &MemberRepo{col: db.Collection(colMembers)}
}

func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) error {
	doc := memberDoc{
		ID:            m.ID.String(),
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		WalletAddress: m.WalletAddress,
		Role:          string(m.Role),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailExists
		}
		return fmt.Errorf("inserting member: %w", err)
	}
	return nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MemberRepo) findOne(ctx context.Context, filter bson.M) (*domain.Member, error) {
	var doc memberDoc
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding member: %w", err)
	}
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing member id %q: %w", doc.ID, err)
	}
	return &domain.Member{
		ID:            id,
		Email:         doc.Email,
		PasswordHash:  doc.PasswordHash,
		WalletAddress: doc.WalletAddress,
		Role:          domain.MemberRole(doc.Role),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}, nil
}
