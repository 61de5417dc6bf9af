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

// ReceiptRepo implements ports.VoteReceiptStore on a unique
// (proposal_id, voter_address) index.
type ReceiptRepo struct {
	col *mongo.Collection
}

// NewReceiptRepo creates a new ReceiptRepo.
func NewReceiptRepo(db *mongo.Database) *ReceiptRepo {
	return &ReceiptRepo{col: db.Collection(colReceipts)}
}

func (r *ReceiptRepo) Claim(ctx context.Context, rc *domain.VoteReceipt) (bool, error) {
	_, err := r.col.InsertOne(ctx, bson.M{
		"proposal_id":   rc.ProposalID,
		"voter_address": rc.VoterAddress,
		"direction":     string(rc.Direction),
		"cast_at":       rc.CastAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claiming vote receipt: %w", err)
	}
	return true, nil
}

func (r *ReceiptRepo) Release(ctx context.Context, proposalID string, voterAddress string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"proposal_id": proposalID, "voter_address": voterAddress})
	if err != nil {
		return fmt.Errorf("releasing vote receipt: %w", err)
	}
	return nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	col *mongo.Collection
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *mongo.Database) *AuditRepo {
	return &AuditRepo{col: db.Collection(colAudit)}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	doc := bson.M{
		"_id":           log.ID.String(),
		"action":        string(log.Action),
		"resource_type": log.ResourceType,
		"resource_id":   log.ResourceID,
		"details":       log.Details,
		"ip_address":    log.IPAddress,
		"created_at":    log.CreatedAt,
	}
	if log.MemberID != nil {
		doc["member_id"] = log.MemberID.String()
	}
	if log.CreatedAt.IsZero() {
		doc["created_at"] = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

type auditDoc struct {
	ID           string    `bson:"_id"`
	MemberID     *string   `bson:"member_id,omitempty"`
	Action       string    `bson:"action"`
	ResourceType string    `bson:"resource_type"`
	ResourceID   string    `bson:"resource_id"`
	Details      string    `bson:"details"`
	IPAddress    string    `bson:"ip_address"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d auditDoc) toDomain() (domain.AuditLog, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.AuditLog{}, fmt.Errorf("parsing audit id: %w", err)
	}
	l := domain.AuditLog{
		ID:           id,
		Action:       domain.AuditAction(d.Action),
		ResourceType: d.ResourceType,
		ResourceID:   d.ResourceID,
		Details:      d.Details,
		IPAddress:    d.IPAddress,
		CreatedAt:    d.CreatedAt.UTC(),
	}
	if d.MemberID != nil {
		memberID, err := uuid.Parse(*d.MemberID)
		if err != nil {
			return domain.AuditLog{}, fmt.Errorf("parsing audit member id: %w", err)
		}
		l.MemberID = &memberID
	}
	return l, nil
}

func (r *AuditRepo) ListByMember(ctx context.Context, memberID uuid.UUID, since time.Time) ([]domain.AuditLog, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"member_id": memberID.String(), "created_at": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("finding audit logs: %w", err)
	}
	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding audit logs: %w", err)
	}

	logs := make([]domain.AuditLog, 0, len(docs))
	for _, d := range docs {
		l, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// activityPipeline groups audit entries by action, keeps groups with more
// than minEvents entries and sorts the largest first.
func activityPipeline(memberID *uuid.UUID, minEvents int64) mongo.Pipeline {
	var p mongo.Pipeline
	if memberID != nil {
		p = append(p, bson.D{{Key: "$match", Value: bson.M{"member_id": memberID.String()}}})
	}
	return append(p,
		bson.D{{Key: "$group", Value: bson.M{
			"_id":          "$action",
			"total_events": bson.M{"$sum": 1},
			"members":      bson.M{"$addToSet": "$member_id"},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"total_events": bson.M{"$gt": minEvents}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total_events", Value: -1}, {Key: "_id", Value: 1}}}},
	)
}

func (r *AuditRepo) ActivityByAction(ctx context.Context, memberID *uuid.UUID, minEvents int64) ([]domain.ActivitySummary, error) {
	cur, err := r.col.Aggregate(ctx, activityPipeline(memberID, minEvents))
	if err != nil {
		return nil, fmt.Errorf("aggregating audit logs: %w", err)
	}
	var rows []struct {
		Action      string   `bson:"_id"`
		TotalEvents int64    `bson:"total_events"`
		Members     []string `bson:"members"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decoding audit aggregate: %w", err)
	}

	out := make([]domain.ActivitySummary, 0, len(rows))
	for _, row := range rows {
		ids := make([]uuid.UUID, 0, len(row.Members))
		for _, m := range row.Members {
			id, err := uuid.Parse(m)
			if err != nil {
				return nil, fmt.Errorf("parsing audit member id: %w", err)
			}
			ids = append(ids, id)
		}
		out = append(out, domain.ActivitySummary{
			Action:      domain.AuditAction(row.Action),
			TotalEvents: row.TotalEvents,
			MemberIDs:   ids,
		})
	}
	return out, nil
}
