package mongo

import (
	"context"
	"fmt"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type proposalDoc struct {
	ID                string           `bson:"_id"`
	Title             string           `bson:"title"`
	Description       string           `bson:"description"`
	Directions        []string         `bson:"directions"`
	Votes             map[string]int64 `bson:"votes"`
	TotalParticipants int64            `bson:"total_participants"`
	CreatedBy         string           `bson:"created_by"`
	CreatedAt         time.Time        `bson:"created_at"`
}

func (d proposalDoc) toDomain() *domain.Proposal {
	p := &domain.Proposal{
		ID:                d.ID,
		Title:             d.Title,
		Description:       d.Description,
		Directions:        make([]domain.VoteDirection, 0, len(d.Directions)),
		Votes:             make(map[domain.VoteDirection]int64, len(d.Directions)),
		TotalParticipants: d.TotalParticipants,
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
	}
	for _, dir := range d.Directions {
		p.Directions = append(p.Directions, domain.VoteDirection(dir))
		p.Votes[domain.VoteDirection(dir)] = d.Votes[dir]
	}
	return p
}

// ProposalRepo implements ports.ProposalStore. Counters are a map embedded
// in the proposal document and are bumped with $inc.
type ProposalRepo struct {
	col *mongo.Collection
}

// NewProposalRepo creates a new ProposalRepo.
func NewProposalRepo(db *mongo.Database) *ProposalRepo {
	return &ProposalRepo{col: db.Collection(colProposals)}
}

func (r *ProposalRepo) Create(ctx context.Context, p *domain.Proposal) error {
	doc := proposalDoc{
		ID:                p.ID,
		Title:             p.Title,
		Description:       p.Description,
		Directions:        make([]string, 0, len(p.Directions)),
		Votes:             make(map[string]int64, len(p.Directions)),
		TotalParticipants: p.TotalParticipants,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         p.CreatedAt,
	}
	for _, d := range p.Directions {
		doc.Directions = append(doc.Directions, string(d))
		doc.Votes[string(d)] = p.Votes[d]
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting proposal: %w", err)
	}
	return nil
}

func (r *ProposalRepo) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	var doc proposalDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding proposal: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ProposalRepo) List(ctx context.Context, params ports.ProposalListParams) ([]domain.Proposal, int64, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("counting proposals: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((params.Page - 1) * params.PageSize)).
		SetLimit(int64(params.PageSize))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing proposals: %w", err)
	}
	defer cur.Close(ctx)

	var docs []proposalDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decoding proposals: %w", err)
	}

	out := make([]domain.Proposal, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.toDomain())
	}
	return out, total, nil
}

// IncrementVote bumps the direction counter and total_participants in one
// update. The filter requires the direction to be configured on the proposal.
func (r *ProposalRepo) IncrementVote(ctx context.Context, id string, direction domain.VoteDirection) (*domain.Tally, error) {
	filter := bson.M{"_id": id, "directions": string(direction)}
	update := bson.M{"$inc": bson.M{
		"votes." + string(direction): 1,
		"total_participants":         1,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc proposalDoc
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain().Tally(), nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("incrementing vote: %w", err)
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("checking proposal: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrProposalNotFound
	}
	return nil, domain.ErrDirectionNotAllowed
}

func (r *ProposalRepo) Stats(ctx context.Context) (*ports.GovernanceStats, error) {
	stats := &ports.GovernanceStats{ByDirection: map[domain.VoteDirection]int64{}}

	totals, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"votes": bson.M{"$sum": "$total_participants"},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregating proposal totals: %w", err)
	}
	defer totals.Close(ctx)

	var sum []struct {
		Count int64 `bson:"count"`
		Votes int64 `bson:"votes"`
	}
	if err := totals.All(ctx, &sum); err != nil {
		return nil, fmt.Errorf("decoding proposal totals: %w", err)
	}
	if len(sum) > 0 {
		stats.TotalProposals = sum[0].Count
		stats.TotalVotes = sum[0].Votes
	}

	byDir, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$project", Value: bson.M{"votes": bson.M{"$objectToArray": "$votes"}}}},
		{{Key: "$unwind", Value: "$votes"}},
		{{Key: "$group", Value: bson.M{"_id": "$votes.k", "votes": bson.M{"$sum": "$votes.v"}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregating votes by direction: %w", err)
	}
	defer byDir.Close(ctx)

	var rows []struct {
		Direction string `bson:"_id"`
		Votes     int64  `bson:"votes"`
	}
	if err := byDir.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decoding votes by direction: %w", err)
	}
	for _, row := range rows {
		stats.ByDirection[domain.VoteDirection(row.Direction)] = row.Votes
	}
	return stats, nil
}
