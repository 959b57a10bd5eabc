package repository

import (
	"brandwatch/internal/model"
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResponseRepo handles MongoDB operations for corrective responses
type ResponseRepo interface {
	// UpsertPending writes the response for resp.ThreatID in PENDING state.
	// Returns ErrConflict if that threat's response was already POSTED.
	UpsertPending(ctx context.Context, resp *model.Response) (*model.Response, error)
	GetByID(ctx context.Context, id string) (*model.Response, error)
	GetByThreatID(ctx context.Context, threatID string) (*model.Response, error)
	MarkPosted(ctx context.Context, id, externalReplyID string, at time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type responseRepo struct {
	responses *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{responses: db.Collection(responsesCollection)}
}

func (r *responseRepo) UpsertPending(ctx context.Context, resp *model.Response) (*model.Response, error) {
	now := time.Now()
	// The status guard turns an upsert over a POSTED document into an insert,
	// which the unique threatId index rejects.
	filter := bson.M{
		"threatId": resp.ThreatID,
		"status":   bson.M{"$ne": model.ResponsePosted},
	}
	update := bson.M{
		"$set": bson.M{
			"platform":      resp.Platform,
			"content":       resp.Content,
			"sources":       resp.Sources,
			"confidence":    resp.Confidence,
			"autoGenerated": resp.AutoGenerated,
			"status":        model.ResponsePending,
			"lastError":     "",
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"attempts":  0,
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.Response
	err := r.responses.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *responseRepo) GetByID(ctx context.Context, id string) (*model.Response, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *responseRepo) GetByThreatID(ctx context.Context, threatID string) (*model.Response, error) {
	return r.findOne(ctx, bson.M{"threatId": threatID})
}

func (r *responseRepo) findOne(ctx context.Context, filter bson.M) (*model.Response, error) {
	var resp model.Response
	err := r.responses.FindOne(ctx, filter).Decode(&resp)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *responseRepo) MarkPosted(ctx context.Context, id, externalReplyID string, at time.Time) error {
	return r.transition(ctx, id, bson.M{
		"status":          model.ResponsePosted,
		"externalReplyId": externalReplyID,
		"postedAt":        at,
		"lastError":       "",
		"updatedAt":       time.Now(),
	})
}

func (r *responseRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.transition(ctx, id, bson.M{
		"status":    model.ResponseFailed,
		"lastError": reason,
		"updatedAt": time.Now(),
	})
}

// transition applies a publish outcome; POSTED is terminal
func (r *responseRepo) transition(ctx context.Context, id string, set bson.M) error {
	res, err := r.responses.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": model.ResponsePosted}},
		bson.M{"$set": set, "$inc": bson.M{"attempts": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
