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

// ThreatRepo handles MongoDB operations for threats
type ThreatRepo interface {
	// UpsertForPost inserts or refreshes the threat owned by threat.PostID.
	// Status and verification are only written on insert.
	UpsertForPost(ctx context.Context, threat *model.Threat) (*model.Threat, error)
	GetByID(ctx context.Context, id string) (*model.Threat, error)
	// MarkVerifying moves NEW threats to VERIFYING; later states are left alone
	MarkVerifying(ctx context.Context, id string) error
	SetVerification(ctx context.Context, id string, v *model.Verification) error
	SetStatus(ctx context.Context, id string, status model.ThreatStatus) error
	ListUnverified(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Threat, error)
}

type threatRepo struct {
	threats *mongo.Collection
}

// NewThreatRepo creates a new threat repository
func NewThreatRepo(db *mongo.Database) ThreatRepo {
	return &threatRepo{threats: db.Collection(threatsCollection)}
}

func (r *threatRepo) UpsertForPost(ctx context.Context, threat *model.Threat) (*model.Threat, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"brandId":   threat.BrandID,
			"monitorId": threat.MonitorID,
			"claim":     threat.Claim,
			"severity":  threat.Severity,
			"type":      threat.Type,
			"score":     threat.Score,
			"reasons":   threat.Reasons,
			"autoPost":  threat.AutoPost,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"_id":          uuid.NewString(),
			"status":       model.ThreatNew,
			"verification": nil,
			"createdAt":    now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.Threat
	err := r.threats.FindOneAndUpdate(ctx, bson.M{"postId": threat.PostID}, update, opts).Decode(&stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *threatRepo) GetByID(ctx context.Context, id string) (*model.Threat, error) {
	var threat model.Threat
	err := r.threats.FindOne(ctx, bson.M{"_id": id}).Decode(&threat)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &threat, nil
}

func (r *threatRepo) MarkVerifying(ctx context.Context, id string) error {
	_, err := r.threats.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.ThreatNew},
		bson.M{"$set": bson.M{"status": model.ThreatVerifying, "updatedAt": time.Now()}},
	)
	return err
}

func (r *threatRepo) SetVerification(ctx context.Context, id string, v *model.Verification) error {
	res, err := r.threats.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"verification": v, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *threatRepo) SetStatus(ctx context.Context, id string, status model.ThreatStatus) error {
	res, err := r.threats.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *threatRepo) ListUnverified(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Threat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.threats.Find(ctx, bson.M{
		"verification": nil,
		"createdAt":    bson.M{"$lt": createdBefore},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var threats []*model.Threat
	if err := cursor.All(ctx, &threats); err != nil {
		return nil, err
	}
	return threats, nil
}
