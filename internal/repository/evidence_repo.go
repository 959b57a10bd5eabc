package repository

import (
	"brandwatch/internal/model"
	"context"
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EvidenceRepo reads the evidence corpus built by the scraper
type EvidenceRepo interface {
	// QueryEvidence returns brand items whose title or body contains keyword,
	// newest first, then most credible first
	QueryEvidence(ctx context.Context, brandID, keyword string, limit int) ([]*model.EvidenceItem, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.EvidenceItem, error)
	// Upsert is used by the seed tool; the pipeline never writes evidence
	Upsert(ctx context.Context, item *model.EvidenceItem) error
}

type evidenceRepo struct {
	items *mongo.Collection
}

// NewEvidenceRepo creates a new evidence repository
func NewEvidenceRepo(db *mongo.Database) EvidenceRepo {
	return &evidenceRepo{items: db.Collection(evidenceCollection)}
}

func (r *evidenceRepo) QueryEvidence(ctx context.Context, brandID, keyword string, limit int) ([]*model.EvidenceItem, error) {
	filter := bson.M{"brandId": brandID}
	if keyword != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"body": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "publishedAt", Value: -1},
		{Key: "credibility", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*model.EvidenceItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *evidenceRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.EvidenceItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.items.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*model.EvidenceItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *evidenceRepo) Upsert(ctx context.Context, item *model.EvidenceItem) error {
	_, err := r.items.UpdateOne(ctx,
		bson.M{"url": item.URL},
		bson.M{
			"$set": bson.M{
				"brandId":     item.BrandID,
				"title":       item.Title,
				"body":        item.Body,
				"source":      item.Source,
				"publishedAt": item.PublishedAt,
				"credibility": item.Credibility,
			},
			"$setOnInsert": bson.M{"_id": uuid.NewString()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
