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

// PostRepo handles MongoDB operations for detected posts
type PostRepo interface {
	// Upsert inserts or updates the post keyed by (externalPostId, platform) and returns the stored record
	Upsert(ctx context.Context, post *model.DetectedPost) (*model.DetectedPost, error)
	GetByID(ctx context.Context, id string) (*model.DetectedPost, error)
}

type postRepo struct {
	posts *mongo.Collection
}

// NewPostRepo creates a new detected post repository
func NewPostRepo(db *mongo.Database) PostRepo {
	return &postRepo{posts: db.Collection(postsCollection)}
}

func (r *postRepo) Upsert(ctx context.Context, post *model.DetectedPost) (*model.DetectedPost, error) {
	now := time.Now()
	filter := bson.M{
		"externalPostId": post.ExternalPostID,
		"platform":       post.Platform,
	}
	update := bson.M{
		"$set": bson.M{
			"brandId":         post.BrandID,
			"monitorId":       post.MonitorID,
			"content":         post.Content,
			"authorHandle":    post.AuthorHandle,
			"authorId":        post.AuthorID,
			"metrics":         post.Metrics,
			"sentimentScore":  post.SentimentScore,
			"tone":            post.Tone,
			"summary":         post.Summary,
			"viralityScore":   post.ViralityScore,
			"matchedKeywords": post.MatchedKeywords,
			"flagged":         post.Flagged,
			"postedAt":        post.PostedAt,
			"updatedAt":       now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"capturedAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.DetectedPost
	if err := r.posts.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *postRepo) GetByID(ctx context.Context, id string) (*model.DetectedPost, error) {
	var post model.DetectedPost
	err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}
