package repository

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	postsCollection     = "detected_posts"
	threatsCollection   = "threats"
	responsesCollection = "responses"
	evidenceCollection  = "evidence_items"
	monitorsCollection  = "monitors"
)

// EnsureIndexes creates the natural-key unique indexes the upserts rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *logrus.Logger) {
	posts := db.Collection(postsCollection)
	threats := db.Collection(threatsCollection)
	responses := db.Collection(responsesCollection)
	evidence := db.Collection(evidenceCollection)
	monitors := db.Collection(monitorsCollection)

	createIndex(ctx, logger, posts, bson.D{
		{Key: "externalPostId", Value: 1},
		{Key: "platform", Value: 1},
	}, true)
	createIndex(ctx, logger, posts, bson.D{{Key: "brandId", Value: 1}, {Key: "capturedAt", Value: -1}}, false)

	createIndex(ctx, logger, threats, bson.D{{Key: "postId", Value: 1}}, true)
	createIndex(ctx, logger, threats, bson.D{{Key: "verification", Value: 1}, {Key: "createdAt", Value: 1}}, false)

	createIndex(ctx, logger, responses, bson.D{{Key: "threatId", Value: 1}}, true)

	createIndex(ctx, logger, evidence, bson.D{{Key: "url", Value: 1}}, true)
	createIndex(ctx, logger, evidence, bson.D{
		{Key: "brandId", Value: 1},
		{Key: "publishedAt", Value: -1},
		{Key: "credibility", Value: -1},
	}, false)

	createIndex(ctx, logger, monitors, bson.D{{Key: "brandId", Value: 1}, {Key: "active", Value: 1}}, false)

	logger.Info("Mongo indexes ensured")
}

func createIndex(ctx context.Context, logger *logrus.Logger, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		logger.WithError(err).WithField("collection", coll.Name()).Warn("Failed to create index")
	}
}
