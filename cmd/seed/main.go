package main

import (
	"brandwatch/internal/cache"
	"brandwatch/internal/config"
	"brandwatch/internal/logging"
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const brandID = "acme"

func main() {
	logger := logging.NewLoggerWithService("brandwatch-seed")
	cfg := config.Load(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)
	repository.EnsureIndexes(ctx, db, logger)

	monitors := repository.NewMonitorRepo(db)
	monitor := &model.Monitor{
		ID:                  "mon_acme_twitter",
		BrandID:             brandID,
		BrandName:           "Acme Foods",
		Platform:            model.PlatformTwitter,
		Keywords:            []string{"recall", "contaminated", "scam", "lawsuit", "salmonella"},
		ExcludeKeywords:     []string{"giveaway", "#ad"},
		SentimentThreshold:  -0.4,
		ViralityThreshold:   20,
		EngagementThreshold: 50,
		AutoPost:            false,
		Active:              true,
	}
	if err := monitors.Upsert(ctx, monitor); err != nil {
		logger.WithError(err).Fatal("Failed to seed monitor")
	}
	logger.WithField("monitorId", monitor.ID).Info("Seeded monitor")

	evidence := repository.NewEvidenceRepo(db)
	now := time.Now()
	items := []*model.EvidenceItem{
		{
			BrandID:     brandID,
			URL:         "https://www.reuters.com/business/acme-foods-no-recall-2026",
			Title:       "Regulator says no recall issued for Acme Foods products",
			Body:        "The food safety agency confirmed there is no active recall for any Acme Foods product line.",
			Source:      "reuters.com",
			PublishedAt: now.Add(-6 * time.Hour),
			Credibility: 0.95,
		},
		{
			BrandID:     brandID,
			URL:         "https://apnews.com/article/acme-salmonella-test-results",
			Title:       "Acme plant passes salmonella inspection",
			Body:        "Independent lab results published Tuesday show no contamination at the Acme plant.",
			Source:      "apnews.com",
			PublishedAt: now.Add(-30 * time.Hour),
			Credibility: 0.9,
		},
		{
			BrandID:     brandID,
			URL:         "https://rumours.example.net/acme-recall-coverup",
			Title:       "Is Acme hiding a recall?",
			Body:        "Anonymous sources claim a recall is coming.",
			Source:      "rumours.example.net",
			PublishedAt: now.Add(-2 * time.Hour),
			Credibility: 0.2,
		},
	}
	for _, item := range items {
		if err := evidence.Upsert(ctx, item); err != nil {
			logger.WithError(err).WithField("url", item.URL).Fatal("Failed to seed evidence")
		}
	}
	logger.WithField("count", len(items)).Info("Seeded evidence")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := cache.NewMonitorCache(rdb, cfg.Pipeline.MonitorCacheTTL).Invalidate(ctx, brandID); err != nil {
		logger.WithError(err).Warn("Failed to invalidate monitor cache; changes apply after TTL")
	}
}
