package main

import (
	"brandwatch/internal/cache"
	"brandwatch/internal/config"
	"brandwatch/internal/jobs"
	"brandwatch/internal/logging"
	"brandwatch/internal/metrics"
	"brandwatch/internal/repository"
	"brandwatch/internal/service"
	"brandwatch/internal/transport/rest"
	"brandwatch/internal/transport/ws"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logging.NewLoggerWithService("brandwatch")
	cfg := config.Load(logger)

	logger.WithFields(logging.Fields{
		"sentimentModel": cfg.AI.Models.Sentiment,
		"verdictModel":   cfg.AI.Models.Verdict,
		"replyModel":     cfg.AI.Models.Reply,
		"oracleEnabled":  cfg.AI.IsEnabled(),
	}).Info("Oracle configuration")
	if !cfg.AI.IsEnabled() {
		logger.Warn("GEMINI_API_KEY not set, every stage will use its fallback")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.WithError(err).Fatal("Failed to ping MongoDB")
	}
	logger.Info("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)
	repository.EnsureIndexes(ctx, db, logger)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Fatal("Failed to ping Redis")
	}
	logger.Info("Connected to Redis")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Notifications: components publish on redis, every instance fans out to its own ws clients
	bus := cache.NewEventBus(rdb, cfg.Jobs.EventsChannel, logger)
	hub := ws.NewHub(logger)

	// Initialize repositories
	postRepo := repository.NewPostRepo(db)
	threatRepo := repository.NewThreatRepo(db)
	responseRepo := repository.NewResponseRepo(db)
	evidenceRepo := repository.NewEvidenceRepo(db)
	monitorRepo := repository.NewMonitorRepo(db)

	// Initialize caches
	monitorCache := cache.NewMonitorCache(rdb, cfg.Pipeline.MonitorCacheTTL)
	dedupTTL := time.Duration(cfg.Jobs.MaxAttempts) * (cfg.Jobs.JobTimeout + cfg.Jobs.MaxBackoff)
	queue := cache.NewJobQueue(rdb, cfg.Jobs.QueuePrefix, dedupTTL)

	// Initialize services
	authSvc := service.NewAuthService(cfg.OperatorUsername, cfg.OperatorPassword, cfg.JWTSecret)
	oracle := service.NewGeminiOracle(cfg.AI, logger)
	platform := service.NewTwitterClient(cfg.Platform, logger)

	threatSvc := service.NewThreatService(threatRepo, bus, m, logger, cfg.Pipeline.AutoPost)
	scoringSvc := service.NewScoringService(monitorRepo, monitorCache, postRepo, threatSvc, oracle, cfg.Pipeline, m, logger)
	verificationSvc := service.NewVerificationService(threatRepo, postRepo, evidenceRepo, oracle, bus, m, logger, cfg.Pipeline.EvidenceTimeout)
	responseSvc := service.NewResponseService(threatRepo, postRepo, monitorRepo, evidenceRepo, responseRepo, oracle, bus, m, logger,
		cfg.Pipeline.MaxContentChars, cfg.Pipeline.ResponseFooter)
	publisherSvc := service.NewPublisherService(responseRepo, threatRepo, postRepo, platform, bus, m, logger,
		cfg.Pipeline.MaxContentChars)

	orch := jobs.NewOrchestrator(queue, jobs.Pipeline{
		Scorer:      scoringSvc,
		Verifier:    verificationSvc,
		Synthesizer: responseSvc,
		Publisher:   publisherSvc,
	}, threatRepo, bus, m, logger, cfg.Jobs, cfg.Pipeline.RespondWithoutEvidence)

	sweeper := jobs.NewSweeper(orch, cfg.Jobs.SweepSpec, logger)

	router := rest.NewRouter(&rest.Container{
		Auth:      authSvc,
		Control:   orch,
		Threats:   threatSvc,
		Responses: responseSvc,
		Events:    ws.NewHandler(hub, authSvc, logger).Events,
		Metrics:   m.Handler(),
		Health: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
			return mongoClient.Ping(ctx, nil)
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bus.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return bus.Subscribe(gctx, hub.Deliver)
	})
	g.Go(func() error {
		return orch.Run(gctx)
	})
	g.Go(func() error {
		logger.WithField("port", cfg.HTTPPort).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sweeper.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Sweep did not stop in time")
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := sweeper.Start(); err != nil {
		logger.WithError(err).Error("Failed to schedule unverified threat sweep")
		stop()
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Server exited")
}
