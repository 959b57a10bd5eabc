package service

import (
	"brandwatch/internal/cache"
	"brandwatch/internal/config"
	"brandwatch/internal/logging"
	"brandwatch/internal/metrics"
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// ScoreResult is the outcome of scoring one post. Post is nil when no
// active monitor covers the post's brand and platform.
type ScoreResult struct {
	Post      *model.DetectedPost
	Monitor   *model.Monitor
	Threat    *model.Threat
	Signals   Signals
	Triggered bool
}

// ScoringService decides whether an incoming post is a threat
type ScoringService struct {
	monitors     repository.MonitorRepo
	monitorCache cache.MonitorCache
	posts        repository.PostRepo
	threats      *ThreatService
	oracle       Oracle
	cfg          config.PipelineConfig
	metrics      *metrics.Metrics
	logger       logging.Logger
}

// NewScoringService creates a new scoring service
func NewScoringService(
	monitors repository.MonitorRepo,
	monitorCache cache.MonitorCache,
	posts repository.PostRepo,
	threats *ThreatService,
	oracle Oracle,
	cfg config.PipelineConfig,
	m *metrics.Metrics,
	logger logging.Logger,
) *ScoringService {
	return &ScoringService{
		monitors:     monitors,
		monitorCache: monitorCache,
		posts:        posts,
		threats:      threats,
		oracle:       oracle,
		cfg:          cfg,
		metrics:      m,
		logger:       logger,
	}
}

// Virality is min(100, rate*100*(1 + retweets*weight)) where rate is
// interactions per view
func Virality(m model.EngagementMetrics, retweetWeight float64) float64 {
	views := m.Views
	if views < 1 {
		views = 1
	}
	rate := float64(m.Interactions()) / float64(views)
	return math.Min(100, rate*100*(1+float64(m.Retweets)*retweetWeight))
}

// ValidatePost checks a post event before it is queued or scored
func ValidatePost(event *model.PostEvent) error {
	if event == nil {
		return fmt.Errorf("%w: empty event", ErrInvalidPost)
	}
	if err := structValidator.Struct(event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPost, err)
	}
	return nil
}

// ProcessPost scores the post against every active monitor, stores it and,
// when a monitor triggers, builds the threat. It never retries.
func (s *ScoringService) ProcessPost(ctx context.Context, event *model.PostEvent) (*ScoreResult, error) {
	if err := ValidatePost(event); err != nil {
		return nil, err
	}

	monitors, err := s.activeMonitors(ctx, event.BrandID)
	if err != nil {
		return nil, fmt.Errorf("load monitors: %w", err)
	}
	monitors = forPlatform(monitors, event.Platform)
	if event.BrandID == "" {
		// without a brand on the event, a keyword hit is what makes the post mention one
		monitors = mentioned(monitors, event.Content)
	}
	if len(monitors) == 0 {
		s.logger.WithFields(logging.Fields{
			"externalPostId": event.ExternalPostID,
			"brandId":        event.BrandID,
		}).Debug("No active monitor for post")
		return &ScoreResult{}, nil
	}

	brand := monitors[0].BrandName
	if brand == "" {
		brand = monitors[0].BrandID
	}
	polarity, tone, summary := s.analyzeSentiment(ctx, brand, event)
	virality := Virality(event.Metrics, s.cfg.RetweetWeight)

	var chosen *model.Monitor
	var signals Signals
	triggered := false
	for _, mon := range monitors {
		if len(matchKeywords(event.Content, mon.ExcludeKeywords)) > 0 {
			continue
		}
		sig := evaluateMonitor(mon, event, polarity, tone, virality)
		hit := sig.SentimentHit || sig.ViralityHit || len(sig.MatchedKeywords) > 0

		better := chosen == nil ||
			(hit && !triggered) ||
			(hit == triggered && len(sig.MatchedKeywords) > len(signals.MatchedKeywords))
		if better {
			chosen, signals, triggered = mon, sig, hit
		}
	}
	if chosen == nil {
		s.logger.WithField("externalPostId", event.ExternalPostID).Debug("Post excluded by every monitor")
		return &ScoreResult{}, nil
	}

	post, err := s.posts.Upsert(ctx, &model.DetectedPost{
		BrandID:         chosen.BrandID,
		MonitorID:       chosen.ID,
		ExternalPostID:  event.ExternalPostID,
		Platform:        event.Platform,
		Content:         event.Content,
		AuthorHandle:    strings.TrimPrefix(event.AuthorHandle, "@"),
		AuthorID:        event.AuthorID,
		Metrics:         event.Metrics,
		SentimentScore:  polarity,
		Tone:            tone,
		Summary:         summary,
		ViralityScore:   math.Round(virality*100) / 100,
		MatchedKeywords: signals.MatchedKeywords,
		Flagged:         triggered,
		PostedAt:        postedAt(event),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert post %s: %w", event.ExternalPostID, err)
	}

	result := &ScoreResult{
		Post:      post,
		Monitor:   chosen,
		Signals:   signals,
		Triggered: triggered,
	}
	if !triggered {
		return result, nil
	}

	threat, err := s.threats.BuildThreat(ctx, post, chosen, signals)
	if err != nil {
		return nil, err
	}
	result.Threat = threat
	return result, nil
}

func evaluateMonitor(mon *model.Monitor, event *model.PostEvent, polarity float64, tone string, virality float64) Signals {
	sig := Signals{
		Polarity:        polarity,
		Virality:        virality,
		MatchedKeywords: matchKeywords(event.Content, mon.Keywords),
	}

	if polarity <= mon.SentimentThreshold {
		sig.SentimentHit = true
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("sentiment %.2f <= %.2f (%s)", polarity, mon.SentimentThreshold, tone))
	}

	engagement := event.Metrics.Interactions()
	if virality >= mon.ViralityThreshold {
		if engagement >= mon.EngagementThreshold {
			sig.ViralityHit = true
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("virality %.1f >= %.1f", virality, mon.ViralityThreshold))
		} else {
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("virality %.1f ignored: engagement %d below floor %d",
				virality, engagement, mon.EngagementThreshold))
		}
	}

	if len(sig.MatchedKeywords) > 0 {
		sig.Reasons = append(sig.Reasons, "keywords matched: "+strings.Join(sig.MatchedKeywords, ", "))
	}
	return sig
}

// analyzeSentiment asks the oracle once and falls back to the lexicon scorer
func (s *ScoringService) analyzeSentiment(ctx context.Context, brand string, event *model.PostEvent) (float64, string, string) {
	raw, err := s.oracle.Complete(ctx, OracleRequest{
		Task:   TaskSentiment,
		Prompt: buildSentimentPrompt(brand, event),
	})
	if err == nil {
		var judgment SentimentJudgment
		if err = decodeJudgment(raw, &judgment); err == nil {
			s.metrics.OracleCall(string(TaskSentiment), "ok")
			return judgment.SentimentScore, judgment.Tone, judgment.Summary
		}
	}

	s.metrics.OracleCall(string(TaskSentiment), "fallback")
	s.logger.WithError(err).WithField("externalPostId", event.ExternalPostID).Debug("Sentiment oracle unavailable, using lexicon")
	score := lexiconSentiment(event.Content)
	return score, toneFor(score), truncateRunes(event.Content, 140, ellipsis)
}

func (s *ScoringService) activeMonitors(ctx context.Context, brandID string) ([]*model.Monitor, error) {
	if s.monitorCache != nil {
		monitors, found, err := s.monitorCache.GetActive(ctx, brandID)
		if err != nil {
			s.logger.WithError(err).Warn("Monitor cache read failed")
		} else if found {
			return monitors, nil
		}
	}

	monitors, err := s.monitors.ListActive(ctx, brandID)
	if err != nil {
		return nil, err
	}

	if s.monitorCache != nil {
		if err := s.monitorCache.SetActive(ctx, brandID, monitors); err != nil {
			s.logger.WithError(err).Warn("Monitor cache write failed")
		}
	}
	return monitors, nil
}

func mentioned(monitors []*model.Monitor, content string) []*model.Monitor {
	out := make([]*model.Monitor, 0, len(monitors))
	for _, mon := range monitors {
		if len(matchKeywords(content, mon.Keywords)) > 0 {
			out = append(out, mon)
		}
	}
	return out
}

func forPlatform(monitors []*model.Monitor, platform model.Platform) []*model.Monitor {
	out := make([]*model.Monitor, 0, len(monitors))
	for _, m := range monitors {
		if m.Platform == "" || m.Platform == platform {
			out = append(out, m)
		}
	}
	return out
}

func postedAt(event *model.PostEvent) time.Time {
	if event.PostedAt.IsZero() {
		return time.Now()
	}
	return event.PostedAt
}
