package service

import (
	"brandwatch/internal/logging"
	"brandwatch/internal/metrics"
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"context"
	"fmt"
	"math"
)

// Signals are the detection results the threat builder scores
type Signals struct {
	Polarity        float64
	Virality        float64
	MatchedKeywords []string
	SentimentHit    bool
	ViralityHit     bool
	Reasons         []string
}

// ThreatService turns triggered posts into threats
type ThreatService struct {
	threats  repository.ThreatRepo
	notifier Notifier
	metrics  *metrics.Metrics
	logger   logging.Logger
	autoPost bool
}

// NewThreatService creates a new threat service. autoPost is the global
// switch ANDed with each monitor's own flag.
func NewThreatService(threats repository.ThreatRepo, notifier Notifier, m *metrics.Metrics, logger logging.Logger, autoPost bool) *ThreatService {
	return &ThreatService{
		threats:  threats,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		autoPost: autoPost,
	}
}

// ThreatScore is min(100, |polarity|*60 + virality*0.8 + 10 if any keyword matched)
func ThreatScore(s Signals) float64 {
	score := math.Abs(s.Polarity)*60 + s.Virality*0.8
	if len(s.MatchedKeywords) > 0 {
		score += 10
	}
	return math.Min(100, score)
}

func SeverityFor(score float64) model.Severity {
	switch {
	case score >= 80:
		return model.SeverityCritical
	case score >= 60:
		return model.SeverityHigh
	case score >= 40:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func ClassifyThreat(s Signals) model.ThreatType {
	switch {
	case s.SentimentHit && len(s.MatchedKeywords) > 0:
		return model.ThreatNegativeSentiment
	case s.ViralityHit && !s.SentimentHit && len(s.MatchedKeywords) == 0:
		return model.ThreatViralRisk
	default:
		return model.ThreatCrisis
	}
}

// BuildThreat upserts the single threat owned by post. A refresh never
// demotes status or clears an existing verification.
func (s *ThreatService) BuildThreat(ctx context.Context, post *model.DetectedPost, monitor *model.Monitor, signals Signals) (*model.Threat, error) {
	score := ThreatScore(signals)
	severity := SeverityFor(score)
	reasons := append([]string{}, signals.Reasons...)
	reasons = append(reasons, fmt.Sprintf("threat score %.1f -> %s", score, severity))

	threat, err := s.threats.UpsertForPost(ctx, &model.Threat{
		PostID:    post.ID,
		BrandID:   post.BrandID,
		MonitorID: monitor.ID,
		Claim:     post.Content,
		Severity:  severity,
		Type:      ClassifyThreat(signals),
		Score:     math.Round(score*10) / 10,
		Reasons:   reasons,
		AutoPost:  monitor.AutoPost && s.autoPost,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert threat for post %s: %w", post.ID, err)
	}

	s.metrics.ThreatDetected(string(threat.Severity))
	s.logger.WithFields(logging.Fields{
		"threatId": threat.ID,
		"postId":   post.ID,
		"brandId":  post.BrandID,
		"severity": threat.Severity,
		"type":     threat.Type,
	}).Info("Threat detected")

	s.notifier.Notify(ctx, newEvent(model.EventThreatDetected, threat.ID, threat.BrandID,
		fmt.Sprintf("%s %s threat detected", threat.Severity, threat.Type),
		map[string]any{
			"postId":   post.ID,
			"severity": threat.Severity,
			"type":     threat.Type,
			"score":    threat.Score,
			"status":   threat.Status,
		}))

	return threat, nil
}

// GetThreat returns the threat or a NotFoundError
func (s *ThreatService) GetThreat(ctx context.Context, id string) (*model.Threat, error) {
	threat, err := s.threats.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if threat == nil {
		return nil, &NotFoundError{Entity: "threat", ID: id}
	}
	return threat, nil
}
