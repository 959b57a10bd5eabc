package service

import (
	"brandwatch/internal/logging"
	"brandwatch/internal/metrics"
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"context"
	"fmt"
	"math"
	"time"
)

const (
	evidenceWindow    = 15
	verdictHeadlines  = 5
	noEvidenceSummary = "No relevant coverage found."
	untrustedSummary  = "No trusted outlet confirms this claim."
	oracleDownSummary = "Trusted coverage exists but automated review was unavailable; manual review recommended."
)

// Decision branches, recorded in metrics and events
const (
	branchNoEvidence   = "no_evidence"
	branchNoCredible   = "no_credible"
	branchOracle       = "oracle"
	branchOracleFailed = "oracle_failed"
)

// VerificationService judges a threat's claim against the evidence store
type VerificationService struct {
	threats         repository.ThreatRepo
	posts           repository.PostRepo
	evidence        repository.EvidenceRepo
	oracle          Oracle
	notifier        Notifier
	metrics         *metrics.Metrics
	logger          logging.Logger
	evidenceTimeout time.Duration
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	threats repository.ThreatRepo,
	posts repository.PostRepo,
	evidence repository.EvidenceRepo,
	oracle Oracle,
	notifier Notifier,
	m *metrics.Metrics,
	logger logging.Logger,
	evidenceTimeout time.Duration,
) *VerificationService {
	return &VerificationService{
		threats:         threats,
		posts:           posts,
		evidence:        evidence,
		oracle:          oracle,
		notifier:        notifier,
		metrics:         m,
		logger:          logger,
		evidenceTimeout: evidenceTimeout,
	}
}

// Verify computes and stores the verdict for threatID. Oracle failures are
// absorbed into the UNVERIFIED branch; evidence store failures are returned.
func (s *VerificationService) Verify(ctx context.Context, threatID string) (*model.Verification, error) {
	threat, err := s.threats.GetByID(ctx, threatID)
	if err != nil {
		return nil, fmt.Errorf("load threat %s: %w", threatID, err)
	}
	if threat == nil {
		return nil, &NotFoundError{Entity: "threat", ID: threatID}
	}

	keyword, err := s.claimKeyword(ctx, threat)
	if err != nil {
		return nil, err
	}

	var items []*model.EvidenceItem
	if keyword != "" {
		items, err = s.queryEvidence(ctx, threat.BrandID, keyword)
		if err != nil {
			return nil, fmt.Errorf("query evidence for threat %s: %w", threatID, err)
		}
	}

	verification, branch := s.decide(ctx, threat, items)
	verification.VerifiedAt = time.Now()

	if err := s.threats.SetVerification(ctx, threatID, verification); err != nil {
		return nil, fmt.Errorf("store verification for threat %s: %w", threatID, err)
	}

	s.metrics.Verdict(string(verification.Status), branch)
	s.logger.WithFields(logging.Fields{
		"threatId":   threatID,
		"keyword":    keyword,
		"evidence":   len(items),
		"status":     verification.Status,
		"confidence": verification.Confidence,
		"branch":     branch,
	}).Info("Threat verified")

	s.notifier.Notify(ctx, newEvent(model.EventVerificationComplete, threatID, threat.BrandID,
		fmt.Sprintf("Claim judged %s (%d%%)", verification.Status, verification.Confidence),
		map[string]any{
			"status":        verification.Status,
			"confidence":    verification.Confidence,
			"summary":       verification.Summary,
			"evidenceCount": len(verification.EvidenceIDs),
			"branch":        branch,
		}))

	return verification, nil
}

// decide applies the decision table to the evidence window
func (s *VerificationService) decide(ctx context.Context, threat *model.Threat, items []*model.EvidenceItem) (*model.Verification, string) {
	ids := make([]string, 0, len(items))
	var credible []*model.EvidenceItem
	for _, item := range items {
		ids = append(ids, item.ID)
		if item.Credible() {
			credible = append(credible, item)
		}
	}

	if len(items) == 0 {
		return &model.Verification{
			Status:      model.VerdictUnverified,
			Confidence:  35,
			Summary:     noEvidenceSummary,
			EvidenceIDs: ids,
		}, branchNoEvidence
	}

	if len(credible) == 0 {
		return &model.Verification{
			Status:      model.VerdictFalse,
			Confidence:  80,
			Summary:     untrustedSummary,
			EvidenceIDs: ids,
		}, branchNoCredible
	}

	if len(credible) > verdictHeadlines {
		credible = credible[:verdictHeadlines]
	}
	headlines := make([]string, len(credible))
	for i, item := range credible {
		headlines[i] = fmt.Sprintf("%s (%s, credibility %.2f)", item.Title, item.Source, item.Credibility)
	}

	judgment, err := s.askOracle(ctx, threat, headlines)
	if err != nil {
		s.metrics.OracleCall(string(TaskVerdict), "fallback")
		s.logger.WithError(err).WithField("threatId", threat.ID).Warn("Verdict oracle failed")
		return &model.Verification{
			Status:      model.VerdictUnverified,
			Confidence:  60,
			Summary:     oracleDownSummary,
			EvidenceIDs: ids,
		}, branchOracleFailed
	}

	s.metrics.OracleCall(string(TaskVerdict), "ok")
	return &model.Verification{
		Status:      model.VerdictStatus(judgment.Verdict),
		Confidence:  clampConfidence(judgment.Confidence),
		Summary:     judgment.Reason,
		EvidenceIDs: ids,
	}, branchOracle
}

func (s *VerificationService) askOracle(ctx context.Context, threat *model.Threat, headlines []string) (*VerdictJudgment, error) {
	raw, err := s.oracle.Complete(ctx, OracleRequest{
		Task:   TaskVerdict,
		Prompt: buildVerdictPrompt(threat.BrandID, threat.Claim, headlines),
	})
	if err != nil {
		return nil, err
	}
	var judgment VerdictJudgment
	if err := decodeJudgment(raw, &judgment); err != nil {
		return nil, err
	}
	return &judgment, nil
}

// claimKeyword picks the evidence search term, falling back to the first
// keyword the post matched
func (s *VerificationService) claimKeyword(ctx context.Context, threat *model.Threat) (string, error) {
	if kw := firstSignificantToken(threat.Claim); kw != "" {
		return kw, nil
	}
	post, err := s.posts.GetByID(ctx, threat.PostID)
	if err != nil {
		return "", fmt.Errorf("load post %s: %w", threat.PostID, err)
	}
	if post == nil || len(post.MatchedKeywords) == 0 {
		return "", nil
	}
	return post.MatchedKeywords[0], nil
}

func (s *VerificationService) queryEvidence(ctx context.Context, brandID, keyword string) ([]*model.EvidenceItem, error) {
	if s.evidenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.evidenceTimeout)
		defer cancel()
	}
	return s.evidence.QueryEvidence(ctx, brandID, keyword, evidenceWindow)
}

func clampConfidence(c float64) int {
	if math.IsNaN(c) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, c))))
}
