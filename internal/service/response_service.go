package service

import (
	"brandwatch/internal/logging"
	"brandwatch/internal/metrics"
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	maxCitations = 3
	previewRunes = 120
)

// ResponseService drafts corrective responses for FALSE and UNVERIFIED threats
type ResponseService struct {
	threats   repository.ThreatRepo
	posts     repository.PostRepo
	monitors  repository.MonitorRepo
	evidence  repository.EvidenceRepo
	responses repository.ResponseRepo
	oracle    Oracle
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    logging.Logger
	maxChars  int
	footer    string
}

// NewResponseService creates a new response service. maxChars bounds the
// whole rendered content in runes.
func NewResponseService(
	threats repository.ThreatRepo,
	posts repository.PostRepo,
	monitors repository.MonitorRepo,
	evidence repository.EvidenceRepo,
	responses repository.ResponseRepo,
	oracle Oracle,
	notifier Notifier,
	m *metrics.Metrics,
	logger logging.Logger,
	maxChars int,
	footer string,
) *ResponseService {
	if maxChars <= 0 {
		maxChars = 1000
	}
	return &ResponseService{
		threats:   threats,
		posts:     posts,
		monitors:  monitors,
		evidence:  evidence,
		responses: responses,
		oracle:    oracle,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		maxChars:  maxChars,
		footer:    footer,
	}
}

// Synthesize drafts and stores the PENDING response for threatID
func (s *ResponseService) Synthesize(ctx context.Context, threatID string) (*model.Response, error) {
	threat, err := s.threats.GetByID(ctx, threatID)
	if err != nil {
		return nil, fmt.Errorf("load threat %s: %w", threatID, err)
	}
	if threat == nil {
		return nil, &NotFoundError{Entity: "threat", ID: threatID}
	}
	if !threat.Verification.ResponseWorthy() {
		return nil, ErrNotResponseWorthy
	}

	existing, err := s.responses.GetByThreatID(ctx, threatID)
	if err != nil {
		return nil, fmt.Errorf("load response for threat %s: %w", threatID, err)
	}
	if existing != nil && existing.Status == model.ResponsePosted {
		return nil, ErrResponseAlreadyPosted
	}

	citations, err := s.citations(ctx, threat.Verification.EvidenceIDs)
	if err != nil {
		return nil, err
	}
	sources := make([]string, len(citations))
	for i, item := range citations {
		sources[i] = item.URL
	}

	platform := model.PlatformTwitter
	budget := s.maxChars
	if post, err := s.posts.GetByID(ctx, threat.PostID); err == nil && post != nil {
		platform = post.Platform
		// the publisher prefixes the reply with the author mention
		budget -= runeLen(mentionPrefix(post.AuthorHandle))
	}

	brand := s.brandName(ctx, threat)
	body := s.draftBody(ctx, brand, threat, citations)
	content := RenderContent(body, s.footer, sources, budget)

	resp, err := s.responses.UpsertPending(ctx, &model.Response{
		ThreatID:      threatID,
		Platform:      platform,
		Content:       content,
		Sources:       sources,
		Confidence:    threat.Verification.Confidence,
		AutoGenerated: true,
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrResponseAlreadyPosted
	}
	if err != nil {
		return nil, fmt.Errorf("store response for threat %s: %w", threatID, err)
	}

	s.logger.WithFields(logging.Fields{
		"threatId":   threatID,
		"responseId": resp.ID,
		"sources":    len(sources),
		"chars":      runeLen(content),
	}).Info("Response ready")

	s.notifier.Notify(ctx, newEvent(model.EventResponseReady, resp.ID, threat.BrandID,
		truncateRunes(content, previewRunes, ellipsis),
		map[string]any{
			"threatId":   threatID,
			"confidence": resp.Confidence,
			"sources":    sources,
		}))

	return resp, nil
}

// GetResponse returns the response or a NotFoundError
func (s *ResponseService) GetResponse(ctx context.Context, id string) (*model.Response, error) {
	resp, err := s.responses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &NotFoundError{Entity: "response", ID: id}
	}
	return resp, nil
}

// citations returns the most credible items, newest first on ties
func (s *ResponseService) citations(ctx context.Context, ids []string) ([]*model.EvidenceItem, error) {
	items, err := s.evidence.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Credibility != items[j].Credibility {
			return items[i].Credibility > items[j].Credibility
		}
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > maxCitations {
		items = items[:maxCitations]
	}
	return items, nil
}

func (s *ResponseService) draftBody(ctx context.Context, brand string, threat *model.Threat, citations []*model.EvidenceItem) string {
	raw, err := s.oracle.Complete(ctx, OracleRequest{
		Task:   TaskReply,
		Prompt: buildReplyPrompt(brand, threat, citations, s.maxChars),
	})
	if err == nil {
		var judgment ReplyJudgment
		if err = decodeJudgment(raw, &judgment); err == nil {
			s.metrics.OracleCall(string(TaskReply), "ok")
			return judgment.Reply
		}
	}

	s.metrics.OracleCall(string(TaskReply), "fallback")
	s.logger.WithError(err).WithField("threatId", threat.ID).Debug("Reply oracle unavailable, using template")
	return templateReply(brand, threat.Verification.Status)
}

func (s *ResponseService) brandName(ctx context.Context, threat *model.Threat) string {
	if threat.MonitorID != "" {
		mon, err := s.monitors.GetByID(ctx, threat.MonitorID)
		if err == nil && mon != nil && mon.BrandName != "" {
			return mon.BrandName
		}
	}
	return threat.BrandID
}

func templateReply(brand string, status model.VerdictStatus) string {
	if status == model.VerdictFalse {
		return fmt.Sprintf("We've seen claims circulating about %s. Trusted reporting does not support this claim, so please check the sources below before sharing.", brand)
	}
	return fmt.Sprintf("We've seen claims circulating about %s. We could not confirm this claim with trusted reporting, so please rely on official %s channels for accurate information.", brand, brand)
}

// RenderContent joins body, footer and a citation list within max runes.
// The body is cut first and marked with an ellipsis. When the footer and
// citations alone leave no room for the body, citations are left out of the
// text, and then the footer.
func RenderContent(body, footer string, sources []string, max int) string {
	body = strings.TrimSpace(body)

	var tails []string
	if len(sources) > 0 {
		tails = append(tails, renderTail(footer, sources))
	}
	if footer != "" {
		tails = append(tails, renderTail(footer, nil))
	}
	tails = append(tails, "")

	tail := ""
	for _, candidate := range tails {
		if runeLen(candidate) < max {
			tail = candidate
			break
		}
	}

	return truncateRunes(body, max-runeLen(tail), ellipsis) + tail
}

func renderTail(footer string, sources []string) string {
	var b strings.Builder
	if footer != "" {
		b.WriteString("\n\n")
		b.WriteString(footer)
	}
	if len(sources) > 0 {
		b.WriteString("\n\nSources:")
		for _, src := range sources {
			b.WriteString("\n")
			b.WriteString(src)
		}
	}
	return b.String()
}
