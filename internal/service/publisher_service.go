package service

import (
	"brandwatch/internal/logging"
	"brandwatch/internal/metrics"
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PublisherService posts responses as replies on the target platform
type PublisherService struct {
	responses repository.ResponseRepo
	threats   repository.ThreatRepo
	posts     repository.PostRepo
	client    PlatformClient
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    logging.Logger
	maxChars  int
}

// NewPublisherService creates a new publisher service. maxChars bounds the
// outgoing reply text including the author mention.
func NewPublisherService(
	responses repository.ResponseRepo,
	threats repository.ThreatRepo,
	posts repository.PostRepo,
	client PlatformClient,
	notifier Notifier,
	m *metrics.Metrics,
	logger logging.Logger,
	maxChars int,
) *PublisherService {
	if maxChars <= 0 {
		maxChars = 1000
	}
	return &PublisherService{
		responses: responses,
		threats:   threats,
		posts:     posts,
		client:    client,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		maxChars:  maxChars,
	}
}

// Publish makes one publish attempt for responseID and returns the stored
// response afterwards. It never retries.
func (s *PublisherService) Publish(ctx context.Context, responseID string) (*model.Response, error) {
	resp, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("load response %s: %w", responseID, err)
	}
	if resp == nil {
		return nil, &NotFoundError{Entity: "response", ID: responseID}
	}
	if resp.Status == model.ResponsePosted {
		return resp, ErrResponseAlreadyPosted
	}

	threat, err := s.threats.GetByID(ctx, resp.ThreatID)
	if err != nil {
		return nil, fmt.Errorf("load threat %s: %w", resp.ThreatID, err)
	}
	if threat == nil {
		return nil, &NotFoundError{Entity: "threat", ID: resp.ThreatID}
	}

	post, err := s.posts.GetByID(ctx, threat.PostID)
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", threat.PostID, err)
	}
	if post == nil {
		return nil, &NotFoundError{Entity: "post", ID: threat.PostID}
	}
	if post.ExternalPostID == "" {
		return s.fail(ctx, resp, threat, ErrMissingReplyTarget)
	}

	result, err := s.client.CreatePost(ctx, ReplyPayload{
		Text:  replyText(post.AuthorHandle, resp.Content, s.maxChars),
		Reply: ReplyInfo{InReplyToTweetID: post.ExternalPostID},
	})
	if err != nil {
		return s.fail(ctx, resp, threat, err)
	}
	if !result.OK {
		return s.fail(ctx, resp, threat, &PublishError{
			StatusCode: result.StatusCode,
			Body:       truncateRunes(result.Body, 500, ellipsis),
		})
	}

	replyID := replyIDFrom(result.Body)
	if err := s.responses.MarkPosted(ctx, resp.ID, replyID, time.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResponseAlreadyPosted
		}
		return nil, fmt.Errorf("mark response %s posted: %w", resp.ID, err)
	}

	s.metrics.Publication("posted")
	s.logger.WithFields(logging.Fields{
		"responseId":      resp.ID,
		"threatId":        threat.ID,
		"externalReplyId": replyID,
	}).Info("Response posted")

	s.notifier.Notify(ctx, newEvent(model.EventResponsePosted, resp.ID, threat.BrandID,
		"Response posted",
		map[string]any{
			"threatId":        threat.ID,
			"externalReplyId": replyID,
		}))

	return s.reload(ctx, resp.ID)
}

// fail records a failed attempt, emits response_failed and returns cause
func (s *PublisherService) fail(ctx context.Context, resp *model.Response, threat *model.Threat, cause error) (*model.Response, error) {
	if err := s.responses.MarkFailed(ctx, resp.ID, cause.Error()); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.WithError(err).WithField("responseId", resp.ID).Error("Failed to record publish failure")
	}

	s.metrics.Publication("failed")
	s.logger.WithError(cause).WithFields(logging.Fields{
		"responseId": resp.ID,
		"threatId":   threat.ID,
	}).Warn("Response publish failed")

	s.notifier.Notify(ctx, newEvent(model.EventResponseFailed, resp.ID, threat.BrandID,
		cause.Error(),
		map[string]any{"threatId": threat.ID}))

	updated, err := s.reload(ctx, resp.ID)
	if err != nil {
		updated = resp
	}
	return updated, cause
}

func (s *PublisherService) reload(ctx context.Context, id string) (*model.Response, error) {
	resp, err := s.responses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &NotFoundError{Entity: "response", ID: id}
	}
	return resp, nil
}

func mentionPrefix(author string) string {
	author = strings.TrimPrefix(strings.TrimSpace(author), "@")
	if author == "" {
		return ""
	}
	return "@" + author + " "
}

// replyText prefixes content with the author mention, cutting content so
// the whole text stays within max runes
func replyText(author, content string, max int) string {
	prefix := mentionPrefix(author)
	return prefix + truncateRunes(content, max-runeLen(prefix), ellipsis)
}
