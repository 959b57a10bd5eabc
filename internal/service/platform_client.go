package service

import (
	"brandwatch/internal/config"
	"brandwatch/internal/logging"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// ReplyPayload is the body of a reply post
type ReplyPayload struct {
	Text  string    `json:"text"`
	Reply ReplyInfo `json:"reply"`
}

type ReplyInfo struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

// PlatformResult is the raw outcome of a create-post call
type PlatformResult struct {
	OK         bool
	StatusCode int
	Body       string
}

// PlatformClient posts to the target social platform. A non-2xx answer is
// a result, not an error; errors mean no answer was received.
type PlatformClient interface {
	CreatePost(ctx context.Context, payload ReplyPayload) (*PlatformResult, error)
}

// TwitterClient wraps the platform's v2 tweets endpoint
type TwitterClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
}

// NewTwitterClient creates a new platform client
func NewTwitterClient(cfg config.PlatformConfig, logger logging.Logger) *TwitterClient {
	if cfg.Token == "" {
		logger.Warn("PLATFORM_BEARER_TOKEN not set, publishing will be rejected by the platform")
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &TwitterClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// CreatePost sends one reply. It does not retry.
func (c *TwitterClient) CreatePost(ctx context.Context, payload ReplyPayload) (*PlatformResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("platform rate limit: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform response: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"status":    resp.StatusCode,
		"bodyBytes": len(body),
		"replyTo":   payload.Reply.InReplyToTweetID,
	}).Debug("Platform create post")

	return &PlatformResult{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

// replyIDFrom extracts data.id from a create-post answer
func replyIDFrom(body string) string {
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		return ""
	}
	return created.Data.ID
}
