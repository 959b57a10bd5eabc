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

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/time/rate"
)

// OracleTask selects the model and the expected output schema
type OracleTask string

const (
	TaskSentiment OracleTask = "sentiment"
	TaskVerdict   OracleTask = "verdict"
	TaskReply     OracleTask = "reply"
)

const breakerFailureThreshold = 5

type OracleRequest struct {
	Task   OracleTask
	Prompt string
}

// Oracle is the fallible external judgment service. Every caller must have a fallback.
type Oracle interface {
	Complete(ctx context.Context, req OracleRequest) (string, error)
}

// GeminiOracle calls the Gemini generateContent API
type GeminiOracle struct {
	config  *config.AIConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker circuitbreaker.CircuitBreaker[string]
	logger  logging.Logger
}

// NewGeminiOracle creates a new Gemini-backed oracle
func NewGeminiOracle(cfg *config.AIConfig, logger logging.Logger) *GeminiOracle {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	breaker := circuitbreaker.NewBuilder[string]().
		WithFailureThreshold(breakerFailureThreshold).
		WithDelay(cfg.BreakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.WithFields(logging.Fields{
				"from_state": breakerStateName(event.OldState),
				"to_state":   breakerStateName(event.NewState),
			}).Warn("Oracle circuit breaker state change")
		}).
		Build()

	return &GeminiOracle{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		logger:  logger,
	}
}

// Complete returns the raw text of the first candidate. Errors cover a
// disabled oracle, pacing timeouts, an open breaker and API failures.
func (o *GeminiOracle) Complete(ctx context.Context, req OracleRequest) (string, error) {
	if !o.config.IsEnabled() {
		return "", ErrOracleDisabled
	}

	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("oracle rate limit: %w", err)
	}

	modelName := o.modelFor(req.Task)
	return failsafe.With[string](o.breaker).WithContext(ctx).Get(func() (string, error) {
		return o.callGemini(ctx, modelName, req.Prompt)
	})
}

func breakerStateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

func (o *GeminiOracle) modelFor(task OracleTask) string {
	switch task {
	case TaskVerdict:
		return o.config.Models.Verdict
	case TaskReply:
		return o.config.Models.Reply
	default:
		return o.config.Models.Sentiment
	}
}

// callGemini makes a request to the Gemini API
func (o *GeminiOracle) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", o.config.ModelEndpoint(modelName), o.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode, truncateRunes(string(body), 200, ""))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", fmt.Errorf("empty response from Gemini")
}
