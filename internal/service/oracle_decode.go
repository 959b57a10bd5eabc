package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// SentimentJudgment is the oracle output for TaskSentiment
type SentimentJudgment struct {
	SentimentScore float64 `json:"sentimentScore" validate:"gte=-1,lte=1"`
	Tone           string  `json:"tone" validate:"required"`
	Summary        string  `json:"summary"`
}

// VerdictJudgment is the oracle output for TaskVerdict. Confidence is clamped, not validated.
type VerdictJudgment struct {
	Verdict    string  `json:"verdict" validate:"required,oneof=TRUE FALSE UNVERIFIED"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason" validate:"required"`
}

func (j *VerdictJudgment) normalize() {
	j.Verdict = strings.ToUpper(strings.TrimSpace(j.Verdict))
}

// ReplyJudgment is the oracle output for TaskReply
type ReplyJudgment struct {
	Reply string `json:"reply" validate:"required"`
}

func (j *ReplyJudgment) normalize() {
	j.Reply = strings.TrimSpace(j.Reply)
}

type normalizer interface {
	normalize()
}

// decodeJudgment strictly decodes raw oracle text into out. Any error means
// the caller takes its fallback branch.
func decodeJudgment(raw string, out any) error {
	raw = stripCodeFence(raw)
	if raw == "" {
		return fmt.Errorf("empty oracle output")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode oracle output: %w", err)
	}
	if n, ok := out.(normalizer); ok {
		n.normalize()
	}
	if err := structValidator.Struct(out); err != nil {
		return fmt.Errorf("validate oracle output: %w", err)
	}
	return nil
}

// stripCodeFence removes a ```json ... ``` wrapper models sometimes add
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
