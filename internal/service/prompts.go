package service

import (
	"brandwatch/internal/model"
	"fmt"
	"strings"
)

func buildSentimentPrompt(brand string, post *model.PostEvent) string {
	return fmt.Sprintf(`You are analysing a social media post that mentions the brand "%s". Return ONLY valid JSON:
{
  "sentimentScore": -1.0 to 1.0,
  "tone": "anger" or "concern" or "neutral" or "positive" or "sarcasm",
  "summary": "one sentence summary of what the author claims"
}

Post by @%s:
%s`, brand, post.AuthorHandle, post.Content)
}

func buildVerdictPrompt(brand, claim string, headlines []string) string {
	return fmt.Sprintf(`You are a fact checker for the brand "%s". Judge the claim using ONLY the trusted headlines below.
Return ONLY valid JSON:
{
  "verdict": "TRUE" or "FALSE" or "UNVERIFIED",
  "confidence": 0 to 100,
  "reason": "one sentence explaining the verdict"
}

Claim: %s

Trusted headlines:
- %s`, brand, claim, strings.Join(headlines, "\n- "))
}

func buildReplyPrompt(brand string, threat *model.Threat, citations []*model.EvidenceItem, maxChars int) string {
	var sources strings.Builder
	for _, item := range citations {
		sources.WriteString(fmt.Sprintf("\n- %s (%s)", item.Title, item.Source))
	}

	return fmt.Sprintf(`You write public replies for the brand "%s" correcting inaccurate posts.
Return ONLY valid JSON:
{
  "reply": "the reply text"
}

Rules:
1. Stay factual, calm and polite. Never attack the author.
2. At most %d characters. Do not include links; sources are appended separately.
3. Do not invent facts beyond the verification summary and sources.

Claim: %s
Verification: %s (confidence %d)
Summary: %s
Sources:%s`,
		brand, maxChars, threat.Claim,
		threat.Verification.Status, threat.Verification.Confidence, threat.Verification.Summary,
		sources.String())
}
