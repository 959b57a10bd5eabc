package service

import (
	"math"
	"strings"
	"unicode"
)

// Word weights for the local sentiment fallback
var sentimentLexicon = map[string]float64{
	// negative
	"awful": -3, "terrible": -3, "horrible": -3, "worst": -3, "scam": -3, "fraud": -3,
	"hate": -3, "disgusting": -3, "dangerous": -3, "toxic": -3, "lawsuit": -2.5,
	"boycott": -2.5, "recall": -2, "outage": -2, "down": -1.5, "broken": -2, "fail": -2,
	"failed": -2, "failure": -2, "bad": -2, "poor": -2, "angry": -2.5, "furious": -3,
	"lies": -2.5, "lie": -2, "lying": -2.5, "fake": -2, "stolen": -2.5, "steal": -2.5,
	"leak": -2, "leaked": -2, "hacked": -2.5, "breach": -2.5, "sick": -2, "poisoned": -3,
	"refund": -1, "complaint": -1.5, "disappointed": -2, "disappointing": -2, "useless": -2.5,
	"crash": -2, "crashed": -2, "slow": -1, "unsafe": -2.5, "warning": -1, "problem": -1.5,
	"problems": -1.5, "issue": -1, "issues": -1, "never": -0.5, "avoid": -1.5, "ripoff": -3,
	// positive
	"good": 2, "great": 3, "excellent": 3, "love": 3, "amazing": 3, "awesome": 3,
	"best": 3, "happy": 2, "thanks": 1.5, "thank": 1.5, "fixed": 1.5, "reliable": 2,
	"safe": 1.5, "recommend": 2, "helpful": 2, "fast": 1, "nice": 1.5, "perfect": 3,
	"works": 1, "working": 1, "resolved": 1.5, "glad": 2, "impressed": 2.5,
}

var negators = map[string]bool{
	"not": true, "no": true, "isn't": true, "isnt": true, "don't": true, "dont": true,
	"doesn't": true, "doesnt": true, "won't": true, "wont": true, "can't": true, "cant": true,
	"never": true, "without": true,
}

// Common words that never identify what a claim is about
var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "been": true, "before": true,
	"being": true, "could": true, "does": true, "doing": true, "down": true, "each": true,
	"from": true, "have": true, "having": true, "here": true, "into": true, "just": true,
	"like": true, "more": true, "most": true, "much": true, "only": true, "other": true,
	"over": true, "really": true, "said": true, "same": true, "says": true, "should": true,
	"some": true, "such": true, "than": true, "that": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true, "those": true,
	"through": true, "very": true, "want": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "will": true, "with": true, "would": true,
	"your": true, "yours": true, "breaking": true, "apparently": true, "heard": true,
	"everyone": true, "people": true, "anyone": true, "today": true, "right": true,
}

// lexiconSentiment scores text in [-1, 1]. A negator flips the next scored word.
func lexiconSentiment(text string) float64 {
	var raw float64
	flip := false
	for _, tok := range tokenize(text) {
		if negators[tok] {
			flip = true
			continue
		}
		if w, ok := sentimentLexicon[tok]; ok {
			if flip {
				w = -w * 0.5
			}
			raw += w
		}
		flip = false
	}
	if raw == 0 {
		return 0
	}
	// same normalisation VADER uses, alpha = 15
	return raw / math.Sqrt(raw*raw+15)
}

// toneFor maps a polarity onto the tone bands
func toneFor(score float64) string {
	switch {
	case score <= -0.4:
		return "anger"
	case score <= -0.2:
		return "concern"
	case score <= 0.2:
		return "neutral"
	default:
		return "positive"
	}
}

// firstSignificantToken returns the first lower-cased word of at least four
// letters that is not a stopword, or "" when there is none
func firstSignificantToken(text string) string {
	for _, tok := range tokenize(text) {
		if len([]rune(tok)) < 4 || stopwords[tok] || !allLetters(tok) {
			continue
		}
		return tok
	}
	return ""
}

// tokenize lower-cases text and splits it on anything that is not a letter,
// digit or apostrophe
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func allLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// matchKeywords returns the keywords contained in text, case-insensitively
func matchKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}
