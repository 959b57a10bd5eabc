package model

import "time"

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type ThreatType string

const (
	ThreatNegativeSentiment ThreatType = "negative_sentiment"
	ThreatViralRisk         ThreatType = "viral_risk"
	ThreatCrisis            ThreatType = "crisis"
)

type ThreatStatus string

const (
	ThreatNew       ThreatStatus = "NEW"
	ThreatVerifying ThreatStatus = "VERIFYING"
	ThreatResponded ThreatStatus = "RESPONDED"
	ThreatResolved  ThreatStatus = "RESOLVED"
)

type VerdictStatus string

const (
	VerdictTrue       VerdictStatus = "TRUE"
	VerdictFalse      VerdictStatus = "FALSE"
	VerdictUnverified VerdictStatus = "UNVERIFIED"
)

// Verification is stored as one embedded document so its fields are set together
type Verification struct {
	Status      VerdictStatus `json:"status" bson:"status"`
	Confidence  int           `json:"confidence" bson:"confidence"`
	Summary     string        `json:"summary" bson:"summary"`
	EvidenceIDs []string      `json:"evidenceIds" bson:"evidenceIds"`
	VerifiedAt  time.Time     `json:"verifiedAt" bson:"verifiedAt"`
}

// ResponseWorthy reports whether the verdict calls for a correction
func (v *Verification) ResponseWorthy() bool {
	return v != nil && (v.Status == VerdictFalse || v.Status == VerdictUnverified)
}

type Threat struct {
	ID           string        `json:"id" bson:"_id"`
	PostID       string        `json:"postId" bson:"postId"`
	BrandID      string        `json:"brandId" bson:"brandId"`
	MonitorID    string        `json:"monitorId" bson:"monitorId"`
	Claim        string        `json:"claim" bson:"claim"`
	Severity     Severity      `json:"severity" bson:"severity"`
	Type         ThreatType    `json:"type" bson:"type"`
	Score        float64       `json:"score" bson:"score"`
	Reasons      []string      `json:"reasons" bson:"reasons"`
	AutoPost     bool          `json:"autoPost" bson:"autoPost"`
	Status       ThreatStatus  `json:"status" bson:"status"`
	Verification *Verification `json:"verification" bson:"verification"`
	CreatedAt    time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Rank orders statuses so updates never move a threat backwards
func (s ThreatStatus) Rank() int {
	switch s {
	case ThreatVerifying:
		return 1
	case ThreatResponded, ThreatResolved:
		return 2
	default:
		return 0
	}
}
