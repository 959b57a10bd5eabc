package model

import "time"

// Monitor is the per-brand trigger policy consumed by the scoring engine
type Monitor struct {
	ID                  string    `json:"id" bson:"_id"`
	BrandID             string    `json:"brandId" bson:"brandId"`
	BrandName           string    `json:"brandName" bson:"brandName"`
	Platform            Platform  `json:"platform" bson:"platform"`
	Keywords            []string  `json:"keywords" bson:"keywords"`
	ExcludeKeywords     []string  `json:"excludeKeywords" bson:"excludeKeywords"`
	SentimentThreshold  float64   `json:"sentimentThreshold" bson:"sentimentThreshold"`
	ViralityThreshold   float64   `json:"viralityThreshold" bson:"viralityThreshold"`
	EngagementThreshold int64     `json:"engagementThreshold" bson:"engagementThreshold"`
	AutoPost            bool      `json:"autoPost" bson:"autoPost"`
	Active              bool      `json:"active" bson:"active"`
	CreatedAt           time.Time `json:"createdAt" bson:"createdAt"`
}
