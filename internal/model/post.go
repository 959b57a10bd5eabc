package model

import "time"

type Platform string

const (
	PlatformTwitter Platform = "twitter"
)

// EngagementMetrics are the counters reported by the platform at capture time
type EngagementMetrics struct {
	Likes    int64 `json:"likes" bson:"likes" validate:"gte=0"`
	Retweets int64 `json:"retweets" bson:"retweets" validate:"gte=0"`
	Replies  int64 `json:"replies" bson:"replies" validate:"gte=0"`
	Views    int64 `json:"views" bson:"views" validate:"gte=0"`
}

// Interactions is likes + retweets + replies
func (m EngagementMetrics) Interactions() int64 {
	return m.Likes + m.Retweets + m.Replies
}

// PostEvent is what the ingestion adapter submits for every observed post
type PostEvent struct {
	ExternalPostID string            `json:"id" validate:"required"`
	Platform       Platform          `json:"platform" validate:"required"`
	BrandID        string            `json:"brandId,omitempty"`
	Content        string            `json:"content" validate:"required"`
	AuthorHandle   string            `json:"author"`
	AuthorID       string            `json:"authorId,omitempty"`
	Metrics        EngagementMetrics `json:"metrics"`
	PostedAt       time.Time         `json:"postedAt"`
}

// DetectedPost is an observed external post, unique on (externalPostId, platform)
type DetectedPost struct {
	ID              string            `json:"id" bson:"_id"`
	BrandID         string            `json:"brandId" bson:"brandId"`
	MonitorID       string            `json:"monitorId" bson:"monitorId"`
	ExternalPostID  string            `json:"externalPostId" bson:"externalPostId"`
	Platform        Platform          `json:"platform" bson:"platform"`
	Content         string            `json:"content" bson:"content"`
	AuthorHandle    string            `json:"authorHandle" bson:"authorHandle"`
	AuthorID        string            `json:"authorId,omitempty" bson:"authorId,omitempty"`
	Metrics         EngagementMetrics `json:"metrics" bson:"metrics"`
	SentimentScore  float64           `json:"sentimentScore" bson:"sentimentScore"`
	Tone            string            `json:"tone" bson:"tone"`
	Summary         string            `json:"summary,omitempty" bson:"summary,omitempty"`
	ViralityScore   float64           `json:"viralityScore" bson:"viralityScore"`
	MatchedKeywords []string          `json:"matchedKeywords" bson:"matchedKeywords"`
	Flagged         bool              `json:"flagged" bson:"flagged"`
	PostedAt        time.Time         `json:"postedAt" bson:"postedAt"`
	CapturedAt      time.Time         `json:"capturedAt" bson:"capturedAt"`
	UpdatedAt       time.Time         `json:"updatedAt" bson:"updatedAt"`
}
