package model

import "time"

// CredibleThreshold is the minimum credibility for an item to count as trusted coverage
const CredibleThreshold = 0.7

// EvidenceItem is a third-party document collected by the scraper. Read-only here.
type EvidenceItem struct {
	ID          string    `json:"id" bson:"_id"`
	BrandID     string    `json:"brandId" bson:"brandId"`
	URL         string    `json:"url" bson:"url"`
	Title       string    `json:"title" bson:"title"`
	Body        string    `json:"body" bson:"body"`
	Source      string    `json:"source" bson:"source"`
	PublishedAt time.Time `json:"publishedAt" bson:"publishedAt"`
	Credibility float64   `json:"credibility" bson:"credibility"`
}

func (e *EvidenceItem) Credible() bool {
	return e.Credibility >= CredibleThreshold
}
