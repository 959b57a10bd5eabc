package model

import "time"

type ResponseStatus string

const (
	ResponsePending ResponseStatus = "PENDING"
	ResponsePosted  ResponseStatus = "POSTED"
	ResponseFailed  ResponseStatus = "FAILED"
)

// Response is the correction tied to exactly one threat
type Response struct {
	ID              string         `json:"id" bson:"_id"`
	ThreatID        string         `json:"threatId" bson:"threatId"`
	Platform        Platform       `json:"platform" bson:"platform"`
	Content         string         `json:"content" bson:"content"`
	Sources         []string       `json:"sources" bson:"sources"`
	Confidence      int            `json:"confidence" bson:"confidence"`
	Status          ResponseStatus `json:"status" bson:"status"`
	AutoGenerated   bool           `json:"autoGenerated" bson:"autoGenerated"`
	ExternalReplyID string         `json:"externalReplyId,omitempty" bson:"externalReplyId,omitempty"`
	LastError       string         `json:"lastError,omitempty" bson:"lastError,omitempty"`
	Attempts        int            `json:"attempts" bson:"attempts"`
	PostedAt        *time.Time     `json:"postedAt,omitempty" bson:"postedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" bson:"updatedAt"`
}
