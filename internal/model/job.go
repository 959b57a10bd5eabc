package model

import "time"

type JobKind string

const (
	JobScorePost      JobKind = "score-post"
	JobVerifyOne      JobKind = "verify-one"
	JobScanUnverified JobKind = "scan-unverified"
)

// Job is the unit stored in the durable queue
type Job struct {
	ID          string     `json:"id"`
	Kind        JobKind    `json:"kind"`
	ThreatID    string     `json:"threatId,omitempty"`
	AutoPost    bool       `json:"autoPost,omitempty"`
	Post        *PostEvent `json:"post,omitempty"`
	Attempt     int        `json:"attempt"`
	MaxAttempts int        `json:"maxAttempts"`
	DedupKey    string     `json:"dedupKey,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueuedAt"`
}

// EntityID is the id reported in notifications about this job
func (j *Job) EntityID() string {
	if j.ThreatID != "" {
		return j.ThreatID
	}
	if j.Post != nil {
		return j.Post.ExternalPostID
	}
	return j.ID
}
