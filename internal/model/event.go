package model

import "time"

type EventType string

const (
	EventThreatDetected       EventType = "threat_detected"
	EventVerificationComplete EventType = "verification_complete"
	EventResponseReady        EventType = "response_ready"
	EventResponsePosted       EventType = "response_posted"
	EventResponseFailed       EventType = "response_failed"
	EventJobFailed            EventType = "job_failed"
)

// Event is a state-transition notification pushed to dashboards
type Event struct {
	Type     EventType      `json:"type"`
	EntityID string         `json:"entityId"`
	BrandID  string         `json:"brandId,omitempty"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}
