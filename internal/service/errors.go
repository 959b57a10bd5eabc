package service

import (
	"brandwatch/internal/repository"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// ErrMissingReplyTarget means the post being answered has no external id to reply to
	ErrMissingReplyTarget = errors.New("post has no reply target")

	ErrResponseAlreadyPosted = errors.New("response already posted")
	ErrNotResponseWorthy     = errors.New("threat verdict does not call for a response")
	ErrOracleDisabled        = errors.New("judgment oracle not configured")
	ErrInvalidPost           = errors.New("invalid post event")
)

// NotFoundError reports a missing pipeline entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// PublishError is a non-2xx answer from the target platform
type PublishError struct {
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("platform returned %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether a later attempt may succeed
func (e *PublishError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsPermanent reports whether retrying err can never succeed
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return true
	}

	var publishErr *PublishError
	if errors.As(err, &publishErr) {
		return !publishErr.Transient()
	}

	return errors.Is(err, ErrMissingReplyTarget) ||
		errors.Is(err, ErrResponseAlreadyPosted) ||
		errors.Is(err, ErrNotResponseWorthy) ||
		errors.Is(err, ErrInvalidPost) ||
		errors.Is(err, repository.ErrNotFound)
}
