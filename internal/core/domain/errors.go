package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrInvalidPollID    = errors.New("invalid poll id")
	ErrForbidden        = errors.New("not allowed to modify this poll")
	ErrPollDecided      = errors.New("poll is already decided")
	ErrUnknownInvitee   = errors.New("invitee token does not belong to this poll")
	ErrRaceLost         = errors.New("outcome already claimed by another evaluator")
	ErrDispatchFailed   = errors.New("notification dispatch failed")
	ErrStoreUnavailable = errors.New("poll store unavailable")
)

// ValidationError rejects malformed input before it reaches aggregation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
