package domain

import (
	"errors"
	"strings"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrAlreadyJoined        = errors.New("already joined")
	ErrSessionFull          = errors.New("session is full")
	ErrNotOrganizer         = errors.New("only the organizer can do this")
	ErrNotMember            = errors.New("not a member of this session")
	ErrOrganizerCannotLeave = errors.New("organizer cannot leave their own session")
	ErrNotPresent           = errors.New("member is not present in the voice room")
	ErrSelfRemoval          = errors.New("organizer cannot remove themselves")
	ErrManageRequired       = errors.New("manage capability required")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrInvalidCapacity      = errors.New("invalid capacity")
	ErrInvalidStreamURL     = errors.New("invalid stream url")
	ErrInvalidField         = errors.New("invalid field")
	ErrGameNotAllowed       = errors.New("game not allowed in this community")
	ErrIDSpaceExhausted     = errors.New("no free session id")
	ErrResourceCreation     = errors.New("session resources could not be created")
	ErrPartialResources     = errors.New("session resources partly created")
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindForbidden      Kind = "forbidden"
	KindRateLimited    Kind = "rate_limited"
	KindPartialFailure Kind = "partial_failure"
	KindInternal       Kind = "internal"
)

// Error classifies a rejected operation. Err is one of the sentinels above so
// callers can match with errors.Is.
type Error struct {
	Kind    Kind
	Err     error
	Detail  string
	Allowed []string
}

func Reject(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Err: err, Detail: detail}
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if len(e.Allowed) > 0 {
		parts = append(parts, "allowed: "+strings.Join(e.Allowed, ", "))
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindInternal for errors that
// did not originate from a rejection.
func KindOf(err error) Kind {
	var rejected *Error
	if errors.As(err, &rejected) {
		return rejected.Kind
	}

	return KindInternal
}
