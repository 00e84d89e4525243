package chatclient

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an exchange failed.
type Kind int

const (
	// KindUnreachable means the transport never produced a response.
	KindUnreachable Kind = iota + 1
	// KindBadStatus means a response arrived with a non-2xx status.
	KindBadStatus
	// KindMalformedResponse means a 2xx response had no usable reply field.
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindBadStatus:
		return "bad_status"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrUnreachable       = errors.New("chat service unreachable")
	ErrBadStatus         = errors.New("chat service returned non-success status")
	ErrMalformedResponse = errors.New("chat service returned malformed response")

	errMissingReply = errors.New("reply field missing")
	errBodyTooLarge = errors.New("response body exceeds limit")
)

// Error is returned by Client.Send for every failed exchange.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := "chat: " + e.Kind.String()
	if e.Kind == KindBadStatus {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers match a failure against ErrUnreachable, ErrBadStatus or
// ErrMalformedResponse.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrBadStatus:
		return e.Kind == KindBadStatus
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	}
	return false
}

// KindOf extracts the failure kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Kind, true
	}
	return 0, false
}

// StatusOf returns the HTTP status of a BadStatus failure, or 0.
func StatusOf(err error) int {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.StatusCode
	}
	return 0
}
