// Package history keeps what each user has said to the reply service so that
// later replies can refer back to it.
package history

import (
	"context"

	"github.com/pkg/errors"
)

// Role tags a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleNote entries are facts the responder extracted, not spoken text.
	RoleNote Role = "note"
)

// Entry is one line of a user's history.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var ErrUserIDRequired = errors.New("user id is required")

// Store persists per-user history in insertion order.
type Store interface {
	Append(ctx context.Context, userID string, entries ...Entry) error
	// Recent returns up to limit of the newest entries, oldest first.
	// A limit <= 0 returns everything.
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
}

func tail(entries []Entry, limit int) []Entry {
	if limit > 0 && len(entries) > limit {
		return entries[len(entries)-limit:]
	}
	return entries
}
