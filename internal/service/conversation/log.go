package conversation

import (
	"sync"

	"github.com/zhouzirui/z-chat/internal/model/chat"
)

// Version is the length of the log right after an append. It only grows.
type Version uint64

// Log is the append-only transcript of one session. Appends are atomic with
// respect to length and content, so renderers may read while exchanges settle.
type Log struct {
	mu    sync.RWMutex
	turns []chat.Turn
}

// NewLog returns an empty transcript.
func NewLog() *Log {
	return &Log{turns: make([]chat.Turn, 0, 16)}
}

// Append adds turn as the new last element and returns the new version.
func (l *Log) Append(turn chat.Turn) Version {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = append(l.turns, turn)
	return Version(len(l.turns))
}

// Len returns the current version.
func (l *Log) Len() Version {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Version(len(l.turns))
}

// Snapshot returns a copy of every turn in insertion order.
func (l *Log) Snapshot() []chat.Turn {
	return l.Since(0)
}

// Since returns a copy of the turns appended after version v.
func (l *Log) Since(v Version) []chat.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if int(v) >= len(l.turns) {
		return nil
	}

	copied := make([]chat.Turn, len(l.turns)-int(v))
	copy(copied, l.turns[v:])
	return copied
}
