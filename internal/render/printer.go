// Package render prints a live transcript and exports it when a session ends.
package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/zhouzirui/z-chat/internal/service/conversation"
)

// Printer writes turns of a log to w as they are appended. Each turn is
// printed exactly once, in log order.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	log    *conversation.Log
	styles Styles
	shown  conversation.Version
}

// NewPrinter returns a printer for log that has not printed anything yet.
func NewPrinter(w io.Writer, log *conversation.Log) *Printer {
	return &Printer{
		w:      w,
		log:    log,
		styles: NewStyles(w),
	}
}

// Bind sets the log to print. It is used when the log only exists after the
// printer was handed out as an append hook.
func (p *Printer) Bind(log *conversation.Log) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = log
}

// Notify prints every turn appended since the last call. It matches the
// signature of an append hook and is safe to call from many goroutines.
func (p *Printer) Notify(conversation.Version) {
	p.Flush()
}

// Flush prints turns not yet shown and returns how many were printed.
func (p *Printer) Flush() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.log == nil {
		return 0
	}

	turns := p.log.Since(p.shown)
	for _, turn := range turns {
		fmt.Fprintln(p.w, p.styles.Turn(turn))
	}
	p.shown += conversation.Version(len(turns))
	return len(turns)
}

// Status prints a dim informational line.
func (p *Printer) Status(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.styles.Status.Render(fmt.Sprintf(format, args...)))
}
