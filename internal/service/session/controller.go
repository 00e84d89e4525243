// Package session runs the turns of one conversation: it records the
// participant's input right away, asks the reply service, and records the
// outcome once the exchange settles.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-chat/internal/model/chat"
	"github.com/zhouzirui/z-chat/internal/service/chatclient"
	"github.com/zhouzirui/z-chat/internal/service/conversation"
)

// Sender performs one exchange with the reply service.
type Sender interface {
	Send(ctx context.Context, session chat.SessionIdentity, text string) (string, error)
}

// Stats counts exchanges for diagnostics.
type Stats struct {
	Submitted uint64
	Resolved  uint64
	Failed    uint64
	Discarded uint64
	InFlight  int
}

// Option customises a Controller.
type Option func(*Controller)

// WithFallback replaces DefaultFallback.
func WithFallback(policy FallbackPolicy) Option {
	return func(c *Controller) {
		if policy != nil {
			c.fallback = policy
		}
	}
}

// WithLogger sets the sink for raw exchange failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithAppendHook registers fn to run after every append to the log. It is
// called outside the controller's lock, possibly from several goroutines.
func WithAppendHook(fn func(conversation.Version)) Option {
	return func(c *Controller) {
		c.onAppend = fn
	}
}

// WithSerializedExchanges makes each exchange wait until the previous one has
// settled, so agent turns resolve in submission order. Without it exchanges
// overlap and agent turns land in completion order.
func WithSerializedExchanges() Option {
	return func(c *Controller) {
		c.serialize = true
	}
}

// Controller owns exactly one transcript and one identity. It is not meant
// to be shared between sessions.
type Controller struct {
	ctx        context.Context
	identity   chat.SessionIdentity
	transcript *conversation.Log
	sender     Sender
	fallback   FallbackPolicy
	logger     zerolog.Logger
	onAppend   func(conversation.Version)
	serialize  bool

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	tail   chan struct{}
	stats  Stats
}

// New starts a session for identity. ctx is handed to every exchange.
func New(ctx context.Context, identity chat.SessionIdentity, sender Sender, opts ...Option) *Controller {
	c := &Controller{
		ctx:        ctx,
		identity:   identity,
		transcript: conversation.NewLog(),
		sender:     sender,
		fallback:   DefaultFallback,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "session").Str("session", identity.String()).Logger()
	return c
}

// Identity returns the session identity.
func (c *Controller) Identity() chat.SessionIdentity {
	return c.identity
}

// Log exposes the transcript for readers.
func (c *Controller) Log() *conversation.Log {
	return c.transcript
}

// Snapshot is shorthand for Log().Snapshot().
func (c *Controller) Snapshot() []chat.Turn {
	return c.transcript.Snapshot()
}

// Submit admits one participant utterance. Blank input is dropped without a
// trace. Otherwise the trimmed turn is in the log when Submit returns and the
// exchange continues in the background; the caller may submit again at once.
func (c *Controller) Submit(raw string) {
	turn, ok := chat.ParticipantTurn(raw)
	if !ok {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug().Msg("submit after close ignored")
		return
	}

	var prev <-chan struct{}
	done := make(chan struct{})
	if c.serialize {
		prev = c.tail
		c.tail = done
	}

	version := c.transcript.Append(turn)
	c.stats.Submitted++
	c.stats.InFlight++
	c.wg.Add(1)
	c.mu.Unlock()

	c.notify(version)
	go c.exchange(turn.Content, prev, done)
}

func (c *Controller) exchange(text string, prev <-chan struct{}, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)

	if prev != nil {
		<-prev
	}

	reply, err := c.sender.Send(c.ctx, c.identity, text)
	var turn chat.Turn
	if err != nil {
		c.report(err)
		turn = c.fallback(err)
		turn.Speaker = chat.Agent
	} else {
		turn = chat.AgentTurn(reply)
	}

	c.mu.Lock()
	c.stats.InFlight--
	if c.closed {
		c.stats.Discarded++
		c.mu.Unlock()
		c.logger.Debug().Msg("late result discarded after close")
		return
	}
	if err != nil {
		c.stats.Failed++
	} else {
		c.stats.Resolved++
	}
	version := c.transcript.Append(turn)
	c.mu.Unlock()

	c.notify(version)
}

func (c *Controller) report(err error) {
	event := c.logger.Warn().Err(err)
	if kind, ok := chatclient.KindOf(err); ok {
		event = event.Str("kind", kind.String())
		if status := chatclient.StatusOf(err); status != 0 {
			event = event.Int("status", status)
		}
	}
	event.Msg("exchange failed")
}

func (c *Controller) notify(version conversation.Version) {
	if c.onAppend != nil {
		c.onAppend(version)
	}
}

// Wait blocks until every dispatched exchange has settled. Submit calls that
// race with Wait may or may not be waited for.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close tears the session down. Exchanges still in flight run to completion
// but their results are dropped, and later Submit calls are ignored.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Stats returns a copy of the exchange counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
