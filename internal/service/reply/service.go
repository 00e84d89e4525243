// Package reply answers chat messages and records them in the user's history.
package reply

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-chat/internal/service/history"
)

// Result is a generated reply plus any notes worth remembering.
type Result struct {
	Reply string
	Notes []string
}

// Generator produces a reply from the user's earlier history and new message.
type Generator interface {
	Generate(ctx context.Context, prior []history.Entry, message string) (Result, error)
}

// Source names which generator answered.
type Source string

const (
	SourceRules    Source = "rules"
	SourceLLM      Source = "llm"
	SourceFallback Source = "llm_fallback"
)

// Observer is told how every reply was produced.
type Observer interface {
	ObserveReply(source Source, err error, elapsed time.Duration)
}

// Service answers messages, preferring the primary generator when one is
// set and falling back to Rules when it fails.
type Service struct {
	store    history.Store
	primary  Generator
	rules    Generator
	observer Observer
	logger   zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithPrimary answers with g first. Rules stay as the fallback.
func WithPrimary(g Generator) Option {
	return func(s *Service) {
		s.primary = g
	}
}

// WithObserver reports every reply to o.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService answers with Rules unless a primary generator is configured.
func NewService(store history.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		rules:  NewRules(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reply answers message for userID and records the exchange.
func (s *Service) Reply(ctx context.Context, userID, message string) (string, error) {
	if userID == "" {
		return "", history.ErrUserIDRequired
	}

	started := time.Now()
	prior, err := s.store.Recent(ctx, userID, 0)
	if err != nil {
		s.observe(SourceRules, err, started)
		return "", errors.Wrap(err, "failed to load history")
	}

	result, source, err := s.generate(ctx, prior, message)
	if err != nil {
		s.observe(source, err, started)
		return "", err
	}

	entries := make([]history.Entry, 0, len(result.Notes)+2)
	entries = append(entries, history.Entry{Role: history.RoleUser, Content: message})
	for _, note := range result.Notes {
		entries = append(entries, history.Entry{Role: history.RoleNote, Content: note})
	}
	entries = append(entries, history.Entry{Role: history.RoleAssistant, Content: result.Reply})

	if err := s.store.Append(ctx, userID, entries...); err != nil {
		s.observe(source, err, started)
		return "", errors.Wrap(err, "failed to save history")
	}

	s.observe(source, nil, started)
	s.logger.Debug().
		Str("user_id", userID).
		Str("source", string(source)).
		Int("length", len(result.Reply)).
		Msg("reply generated")
	return result.Reply, nil
}

func (s *Service) generate(ctx context.Context, prior []history.Entry, message string) (Result, Source, error) {
	if s.primary == nil {
		result, err := s.rules.Generate(ctx, prior, message)
		return result, SourceRules, err
	}

	result, err := s.primary.Generate(ctx, prior, message)
	if err == nil {
		result.Notes = append(result.Notes, NameNotes(message)...)
		return result, SourceLLM, nil
	}
	s.logger.Warn().Err(err).Msg("primary generator failed, falling back to rules")

	result, err = s.rules.Generate(ctx, prior, message)
	return result, SourceFallback, err
}

func (s *Service) observe(source Source, err error, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveReply(source, err, time.Since(started))
	}
}
