package ai

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/internal/service/history"
	"github.com/zhouzirui/z-chat/internal/service/reply"
)

const historyLimit = 10

const basePrompt = "You are a friendly AI chat partner. Answer briefly and in the language the user writes in."

// Service generates replies with a chat model.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger zerolog.Logger
}

// NewService builds the model from cfg and compiles the prompt chain.
func NewService(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat model")
	}
	return NewServiceWithModel(ctx, chatModel, logger)
}

// NewServiceWithModel compiles the prompt chain around an existing model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, logger zerolog.Logger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile chat chain")
	}

	return &Service{
		chain:  runnable,
		logger: logger.With().Str("component", "ai").Logger(),
	}, nil
}

// Generate asks the model for a reply to message given the user's history.
func (s *Service) Generate(ctx context.Context, prior []history.Entry, message string) (reply.Result, error) {
	input := map[string]any{
		"system":  buildSystemPrompt(prior),
		"history": buildHistoryMessages(prior),
		"query":   message,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return reply.Result{}, errors.Wrap(err, "failed to run AI chain")
	}
	if response == nil {
		return reply.Result{}, errors.New("chat model returned no message")
	}

	s.logger.Debug().Int("history", len(prior)).Int("length", len(response.Content)).Msg("generated response")
	return reply.Result{Reply: response.Content}, nil
}

func buildSystemPrompt(prior []history.Entry) string {
	name, ok := reply.RememberedName(prior)
	if !ok {
		return basePrompt
	}

	var builder strings.Builder
	builder.WriteString(basePrompt)
	builder.WriteString("\nThe user's name is ")
	builder.WriteString(name)
	builder.WriteString(". Address them by name when it feels natural.")
	return builder.String()
}

func buildHistoryMessages(entries []history.Entry) []*schema.Message {
	spoken := make([]history.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Role == history.RoleUser || entry.Role == history.RoleAssistant {
			spoken = append(spoken, entry)
		}
	}
	if len(spoken) == 0 {
		return nil
	}

	startIdx := 0
	if len(spoken) > historyLimit {
		startIdx = len(spoken) - historyLimit
	}

	messages := make([]*schema.Message, 0, len(spoken)-startIdx)
	for _, entry := range spoken[startIdx:] {
		switch entry.Role {
		case history.RoleUser:
			messages = append(messages, schema.UserMessage(entry.Content))
		case history.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(entry.Content, nil))
		}
	}
	return messages
}
