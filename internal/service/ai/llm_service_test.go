package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-chat/internal/service/history"
	"github.com/zhouzirui/z-chat/internal/service/reply"
)

type fakeModel struct {
	input []*schema.Message
	reply string
	err   error
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestGenerateBuildsPromptFromHistory(t *testing.T) {
	fake := &fakeModel{reply: "nice to meet you"}
	svc, err := NewServiceWithModel(context.Background(), fake, zerolog.Nop())
	require.NoError(t, err)

	prior := []history.Entry{
		{Role: history.RoleUser, Content: "私の名前は太郎です"},
		{Role: history.RoleNote, Content: reply.NameNotePrefix + "太郎"},
		{Role: history.RoleAssistant, Content: "こんにちは、太郎さん！"},
	}

	got, err := svc.Generate(context.Background(), prior, "how are you?")
	require.NoError(t, err)
	assert.Equal(t, "nice to meet you", got.Reply)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Contains(t, fake.input[0].Content, "太郎")
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
	assert.Equal(t, schema.User, fake.input[3].Role)
	assert.Equal(t, "how are you?", fake.input[3].Content)
}

func TestGenerateWrapsModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc, err := NewServiceWithModel(context.Background(), &fakeModel{err: boom}, zerolog.Nop())
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), nil, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestBuildHistoryMessagesKeepsNewestSpokenEntries(t *testing.T) {
	var entries []history.Entry
	for i := 0; i < historyLimit+5; i++ {
		entries = append(entries,
			history.Entry{Role: history.RoleUser, Content: fmt.Sprintf("q%d", i)},
			history.Entry{Role: history.RoleNote, Content: "note"},
		)
	}

	messages := buildHistoryMessages(entries)
	require.Len(t, messages, historyLimit)
	assert.Equal(t, "q5", messages[0].Content)
	assert.Equal(t, fmt.Sprintf("q%d", historyLimit+4), messages[len(messages)-1].Content)
	assert.Nil(t, buildHistoryMessages(nil))
}

func TestBuildSystemPromptWithoutName(t *testing.T) {
	assert.Equal(t, basePrompt, buildSystemPrompt(nil))
}
