package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/docchat/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"
)

// streamingModel is an llms.Model that honours the streaming callback.
type streamingModel struct {
	chunks   []string
	failAt   int // index of the chunk that triggers an error, -1 for none
	received []llms.MessageContent
}

func (m *streamingModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.received = msgs
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	var sb strings.Builder
	for i, c := range m.chunks {
		if i == m.failAt {
			return nil, errors.New("connection reset")
		}
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
		sb.WriteString(c)
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: sb.String()}}}, nil
}

func (m *streamingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func collect(t *testing.T) (*[]string, ai.StreamFunc) {
	t.Helper()
	var got []string
	return &got, func(_ context.Context, chunk string) error {
		got = append(got, chunk)
		return nil
	}
}

func TestGenerator_GenerateStream(t *testing.T) {
	ctx := context.Background()
	msgs := []ai.Message{
		ai.SystemMessage("be brief"),
		ai.UserMessage("hi"),
		ai.AssistantMessage("hello"),
		ai.UserMessage("what now?"),
	}

	t.Run("streams each increment", func(t *testing.T) {
		model := &streamingModel{chunks: []string{"The ", "answer ", "[1]."}, failAt: -1}
		gen := NewGeneratorWithModel(model, 0)
		got, fn := collect(t)

		text, err := gen.GenerateStream(ctx, msgs, fn)
		require.NoError(t, err)
		assert.Equal(t, "The answer [1].", text)
		assert.Equal(t, []string{"The ", "answer ", "[1]."}, *got)

		require.Len(t, model.received, 4)
		assert.Equal(t, llms.ChatMessageTypeSystem, model.received[0].Role)
		assert.Equal(t, llms.ChatMessageTypeHuman, model.received[1].Role)
		assert.Equal(t, llms.ChatMessageTypeAI, model.received[2].Role)
	})

	t.Run("non streaming backend emits one increment", func(t *testing.T) {
		gen := NewGeneratorWithModel(fake.NewFakeLLM([]string{"whole answer"}), 0)
		got, fn := collect(t)

		text, err := gen.GenerateStream(ctx, msgs, fn)
		require.NoError(t, err)
		assert.Equal(t, "whole answer", text)
		assert.Equal(t, []string{"whole answer"}, *got)
	})

	t.Run("failure returns partial text", func(t *testing.T) {
		model := &streamingModel{chunks: []string{"Part ", "one ", "never"}, failAt: 2}
		gen := NewGeneratorWithModel(model, 0)
		_, fn := collect(t)

		text, err := gen.GenerateStream(ctx, msgs, fn)
		require.Error(t, err)
		assert.Equal(t, "Part one ", text)
	})

	t.Run("callback error aborts", func(t *testing.T) {
		model := &streamingModel{chunks: []string{"a", "b", "c"}, failAt: -1}
		gen := NewGeneratorWithModel(model, 0)
		stop := errors.New("stop")
		calls := 0

		_, err := gen.GenerateStream(ctx, msgs, func(context.Context, string) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}

func TestGenerator_Generate(t *testing.T) {
	gen := NewGeneratorWithModel(fake.NewFakeLLM([]string{"summary text"}), 0.2)
	text, err := gen.Generate(context.Background(), []ai.Message{ai.UserMessage("summarize")})
	require.NoError(t, err)
	assert.Equal(t, "summary text", text)

	empty := NewGeneratorWithModel(fake.NewFakeLLM(nil), 0.2)
	_, err = empty.Generate(context.Background(), []ai.Message{ai.UserMessage("x")})
	assert.Error(t, err)
}

func TestEmbedder_WithClient(t *testing.T) {
	var seen []string
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(len(texts[i])), 1}
		}
		return out, nil
	})

	e, err := newEmbedderWithClient(client)
	require.NoError(t, err)

	vecs, err := e.EmbedTexts(context.Background(), []string{"a\nb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, float32(3), vecs[0][0])
	assert.Equal(t, "a b", seen[0], "newlines are stripped")

	vec, err := e.EmbedText(context.Background(), "dddd")
	require.NoError(t, err)
	assert.Equal(t, float32(4), vec[0])
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithChatModel(""))
	p, err := NewProvider(cfg)
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ai.DefaultConfig())
	require.NoError(t, err)
	defer p.Close()
	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Generator())
}
