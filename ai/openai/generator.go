package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator on top of a langchaingo chat model.
type Generator struct {
	model       llms.Model
	temperature float64
	logger      *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}
	return newGeneratorWithModel(client, config.Temperature), nil
}

func newGeneratorWithModel(model llms.Model, temperature float64) *Generator {
	return &Generator{
		model:       model,
		temperature: temperature,
		logger:      slog.Default().With("component", "openai-generator"),
	}
}

// NewGenerator creates a new generator using the provided configuration.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// NewGeneratorWithModel adapts an arbitrary langchaingo model, such as
// llms/fake in tests or a non-OpenAI backend.
func NewGeneratorWithModel(model llms.Model, temperature float64) ai.Generator {
	return newGeneratorWithModel(model, temperature)
}

// GenerateStream runs the model with streaming enabled. Backends that ignore
// the streaming callback deliver their whole answer as a single increment.
func (g *Generator) GenerateStream(ctx context.Context, messages []ai.Message, fn ai.StreamFunc) (string, error) {
	g.logger.Debug("streaming completion", "messages", len(messages))

	var streamed strings.Builder
	resp, err := g.model.GenerateContent(ctx, toMessageContent(messages),
		llms.WithTemperature(g.temperature),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed.Write(chunk)
			return fn(ctx, string(chunk))
		}),
	)
	if err != nil {
		g.logger.Error("completion failed", "streamed", streamed.Len(), "err", err)
		return streamed.String(), err
	}

	if streamed.Len() == 0 {
		full, err := firstChoice(resp)
		if err != nil {
			return "", err
		}
		if full != "" {
			if err := fn(ctx, full); err != nil {
				return "", err
			}
		}
		return full, nil
	}
	return streamed.String(), nil
}

// Generate runs the model and returns the whole answer.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	g.logger.Debug("completion", "messages", len(messages))

	resp, err := g.model.GenerateContent(ctx, toMessageContent(messages),
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		g.logger.Error("completion failed", "err", err)
		return "", err
	}
	return firstChoice(resp)
}

func firstChoice(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

func toMessageContent(messages []ai.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(chatMessageType(m.Role), m.Content))
	}
	return out
}

func chatMessageType(role ai.MessageRole) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
