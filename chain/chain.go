package chain

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/retrieval"
	"github.com/poiesic/docchat/session"
	"github.com/poiesic/docchat/storage"
)

// ErrorPrefix starts the inline message that replaces a failed answer's tail.
const ErrorPrefix = "Error generating response: "

// summaryHeading introduces the condensed answer.
const summaryHeading = "Summary:"

// Config selects how a chain answers.
type Config struct {
	// K is the number of chunks retrieved per question, in [1, core.MaxK].
	K int
	// Summarize appends a condensed version of the answer.
	Summarize bool
}

// DefaultConfig returns the configuration used by the chat front end.
func DefaultConfig() Config {
	return Config{K: core.DefaultK}
}

// Validate checks the retrieval depth.
func (c Config) Validate() error {
	return core.ValidateK(c.K)
}

func (c Config) key() string {
	return fmt.Sprintf("%d:%t", c.K, c.Summarize)
}

// Chain answers questions from indexed documents.
type Chain struct {
	retriever *retrieval.Retriever
	generator ai.Generator
	sessions  *session.Store
	config    Config
	monitor   retrieval.Monitor
	logger    *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithMonitor observes the retrieval stage of every question.
func WithMonitor(monitor retrieval.Monitor) Option {
	return func(c *Chain) error {
		c.monitor = monitor
		return nil
	}
}

// New creates a chain over store. The retriever depth is fixed by config.K.
func New(store storage.IndexStore, generator ai.Generator, sessions *session.Store, config Config, opts ...Option) (*Chain, error) {
	if store == nil {
		return nil, ErrIndexRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if sessions == nil {
		return nil, ErrSessionsRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Chain{
		generator: generator,
		sessions:  sessions,
		config:    config,
		logger:    slog.Default().With("component", "chain"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	var retrieverOpts []retrieval.Option
	retrieverOpts = append(retrieverOpts, retrieval.WithLogger(c.logger))
	if c.monitor != nil {
		retrieverOpts = append(retrieverOpts, retrieval.WithMonitor(c.monitor))
	}
	retriever, err := retrieval.New(store, config.K, retrieverOpts...)
	if err != nil {
		return nil, err
	}
	c.retriever = retriever
	return c, nil
}

// Config returns the configuration the chain was built with.
func (c *Chain) Config() Config {
	return c.config
}

// Stream answers question within a session. The returned sequence yields
// text increments whose concatenation is the final answer. It can be ranged
// over once.
//
// When the sequence is consumed to the end, the question and the answer (or
// the inline error) are appended to the session. Breaking out early abandons
// the answer and leaves the session untouched.
func (c *Chain) Stream(ctx context.Context, sessionID, question string) (iter.Seq[string], error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}
	if err := core.ValidateQuestion(question); err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var answer strings.Builder
		stopped := false
		emit := func(s string) bool {
			if stopped {
				return false
			}
			if s == "" {
				return true
			}
			answer.WriteString(s)
			if !yield(s) {
				stopped = true
				cancel()
			}
			return !stopped
		}

		err := c.answer(ctx, sessionID, question, emit)
		if stopped {
			c.logger.Debug("answer abandoned", "session", sessionID)
			return
		}
		if err != nil {
			c.logger.Error("error answering question", "session", sessionID, "err", err)
			msg := ErrorPrefix + err.Error()
			if answer.Len() > 0 {
				msg = "\n\n" + msg
			}
			if !emit(msg) {
				return
			}
		}

		if err := c.sessions.AppendExchange(ctx, sessionID, question, answer.String()); err != nil {
			c.logger.Error("error recording exchange", "session", sessionID, "err", err)
		}
	}, nil
}

// Ask runs Stream to completion and returns the full answer.
func (c *Chain) Ask(ctx context.Context, sessionID, question string) (string, error) {
	stream, err := c.Stream(ctx, sessionID, question)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for increment := range stream {
		sb.WriteString(increment)
	}
	return sb.String(), nil
}

// answer runs every stage, pushing increments through emit.
func (c *Chain) answer(ctx context.Context, sessionID, question string, emit func(string) bool) error {
	history, err := c.sessions.History(ctx, sessionID)
	if err != nil {
		return err
	}

	result, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return err
	}
	chunks := result.Chunks()

	system, err := buildSystemPrompt(chunks)
	if err != nil {
		return fmt.Errorf("building prompt: %w", err)
	}
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.SystemMessage(system))
	for _, turn := range history {
		if turn.Role == core.RoleUser {
			messages = append(messages, ai.UserMessage(turn.Text))
		} else {
			messages = append(messages, ai.AssistantMessage(turn.Text))
		}
	}
	messages = append(messages, ai.UserMessage(question))

	filter := newSourcesFilter(emit)
	_, err = c.generator.GenerateStream(ctx, messages, func(_ context.Context, increment string) error {
		if !filter.write(increment) {
			return errAbandoned
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAbandoned) {
			return err
		}
		filter.finish()
		return fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	body := filter.finish()

	var extra strings.Builder
	if c.config.Summarize && body != "" {
		summary, err := c.summarize(ctx, body)
		if err != nil {
			return err
		}
		if summary != "" {
			extra.WriteString("\n\n" + summaryHeading + " " + summary)
		}
	}

	if len(chunks) == 0 {
		emit(extra.String())
		return nil
	}

	cited := citedNumbers(body, len(chunks))
	if len(cited) == 0 {
		cited = citedNumbers(filter.modelSources(), len(chunks))
	}
	if len(cited) == 0 {
		for n := range chunks {
			cited = append(cited, n+1)
		}
	}

	final := FormatSources(body + extra.String() + "\n\n" + sourcesRun(chunks, cited))
	emit(final[len(body):])
	return nil
}

// summarize condenses answer in a single non-streaming model call.
func (c *Chain) summarize(ctx context.Context, answer string) (string, error) {
	prompt, err := buildSummaryPrompt(answer)
	if err != nil {
		return "", fmt.Errorf("building summary prompt: %w", err)
	}
	summary, err := c.generator.Generate(ctx, []ai.Message{ai.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("%w: summarizing: %w", core.ErrGeneration, err)
	}
	summary, _, _ = strings.Cut(summary, SourcesMarker)
	return strings.TrimSpace(summary), nil
}
