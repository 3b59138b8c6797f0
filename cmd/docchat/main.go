// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docchat"
	"github.com/poiesic/docchat/chain"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/retrieval"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.cli().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// app carries the process streams and any engine options so commands can be
// driven from tests.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	engineOpts []docchat.EngineOption
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:      "docchat",
		Usage:     "Chat with your documents",
		Reader:    a.stdin,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"DOCCHAT_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (default ./docchat.yaml, then the user config dir)",
				EnvVars: []string{"DOCCHAT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the index directory",
				EnvVars: []string{"DOCCHAT_DB"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				EnvVars: []string{"DOCCHAT_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"DOCCHAT_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "chat-host",
				Usage:   "Chat completion service host URL",
				EnvVars: []string{"DOCCHAT_CHAT_HOST"},
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				EnvVars: []string{"DOCCHAT_CHAT_MODEL"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Load, split and index files",
				ArgsUsage: "FILE...",
				Action:    a.ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "project",
						Usage: "Project name attached to every chunk",
					},
					&cli.StringSliceFlag{
						Name:  "meta",
						Usage: "Extra metadata as key=value (repeatable)",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in characters (default from config)",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Minimum overlap between chunks (default from config)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of files loaded concurrently",
					},
				},
			},
			{
				Name:      "chat",
				Usage:     "Ask questions about the indexed documents",
				ArgsUsage: "[QUESTION]",
				Action:    a.chatCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of chunks retrieved per question (default from config)",
					},
					&cli.BoolFlag{
						Name:  "summarize",
						Usage: "Append a short summary to every answer",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Show the chunks most similar to a query",
				ArgsUsage: "QUERY",
				Action:    a.searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of chunks to return",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Trace every retrieval step",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show the indexed files and chunk count",
				Action: a.statsCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every chunk with the configured embedding model",
				Action: a.reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of batches embedded concurrently",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func setup(c *cli.Context) error {
	// A missing .env file is fine.
	_ = godotenv.Load()
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadSettings reads the config file and applies global flag overrides.
func loadSettings(c *cli.Context) (*config.AppConfig, error) {
	var (
		settings *config.AppConfig
		err      error
	)
	if path := c.String("config"); path != "" {
		settings, err = config.Load(path)
	} else {
		settings, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := map[string]*string{
		"db":              &settings.DataDir,
		"embedding-host":  &settings.AI.EmbeddingHost,
		"embedding-model": &settings.AI.EmbeddingModel,
		"chat-host":       &settings.AI.ChatHost,
		"chat-model":      &settings.AI.ChatModel,
	}
	for name, field := range overrides {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}
	return settings, nil
}

func (a *app) openEngine(settings *config.AppConfig, opts ...docchat.EngineOption) (*docchat.Engine, error) {
	aiConfig := settings.AIConfig()
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	all := append([]docchat.EngineOption{docchat.WithAIConfig(aiConfig)}, opts...)
	all = append(all, a.engineOpts...)
	e, err := docchat.NewEngine(settings.DataDir, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return e, nil
}

func (a *app) ingestCommand(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	if c.IsSet("chunk-size") {
		settings.Ingest.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		settings.Ingest.ChunkOverlap = c.Int("chunk-overlap")
	}
	if c.IsSet("workers") {
		settings.Ingest.Workers = c.Int("workers")
	}
	if err := core.ValidateChunkParams(settings.Ingest.ChunkSize, settings.Ingest.ChunkOverlap); err != nil {
		return err
	}

	metadata, err := parseMetadata(c.StringSlice("meta"))
	if err != nil {
		return err
	}
	if project := c.String("project"); project != "" {
		metadata[core.MetaProjectName] = project
	}

	var opts []docchat.EngineOption
	if settings.Ingest.Workers > 0 {
		opts = append(opts, docchat.WithIngestionOptions(ingestion.WithPoolSize(settings.Ingest.Workers)))
	}
	e, err := a.openEngine(settings, opts...)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.Ingest(c.Context, paths, &ingestion.IngestOptions{
		Metadata:     metadata,
		ChunkSize:    settings.Ingest.ChunkSize,
		ChunkOverlap: settings.Ingest.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "Indexed %d chunks from %d files\n", result.Count, result.Files)
	if result.Warning != nil {
		fmt.Fprintf(a.stderr, "Warning: chunks are searchable but not saved to disk: %v\n", result.Warning)
	}
	return nil
}

func parseMetadata(pairs []string) (map[string]string, error) {
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", pair)
		}
		metadata[key] = strings.TrimSpace(value)
	}
	return metadata, nil
}

func (a *app) chatCommand(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	chainConfig := settings.ChainConfig()
	if c.IsSet("k") {
		chainConfig.K = c.Int("k")
	}
	if c.IsSet("summarize") {
		chainConfig.Summarize = c.Bool("summarize")
	}
	if err := chainConfig.Validate(); err != nil {
		return err
	}

	e, err := a.openEngine(settings)
	if err != nil {
		return err
	}
	defer e.Close()

	sessionID := e.NewSession()
	if c.Args().Present() {
		return a.answer(c.Context, e, sessionID, strings.Join(c.Args().Slice(), " "), chainConfig)
	}

	fmt.Fprintln(a.stdout, "Ask a question. /new starts a new conversation, /quit exits.")
	scanner := bufio.NewScanner(a.stdin)
	for {
		fmt.Fprint(a.stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			sessionID = e.ResetSession(sessionID)
			fmt.Fprintln(a.stdout, "Started a new conversation.")
			continue
		}
		if err := a.answer(c.Context, e, sessionID, line, chainConfig); err != nil {
			return err
		}
		if err := c.Context.Err(); err != nil {
			return nil
		}
	}
}

func (a *app) answer(ctx context.Context, e *docchat.Engine, sessionID, question string, chainConfig chain.Config) error {
	stream, err := e.Chat(ctx, sessionID, question, chainConfig)
	if err != nil {
		return err
	}
	for increment := range stream {
		fmt.Fprint(a.stdout, increment)
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func (a *app) searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	var opts []docchat.EngineOption
	if c.Bool("verbose") {
		opts = append(opts, docchat.WithMonitor(&traceMonitor{w: a.stderr}))
	}
	e, err := a.openEngine(settings, opts...)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.Search(c.Context, query, c.Int("k"))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Found %d hits\n", len(result.Results))
	for i, hit := range result.Results {
		chunk := hit.Entry.Chunk
		fmt.Fprintf(a.stdout, "%d: [%0.3f] %s\n", i+1, hit.Score, chunkLabel(&chunk))
		fmt.Fprintf(a.stdout, "   %s\n", preview(chunk.Text, 160))
	}
	return nil
}

func (a *app) statsCommand(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	e, err := a.openEngine(settings)
	if err != nil {
		return err
	}
	defer e.Close()

	count, err := e.Count(c.Context)
	if err != nil {
		return err
	}
	sources, err := e.Sources(c.Context)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Index: %s\n", settings.DataDir)
	fmt.Fprintf(a.stdout, "Chunks: %d\n", count)
	fmt.Fprintf(a.stdout, "Files: %d\n", len(sources))
	for _, src := range sources {
		fmt.Fprintf(a.stdout, "  %s  %d chunks  %s\n", src.Name, src.Chunks, src.IngestedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (a *app) reembedCommand(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	reembedConfig := settings.ReembedConfig()
	if c.IsSet("batch-size") {
		reembedConfig.BatchSize = c.Int("batch-size")
		reembedConfig.ReportInterval = reembedConfig.BatchSize
	}
	if c.IsSet("workers") {
		reembedConfig.Workers = c.Int("workers")
	}
	if c.IsSet("max-retries") {
		reembedConfig.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		reembedConfig.RetryDelay = c.Duration("retry-delay")
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	e, err := a.openEngine(settings)
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Fprintf(a.stderr, "Index: %s\n", settings.DataDir)
	fmt.Fprintf(a.stderr, "Embedding host: %s\n", settings.AI.EmbeddingHost)
	fmt.Fprintf(a.stderr, "Embedding model: %s\n", settings.AI.EmbeddingModel)
	fmt.Fprintln(a.stderr)

	result, err := e.Reembed(c.Context, reembedConfig, a.stderr)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	if result.Warning != nil {
		fmt.Fprintf(a.stderr, "Warning: new vectors are not saved to disk: %v\n", result.Warning)
	}
	return nil
}

// traceMonitor prints every retrieval step.
type traceMonitor struct {
	w io.Writer
}

var _ retrieval.Monitor = (*traceMonitor)(nil)

func (m *traceMonitor) Start(query string) {
	fmt.Fprintf(m.w, "searching for %q\n", query)
}

func (m *traceMonitor) Hit(rank int, result *core.SearchResult) {
	fmt.Fprintf(m.w, "  hit %d: %s score=%0.4f\n", rank, result.Entry.ID, result.Score)
}

func (m *traceMonitor) Finish(result *core.RetrievalResult) {
	fmt.Fprintf(m.w, "retrieved %d chunks\n", len(result.Results))
}

func chunkLabel(chunk *core.Chunk) string {
	name := chunk.SourceName()
	if name == "" {
		name = chunk.Metadata[core.MetaSourcePath]
	}
	if page := chunk.Page(); page > 0 {
		return fmt.Sprintf("%s (p. %d)", name, page)
	}
	return name
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
