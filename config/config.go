// Package config loads the persistent docchat settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/chain"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/reembed"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file looked up in the working directory.
const FileName = "docchat.yaml"

// AIConfig selects the OpenAI-compatible hosts and models.
type AIConfig struct {
	EmbeddingHost  string  `yaml:"embedding_host"`
	ChatHost       string  `yaml:"chat_host"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	TokenEnv       string  `yaml:"token_env"`
	Temperature    float64 `yaml:"temperature"`
}

// IngestConfig configures how files are split and loaded.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	Workers      int `yaml:"workers"`
}

// ChatConfig configures the answer chain.
type ChatConfig struct {
	K         int  `yaml:"k"`
	Summarize bool `yaml:"summarize"`
}

// ReembedConfig configures the reembed command.
type ReembedConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	Workers    int           `yaml:"workers"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	DataDir string        `yaml:"data_dir"`
	AI      AIConfig      `yaml:"ai"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Chat    ChatConfig    `yaml:"chat"`
	Reembed ReembedConfig `yaml:"reembed"`
}

// Load reads a config from path. If the file does not exist, returns defaults.
// Fields missing from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./docchat.yaml first, then the user config directory.
// It returns the path that was used, or "" when defaults were returned.
func LoadDefault() (*AppConfig, string, error) {
	if _, err := os.Stat(FileName); err == nil {
		cfg, err := Load(FileName)
		return cfg, FileName, err
	}
	userPath, err := DefaultPath()
	if err != nil {
		return Default(), "", nil
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultPath returns ~/.config/docchat/docchat.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "docchat", FileName), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	aiDefaults := ai.DefaultConfig()
	reembedDefaults := reembed.DefaultConfig()
	return &AppConfig{
		DataDir: "docchat.db",
		AI: AIConfig{
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			ChatHost:       aiDefaults.ChatHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ChatModel:      aiDefaults.ChatModel,
			TokenEnv:       "OPENAI_API_KEY",
			Temperature:    aiDefaults.Temperature,
		},
		Ingest: IngestConfig{
			ChunkSize:    core.DefaultChunkSize,
			ChunkOverlap: core.DefaultChunkOverlap,
		},
		Chat: ChatConfig{K: core.DefaultK},
		Reembed: ReembedConfig{
			BatchSize:  reembedDefaults.BatchSize,
			Workers:    reembedDefaults.Workers,
			MaxRetries: reembedDefaults.MaxRetries,
			RetryDelay: reembedDefaults.RetryDelay,
		},
	}
}

// applyDefaults fills values a file explicitly zeroed.
func applyDefaults(cfg *AppConfig) {
	d := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = d.DataDir
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = d.Ingest.ChunkSize
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = d.Ingest.ChunkOverlap
	}
	if cfg.Chat.K == 0 {
		cfg.Chat.K = d.Chat.K
	}
	if cfg.Reembed.BatchSize == 0 {
		cfg.Reembed.BatchSize = d.Reembed.BatchSize
	}
}

// Validate checks the chunking and retrieval settings.
func (c *AppConfig) Validate() error {
	if err := core.ValidateChunkParams(c.Ingest.ChunkSize, c.Ingest.ChunkOverlap); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := core.ValidateK(c.Chat.K); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// AIConfig converts the file settings to an ai.Config. The API token is read
// from the environment variable named by TokenEnv.
func (c *AppConfig) AIConfig() *ai.Config {
	token := ""
	if c.AI.TokenEnv != "" {
		token = os.Getenv(c.AI.TokenEnv)
	}
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithToken(token),
		ai.WithTemperature(c.AI.Temperature),
	)
}

// ChainConfig returns the answer chain settings.
func (c *AppConfig) ChainConfig() chain.Config {
	return chain.Config{K: c.Chat.K, Summarize: c.Chat.Summarize}
}

// ReembedConfig returns the reembed settings.
func (c *AppConfig) ReembedConfig() *reembed.Config {
	return &reembed.Config{
		BatchSize:      c.Reembed.BatchSize,
		Workers:        c.Reembed.Workers,
		ReportInterval: c.Reembed.BatchSize,
		MaxRetries:     c.Reembed.MaxRetries,
		RetryDelay:     c.Reembed.RetryDelay,
	}
}
