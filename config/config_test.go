package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docchat/chain"
	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	contents := `
data_dir: /var/lib/docchat
ai:
  chat_model: llama3.1:8b
ingest:
  chunk_size: 500
  chunk_overlap: 50
chat:
  k: 6
  summarize: true
reembed:
  retry_delay: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/docchat", cfg.DataDir)
	assert.Equal(t, "llama3.1:8b", cfg.AI.ChatModel)
	assert.Equal(t, Default().AI.EmbeddingModel, cfg.AI.EmbeddingModel)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 50, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, chain.Config{K: 6, Summarize: true}, cfg.ChainConfig())
	assert.Equal(t, 250*time.Millisecond, cfg.Reembed.RetryDelay)
	assert.Equal(t, Default().Reembed.BatchSize, cfg.Reembed.BatchSize)
}

func TestLoad_ZeroedValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("data_dir: \"\"\nchat:\n  k: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
	assert.Equal(t, core.DefaultK, cfg.Chat.K)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("chat: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, path)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", FileName)
	cfg := Default()
	cfg.Chat.Summarize = true
	cfg.Reembed.RetryDelay = 2 * time.Second

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Ingest.ChunkOverlap = cfg.Ingest.ChunkSize
	assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidChunkParams)

	cfg = Default()
	cfg.Chat.K = core.MaxK + 1
	assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidK)
}

func TestAIConfig_TokenFromEnvironment(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_TOKEN", "sk-test")
	cfg := Default()
	cfg.AI.TokenEnv = "DOCCHAT_TEST_TOKEN"
	cfg.AI.ChatHost = "http://chat.local:8080"

	aiCfg := cfg.AIConfig()
	assert.Equal(t, "sk-test", aiCfg.Token)
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://chat.local:8080/v1", aiCfg.ChatHost)
}

func TestAIConfig_MissingTokenNormalizes(t *testing.T) {
	cfg := Default()
	cfg.AI.TokenEnv = ""

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "none", aiCfg.Token)
}

func TestReembedConfig(t *testing.T) {
	cfg := Default()
	rc := cfg.ReembedConfig()
	assert.Equal(t, cfg.Reembed.BatchSize, rc.BatchSize)
	assert.Equal(t, cfg.Reembed.BatchSize, rc.ReportInterval)
	assert.Equal(t, cfg.Reembed.RetryDelay, rc.RetryDelay)
}
