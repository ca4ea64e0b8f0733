package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	require.NoError(t, LoadConfig())
	cfg := GetAppConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.CompletionModel)
	assert.Equal(t, 100, cfg.Rag.ChunkSize)
	assert.Equal(t, 15, cfg.Rag.ChunkOverlap)
	assert.Equal(t, 4, cfg.Rag.TopK)
	assert.Equal(t, "rag-audit-events", cfg.Events.Topic)
	assert.ElementsMatch(t, []string{"pdf", "docx", "txt", "md"}, cfg.FileUpload.AllowedTypes)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Rag: RagConfig{ChunkSize: 100, ChunkOverlap: 15},
		AI:  AIConfig{TimeoutSeconds: 30},
	}
	assert.NoError(t, validate(cfg))

	// chunk_overlap不能大于等于chunk_size
	cfg.Rag.ChunkOverlap = 100
	assert.Error(t, validate(cfg))

	cfg.Rag.ChunkOverlap = 15
	cfg.Rag.ChunkSize = 0
	assert.Error(t, validate(cfg))

	cfg.Rag.ChunkSize = 100
	cfg.AI.TimeoutSeconds = 0
	assert.Error(t, validate(cfg))
}
