package cli

import (
	"context"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/internal/storage"
	"github.com/OFFIS-RIT/atlas/backend/internal/util"
	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	oai "github.com/OFFIS-RIT/atlas/backend/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/atlas/backend/pkg/ai/openai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/factory"
)

// openStorage builds the configured store backend.
func openStorage(ctx context.Context, cfg config.Config) (store.Storage, error) {
	return factory.New(ctx, cfg)
}

// newAIClient builds the configured provider client. Endpoint URLs and
// keys stay in the environment; they are credentials, not tunables.
func newAIClient(cfg config.Config) (ai.CorpusAIClient, error) {
	switch cfg.AIAdapter {
	case "ollama":
		return oai.NewCorpusOllamaClient(oai.NewCorpusOllamaClientParams{
			EmbeddingModel: cfg.EmbedModel,
			LabelModel:     cfg.LabelModel,
			BaseURL:        util.GetEnv("AI_CHAT_URL"),
			ApiKey:         util.GetEnv("AI_CHAT_KEY"),
			TimeoutMin:     int64(cfg.AITimeoutMin),
		})
	default:
		return gai.NewCorpusOpenAIClient(gai.NewCorpusOpenAIClientParams{
			EmbeddingModel: cfg.EmbedModel,
			LabelModel:     cfg.LabelModel,
			EmbeddingURL:   util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey:   util.GetEnv("AI_EMBED_KEY"),
			ChatURL:        util.GetEnv("AI_CHAT_URL"),
			ChatKey:        util.GetEnv("AI_CHAT_KEY"),
			TimeoutMin:     int64(cfg.AITimeoutMin),
		}), nil
	}
}

// newSource builds the S3 document source.
func newSource(ctx context.Context, cfg config.Config) *storage.DocumentSource {
	client := storage.NewS3Client(ctx)
	return storage.NewDocumentSource(client, cfg.S3DocPrefix, cfg.S3ClaimsPrefix)
}
