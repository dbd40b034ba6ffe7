package config

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/internal/util"

	"github.com/go-playground/validator"
)

// Backend identifiers accepted by the store factory.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config carries every tunable of the indexing, taxonomy and dedupe
// pipelines. It is loaded once per process and passed explicitly; nothing
// reads configuration from ambient global state after Load returns.
type Config struct {
	Debug bool

	// Store backend selection, made once per process.
	Backend     string `validate:"required,oneof=postgres sqlite"`
	DatabaseURL string
	SQLitePath  string

	// AI provider.
	AIAdapter    string `validate:"required,oneof=openai ollama"`
	EmbedModel   string `validate:"required"`
	EmbedDim     int    `validate:"gt=0"`
	LabelModel   string
	AITimeoutMin int `validate:"gt=0"`

	// Embedding decorators.
	EmbedCacheTTL time.Duration
	EmbedRPS      float64

	// Chunker.
	ChunkTargetTokens  int    `validate:"gt=0"`
	ChunkOverlapTokens int    `validate:"gte=0,ltfield=ChunkTargetTokens"`
	ChunkEncoder       string `validate:"required"`

	// Taxonomy builder.
	ClusterKMin     int     `validate:"gte=2"`
	ClusterKMax     int     `validate:"gtefield=ClusterKMin"`
	AssignThreshold float64 `validate:"gt=0,lt=1"`
	LabelSampleSize int     `validate:"gt=0"`

	// Claim deduplicator.
	DedupeSimilarity float64 `validate:"gt=0,lte=1"`
	DedupeWindow     time.Duration

	// Document source.
	S3Bucket       string
	S3DocPrefix    string
	S3ClaimsPrefix string

	// Worker metrics endpoint ("" disables the listener).
	MetricsAddr string
}

// Load reads the configuration from the environment, applying defaults for
// every knob that is not set.
func Load() Config {
	return Config{
		Debug: util.GetEnvBool("DEBUG", false),

		Backend:     util.GetEnvString("STORE_BACKEND", BackendPostgres),
		DatabaseURL: util.GetEnv("DATABASE_URL"),
		SQLitePath:  util.GetEnvString("SQLITE_PATH", "atlas.db"),

		AIAdapter:    util.GetEnvString("AI_ADAPTER", "openai"),
		EmbedModel:   util.GetEnvString("AI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:     int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),
		LabelModel:   util.GetEnvString("AI_LABEL_MODEL", "gpt-4o-mini"),
		AITimeoutMin: int(util.GetEnvNumeric("AI_TIMEOUT_MIN", 2)),

		EmbedCacheTTL: time.Duration(util.GetEnvNumeric("AI_EMBED_CACHE_TTL_MIN", 60)) * time.Minute,
		EmbedRPS:      util.GetEnvFloat("AI_EMBED_RPS", 0),

		ChunkTargetTokens:  int(util.GetEnvNumeric("CHUNK_TARGET_TOKENS", 400)),
		ChunkOverlapTokens: int(util.GetEnvNumeric("CHUNK_OVERLAP_TOKENS", 50)),
		ChunkEncoder:       util.GetEnvString("CHUNK_ENCODER", "cl100k_base"),

		ClusterKMin:     int(util.GetEnvNumeric("CLUSTER_K_MIN", 8)),
		ClusterKMax:     int(util.GetEnvNumeric("CLUSTER_K_MAX", 12)),
		AssignThreshold: util.GetEnvFloat("CLUSTER_ASSIGN_THRESHOLD", 0.1),
		LabelSampleSize: int(util.GetEnvNumeric("CLUSTER_LABEL_SAMPLE", 5)),

		DedupeSimilarity: util.GetEnvFloat("DEDUPE_SIMILARITY", 0.92),
		DedupeWindow:     time.Duration(util.GetEnvNumeric("DEDUPE_WINDOW_SEC", 1800)) * time.Second,

		S3Bucket:       util.GetEnv("AWS_BUCKET"),
		S3DocPrefix:    util.GetEnvString("S3_DOC_PREFIX", "documents/"),
		S3ClaimsPrefix: util.GetEnvString("S3_CLAIMS_PREFIX", "claims/"),

		MetricsAddr: util.GetEnvString("METRICS_ADDR", ":9102"),
	}
}

// Validate checks the configuration invariants and the backend-specific
// required fields.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	}
	return nil
}

// ProviderVersion identifies the embedding provider configuration persisted
// with the index. Vectors from different provider versions are never compared.
func (c Config) ProviderVersion() string {
	return fmt.Sprintf("%s/%s/%d", c.AIAdapter, c.EmbedModel, c.EmbedDim)
}
