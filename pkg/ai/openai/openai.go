package openai

import (
	"sync"

	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// CorpusOpenAIClient talks to OpenAI-compatible APIs for embeddings and
// cluster labeling. Embedding and chat endpoints are configured separately
// so they can point at different providers.
//
// A CorpusOpenAIClient should be created using NewCorpusOpenAIClient.
type CorpusOpenAIClient struct {
	embeddingModel string
	labelModel     string

	embeddingURL string
	embeddingKey string
	chatURL      string
	chatKey      string

	timeoutMin    int64
	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewCorpusOpenAIClientParams configures a new CorpusOpenAIClient.
//
// EmbeddingModel and LabelModel select the models for the two concerns.
// TimeoutMin bounds each request; MaxConcurrentRequests caps in-flight
// embedding calls.
type NewCorpusOpenAIClientParams struct {
	EmbeddingModel string
	LabelModel     string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	TimeoutMin            int64
	MaxConcurrentRequests int64
}

// NewCorpusOpenAIClient creates a client from the given parameters. A
// missing API key leaves the corresponding endpoint client nil, which is
// valid for deployments that only embed or only label.
func NewCorpusOpenAIClient(
	params NewCorpusOpenAIClientParams,
) *CorpusOpenAIClient {
	if params.TimeoutMin <= 0 {
		params.TimeoutMin = 2
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 4
	}

	return &CorpusOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		labelModel:     params.LabelModel,

		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,
		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,

		timeoutMin:    params.TimeoutMin,
		embeddingLock: semaphore.NewWeighted(params.MaxConcurrentRequests),

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
