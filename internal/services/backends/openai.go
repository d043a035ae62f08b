package backends

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/utils/clientcache"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

const defaultMaxTokens = 1024

// OpenAIBackend serves one tier through the chat-completions contract. A
// base URL pointing at a local or elastic serving frontend makes this the
// local/elastic backend; an API key against the hosted endpoint makes it the
// premium backend.
type OpenAIBackend struct {
	name        string
	model       string
	timeout     time.Duration
	cfg         models.TierConfig
	clientCache *clientcache.Cache[*openai.Client]
}

// NewOpenAIBackend creates a backend for the named tier. Premium requires an
// API key; local and elastic require a base URL.
func NewOpenAIBackend(name string, cfg models.TierConfig) (*OpenAIBackend, error) {
	if cfg.BaseURL == "" && cfg.APIKey == "" {
		return nil, models.NewConfigurationError(name, "neither base_url nor api_key configured")
	}
	if cfg.Model == "" {
		return nil, models.NewConfigurationError(name, "model not configured")
	}

	return &OpenAIBackend{
		name:        name,
		model:       cfg.Model,
		timeout:     cfg.Timeout(),
		cfg:         cfg,
		clientCache: clientcache.NewCache[*openai.Client](),
	}, nil
}

// Name identifies the backend.
func (b *OpenAIBackend) Name() string {
	return b.name
}

// Generate performs one completion against the backend, bounded by the tier's
// configured timeout.
func (b *OpenAIBackend) Generate(ctx context.Context, req *GenerationRequest) (*models.Completion, error) {
	client, err := b.createClient()
	if err != nil {
		return nil, err
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	start := time.Now()
	resp, err := client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			fiberlog.Warnf("Backend %s: completion timed out after %v", b.name, duration)
			return nil, models.NewTimeoutError(b.name, err)
		}
		fiberlog.Warnf("Backend %s: completion failed after %v: %v", b.name, duration, err)
		return nil, models.NewProviderError(b.name, "completion request failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, models.NewProviderError(b.name, "completion returned no choices", nil)
	}

	fiberlog.Debugf("Backend %s: completion succeeded in %v - tokens: %d/%d",
		b.name, duration, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return &models.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: models.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// createClient builds or reuses the SDK client for the current config.
func (b *OpenAIBackend) createClient() (*openai.Client, error) {
	cacheKey, err := b.configHash()
	if err != nil {
		fiberlog.Warnf("Backend %s: failed to hash config, building uncached client: %v", b.name, err)
		return b.buildClient(), nil
	}

	return b.clientCache.GetOrCreate(cacheKey, func() (*openai.Client, error) {
		fiberlog.Debugf("Backend %s: creating client (config hash: %s)", b.name, cacheKey[:8])
		return b.buildClient(), nil
	})
}

func (b *OpenAIBackend) buildClient() *openai.Client {
	opts := []openaiOption.RequestOption{}
	if b.cfg.APIKey != "" {
		opts = append(opts, openaiOption.WithAPIKey(b.cfg.APIKey))
	}
	if b.cfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(b.cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &client
}

func (b *OpenAIBackend) configHash() (string, error) {
	apiKeyHash := sha256.Sum256([]byte(b.cfg.APIKey))
	payload, err := json.Marshal(struct {
		BaseURL    string
		Model      string
		APIKeyHash string
	}{
		BaseURL:    b.cfg.BaseURL,
		Model:      b.model,
		APIKeyHash: fmt.Sprintf("%x", apiKeyHash[:8]),
	})
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(payload)
	return fmt.Sprintf("%x", hash[:16]), nil
}
