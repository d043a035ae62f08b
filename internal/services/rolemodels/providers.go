package rolemodels

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/utils/clientcache"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"google.golang.org/genai"
)

const roleDefaultMaxTokens = 2048

var (
	anthropicClients = clientcache.NewCache[*anthropic.Client]()
	geminiClients    = clientcache.NewCache[*genai.Client]()
	openaiClients    = clientcache.NewCache[*openai.Client]()
)

// hashKey derives a cache key from a credential without retaining it.
func hashKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("%x", sum[:8])
}

// normalizeProvider canonicalizes a configured provider name to the spelling
// the pricing table uses. "google" is accepted as an alias for gemini.
func normalizeProvider(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "google" {
		return "gemini"
	}
	return p
}

// buildPrimaryInvoker creates the invoker for a role's primary model based on
// its configured provider.
func buildPrimaryInvoker(role models.Role, cfg models.ComponentModelConfig) (Invoker, error) {
	if cfg.Model == "" {
		return nil, models.NewConfigurationError(string(role), "primary model not configured")
	}
	if cfg.APIKey == "" {
		return nil, models.NewConfigurationError(string(role), "primary api_key not configured")
	}

	switch normalizeProvider(cfg.Provider) {
	case "anthropic":
		return anthropicInvoker(cfg), nil
	case "gemini":
		return geminiInvoker(cfg), nil
	case "openai":
		return openaiInvoker(cfg), nil
	default:
		return nil, models.NewConfigurationError(string(role), fmt.Sprintf("unknown provider %q", cfg.Provider))
	}
}

// buildFallbackInvoker creates the invoker for the universal local model,
// reached over the chat-completions contract without credentials.
func buildFallbackInvoker(cfg models.LocalModelConfig) (Invoker, error) {
	if cfg.BaseURL == "" {
		return nil, models.NewConfigurationError("roles.fallback", "base_url not configured")
	}
	if cfg.Model == "" {
		return nil, models.NewConfigurationError("roles.fallback", "model not configured")
	}

	return func(ctx context.Context, prompt string) (*models.Completion, error) {
		client, err := openaiClients.GetOrCreate("local:"+cfg.BaseURL, func() (*openai.Client, error) {
			fiberlog.Debugf("Creating local fallback client for %s", cfg.BaseURL)
			c := openai.NewClient(openaiOption.WithBaseURL(cfg.BaseURL))
			return &c, nil
		})
		if err != nil {
			return nil, err
		}
		return openaiGenerate(ctx, client, "local-fallback", cfg.Model, roleDefaultMaxTokens, 0, prompt)
	}, nil
}

func anthropicInvoker(cfg models.ComponentModelConfig) Invoker {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = roleDefaultMaxTokens
	}

	return func(ctx context.Context, prompt string) (*models.Completion, error) {
		client, err := anthropicClients.GetOrCreate("anthropic:"+hashKey(cfg.APIKey), func() (*anthropic.Client, error) {
			fiberlog.Debugf("Creating Anthropic client for role models")
			c := anthropic.NewClient(anthropicOption.WithAPIKey(cfg.APIKey))
			return &c, nil
		})
		if err != nil {
			return nil, err
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(cfg.Model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		}
		if cfg.Temperature > 0 {
			params.Temperature = anthropic.Float(cfg.Temperature)
		}

		message, err := client.Messages.New(ctx, params)
		if err != nil {
			return nil, models.NewProviderError("anthropic", "message request failed", err)
		}

		var text strings.Builder
		for _, block := range message.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}

		return &models.Completion{
			Text: text.String(),
			Usage: models.TokenUsage{
				PromptTokens:     message.Usage.InputTokens,
				CompletionTokens: message.Usage.OutputTokens,
				TotalTokens:      message.Usage.InputTokens + message.Usage.OutputTokens,
			},
		}, nil
	}
}

func geminiInvoker(cfg models.ComponentModelConfig) Invoker {
	generateConfig := &genai.GenerateContentConfig{}
	if cfg.MaxTokens > 0 {
		generateConfig.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if cfg.Temperature > 0 {
		generateConfig.Temperature = genai.Ptr(float32(cfg.Temperature))
	}

	return func(ctx context.Context, prompt string) (*models.Completion, error) {
		client, err := geminiClients.GetOrCreate("gemini:"+hashKey(cfg.APIKey), func() (*genai.Client, error) {
			fiberlog.Debugf("Creating Gemini client for role models")
			return genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  cfg.APIKey,
				Backend: genai.BackendGeminiAPI,
			})
		})
		if err != nil {
			return nil, err
		}

		resp, err := client.Models.GenerateContent(ctx, cfg.Model, genai.Text(prompt), generateConfig)
		if err != nil {
			return nil, models.NewProviderError("gemini", "generate request failed", err)
		}

		var tokenUsage models.TokenUsage
		if resp.UsageMetadata != nil {
			tokenUsage = models.TokenUsage{
				PromptTokens:     int64(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int64(resp.UsageMetadata.TotalTokenCount),
			}
		}

		return &models.Completion{Text: resp.Text(), Usage: tokenUsage}, nil
	}
}

func openaiInvoker(cfg models.ComponentModelConfig) Invoker {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = roleDefaultMaxTokens
	}

	return func(ctx context.Context, prompt string) (*models.Completion, error) {
		client, err := openaiClients.GetOrCreate("openai:"+hashKey(cfg.APIKey), func() (*openai.Client, error) {
			fiberlog.Debugf("Creating OpenAI client for role models")
			c := openai.NewClient(openaiOption.WithAPIKey(cfg.APIKey))
			return &c, nil
		})
		if err != nil {
			return nil, err
		}
		return openaiGenerate(ctx, client, "openai", cfg.Model, maxTokens, cfg.Temperature, prompt)
	}
}

func openaiGenerate(ctx context.Context, client *openai.Client, name, model string, maxTokens int, temperature float64, prompt string) (*models.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, models.NewProviderError(name, "completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.NewProviderError(name, "completion returned no choices", nil)
	}

	return &models.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: models.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
