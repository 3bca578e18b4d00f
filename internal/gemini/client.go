// Package gemini implements integration with Google's Gemini AI API.
// It rephrases reminder notifications so they read less like templates.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/remindbot/internal/config"
	"github.com/edgard/remindbot/internal/resilience"
	"github.com/edgard/remindbot/internal/sanitize"
)

// Client rephrases notification drafts. It satisfies reminder.Phraser.
type Client interface {
	PhraseReminder(ctx context.Context, kind, title, draft string) (string, error)
}

// generateFunc is the single SDK call the client makes.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type sdkClient struct {
	generate         generateFunc
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
	timeout          time.Duration
	breaker          *resilience.Breaker
	sanitizer        *sanitize.Policy
}

// NewClient creates a new Gemini AI client with the provided configuration.
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	log *slog.Logger,
) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models.GenerateContent, cfg, log)
	c.log.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return c, nil
}

func newClient(generate generateFunc, cfg config.GeminiConfig, log *slog.Logger) *sdkClient {
	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,
	}
	if cfg.SystemInstruction != "" {
		baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}

	return &sdkClient{
		generate:         generate,
		log:              log.With("component", "gemini_client"),
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		timeout:          cfg.Timeout,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:        "gemini",
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
			Logger:      log,
		}),
		sanitizer: sanitize.NewPlainTextPolicy(),
	}
}

// PhraseReminder asks the model to rewrite draft, keeping title intact.
func (c *sdkClient) PhraseReminder(ctx context.Context, kind, title, draft string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	description, ok := kindDescriptions[kind]
	if !ok {
		description = kind
	}
	prompt := fmt.Sprintf(ReminderPromptTemplate, description, title, draft)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	c.log.DebugContext(ctx, "Phrasing reminder", "kind", kind)

	var resp *genai.GenerateContentResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var genErr error
		resp, genErr = c.generateContentWithRetries(ctx, c.defaultModelName, contents, c.contentConfig)
		return genErr
	})
	if err != nil {
		return "", fmt.Errorf("gemini reminder phrasing failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp)
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = c.generate(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var genAiAPIError *genai.APIError
		if !errors.As(err, &genAiAPIError) || (genAiAPIError.Code != 500 && genAiAPIError.Code != 503) {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}

		if i == c.maxRetries {
			break
		}

		c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", genAiAPIError.Code)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	c.log.ErrorContext(ctx, "Gemini API call failed after max retries", "error", err)
	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", c.maxRetries, err)
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("reminder phrasing blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("reminder phrasing returned no content, finish reason: %s", finishReason)
	}

	text := strings.Trim(c.sanitizer.PlainText(resp.Text()), `"`)
	if text == "" {
		return "", fmt.Errorf("reminder phrasing returned empty text")
	}
	return text, nil
}
