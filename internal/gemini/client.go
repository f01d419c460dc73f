// Package gemini implements integration with Google's Gemini AI API.
// It turns assembled prompt contexts into model calls and normalizes the
// responses for the bot.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dkoksal/mira/internal/config"
	"github.com/dkoksal/mira/internal/memory"
	"github.com/dkoksal/mira/internal/prompt"
)

// Client defines the AI operations used throughout the application.
type Client interface {
	// GenerateReply produces the bot's reply for an assembled context.
	GenerateReply(ctx context.Context, pc *prompt.Context) (string, error)

	// GenerateMediaAnalysis is GenerateReply for a message carrying an
	// image or video; pc.Incoming holds the caption, possibly empty.
	GenerateMediaAnalysis(ctx context.Context, pc *prompt.Context, mimeType string, mediaData []byte) (string, error)

	// DetectLanguage names the language of text in English, or returns ""
	// when the model is not confident.
	DetectLanguage(ctx context.Context, text string) (string, error)
}

type sdkClient struct {
	genaiClient *genai.Client
	log         *slog.Logger
	baseConfig  *genai.GenerateContentConfig
	modelName   string
	detectModel string
	withSearch  bool
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a Gemini client from configuration. The same safety and
// temperature settings apply to every call; per-call system instructions
// come from the assembled prompt context.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
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

	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.Model, "detect_model", cfg.DetectModel)
	return &sdkClient{
		genaiClient: gi,
		log:         logger,
		baseConfig:  baseCfg,
		modelName:   cfg.Model,
		detectModel: cfg.DetectModel,
		withSearch:  cfg.EnableSearch,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", apiErr.Code)
				time.Sleep(c.retryDelay)
				continue
			}
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", apiErr.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, apiErr.Code, err)
		}

		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	return nil, err
}

// systemInstruction joins the non-history sections of the context; the
// history and the new message travel as chat contents instead.
func systemInstruction(pc *prompt.Context, extra string) *genai.Content {
	sections := make([]string, 0, 6)
	appendSection := func(s string) {
		if s != "" {
			sections = append(sections, s)
		}
	}

	appendSection(pc.Persona)
	appendSection(pc.Awareness)
	if pc.Language != "" {
		appendSection(fmt.Sprintf("Current conversation language: %s. Respond only in this language unless the user switches.", pc.Language))
	}
	appendSection(pc.Style)
	if pc.Elapsed != "" {
		appendSection(fmt.Sprintf("The user's previous message was %s.", pc.Elapsed))
	}
	appendSection(extra)

	return &genai.Content{Parts: []*genai.Part{{Text: strings.Join(sections, "\n\n")}}}
}

func historyContents(pc *prompt.Context) []*genai.Content {
	contents := make([]*genai.Content, 0, len(pc.History)+1)
	for _, rec := range pc.History {
		var role genai.Role = genai.RoleUser
		if rec.Role == memory.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(rec.Text, role))
	}
	return contents
}

func (c *sdkClient) GenerateReply(ctx context.Context, pc *prompt.Context) (string, error) {
	c.log.DebugContext(ctx, "Generating reply", "history_count", len(pc.History))

	contents := historyContents(pc)
	contents = append(contents, genai.NewContentFromText(pc.Incoming, genai.RoleUser))

	copyCfg := *c.baseConfig
	copyCfg.SystemInstruction = systemInstruction(pc, "")
	if c.withSearch {
		copyCfg.Tools = append(copyCfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		copyCfg.Tools = append(copyCfg.Tools, &genai.Tool{URLContext: &genai.URLContext{}})
	}

	resp, err := c.generateContentWithRetries(ctx, c.modelName, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini reply generation failed", "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp, "reply")
}

func (c *sdkClient) GenerateMediaAnalysis(ctx context.Context, pc *prompt.Context, mimeType string, mediaData []byte) (string, error) {
	c.log.DebugContext(ctx, "Generating media analysis", "media_size", len(mediaData), "mime_type", mimeType)
	if len(mediaData) == 0 || mimeType == "" {
		return "", fmt.Errorf("media data and MIME type are required for analysis")
	}

	contents := historyContents(pc)

	parts := []*genai.Part{genai.NewPartFromBytes(mediaData, mimeType)}
	if pc.Incoming != "" {
		parts = append(parts, genai.NewPartFromText(pc.Incoming))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	copyCfg := *c.baseConfig
	copyCfg.SystemInstruction = systemInstruction(pc, mediaAnalysisInstruction)

	resp, err := c.generateContentWithRetries(ctx, c.modelName, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini media analysis API call failed", "error", err)
		return "", fmt.Errorf("gemini media analysis failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp, "media_analysis")
}

func (c *sdkClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	contents := []*genai.Content{genai.NewContentFromText(fmt.Sprintf(detectLanguagePrompt, text), genai.RoleUser)}

	var zero float32
	copyCfg := *c.baseConfig
	copyCfg.Temperature = &zero

	resp, err := c.generateContentWithRetries(ctx, c.detectModel, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini language detection failed", "error", err)
		return "", fmt.Errorf("gemini language detection failed: %w", err)
	}

	answer, err := c.extractTextFromResponse(ctx, resp, "detect_language")
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	// A confident answer is a bare language name; anything chatty or
	// "unknown" counts as unconfident.
	if answer == "" || strings.EqualFold(answer, "unknown") || len(strings.Fields(answer)) > 3 {
		c.log.DebugContext(ctx, "Language detection unconfident", "answer", answer)
		return "", nil
	}

	return answer, nil
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse, op string) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)
		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)

		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("%s returned no content, finish reason: %s", op, finishReason)
		}

		return "", fmt.Errorf("%s returned empty content", op)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		c.log.WarnContext(ctx, "Gemini response text is empty", "operation", op)
		return "", fmt.Errorf("%s returned empty text", op)
	}

	return text, nil
}
