package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/stories"
	"github.com/sulafhq/sulaf-backend/internal/utils"
)

const (
	defaultChatModel = "gpt-4o-mini"
	chatTimeout      = 3 * time.Minute
	imageTimeout     = 2 * time.Minute

	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second

	illustrationExcerptRunes = 300
)

// ErrNoAPIKey is returned by NewOpenAIClient when OPENAI_API_KEY is unset.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")

// AIClient is what the generation pipeline needs from a model provider.
type AIClient interface {
	GenerateStory(ctx context.Context, instruction string) (string, error)
	GenerateIllustrations(ctx context.Context, story string, n int) ([]string, error)
}

// OpenAIClient backs AIClient with the OpenAI API: chat completions for the
// story text and image generation for illustrations.
type OpenAIClient struct {
	log    *logger.Logger
	client openai.Client
	model  string
}

func NewOpenAIClient(baseLog *logger.Logger) (*OpenAIClient, error) {
	log := baseLog.With("service", "OpenAIClient")
	apiKey := utils.GetEnv("OPENAI_API_KEY", "", log)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	model := utils.GetEnv("OPENAI_MODEL", defaultChatModel, log)
	return &OpenAIClient{
		log:    log,
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *OpenAIClient) GenerateStory(ctx context.Context, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(instruction),
			},
			Temperature: openai.Float(0.9),
		})
		if err != nil {
			lastErr = err
			if isRateLimited(err) {
				c.log.Warn("Chat completion rate limited, retrying", "attempt", attempt+1)
				continue
			}
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("chat completion returned no choices")
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("chat completion retries exhausted: %w", lastErr)
}

// GenerateIllustrations derives up to n scene prompts from the story and
// generates one image per scene. A failed scene is skipped, not fatal; the
// returned slice holds the URLs that succeeded.
func (c *OpenAIClient) GenerateIllustrations(ctx context.Context, story string, n int) ([]string, error) {
	excerpts := stories.Excerpts(story, n, illustrationExcerptRunes)
	urls := make([]string, 0, len(excerpts))
	for _, excerpt := range excerpts {
		url, err := c.generateImage(ctx, stories.IllustrationPrompt(excerpt))
		if err != nil {
			c.log.Warn("Illustration generation failed, skipping scene", "error", err)
			continue
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (c *OpenAIClient) generateImage(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()

	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModelDallE3,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("image generation returned no url")
	}
	return resp.Data[0].URL, nil
}

func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
	if d > maxBackoff {
		d = maxBackoff
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

var _ AIClient = (*OpenAIClient)(nil)
