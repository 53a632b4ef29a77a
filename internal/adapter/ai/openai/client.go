package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/infrastructure/circuitbreaker"
	"github.com/goalreminder/goal-reminder/internal/observability/telemetry"
)

// UnknownZone is the sentinel the model is told to answer with when it cannot
// place the input.
const UnknownZone = "UNKNOWN"

const timezoneSystemPrompt = "You are a timezone expert. Given a user's input about their timezone or location, respond ONLY with the correct IANA timezone identifier (e.g., 'America/New_York'). If you cannot determine the timezone with high confidence, respond with 'UNKNOWN'."

const morningPrompt = `Write a quick, friendly morning text as if you're %s's supportive best friend. They're working on: "%s" because "%s".

Keep it natural and encouraging - write it like a caring friend would text. Think:
- Warm, friendly tone (like texting a good friend)
- Natural, conversational language
- Can include 1-2 emojis if it feels natural
- Max 2 short sentences
- Should feel supportive but not preachy
- Reference their goal/motivation naturally
- Avoid anything that sounds like a motivational poster

Style guide:
- Write like a caring friend
- Be supportive without being over-the-top
- No corporate/motivational speaker vibes
- Keep it genuine and relatable

Just the message, no quotes.`

var ErrEmptyCompletion = errors.New("openai: empty completion")

type Config struct {
	APIKey        string
	BaseURL       string
	TextModel     string
	TimezoneModel string
	Timeout       time.Duration
}

// Client implements ports.TextGenerator and ports.ZoneInterpreter on top of
// the chat completions API.
type Client struct {
	api           *goopenai.Client
	textModel     string
	timezoneModel string
	breaker       *gobreaker.CircuitBreaker
	log           *zap.Logger
}

func NewClient(cfg Config, breaker *gobreaker.CircuitBreaker, log *zap.Logger) *Client {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = goopenai.GPT4o
	}
	tzModel := cfg.TimezoneModel
	if tzModel == "" {
		tzModel = goopenai.GPT3Dot5Turbo
	}

	return &Client{
		api:           goopenai.NewClientWithConfig(apiCfg),
		textModel:     textModel,
		timezoneModel: tzModel,
		breaker:       breaker,
		log:           log,
	}
}

// Reformat asks the model for a short cleaned-up version of a goal or
// motivation. Quotes are stripped from the answer.
func (c *Client) Reformat(ctx context.Context, text string, kind domain.TextKind) (string, error) {
	var prompt string
	switch kind {
	case domain.TextKindGoal:
		prompt = "Reformat this goal to be clear and concise (keep it to just a few words): " + text
	case domain.TextKindMotivation:
		prompt = "Reformat this motivation statement to be clear and inspiring, but not cheesy (keep it to just a few words): " + text
	default:
		return "", fmt.Errorf("openai: unsupported text kind %q", kind)
	}

	out, err := c.complete(ctx, goopenai.ChatCompletionRequest{
		Model:       c.textModel,
		Messages:    []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: prompt}},
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	out = strings.NewReplacer(`"`, "", "'", "").Replace(out)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

func (c *Client) MorningReminder(ctx context.Context, name, goal, motivation string) (string, error) {
	return c.complete(ctx, goopenai.ChatCompletionRequest{
		Model: c.textModel,
		Messages: []goopenai.ChatCompletionMessage{{
			Role:    goopenai.ChatMessageRoleUser,
			Content: fmt.Sprintf(morningPrompt, name, goal, motivation),
		}},
		MaxTokens:   150,
		Temperature: 0.9,
	})
}

// InterpretTimezone returns the model's IANA guess for free text, or
// UnknownZone. The caller validates the answer.
func (c *Client) InterpretTimezone(ctx context.Context, input string) (string, error) {
	return c.complete(ctx, goopenai.ChatCompletionRequest{
		Model: c.timezoneModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: timezoneSystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: input},
		},
		// go-openai omits a zero temperature, which the API then defaults
		// to 1. A tiny positive value keeps the answer deterministic.
		Temperature: 1e-6,
		MaxTokens:   20,
	})
}

func (c *Client) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	start := time.Now()
	defer telemetry.ObserveExternalCall("openai", "chat_completion", start)

	resp, err := circuitbreaker.Execute(c.breaker, func() (goopenai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		c.log.Warn("Chat completion failed",
			zap.String("model", req.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	c.log.Debug("Chat completion",
		zap.String("model", req.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return content, nil
}
