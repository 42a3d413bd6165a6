package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type gptReply struct {
	FireAt string `json:"fire_at"`
	Text   string `json:"text"`
}

// GPTParser tries the SimpleParser first and asks a chat model only for
// input the fixed forms do not cover.
type GPTParser struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    *SimpleParser
	logger      *zap.Logger
}

type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

func NewGPTParser(cfg GPTConfig, fallback *SimpleParser, logger *zap.Logger) *GPTParser {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &GPTParser{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		fallback:    fallback,
		logger:      logger,
	}
}

func (p *GPTParser) Parse(ctx context.Context, input string) (Result, bool) {
	if r, ok := p.fallback.Parse(ctx, input); ok {
		return r, true
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}, false
	}

	now := p.fallback.now().In(p.fallback.loc)
	prompt := fmt.Sprintf(`Extract the moment and the subject from a reminder request.
The current local time is %s.

Return only a JSON object with this structure:
{
    "fire_at": "YYYY-MM-DD HH:MM",
    "text": "what to remind about"
}
Use an empty fire_at if the request names no time.

Request: %s`, now.Format(Layout), input)

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   p.maxTokens,
			Temperature: float32(p.temperature),
		},
	)
	if err != nil {
		p.logger.Error("Failed to get GPT response", zap.Error(err))
		return Result{}, false
	}
	if len(resp.Choices) == 0 {
		p.logger.Warn("GPT response has no choices")
		return Result{}, false
	}

	content := resp.Choices[0].Message.Content
	r, err := decodeReply(content, p.fallback.loc)
	if err != nil {
		p.logger.Warn("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", content))
		return Result{}, false
	}
	return r, true
}

func decodeReply(content string, loc *time.Location) (Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var reply gptReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &reply); err != nil {
		return Result{}, fmt.Errorf("decode reply: %w", err)
	}
	if reply.FireAt == "" {
		return Result{}, fmt.Errorf("reply has no time")
	}
	text := strings.TrimSpace(reply.Text)
	if text == "" {
		return Result{}, fmt.Errorf("reply has no text")
	}

	at, err := time.ParseInLocation(Layout, strings.TrimSpace(reply.FireAt), loc)
	if err != nil {
		return Result{}, fmt.Errorf("parse fire_at %q: %w", reply.FireAt, err)
	}
	return Result{FireAt: at, Text: text}, nil
}
