package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"plateau/logging"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	// summaryInputRunes caps how much article content is sent for summarizing.
	summaryInputRunes = 4000
	summaryTimeout    = 20 * time.Second

	summaryPrompt = "You write one or two sentence summaries of help center articles. " +
		"Reply with the summary only, in the article's language, without quotes or a preamble."
)

// Summarizer writes a short summary for an article that was created without one.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}

// SummarizerConfig configures an OpenAI-compatible chat completion provider.
type SummarizerConfig struct {
	APIKey    string
	BaseURL   string // empty uses the OpenAI default
	Model     string
	MaxTokens int
}

type openAISummarizer struct {
	client *openai.Client
	cfg    SummarizerConfig
	log    zerolog.Logger
}

// NewOpenAISummarizer creates a Summarizer backed by any OpenAI-compatible API.
func NewOpenAISummarizer(cfg SummarizerConfig) (Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("summarizer API key is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = 120
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openAISummarizer{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		log:    logging.Component("Summarizer"),
	}, nil
}

func (s *openAISummarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	if utf8.RuneCountInString(content) > summaryInputRunes {
		content = string([]rune(content)[:summaryInputRunes])
	}
	completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: title + "\n\n" + content},
		},
		Temperature: 0.2,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summary completion failed for model %s: %w", s.cfg.Model, err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("summary completion returned no choices")
	}
	summary := strings.Trim(strings.TrimSpace(completion.Choices[0].Message.Content), `"`)
	s.log.Debug().Str("model", s.cfg.Model).Int("length", len(summary)).Msg("summary generated")
	return summary, nil
}
