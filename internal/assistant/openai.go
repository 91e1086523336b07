package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = "You are a warm, wise mentor for mindfulness, attention and inner growth. " +
	"Answer briefly (1-3 sentences), with care and without judgement. " +
	"Speak like a friend who understands. Use gentle metaphors and emoji when they fit."

// maxQuestionLength bounds the prompt forwarded to the API.
const maxQuestionLength = 2000

type GPTAssistant struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

func NewGPTAssistant(apiKey string, model string, maxTokens int, temperature float64, timeout time.Duration, logger *zap.Logger) *GPTAssistant {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &GPTAssistant{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// truncateQuestion caps the question at maxQuestionLength bytes without
// cutting a multi-byte rune in half, walking back to the nearest rune start.
func truncateQuestion(question string) string {
	if len(question) <= maxQuestionLength {
		return question
	}
	cut := maxQuestionLength
	for cut > 0 && !utf8.RuneStart(question[cut]) {
		cut--
	}
	return question[:cut]
}

// Ask sends one chat completion request and returns the reply text.
func (a *GPTAssistant) Ask(question string) (string, error) {
	if a.client == nil {
		return "", ErrUnconfigured
	}

	question = truncateQuestion(question)

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: question,
				},
			},
			MaxTokens:   a.maxTokens,
			Temperature: float32(a.temperature),
		},
	)
	if err != nil {
		a.logger.Error("Assistant request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if len(resp.Choices) == 0 {
		a.logger.Error("Assistant returned no choices")
		return "", ErrBadResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrBadResponse
	}
	return text, nil
}
