package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/translate"
)

// OpenAIService calls the chat completions API with the official client.
type OpenAIService struct {
	settings Settings
	client   *openai.Client
}

// NewOpenAIService creates an OpenAIService. The client does not retry;
// failures are reported to the caller as they happen.
func NewOpenAIService(s Settings) *OpenAIService {
	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithRequestTimeout(s.timeout()),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIService{settings: s, client: &client}
}

// Complete sends req as one user message.
func (o *OpenAIService) Complete(ctx context.Context, req translate.Request) (string, error) {
	model := o.settings.model(req)
	logger.Debug("sending chat completion",
		logger.String("model", model),
		logger.Int("textLen", len(req.Input)))

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Message()),
		},
		Model: model,
	})
	if err != nil {
		logger.Error("chat completion failed", err, logger.String("model", model))
		return "", networkError("chat completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return "", networkError("chat completion returned no choices", nil)
	}

	content := completion.Choices[0].Message.Content
	logger.Debug("chat completion received", logger.String("content", truncateForLog(content, 200)))
	return content, nil
}
