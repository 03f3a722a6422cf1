package llm

import (
	"context"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/translate"
	"pdf-highlighter/internal/types"
)

// EinoService calls the chat model through an eino ChatModel. One model is
// created per distinct model name and reused.
type EinoService struct {
	settings Settings

	mu     sync.Mutex
	models map[string]*openai.ChatModel
}

// NewEinoService creates an EinoService.
func NewEinoService(s Settings) *EinoService {
	return &EinoService{settings: s, models: make(map[string]*openai.ChatModel)}
}

func (e *EinoService) chatModel(ctx context.Context, model string) (*openai.ChatModel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.models[model]; ok {
		return m, nil
	}

	cfg := &openai.ChatModelConfig{
		Model:   model,
		APIKey:  e.settings.APIKey,
		Timeout: e.settings.timeout(),
	}
	if e.settings.BaseURL != "" {
		cfg.BaseURL = e.settings.BaseURL
	}
	m, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}
	e.models[model] = m
	return m, nil
}

// Complete sends req as one user message.
func (e *EinoService) Complete(ctx context.Context, req translate.Request) (string, error) {
	model := e.settings.model(req)
	m, err := e.chatModel(ctx, model)
	if err != nil {
		return "", err
	}

	logger.Debug("calling chat model",
		logger.String("model", model),
		logger.Int("textLen", len(req.Input)))

	resp, err := m.Generate(ctx, []*schema.Message{schema.UserMessage(req.Message())})
	if err != nil {
		logger.Error("chat model request failed", err, logger.String("model", model))
		return "", networkError("chat model request failed", err)
	}
	if resp == nil {
		return "", networkError("chat model returned no message", nil)
	}

	logger.Debug("chat model responded", logger.String("content", truncateForLog(resp.Content, 200)))
	return resp.Content, nil
}
