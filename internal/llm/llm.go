// Package llm implements the remote translation service on top of
// OpenAI-compatible chat completion APIs.
package llm

import (
	"strings"
	"time"

	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/translate"
	"pdf-highlighter/internal/types"
)

// Backend names accepted in the configuration.
const (
	BackendEino   = "eino"
	BackendOpenAI = "openai"
	BackendHTTP   = "http"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 60 * time.Second

// Settings are the connection parameters shared by every backend.
type Settings struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// SettingsFromConfig extracts the connection parameters from cfg.
func SettingsFromConfig(cfg *types.Config) Settings {
	return Settings{
		BaseURL: cfg.APIURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

func (s Settings) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s Settings) model(req translate.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return s.Model
}

// New creates the service selected by cfg.Backend.
func New(cfg *types.Config) (translate.Service, error) {
	s := SettingsFromConfig(cfg)
	if s.Model == "" {
		return nil, types.NewAppError(types.ErrConfig, "model is not configured", nil)
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	logger.Debug("creating translation service",
		logger.String("backend", backend),
		logger.String("model", s.Model),
		logger.String("baseURL", s.BaseURL))

	switch backend {
	case "", BackendEino:
		return NewEinoService(s), nil
	case BackendOpenAI:
		return NewOpenAIService(s), nil
	case BackendHTTP:
		return NewHTTPService(s), nil
	default:
		return nil, types.NewAppErrorWithDetails(types.ErrConfig, "unknown backend", backend, nil)
	}
}

func networkError(message string, cause error) error {
	return types.NewAppError(types.ErrNetwork, message, cause)
}

func truncateForLog(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "...(truncated)"
}
