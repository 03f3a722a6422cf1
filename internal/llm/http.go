package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/translate"
	"pdf-highlighter/internal/types"
)

// HTTPService posts chat completion requests directly. It works with
// OpenAI-compatible gateways that the SDK clients reject.
type HTTPService struct {
	settings Settings
	client   *http.Client
}

// NewHTTPService creates an HTTPService.
func NewHTTPService(s Settings) *HTTPService {
	return &HTTPService{
		settings: s,
		client:   &http.Client{Timeout: s.timeout()},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Complete sends req as one user message.
func (h *HTTPService) Complete(ctx context.Context, req translate.Request) (string, error) {
	model := h.settings.model(req)
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Message()}},
		Temperature: 0.3,
	})
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to marshal request body", err)
	}

	apiURL := normalizeAPIURL(h.settings.BaseURL)
	logger.Debug("calling chat completions",
		logger.String("url", apiURL),
		logger.String("model", model),
		logger.Int("textLen", len(req.Input)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrConfig, "failed to create HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.settings.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.settings.APIKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		logger.Error("API request failed", err)
		return "", networkError("API request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError("failed to read API response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", handleAPIHTTPError(resp.StatusCode, data)
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", types.NewAppError(types.ErrMalformedResponse, "failed to parse API response", err)
	}
	if chat.Error != nil {
		return "", types.NewAppErrorWithDetails(types.ErrNetwork, "API returned error", chat.Error.Message, nil)
	}
	if len(chat.Choices) == 0 {
		return "", types.NewAppError(types.ErrMalformedResponse, "API returned no choices", nil)
	}
	return chat.Choices[0].Message.Content, nil
}

// normalizeAPIURL ensures the API URL ends with /chat/completions.
func normalizeAPIURL(url string) string {
	if url == "" {
		return "https://api.openai.com/v1/chat/completions"
	}
	url = strings.TrimSuffix(url, "/")
	if strings.HasSuffix(url, "/chat/completions") {
		return url
	}
	return url + "/chat/completions"
}

// handleAPIHTTPError maps a non-2xx status to a network error carrying the
// API's own message when it sent one.
func handleAPIHTTPError(statusCode int, body []byte) error {
	var errResp struct {
		Error apiError `json:"error"`
	}
	details := ""
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		details = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return types.NewAppErrorWithDetails(types.ErrNetwork, "API authentication failed", "invalid API key or unauthorized access", nil)
	case http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(types.ErrNetwork, "API rate limit exceeded", details, nil)
	case http.StatusBadRequest:
		return types.NewAppErrorWithDetails(types.ErrNetwork, "invalid API request", details, nil)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return types.NewAppErrorWithDetails(types.ErrNetwork, "API server error", fmt.Sprintf("status %d: %s", statusCode, details), nil)
	default:
		return types.NewAppErrorWithDetails(types.ErrNetwork, "API request failed", fmt.Sprintf("status %d: %s", statusCode, details), nil)
	}
}
