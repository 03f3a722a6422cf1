// Package types defines shared configuration and error types for the highlighter.
package types

import "errors"

// Config 应用配置
type Config struct {
	APIURL  string `json:"api_url" toml:"api_url" validate:"required,url"`
	APIKey  string `json:"api_key" toml:"api_key"`
	Model   string `json:"model" toml:"model" validate:"required"`
	Backend string `json:"backend" toml:"backend" validate:"oneof=eino openai http"` // "eino"、"openai" 或 "http"

	TimeoutSeconds int `json:"timeout_seconds" toml:"timeout_seconds" validate:"min=1,max=600"`

	TargetLanguage string `json:"target_language" toml:"target_language" validate:"required"`

	// 提示词模板，为空时使用内置模板
	WordPrompt     string `json:"word_prompt" toml:"word_prompt"`
	SentencePrompt string `json:"sentence_prompt" toml:"sentence_prompt"`

	ChunkSize   int `json:"chunk_size" toml:"chunk_size" validate:"min=100,max=20000"`
	Concurrency int `json:"concurrency" toml:"concurrency" validate:"min=1,max=64"`

	WordColor     string `json:"word_color" toml:"word_color"`
	SentenceColor string `json:"sentence_color" toml:"sentence_color"`

	SelectionTimeoutSeconds int `json:"selection_timeout_seconds" toml:"selection_timeout_seconds" validate:"min=1"`

	CachePath string `json:"cache_path" toml:"cache_path"`
	LogFile   string `json:"log_file" toml:"log_file"`
	LogLevel  string `json:"log_level" toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	// ErrNetwork covers transport failures and non-2xx responses from the remote service.
	ErrNetwork ErrorCode = "NETWORK_ERROR"
	// ErrMalformedResponse means no bracketed JSON span was found or it failed to parse.
	ErrMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrStaleSelection means the selection expired before it was submitted.
	ErrStaleSelection ErrorCode = "STALE_SELECTION"
	ErrCancelled      ErrorCode = "CANCELLED"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrDocument       ErrorCode = "DOCUMENT_ERROR"
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrConfig         ErrorCode = "CONFIG_ERROR"
	ErrCache          ErrorCode = "CACHE_ERROR"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// IsCode reports whether err or anything it wraps is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
