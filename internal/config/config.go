// Package config provides configuration management for the highlighter.
// The file format (JSON or TOML) follows the config file extension.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"pdf-highlighter/internal/logger"
	"pdf-highlighter/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "pdf-highlighter.toml"
	// EnvOpenAIAPIKey is the environment variable name for the API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for the API base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvOpenAIModel is the environment variable name for the model
	EnvOpenAIModel = "OPENAI_MODEL"
	// EnvWordPrompt overrides the word extraction criteria
	EnvWordPrompt = "WORD_PROMPT"

	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o-mini"
	DefaultBackend        = "eino"
	DefaultTimeoutSeconds = 60
	DefaultTargetLanguage = "Simplified Chinese"
	// DefaultWordPrompt is the default extraction criteria for word mode
	DefaultWordPrompt = "words above middle-school level, difficult words, technical terms, rare phrases and key words"
	// DefaultChunkSize is the maximum number of characters per translation chunk
	DefaultChunkSize   = 1000
	DefaultConcurrency = 4
	// DefaultSelectionTimeoutSeconds is how long a selection stays valid
	DefaultSelectionTimeoutSeconds = 300
	DefaultWordColor               = "#FFFF0064"
	DefaultSentenceColor           = "#ADD8E664"
	DefaultLogLevel                = "info"
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
	validate   *validator.Validate
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in the user's config directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			logger.Error("failed to get user config directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user config directory", err)
		}
		configPath = filepath.Join(dir, "pdf-highlighter", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *types.Config {
	return &types.Config{
		APIURL:                  DefaultBaseURL,
		Model:                   DefaultModel,
		Backend:                 DefaultBackend,
		TimeoutSeconds:          DefaultTimeoutSeconds,
		TargetLanguage:          DefaultTargetLanguage,
		WordPrompt:              DefaultWordPrompt,
		ChunkSize:               DefaultChunkSize,
		Concurrency:             DefaultConcurrency,
		WordColor:               DefaultWordColor,
		SentenceColor:           DefaultSentenceColor,
		SelectionTimeoutSeconds: DefaultSelectionTimeoutSeconds,
		LogLevel:                DefaultLogLevel,
	}
}

func (m *ConfigManager) isTOML() bool {
	ext := strings.ToLower(filepath.Ext(m.configPath))
	return ext == ".toml" || ext == ".cfg"
}

func (m *ConfigManager) unmarshal(data []byte, cfg *types.Config) error {
	if m.isTOML() {
		return toml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func (m *ConfigManager) marshal(cfg *types.Config) ([]byte, error) {
	if m.isTOML() {
		return toml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Load loads configuration from the config file.
// A missing file yields defaults; an unparsable file is logged and also yields defaults.
// Environment variables override file values.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
		m.config = DefaultConfig()
	case err != nil:
		logger.Error("failed to read config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to read config file", err)
	default:
		cfg := &types.Config{}
		if err := m.unmarshal(data, cfg); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = DefaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.Int("apiKeyLength", len(cfg.APIKey)),
				logger.String("apiURL", cfg.APIURL),
				logger.String("model", cfg.Model))
			m.config = cfg
		}
	}

	m.applyEnv()
	applyDefaults(m.config)
	return nil
}

func (m *ConfigManager) applyEnv() {
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		m.config.APIKey = v
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		m.config.APIURL = v
	}
	if v := os.Getenv(EnvOpenAIModel); v != "" {
		m.config.Model = v
	}
	if v := os.Getenv(EnvWordPrompt); v != "" {
		m.config.WordPrompt = v
	}
}

func applyDefaults(cfg *types.Config) {
	def := DefaultConfig()
	if cfg.APIURL == "" {
		cfg.APIURL = def.APIURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Backend == "" {
		cfg.Backend = def.Backend
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = def.TimeoutSeconds
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = def.TargetLanguage
	}
	if cfg.WordPrompt == "" {
		cfg.WordPrompt = def.WordPrompt
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.WordColor == "" {
		cfg.WordColor = def.WordColor
	}
	if cfg.SentenceColor == "" {
		cfg.SentenceColor = def.SentenceColor
	}
	if cfg.SelectionTimeoutSeconds == 0 {
		cfg.SelectionTimeoutSeconds = def.SelectionTimeoutSeconds
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}

// Validate checks the current configuration against its struct constraints.
func (m *ConfigManager) Validate() error {
	if err := m.validate.Struct(m.GetConfig()); err != nil {
		var details []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details = append(details, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
		}
		return types.NewAppErrorWithDetails(types.ErrConfig, "invalid configuration", strings.Join(details, "; "), err)
	}
	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := m.marshal(m.GetConfig())
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// Set updates a single configuration key by its file name (e.g. "model", "chunk_size").
func (m *ConfigManager) Set(key, value string) error {
	cfg := m.GetConfig()
	var n int
	isInt := func() error {
		_, err := fmt.Sscanf(value, "%d", &n)
		if err != nil {
			return types.NewAppErrorWithDetails(types.ErrInvalidInput, "expected an integer", key, err)
		}
		return nil
	}

	switch key {
	case "api_url":
		cfg.APIURL = value
	case "api_key":
		cfg.APIKey = value
	case "model":
		cfg.Model = value
	case "backend":
		cfg.Backend = value
	case "target_language":
		cfg.TargetLanguage = value
	case "word_prompt":
		cfg.WordPrompt = value
	case "sentence_prompt":
		cfg.SentencePrompt = value
	case "word_color":
		cfg.WordColor = value
	case "sentence_color":
		cfg.SentenceColor = value
	case "cache_path":
		cfg.CachePath = value
	case "log_file":
		cfg.LogFile = value
	case "log_level":
		cfg.LogLevel = value
	case "timeout_seconds":
		if err := isInt(); err != nil {
			return err
		}
		cfg.TimeoutSeconds = n
	case "chunk_size":
		if err := isInt(); err != nil {
			return err
		}
		cfg.ChunkSize = n
	case "concurrency":
		if err := isInt(); err != nil {
			return err
		}
		cfg.Concurrency = n
	case "selection_timeout_seconds":
		if err := isInt(); err != nil {
			return err
		}
		cfg.SelectionTimeoutSeconds = n
	default:
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "unknown config key", key, nil)
	}
	m.config = cfg
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		m.config = DefaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetTimeout returns the remote call timeout.
func (m *ConfigManager) GetTimeout() time.Duration {
	return time.Duration(m.GetConfig().TimeoutSeconds) * time.Second
}

// GetSelectionTimeout returns how long a selection stays valid.
func (m *ConfigManager) GetSelectionTimeout() time.Duration {
	return time.Duration(m.GetConfig().SelectionTimeoutSeconds) * time.Second
}
