package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pdfqa/internal/domain"
)

// LLMConfig configures the OpenAI-compatible chat endpoint used for query
// rewriting and answering.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	ModelEnv    string  `yaml:"model_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks. Sizes are in words.
type ChunkerConfig struct {
	Type         string `yaml:"type"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// RetrieverConfig configures similarity search.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// CacheConfig bounds the number of document indexes kept in memory.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// PreviewConfig selects and configures the document preview summarizer.
type PreviewConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	FileSizeMB  int    `yaml:"file_size_mb"`
	FileCount   int    `yaml:"file_count"`
	KeepDays    int    `yaml:"keep_days"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Cache     CacheConfig     `yaml:"cache"`
	Preview   PreviewConfig   `yaml:"preview"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// Secrets holds values resolved from the environment at startup.
type Secrets struct {
	LLMAPIKey      string
	LLMModel       string
	EmbedderAPIKey string
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrConfig, path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdfqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/pdfqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Resolve reads API keys and the model name from the environment. Every missing
// item is reported at once, joined under ErrConfig.
func Resolve(cfg *AppConfig) (Secrets, error) {
	return resolve(cfg, os.Getenv)
}

func resolve(cfg *AppConfig, getenv func(string) string) (Secrets, error) {
	var s Secrets
	var missing []error

	s.LLMAPIKey = strings.TrimSpace(getenv(cfg.LLM.APIKeyEnv))
	if s.LLMAPIKey == "" {
		missing = append(missing, fmt.Errorf("environment variable %s is not set", cfg.LLM.APIKeyEnv))
	}
	s.LLMModel = strings.TrimSpace(getenv(cfg.LLM.ModelEnv))
	if s.LLMModel == "" {
		s.LLMModel = cfg.LLM.Model
	}
	if s.LLMModel == "" {
		missing = append(missing, fmt.Errorf("environment variable %s is not set and llm.model is empty", cfg.LLM.ModelEnv))
	}

	switch cfg.Embedder.Type {
	case "tfidf":
	case "openai":
		oc := cfg.Embedder.OpenAI
		// Local endpoints such as Ollama accept requests without a key.
		if oc.APIKeyEnv != "" {
			s.EmbedderAPIKey = strings.TrimSpace(getenv(oc.APIKeyEnv))
			if s.EmbedderAPIKey == "" && !isLocal(oc.BaseURL) {
				missing = append(missing, fmt.Errorf("environment variable %s is not set", oc.APIKeyEnv))
			}
		}
	default:
		missing = append(missing, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type))
	}

	if len(missing) > 0 {
		return Secrets{}, errors.Join(append([]error{domain.ErrConfig}, missing...)...)
	}
	return s, nil
}

func isLocal(baseURL string) bool {
	return strings.Contains(baseURL, "localhost") || strings.Contains(baseURL, "127.0.0.1")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "tfidf"},
		Chunker:  ChunkerConfig{Type: "sentence"},
		Preview:  PreviewConfig{Type: "frequency"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.LLM.ModelEnv == "" {
		cfg.LLM.ModelEnv = "MODEL_NAME"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "sentence"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 256
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 8
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 1
	}
	if cfg.Preview.Type == "" {
		cfg.Preview.Type = "frequency"
	}
	if cfg.Preview.MaxSentences == 0 {
		cfg.Preview.MaxSentences = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.FileSizeMB == 0 {
		cfg.Log.FileSizeMB = 50
	}
	if cfg.Log.FileCount == 0 {
		cfg.Log.FileCount = 3
	}
	if cfg.Log.KeepDays == 0 {
		cfg.Log.KeepDays = 7
	}
}
