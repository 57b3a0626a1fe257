package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML file layered between defaults and the
// environment.
const FileEnv = "SLIDENOTES_CONFIG"

type Config struct {
	Port string `yaml:"port"`

	// Completion model
	OpenAIAPIKey   string        `yaml:"openai_api_key"`
	ModelName      string        `yaml:"model_name"`
	LLMBaseURL     string        `yaml:"llm_base_url"`
	LLMTemperature float64       `yaml:"llm_temperature"`
	LLMTimeout     time.Duration `yaml:"llm_timeout"`

	// Embeddings; an empty base URL selects the offline hashing embedder
	EmbeddingBaseURL string        `yaml:"embedding_base_url"`
	EmbeddingAPIKey  string        `yaml:"embedding_api_key"`
	EmbeddingModel   string        `yaml:"embedding_model"`
	EmbeddingDim     int           `yaml:"embedding_dim"`
	EmbeddingTimeout time.Duration `yaml:"embedding_timeout"`

	// Storage
	DataDir   string `yaml:"data_dir"`
	IndexPath string `yaml:"index_path"`
	CacheDir  string `yaml:"cache_dir"`

	// Pipeline
	TopK           int     `yaml:"top_k"`
	WorkerCount    int     `yaml:"worker_count"`
	DedupThreshold float64 `yaml:"dedup_threshold"`
	MinBodyChars   int     `yaml:"min_body_chars"`
	Locale         string  `yaml:"locale"`

	// Search
	SearchEnabled  bool          `yaml:"search_enabled"`
	SearchLimit    int           `yaml:"search_limit"`
	SearchTimeout  time.Duration `yaml:"search_timeout"`
	WikipediaENURL string        `yaml:"wikipedia_en_url"`
	WikipediaZHURL string        `yaml:"wikipedia_zh_url"`
	ArxivURL       string        `yaml:"arxiv_url"`

	// HTTP surface
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	CORSOrigins    string        `yaml:"cors_origins"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port: "8000",

		ModelName:      "deepseek-ai/DeepSeek-V3.2",
		LLMBaseURL:     "https://api.siliconflow.cn/v1/chat/completions",
		LLMTemperature: 0.4,
		LLMTimeout:     60 * time.Second,

		EmbeddingModel:   "BAAI/bge-m3",
		EmbeddingDim:     384,
		EmbeddingTimeout: 30 * time.Second,

		DataDir: "data",

		TopK:           4,
		WorkerCount:    4,
		DedupThreshold: 0.82,
		Locale:         "zh",

		SearchEnabled:  true,
		SearchLimit:    2,
		SearchTimeout:  10 * time.Second,
		WikipediaENURL: "https://en.wikipedia.org/w/api.php",
		WikipediaZHURL: "https://zh.wikipedia.org/w/api.php",
		ArxivURL:       "http://export.arxiv.org/api/query",

		MaxUploadBytes: 52428800, // 50MB
		FetchTimeout:   30 * time.Second,
		CORSOrigins:    "*",

		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// SLIDENOTES_CONFIG, then the environment. A .env file in the working
// directory is loaded first; variables already set are not overridden.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.fillDerived()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)

	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.ModelName = envOr("MODEL_NAME", c.ModelName)
	c.LLMBaseURL = envOr("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMTemperature = envFloat("LLM_TEMPERATURE", c.LLMTemperature)
	c.LLMTimeout = envDuration("LLM_TIMEOUT", c.LLMTimeout)

	c.EmbeddingBaseURL = envOr("EMBEDDING_BASE_URL", c.EmbeddingBaseURL)
	c.EmbeddingAPIKey = envOr("EMBEDDING_API_KEY", c.EmbeddingAPIKey)
	c.EmbeddingModel = envOr("EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingDim = envInt("EMBEDDING_DIM", c.EmbeddingDim)
	c.EmbeddingTimeout = envDuration("EMBEDDING_TIMEOUT", c.EmbeddingTimeout)

	c.DataDir = envOr("DATA_DIR", c.DataDir)
	c.IndexPath = envOr("INDEX_PATH", c.IndexPath)
	c.CacheDir = envOr("CACHE_DIR", c.CacheDir)

	c.TopK = envInt("TOP_K", c.TopK)
	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.DedupThreshold = envFloat("DEDUP_THRESHOLD", c.DedupThreshold)
	c.MinBodyChars = envInt("MIN_BODY_CHARS", c.MinBodyChars)
	c.Locale = envOr("LOCALE", c.Locale)

	c.SearchEnabled = envBool("SEARCH_ENABLED", c.SearchEnabled)
	c.SearchLimit = envInt("SEARCH_LIMIT", c.SearchLimit)
	c.SearchTimeout = envDuration("SEARCH_TIMEOUT", c.SearchTimeout)
	c.WikipediaENURL = envOr("WIKIPEDIA_EN_URL", c.WikipediaENURL)
	c.WikipediaZHURL = envOr("WIKIPEDIA_ZH_URL", c.WikipediaZHURL)
	c.ArxivURL = envOr("ARXIV_URL", c.ArxivURL)

	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.FetchTimeout = envDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.CORSOrigins = envOr("CORS_ORIGINS", c.CORSOrigins)

	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)
}

// fillDerived resolves settings that default relative to others.
func (c *Config) fillDerived() {
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(c.DataDir, "vectors.db")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.DataDir, "cache")
	}
	if c.EmbeddingAPIKey == "" {
		c.EmbeddingAPIKey = c.OpenAIAPIKey
	}
	c.Locale = strings.ToLower(strings.TrimSpace(c.Locale))
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Locale != "zh" && c.Locale != "en" {
		return fmt.Errorf("LOCALE must be zh or en, got %q", c.Locale)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive")
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be in (0, 1], got %v", c.DedupThreshold)
	}
	if c.EmbeddingBaseURL == "" && c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive for the offline embedder")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.SearchEnabled && c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive when search is enabled")
	}
	return nil
}

// OfflineLLM reports whether completions will use the offline fallback.
func (c Config) OfflineLLM() bool {
	return c.OpenAIAPIKey == ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
