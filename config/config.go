// Package config assembles the explicit configuration record the rest of
// the process is wired from. Values come from an optional YAML file with
// environment variables layered on top; a .env file is honored when
// present.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is passed into the gateway constructors instead of being read
// from ambient state.
type Config struct {
	Port string `yaml:"port"`

	IndexBackend string `yaml:"index_backend"` // qdrant | chroma | memory
	Collection   string `yaml:"collection"`
	Dimension    int    `yaml:"dimension"`

	QdrantURL    string `yaml:"qdrant_url"`
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	ChromaURL    string `yaml:"chroma_url"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	EmbedModel    string `yaml:"embed_model"`
	ChatModel     string `yaml:"chat_model"`

	GenerationBackend string `yaml:"generation_backend"` // openai | gemini
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	GeminiModel       string `yaml:"gemini_model"`

	ChunkSize       int     `yaml:"chunk_size"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	DefaultK        int     `yaml:"default_k"`
	ScoreThreshold  float64 `yaml:"score_threshold"`
	MaxContextChars int     `yaml:"max_context_chars"`

	NotesDir        string `yaml:"notes_dir"`
	UnidocLicense   string `yaml:"unidoc_license_key"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Load reads the optional YAML file at path (ignored when absent), then
// applies environment overrides and defaults. godotenv runs first so a
// local .env behaves like real environment variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.IndexBackend, "INDEX_BACKEND")
	setString(&cfg.Collection, "QDRANT_COLLECTION")
	setInt(&cfg.Dimension, "EMBED_DIMENSION")
	setString(&cfg.QdrantURL, "QDRANT_URL")
	setString(&cfg.QdrantAPIKey, "QDRANT_API_KEY")
	setString(&cfg.ChromaURL, "CHROMA_URL")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.EmbedModel, "EMBED_MODEL")
	setString(&cfg.ChatModel, "CHAT_MODEL")
	setString(&cfg.GenerationBackend, "GENERATION_BACKEND")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setInt(&cfg.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&cfg.DefaultK, "DEFAULT_K")
	setFloat(&cfg.ScoreThreshold, "SCORE_THRESHOLD")
	setInt(&cfg.MaxContextChars, "MAX_CONTEXT_CHARS")
	setString(&cfg.NotesDir, "NOTES_DIR")
	setString(&cfg.UnidocLicense, "UNIDOC_LICENSE_KEY")
	setInt(&cfg.RateLimitPerMin, "RATE_LIMIT_PER_MIN")
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.IndexBackend == "" {
		cfg.IndexBackend = "qdrant"
	}
	if cfg.Collection == "" {
		cfg.Collection = "secondbrain"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 1536
	}
	if cfg.QdrantURL == "" {
		cfg.QdrantURL = "http://localhost:6333"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.GenerationBackend == "" {
		cfg.GenerationBackend = "openai"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.DefaultK == 0 {
		cfg.DefaultK = 12
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 0.2
	}
	if cfg.MaxContextChars == 0 {
		cfg.MaxContextChars = 4000
	}
	if cfg.RateLimitPerMin == 0 {
		cfg.RateLimitPerMin = 240
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
