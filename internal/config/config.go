package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"examprep/internal/models"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	EmbedLLM  LLMConfig       `yaml:"embed_llm"`
	ChatLLM   LLMConfig       `yaml:"chat_llm"`
	RAG       RAGConfig       `yaml:"rag"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

type RAGConfig struct {
	MatchCount     int     `yaml:"match_count"`
	MatchThreshold float64 `yaml:"match_threshold"`
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	// chromemdb settings for the embedded vector store backend
	VectorBackend string `yaml:"vector_backend"`
	ChromemPath   string `yaml:"chromem_path"`
	Collection    string `yaml:"collection"`
	EncryptionKey string `yaml:"encryption_key"`
}

type WindowConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type RateLimitConfig struct {
	Chat   WindowConfig `yaml:"chat"`
	Search WindowConfig `yaml:"search"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	// secrets come from the environment, e.g. key: ${OPENROUTER_KEY}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.RAG.MatchCount == 0 {
		c.RAG.MatchCount = models.DefaultMatchCount
	}
	if c.RAG.MatchThreshold == 0 {
		c.RAG.MatchThreshold = models.DefaultMatchThreshold
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 200
	}
	if c.RAG.Collection == "" {
		c.RAG.Collection = "syllabus"
	}
	if c.RateLimit.Chat.MaxRequests == 0 {
		c.RateLimit.Chat = WindowConfig{MaxRequests: 20, WindowSeconds: 60}
	}
	if c.RateLimit.Search.MaxRequests == 0 {
		c.RateLimit.Search = WindowConfig{MaxRequests: 30, WindowSeconds: 60}
	}
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.RAG.MatchThreshold < 0 || c.RAG.MatchThreshold > 1 {
		return fmt.Errorf("rag.match_threshold must be 0-1, got %f", c.RAG.MatchThreshold)
	}
	return nil
}
