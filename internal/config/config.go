package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	PublicBaseURL string `yaml:"public_base_url"`
	Secure        bool   `yaml:"secure"`
}

type QueueConfig struct {
	URL        string        `yaml:"url"`
	Exchange   string        `yaml:"exchange"`
	RoutingKey string        `yaml:"routing_key"`
	Queue      string        `yaml:"queue"`
	Workers    int           `yaml:"workers"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type AIConfig struct {
	Provider string `yaml:"provider"` // gemini | openai (chat/embedding fallback)

	GeminiKeys     []string `yaml:"gemini_keys"`
	GeminiModel    string   `yaml:"gemini_model"`
	EmbeddingModel string   `yaml:"embedding_model"`

	OpenAIKeys           []string `yaml:"openai_keys"`
	OpenAIModel          string   `yaml:"openai_model"`
	OpenAIEmbeddingModel string   `yaml:"openai_embedding_model"`

	StagePollAttempts  int           `yaml:"stage_poll_attempts"`
	StagePollInterval  time.Duration `yaml:"stage_poll_interval"`
	OverloadCooldown   time.Duration `yaml:"overload_cooldown"`
	OverloadMaxRetries int           `yaml:"overload_max_retries"`

	ChunkSize int `yaml:"chunk_size"`
	// Pointer so an explicit zero survives defaulting.
	ChunkOverlap      *int    `yaml:"chunk_overlap"`
	MatchThreshold    float64 `yaml:"match_threshold"`
	TopK              int     `yaml:"top_k"`
	HistoryLimit      int     `yaml:"history_limit"`
	PromptTokenBudget int     `yaml:"prompt_token_budget"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	InternalAPIKey  string        `yaml:"internal_api_key"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type NotifyConfig struct {
	// Base URL of the API server the worker posts terminal statuses to.
	APIBaseURL string `yaml:"api_base_url"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
	AI       AIConfig       `yaml:"ai"`
	Auth     AuthConfig     `yaml:"auth"`
	Security SecurityConfig `yaml:"security"`
	Notify   NotifyConfig   `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Queue.Exchange == "" {
		cfg.Queue.Exchange = "meetings"
	}
	if cfg.Queue.RoutingKey == "" {
		cfg.Queue.RoutingKey = "meetings.process"
	}
	if cfg.Queue.Queue == "" {
		cfg.Queue.Queue = "meetings.process"
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.MaxRetries <= 0 {
		cfg.Queue.MaxRetries = 3
	}
	if cfg.Queue.RetryDelay <= 0 {
		cfg.Queue.RetryDelay = time.Minute
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-1.5-flash"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-004"
	}
	if cfg.AI.StagePollAttempts <= 0 {
		cfg.AI.StagePollAttempts = 10
	}
	if cfg.AI.StagePollInterval <= 0 {
		cfg.AI.StagePollInterval = 5 * time.Second
	}
	if cfg.AI.OverloadCooldown <= 0 {
		cfg.AI.OverloadCooldown = time.Minute
	}
	if cfg.AI.OverloadMaxRetries <= 0 {
		cfg.AI.OverloadMaxRetries = 3
	}
	if cfg.AI.ChunkSize <= 0 {
		cfg.AI.ChunkSize = 500
	}
	if cfg.AI.ChunkOverlap == nil {
		overlap := 50
		cfg.AI.ChunkOverlap = &overlap
	}
	if cfg.AI.MatchThreshold == 0 {
		cfg.AI.MatchThreshold = 0.44
	}
	if cfg.AI.TopK <= 0 {
		cfg.AI.TopK = 5
	}
	if cfg.AI.HistoryLimit <= 0 {
		cfg.AI.HistoryLimit = 10
	}
	if cfg.Auth.AccessTokenTTL <= 0 {
		cfg.Auth.AccessTokenTTL = 30 * time.Minute
	}
	if cfg.Auth.RefreshTokenTTL <= 0 {
		cfg.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Queue.URL == "" {
		return nil, errors.New("queue.url is required")
	}
	if cfg.AI.Provider == "gemini" && len(cfg.AI.GeminiKeys) == 0 {
		return nil, errors.New("ai.gemini_keys is required")
	}
	if cfg.AI.Provider == "openai" && len(cfg.AI.OpenAIKeys) == 0 {
		return nil, errors.New("ai.openai_keys is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if *cfg.AI.ChunkOverlap < 0 || *cfg.AI.ChunkOverlap >= cfg.AI.ChunkSize {
		return nil, errors.New("ai.chunk_overlap must be in [0, chunk_size)")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
