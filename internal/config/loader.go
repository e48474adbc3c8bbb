package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
	Redis      RedisConfig      `mapstructure:"redis"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Researcher ResearcherConfig `mapstructure:"researcher"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Features   FeaturesConfig   `mapstructure:"features"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type SupabaseConfig struct {
	URL            string        `mapstructure:"url"`
	AnonKey        string        `mapstructure:"anon_key"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	MemoryTTL   time.Duration `mapstructure:"memory_ttl"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	ChatModel      string `mapstructure:"chat_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type ResearcherConfig struct {
	WSURL            string        `mapstructure:"ws_url"`
	RunDeadline      time.Duration `mapstructure:"run_deadline"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteRetries     uint64        `mapstructure:"write_retries"`
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
}

type AuthConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	DevEndpoints   bool     `mapstructure:"dev_endpoints"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("FRIDDAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Supabase.URL == "" {
		return nil, fmt.Errorf("supabase.url is required")
	}
	if cfg.Supabase.AnonKey == "" {
		return nil, fmt.Errorf("supabase.anon_key is required")
	}
	if cfg.Researcher.WSURL == "" {
		return nil, fmt.Errorf("researcher.ws_url is required")
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if len(cfg.Logger.OutputPaths) == 0 {
		cfg.Logger.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Logger.ErrorOutputPaths) == 0 {
		cfg.Logger.ErrorOutputPaths = []string{"stderr"}
	}
	if cfg.Supabase.RequestTimeout == 0 {
		cfg.Supabase.RequestTimeout = 15 * time.Second
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379"
	}
	if cfg.Redis.MemoryTTL == 0 {
		cfg.Redis.MemoryTTL = time.Hour
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-3.5-turbo"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if cfg.Researcher.RunDeadline == 0 {
		cfg.Researcher.RunDeadline = 5 * time.Minute
	}
	if cfg.Researcher.HandshakeTimeout == 0 {
		cfg.Researcher.HandshakeTimeout = 15 * time.Second
	}
	if cfg.Researcher.WriteRetries == 0 {
		cfg.Researcher.WriteRetries = 3
	}
	if cfg.Researcher.RetryInterval == 0 {
		cfg.Researcher.RetryInterval = 200 * time.Millisecond
	}
}
