package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Media   MediaConfig   `mapstructure:"media"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// BackendConfig points at the generation backend this gateway synchronizes
// against.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	WSURL   string        `mapstructure:"ws_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MediaConfig locates local media referenced by image inputs.
type MediaConfig struct {
	InputDir string `mapstructure:"input_dir"`
}

// SyncConfig holds the engine's timer intervals.
type SyncConfig struct {
	ClockInterval   time.Duration `mapstructure:"clock_interval"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RecheckDelay    time.Duration `mapstructure:"recheck_delay"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("backend.base_url", "http://localhost:8188")
	v.SetDefault("backend.ws_url", "ws://localhost:8188/ws")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("media.input_dir", "./data/input")
	v.SetDefault("sync.clock_interval", time.Second)
	v.SetDefault("sync.refresh_interval", 8*time.Second)
	v.SetDefault("sync.recheck_delay", 3*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for deployment-sensitive values
	v.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	v.BindEnv("backend.ws_url", "BACKEND_WS_URL")
	v.BindEnv("media.input_dir", "MEDIA_INPUT_DIR")
	v.BindEnv("server.port", "SERVER_PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.WSURL == "" {
		return fmt.Errorf("backend.ws_url is required")
	}
	if c.Sync.ClockInterval <= 0 || c.Sync.RefreshInterval <= 0 {
		return fmt.Errorf("sync intervals must be positive")
	}
	return nil
}
