package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Backend BackendConfig
	Cache   CacheConfig
	Chat    ChatConfig
	Log     LogConfig
}

// BackendConfig holds the front-end API configuration
type BackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig selects and locates the local conversation cache
type CacheConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// ChatConfig holds conversation behaviour knobs
type ChatConfig struct {
	MaxInputLength int    `mapstructure:"max_input_length"`
	ToolMarker     string `mapstructure:"tool_marker"`
	ImageHost      string `mapstructure:"image_host"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Cache drivers
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://localhost:3000")
	v.SetDefault("backend.auth_token", "")
	v.SetDefault("backend.timeout", "0s")
	v.SetDefault("cache.driver", DriverBolt)
	v.SetDefault("cache.path", "chatview.db")
	v.SetDefault("chat.max_input_length", 200)
	v.SetDefault("chat.tool_marker", "🛠️")
	v.SetDefault("chat.image_host", "https://res.cloudinary.com/")
	v.SetDefault("log.level", "info")
}

// Load loads the configuration from config.yaml (or the file named by CONFIG_PATH).
// A missing file is not an error; defaults and CHATVIEW_* variables apply.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("chatview")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
