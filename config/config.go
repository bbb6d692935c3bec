package config

import (
	"errors"
	"strings"
	"time"

	"plateau/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string
		Mode string // gin mode: debug, release or test
	}
	Database struct {
		Driver string // "sqlite" or "postgres"
		DSN    string // "memory", a SQLite file path, or a postgres DSN
	}
	Redis struct {
		Addr     string // empty disables the search result cache
		Password string
		DB       int
		TTL      time.Duration
	}
	Search struct {
		DefaultLimit    int    `mapstructure:"default_limit"`
		MaxLimit        int    `mapstructure:"max_limit"`
		RebuildSchedule string `mapstructure:"rebuild_schedule"` // cron expression; empty disables scheduled rebuilds
	}
	Summary struct {
		APIKey    string `mapstructure:"api_key"` // empty disables generated summaries
		BaseURL   string `mapstructure:"base_url"`
		Model     string
		MaxTokens int `mapstructure:"max_tokens"`
	}
	Log struct {
		Level  string
		Pretty bool
	}
	Seed struct {
		OnStart bool `mapstructure:"on_start"`
	}
}

// AppConfig is the global configuration instance.
var AppConfig Config

// SetDefaults registers the default for every key. Tests call it to get a
// usable AppConfig without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/knowledge_base.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.rebuild_schedule", "@every 1h")
	v.SetDefault("summary.api_key", "")
	v.SetDefault("summary.base_url", "")
	v.SetDefault("summary.model", "gpt-3.5-turbo")
	v.SetDefault("summary.max_tokens", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("seed.on_start", false)
}

// LoadConfig loads configuration from .env, config.yaml and KB_* environment
// variables, in increasing order of precedence. configFile overrides the
// search path when non-empty.
func LoadConfig(configFile string) error {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found, using environment variables")
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("KB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("../config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		logging.Warn().Msg("config.yaml not found, using environment variables and defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	normalize(&cfg)
	AppConfig = cfg

	logging.Info().
		Str("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Bool("redis_cache", cfg.Redis.Addr != "").
		Str("rebuild_schedule", cfg.Search.RebuildSchedule).
		Bool("summaries", cfg.Summary.APIKey != "").
		Msg("configuration loaded")
	return nil
}

// Defaults returns a Config populated only from defaults.
func Defaults() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	normalize(&cfg)
	return cfg
}

func normalize(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Search.DefaultLimit < 1 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		cfg.Search.MaxLimit = cfg.Search.DefaultLimit
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
}
