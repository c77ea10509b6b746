package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	// Browser
	ChromePath                string `mapstructure:"CHROME_PATH"`
	Headless                  bool   `mapstructure:"HEADLESS"`
	StartPage                 string `mapstructure:"START_PAGE"`
	SearchBoxSelector         string `mapstructure:"SEARCH_BOX_SELECTOR"`
	NextPageSelector          string `mapstructure:"NEXT_PAGE_SELECTOR"`
	InteractionTimeoutSeconds int    `mapstructure:"INTERACTION_TIMEOUT_SECONDS"`
	ClickSettleMS             int    `mapstructure:"CLICK_SETTLE_MS"`
	TabRecycleThreshold       int    `mapstructure:"TAB_RECYCLE_THRESHOLD"`
	PausePollIntervalMS       int    `mapstructure:"PAUSE_POLL_INTERVAL_MS"`
	WindowWidth               int    `mapstructure:"WINDOW_WIDTH"`
	WindowHeight              int    `mapstructure:"WINDOW_HEIGHT"`
	UserAgents                string `mapstructure:"USER_AGENTS"`
	Proxies                   string `mapstructure:"PROXIES"`

	// Report archive
	ArchiveDriver string `mapstructure:"ARCHIVE_DRIVER"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`

	// Progress publisher
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisChannel  string `mapstructure:"REDIS_CHANNEL"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine; the environment alone is a valid source.
	_ = v.ReadInConfig()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("HEADLESS", false)
	v.SetDefault("START_PAGE", "https://www.google.com")
	v.SetDefault("SEARCH_BOX_SELECTOR", `[name="q"]`)
	v.SetDefault("NEXT_PAGE_SELECTOR", "#pnnext")
	v.SetDefault("INTERACTION_TIMEOUT_SECONDS", 15)
	v.SetDefault("CLICK_SETTLE_MS", 2000)
	v.SetDefault("TAB_RECYCLE_THRESHOLD", 20)
	v.SetDefault("PAUSE_POLL_INTERVAL_MS", 1000)
	v.SetDefault("WINDOW_WIDTH", 1200)
	v.SetDefault("WINDOW_HEIGHT", 800)
	v.SetDefault("USER_AGENTS", "")
	v.SetDefault("PROXIES", "")
	v.SetDefault("ARCHIVE_DRIVER", "")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("SQLITE_PATH", "serp_runs.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "serp:progress")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) InteractionTimeout() time.Duration {
	return time.Duration(c.InteractionTimeoutSeconds) * time.Second
}

func (c *Config) ClickSettle() time.Duration {
	return time.Duration(c.ClickSettleMS) * time.Millisecond
}

func (c *Config) PausePollInterval() time.Duration {
	return time.Duration(c.PausePollIntervalMS) * time.Millisecond
}
