package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"posterm/internal/logger"
)

// Config is the full terminal configuration, read from the environment (or a
// .env file) once per process.
type Config struct {
	API      APIConfig
	Cache    CacheConfig
	Terminal TerminalConfig

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// APIConfig points the client at the POS backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CacheConfig controls the item catalog cache. Redis is optional; when it is
// disabled or unreachable the in-memory cache is used.
type CacheConfig struct {
	UseRedis      bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	ItemTTL       time.Duration
}

// TerminalConfig holds operator-session settings.
type TerminalConfig struct {
	// CredentialsPath is where the payment-terminal pairing credentials are
	// stored (the browser build kept these in localStorage).
	CredentialsPath string

	// QuickAddLoadDelay postpones the first dashboard load so the parked
	// sales and item preload requests land first.
	QuickAddLoadDelay time.Duration

	// ClearCartDelay is how long a finished (Paid) sale stays on screen
	// before the cart resets for the next customer.
	ClearCartDelay time.Duration
}

var (
	once     sync.Once
	instance *Config
)

// Load reads the configuration. Subsequent calls return the same instance.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("POS_API_BASE_URL", "http://localhost:5000/api")
		viper.SetDefault("POS_API_TIMEOUT_SECONDS", 15)
		viper.SetDefault("CACHE_USE_REDIS", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_ITEM_TTL_SECONDS", 600)
		viper.SetDefault("TERMINAL_CREDENTIALS_PATH", "terminal.yaml")
		viper.SetDefault("TERMINAL_QUICK_ADD_DELAY_MS", 2000)
		viper.SetDefault("TERMINAL_CLEAR_CART_DELAY_MS", 2000)
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "console")
		viper.SetDefault("LOG_TIME_FORMAT", time.RFC3339)
		viper.SetDefault("LOG_OUTPUT", "stderr")

		viper.AutomaticEnv()

		instance = &Config{
			API: APIConfig{
				BaseURL: viper.GetString("POS_API_BASE_URL"),
				Timeout: time.Duration(viper.GetInt("POS_API_TIMEOUT_SECONDS")) * time.Second,
			},
			Cache: CacheConfig{
				UseRedis:      viper.GetBool("CACHE_USE_REDIS"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				ItemTTL:       time.Duration(viper.GetInt("CACHE_ITEM_TTL_SECONDS")) * time.Second,
			},
			Terminal: TerminalConfig{
				CredentialsPath:   viper.GetString("TERMINAL_CREDENTIALS_PATH"),
				QuickAddLoadDelay: time.Duration(viper.GetInt("TERMINAL_QUICK_ADD_DELAY_MS")) * time.Millisecond,
				ClearCartDelay:    time.Duration(viper.GetInt("TERMINAL_CLEAR_CART_DELAY_MS")) * time.Millisecond,
			},
			LogLevel:      viper.GetString("LOG_LEVEL"),
			LogFormat:     viper.GetString("LOG_FORMAT"),
			LogTimeFormat: viper.GetString("LOG_TIME_FORMAT"),
			LogOutput:     viper.GetString("LOG_OUTPUT"),
		}
	})

	return instance
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
