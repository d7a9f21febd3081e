package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the service configuration read from the environment
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	DataDir        string
	RelayURL       string
	SuggestURL     string
	FetchTimeout   time.Duration
	SuggestTimeout time.Duration
	SuggestGrace   time.Duration
	MaxPageBytes   int64
	CacheTTL       time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	RetainMonths   int
	DevMode        bool
}

// LoadEnv loads .env.development, falling back to .env. Neither file is
// required.
func LoadEnv() error {
	if err := godotenv.Load(".env.development"); err == nil {
		return nil
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load reads the configuration. Values that fail to parse keep their
// default and are reported in warnings.
func Load() (Config, []string) {
	var warnings []string
	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("invalid %s value %q, using default: %v", key, value, err))
	}

	cfg := Config{
		Port:       getEnv("PORT", "8082"),
		GinMode:    getEnv("GIN_MODE", "release"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "text"),
		DataDir:    getEnv("DATA_DIR", "./data"),
		RelayURL:   getEnv("RELAY_URL", "https://corsproxy.io/?"),
		SuggestURL: os.Getenv("SUGGEST_URL"),
	}

	cfg.FetchTimeout = getDuration("FETCH_TIMEOUT", 15*time.Second, warn)
	cfg.SuggestTimeout = getDuration("SUGGEST_TIMEOUT", 5*time.Second, warn)
	cfg.SuggestGrace = getDuration("SUGGEST_GRACE", 250*time.Millisecond, warn)
	cfg.CacheTTL = getDuration("CACHE_TTL", 30*time.Minute, warn)

	cfg.MaxPageBytes = 5 << 20
	if v := os.Getenv("MAX_PAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			warn("MAX_PAGE_BYTES", v, errOrNonPositive(err))
		} else {
			cfg.MaxPageBytes = n
		}
	}

	cfg.RateLimitRPS = 2
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			warn("RATE_LIMIT_RPS", v, errOrNonPositive(err))
		} else {
			cfg.RateLimitRPS = n
		}
	}

	cfg.RateLimitBurst = 5
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			warn("RATE_LIMIT_BURST", v, errOrNonPositive(err))
		} else {
			cfg.RateLimitBurst = n
		}
	}

	// Monthly engine counters older than this are pruned
	cfg.RetainMonths = 12
	if v := os.Getenv("STATS_RETAIN_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			warn("STATS_RETAIN_MONTHS", v, errOrNonPositive(err))
		} else {
			cfg.RetainMonths = n
		}
	}

	if v := os.Getenv("DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			warn("DEV_MODE", v, err)
		}
		cfg.DevMode = b
	}

	return cfg, warnings
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, def time.Duration, warn func(key, value string, err error)) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		warn(key, v, errOrNonPositive(err))
		return def
	}
	return d
}

func errOrNonPositive(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("must be positive")
}
