package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection: "memory" keeps the ledger ephemeral (a restart
	// loses all entries and pending queues); "sqlite" journals every append.
	DataBackend  string
	SQLiteDBPath string

	// AMQP notification transport; empty URL disables the broker sink and
	// falls back to the log stub.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger behavior
	StrictValidation bool

	// Notification dispatcher
	NotifyBufferSize int
	NotifyTimeout    time.Duration

	// HTTP read caching; dashboards poll every ~10s, so the TTL stays below that.
	SummaryCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8082"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bookkeep.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bookkeep"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "accountant_notifications"),

		StrictValidation: getEnvBool("LEDGER_STRICT_VALIDATION", false),

		NotifyBufferSize: getEnvInt("NOTIFY_BUFFER_SIZE", 256),
		NotifyTimeout:    getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),

		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Second),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.NotifyBufferSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid notify buffer size %d: must be at least 1", c.NotifyBufferSize))
	} else if c.NotifyBufferSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid notify buffer size %d: must be at most 100000", c.NotifyBufferSize))
	}

	if c.NotifyTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid notify timeout %v: must be at least 100ms", c.NotifyTimeout))
	} else if c.NotifyTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid notify timeout %v: must be at most 1 minute", c.NotifyTimeout))
	}

	if c.SummaryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must not be negative", c.SummaryCacheTTL))
	} else if c.SummaryCacheTTL > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at most 1 minute (dashboards poll every 10s)", c.SummaryCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
