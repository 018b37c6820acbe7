package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "LINKSHELF_"

// Storage backends for the credential store and the link cache.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	ListenAddr      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Remote link service
	APIBaseURL    string        // ex: https://links.example.com
	HTTPTimeout   time.Duration // per remote request (default: 15s)
	ScrapeTimeout time.Duration // page metadata fetch for captures (default: 10s)

	ReloadInterval time.Duration // periodic reload from the remote (default: 15m, 0 = manual only)
	PageSize       int           // links per page (default: 5)
	FeedTitle      string        // title of the generated feeds

	// Homepage import (optional, empty file = disabled)
	HomepageFile   string
	HomepageKind   string        // "bookmarks" | "services"
	ImportInterval time.Duration // 0 = import once at startup

	// Local storage
	Storage    string // memory | sqlite | redis
	SQLitePath string

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// LoadDotEnv reads .env style files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from LINKSHELF_* variables. It panics on a
// missing required variable, like a failed startup would.
func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		ShutdownTimeout: mustDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LOG_LEVEL", "info"),
		PrettyLog: mustBool("PRETTY_LOG", true),

		// Remote
		APIBaseURL:     requireEnv("API_BASE_URL"),
		HTTPTimeout:    mustDuration("HTTP_TIMEOUT", 15*time.Second),
		ScrapeTimeout:  mustDuration("SCRAPE_TIMEOUT", 10*time.Second),
		ReloadInterval: mustDuration("RELOAD_INTERVAL", 15*time.Minute),
		PageSize:       getenvInt("PAGE_SIZE", 5),
		FeedTitle:      getenv("FEED_TITLE", "Saved links"),

		HomepageFile:   getenv("HOMEPAGE_FILE", ""),
		HomepageKind:   getenv("HOMEPAGE_KIND", "bookmarks"),
		ImportInterval: mustDuration("IMPORT_INTERVAL", 24*time.Hour),

		Storage:    strings.ToLower(getenv("STORAGE", StorageSQLite)),
		SQLitePath: getenv("SQLITE_PATH", "linkshelf.db"),

		// Redis settings
		RedisAddr:             getenv("REDIS_ADDR", ""),
		RedisUser:             getenv("REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("TRUST_PROXY", false),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%sSQLITE_PATH is required when %sSTORAGE=sqlite", envPrefix, envPrefix)
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%sREDIS_ADDR is required when %sSTORAGE=redis", envPrefix, envPrefix)
		}
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			return fmt.Errorf("%sREDIS_PASSWORD is required when %sREDIS_PASSWORD_REQUIRED=true", envPrefix, envPrefix)
		}
	default:
		return fmt.Errorf("unknown storage %q (want memory, sqlite or redis)", c.Storage)
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("%sPAGE_SIZE must be > 0, got %d", envPrefix, c.PageSize)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%sHTTP_TIMEOUT must be > 0, got %v", envPrefix, c.HTTPTimeout)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s%s is not set", envPrefix, key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
