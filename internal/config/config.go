package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvStoreURL = "SMARTMARKS_STORE_URL"
	EnvStoreKey = "SMARTMARKS_STORE_KEY"
)

type Config struct {
	ListenAddr      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // optional, JSON log file rotated by size
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Remote store
	StoreURL string // redis://, rediss:// or sqlite://<path>
	StoreKey string // signs session tokens

	// Sessions
	SessionTTL        time.Duration // session lifetime (default: 7 days)
	SessionGCInterval time.Duration // interval to sweep expired sessions (default: 1h)
	CookieName        string
	CookieSecure      bool
	LoginBurst        int  // login attempts allowed at once per client
	LoginPerMin       int  // login attempts regained per minute per client
	AllowSignup       bool // first sign-in with an unknown name registers its password

	// Import from a Homepage bookmarks.yaml (optional)
	ImportFile     string        // empty = import disabled
	ImportHandle   string        // sign-in handle owning imported bookmarks
	ImportInterval time.Duration // interval to re-import (default: 24h)
	ImportWatch    bool          // also re-import on file changes

	// Redis connection retry (redis:// stores only)
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict infra endpoints to specific Host headers
	AllowedCIDRS []string // optional, restrict infra endpoints to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	url, key := requireStore()

	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("SMARTMARKS_LISTEN_ADDR", ":8080"),
		ShutdownTimeout: mustDuration("SMARTMARKS_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:      getenv("SMARTMARKS_LOG_LEVEL", "info"),
		PrettyLog:     mustBool("SMARTMARKS_PRETTY_LOG", true),
		LogFile:       getenv("SMARTMARKS_LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("SMARTMARKS_LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getenvInt("SMARTMARKS_LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getenvInt("SMARTMARKS_LOG_MAX_AGE_DAYS", 28),

		StoreURL: url,
		StoreKey: key,

		// Sessions
		SessionTTL:        mustDuration("SMARTMARKS_SESSION_TTL", 7*24*time.Hour),
		SessionGCInterval: mustDuration("SMARTMARKS_SESSION_GC_INTERVAL", time.Hour),
		CookieName:        getenv("SMARTMARKS_COOKIE_NAME", "smartmarks_session"),
		CookieSecure:      mustBool("SMARTMARKS_COOKIE_SECURE", false),
		LoginBurst:        getenvInt("SMARTMARKS_LOGIN_BURST", 5),
		LoginPerMin:       getenvInt("SMARTMARKS_LOGIN_PER_MIN", 10),
		AllowSignup:       mustBool("SMARTMARKS_ALLOW_SIGNUP", true),

		// Import
		ImportFile:     getenv("SMARTMARKS_IMPORT_FILE", ""),
		ImportHandle:   getenv("SMARTMARKS_IMPORT_HANDLE", ""),
		ImportInterval: mustDuration("SMARTMARKS_IMPORT_INTERVAL", 24*time.Hour),
		ImportWatch:    mustBool("SMARTMARKS_IMPORT_WATCH", true),

		// Redis settings
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("SMARTMARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("SMARTMARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SMARTMARKS_TRUST_PROXY", false),
	}

	if cfg.ImportFile != "" && cfg.ImportHandle == "" {
		panic("❌ FATAL: SMARTMARKS_IMPORT_HANDLE is required when SMARTMARKS_IMPORT_FILE is set")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.StoreKey = "***REDACTED***"
		cfgCopy.StoreURL = RedactURL(cfg.StoreURL)
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// requireStore reads both store variables and panics naming every missing one.
func requireStore() (string, string) {
	url := strings.TrimSpace(os.Getenv(EnvStoreURL))
	key := strings.TrimSpace(os.Getenv(EnvStoreKey))

	var missing []string
	if url == "" {
		missing = append(missing, EnvStoreURL)
	}
	if key == "" {
		missing = append(missing, EnvStoreKey)
	}
	if len(missing) > 0 {
		panic(fmt.Sprintf("❌ FATAL: missing store configuration (%s). "+
			"Set %s to the store location (redis://host:6379/0 or sqlite:///path/to/smartmarks.db) "+
			"and %s to the secret used to sign sessions, in the environment or an env file loaded before start.",
			strings.Join(missing, ", "), EnvStoreURL, EnvStoreKey))
	}
	return url, key
}

// RedactURL hides the password of a store URL.
func RedactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":***@" + host
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
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
