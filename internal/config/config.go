package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StateBackendFile   = "file"
	StateBackendRedis  = "redis"
	StateBackendMemory = "memory"
)

type Config struct {
	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Backend
	APIURL          string        // server root, ex: "https://bookmarks.example.com"
	APIPrefix       string        // path prefix of the API, ex: "/api"
	UseLocalAPI     bool          // true => LocalAPIURL replaces APIURL entirely
	LocalAPIURL     string        // ex: "http://localhost:3001"
	RequestTimeout  time.Duration // default per-request timeout (ex: 10s)
	RegisterTimeout time.Duration // registration is slower server-side (ex: 15s)
	ProbeTimeout    time.Duration // per-step timeout of the connection probe (ex: 5s)

	// Persisted client state
	StateBackend string // "file" | "redis" | "memory"
	StateFile    string // path of the YAML state file (file backend)
	ThemeDefault string // optional "light" | "dark", overrides environment detection

	// Redis (state backend)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisPrefix         string        // key prefix (ex: "stash:")
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 10s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 1s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
}

// Load reads the client configuration from the environment (and an optional .env file).
func Load() *Config {
	loadDotEnv()

	cfg := &Config{
		// Logging
		LogLevel:  getenv("STASH_LOG_LEVEL", "warn"),
		PrettyLog: mustBool("STASH_PRETTY_LOG", true),

		// Backend
		APIURL:          strings.TrimRight(getenv("STASH_API_URL", "http://localhost:3001"), "/"),
		APIPrefix:       normalizePrefix(getenv("STASH_API_PREFIX", "/api")),
		UseLocalAPI:     mustBool("STASH_USE_LOCAL_API", false),
		LocalAPIURL:     strings.TrimRight(getenv("STASH_LOCAL_API_URL", "http://localhost:3001"), "/"),
		RequestTimeout:  mustDuration("STASH_REQUEST_TIMEOUT", 10*time.Second),
		RegisterTimeout: mustDuration("STASH_REGISTER_TIMEOUT", 15*time.Second),
		ProbeTimeout:    mustDuration("STASH_PROBE_TIMEOUT", 5*time.Second),

		// State
		StateBackend: strings.ToLower(getenv("STASH_STATE_BACKEND", StateBackendFile)),
		StateFile:    getenv("STASH_STATE_FILE", defaultStateFile()),
		ThemeDefault: strings.ToLower(getenv("STASH_THEME_DEFAULT", "")),

		// Redis settings
		RedisUser:           getenv("STASH_REDIS_USERNAME", ""),
		RedisPassword:       getenv("STASH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("STASH_REDIS_DB", 0),
		RedisPrefix:         getenv("STASH_REDIS_PREFIX", "stash:"),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 5*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 2*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 2),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 10*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
	}

	switch cfg.StateBackend {
	case StateBackendFile, StateBackendMemory:
	case StateBackendRedis:
		cfg.RedisAddr = requireEnv("STASH_REDIS_ADDR")
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown STASH_STATE_BACKEND %q (want file, redis or memory)", cfg.StateBackend))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// ServerRootURL is the bare server root used for liveness checks.
func (c *Config) ServerRootURL() string {
	if c.UseLocalAPI {
		return c.LocalAPIURL
	}
	return c.APIURL
}

// APIBaseURL is the URL every contract path is appended to.
func (c *Config) APIBaseURL() string {
	return c.ServerRootURL() + c.APIPrefix
}

type DevAPIConfig struct {
	ListenPort      string        // ex: ":3001"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request handler timeout (ex: 5s)

	LogLevel  string
	PrettyLog bool

	APIPrefix     string        // ex: "/api"
	SessionTTL    time.Duration // lifetime of issued bearer tokens (ex: 24h)
	SweepInterval time.Duration // interval of the expired-session sweeper (ex: 10m)
	EnableHealth  bool          // false => no /health route (liveness only)
	AllowedOrigin string        // CORS origin for browser frontends, empty = no CORS headers
	PasswordCost  int           // bcrypt cost for stored passwords

	// Access control
	AdminCIDRs       []string // IPs/CIDRs allowed on /readyz and /admin/*, empty = everyone
	TrustProxy       bool     // resolve client IP from proxy headers
	AuthBurst        int      // auth requests allowed in a burst per client IP
	AuthRefillPerMin int      // auth tokens refilled per client IP per minute
}

// LoadDevAPI reads the local development backend configuration.
func LoadDevAPI() *DevAPIConfig {
	loadDotEnv()

	return &DevAPIConfig{
		ListenPort:      getenv("STASH_DEVAPI_LISTEN_PORT", ":3001"),
		ShutdownTimeout: mustDuration("STASH_DEVAPI_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("STASH_DEVAPI_REQUEST_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("STASH_DEVAPI_LOG_LEVEL", "info"),
		PrettyLog: mustBool("STASH_DEVAPI_PRETTY_LOG", true),

		APIPrefix:     normalizePrefix(getenv("STASH_DEVAPI_PREFIX", "/api")),
		SessionTTL:    mustDuration("STASH_DEVAPI_SESSION_TTL", 24*time.Hour),
		SweepInterval: mustDuration("STASH_DEVAPI_SWEEP_INTERVAL", 10*time.Minute),
		EnableHealth:  mustBool("STASH_DEVAPI_HEALTH", true),
		AllowedOrigin: getenv("STASH_DEVAPI_ALLOWED_ORIGIN", ""),
		PasswordCost:  getenvInt("STASH_DEVAPI_PASSWORD_COST", 10),

		AdminCIDRs:       splitAndTrim(getenv("STASH_DEVAPI_ADMIN_CIDRS", "")),
		TrustProxy:       mustBool("STASH_DEVAPI_TRUST_PROXY", false),
		AuthBurst:        getenvInt("STASH_DEVAPI_AUTH_BURST", 20),
		AuthRefillPerMin: getenvInt("STASH_DEVAPI_AUTH_REFILL_PER_MIN", 30),
	}
}

// loadDotEnv loads STASH_ENV_FILE (default .env) when present. Variables
// already set in the environment win.
func loadDotEnv() {
	path := getenv("STASH_ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("⚠️ failed to load %s: %v", path, err)
	}
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "stash", "state.yaml")
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
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
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizePrefix turns "api", "/api/" and "/api" into "/api". An empty or "/"
// prefix means the contract lives at the server root.
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
