package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	svcErr "github.com/meetmatch/matchcore/internal/errors"
)

// Backend selects where process-shared state (result cache, rate windows) lives.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Match     MatchConfig     `mapstructure:"match"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type AppConfig struct {
	ENV string `mapstructure:"env"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Component string `mapstructure:"component"`
	Source    bool   `mapstructure:"source"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`

	// Timeout bounds every storage call whose caller did not set a deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

// MatchConfig holds the scorer weights and gates. The three weights are
// expected to sum to 1.0.
type MatchConfig struct {
	Threshold            float64 `mapstructure:"threshold"`
	LocationWeight       float64 `mapstructure:"location_weight"`
	InterestsWeight      float64 `mapstructure:"interests_weight"`
	PreferencesWeight    float64 `mapstructure:"preferences_weight"`
	PreferenceHardGate   bool    `mapstructure:"preference_hard_gate"`
	CountryMatchScore    float64 `mapstructure:"country_match_score"`
	DefaultMaxDistanceKm float64 `mapstructure:"default_max_distance_km"`
	DefaultLimit         int     `mapstructure:"default_limit"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Limit is one row of the rate-limit table.
type Limit struct {
	Count  int           `mapstructure:"count"`
	Window time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Backend string           `mapstructure:"backend"`
	Limits  map[string]Limit `mapstructure:"limits"`
}

// DefaultRateLimits is the built-in rate-limit table. Entries from the config
// file or RATE_LIMITS override it per action type.
func DefaultRateLimits() map[string]Limit {
	return map[string]Limit{
		"like":           {Count: 20, Window: time.Minute},
		"dislike":        {Count: 60, Window: time.Minute},
		"match_request":  {Count: 20, Window: time.Minute},
		"message":        {Count: 30, Window: time.Minute},
		"media_upload":   {Count: 5, Window: time.Minute},
		"report":         {Count: 5, Window: time.Hour},
		"profile_update": {Count: 10, Window: time.Hour},
	}
}

// env bindings keep the variable names used by the deployment scripts.
var envBindings = map[string][]string{
	"app.env":                       {"APP_ENV"},
	"log.level":                     {"LOG_LEVEL"},
	"log.format":                    {"LOG_FORMAT"},
	"log.component":                 {"LOG_COMPONENT"},
	"log.source":                    {"LOG_SOURCE"},
	"db.driver":                     {"DB_DRIVER"},
	"db.dsn":                        {"DATABASE_URL", "DB_DSN"},
	"db.host":                       {"DB_HOST"},
	"db.port":                       {"DB_PORT"},
	"db.user":                       {"DB_USER"},
	"db.password":                   {"DB_PASSWORD"},
	"db.name":                       {"DB_NAME"},
	"db.sslmode":                    {"DB_SSLMODE"},
	"db.timeout":                    {"STORAGE_TIMEOUT"},
	"redis.addr":                    {"REDIS_ADDR"},
	"redis.password":                {"REDIS_PASSWORD"},
	"redis.db":                      {"REDIS_DB"},
	"grpc.host":                     {"GRPC_HOST"},
	"grpc.port":                     {"GRPC_PORT"},
	"http.port":                     {"HTTP_PORT"},
	"match.threshold":               {"MATCH_THRESHOLD"},
	"match.location_weight":         {"LOCATION_WEIGHT"},
	"match.interests_weight":        {"INTERESTS_WEIGHT"},
	"match.preferences_weight":      {"PREFERENCES_WEIGHT"},
	"match.preference_hard_gate":    {"PREFERENCE_HARD_GATE"},
	"match.country_match_score":     {"COUNTRY_MATCH_SCORE"},
	"match.default_max_distance_km": {"DEFAULT_MAX_DISTANCE_KM"},
	"match.default_limit":           {"MATCH_DEFAULT_LIMIT"},
	"cache.backend":                 {"CACHE_BACKEND"},
	"cache.max_size":                {"CACHE_MAX_SIZE"},
	"cache.ttl":                     {"CACHE_TTL"},
	"ratelimit.backend":             {"RATE_LIMIT_BACKEND"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.component", "matchcore")
	v.SetDefault("log.source", false)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "meetmatch")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timeout", "5s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", "50051")
	v.SetDefault("http.port", "8080")

	v.SetDefault("match.threshold", 0.7)
	v.SetDefault("match.location_weight", 0.3)
	v.SetDefault("match.interests_weight", 0.5)
	v.SetDefault("match.preferences_weight", 0.2)
	v.SetDefault("match.preference_hard_gate", true)
	v.SetDefault("match.country_match_score", 0.5)
	v.SetDefault("match.default_max_distance_km", 50.0)
	v.SetDefault("match.default_limit", 10)

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("ratelimit.backend", BackendMemory)
}

// Load reads defaults, an optional YAML file named by MEETMATCH_CONFIG and
// environment overrides, then validates the result. Any problem is reported as
// a *errors.ConfigurationError and is meant to stop the process.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, svcErr.Configuration(key, err.Error())
		}
	}

	if path := strings.TrimSpace(os.Getenv("MEETMATCH_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, svcErr.Configuration("MEETMATCH_CONFIG", err.Error())
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(os.Getenv("RATE_LIMITS")); raw != "" {
		overrides, err := ParseRateLimits(raw)
		if err != nil {
			return nil, err
		}
		for action, l := range overrides {
			cfg.RateLimit.Limits[action] = l
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, ignoring environment and files.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// defaults are static; failing here is a programming error
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, svcErr.Configuration("decode", err.Error())
	}

	limits := DefaultRateLimits()
	for action, l := range cfg.RateLimit.Limits {
		limits[strings.ToLower(action)] = l
	}
	cfg.RateLimit.Limits = limits

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.RateLimit.Backend = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildDSN(&cfg.DB)
	}
	return cfg, nil
}

func buildDSN(db *DBConfig) string {
	switch db.Driver {
	case "mysql":
		port := db.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			db.User, db.Password, db.Host, port, db.Name,
		)
	case "sqlite":
		return db.Name + ".db"
	default:
		port := db.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			db.Host, port, db.User, db.Password, db.Name, db.SSLMode,
		)
	}
}

// Validate checks the invariants that must hold before any service starts.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return svcErr.Configuration("LOG_LEVEL", fmt.Sprintf("unknown level %q", c.Log.Level))
	}

	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return svcErr.Configuration("DB_DRIVER", fmt.Sprintf("unsupported driver %q", c.DB.Driver))
	}
	if c.DB.Timeout <= 0 {
		return svcErr.Configuration("STORAGE_TIMEOUT", "must be positive")
	}

	m := c.Match
	if m.Threshold < 0 || m.Threshold > 1 {
		return svcErr.Configuration("MATCH_THRESHOLD", "must be within [0,1]")
	}
	for name, w := range map[string]float64{
		"LOCATION_WEIGHT":    m.LocationWeight,
		"INTERESTS_WEIGHT":   m.InterestsWeight,
		"PREFERENCES_WEIGHT": m.PreferencesWeight,
	} {
		if w < 0 || w > 1 {
			return svcErr.Configuration(name, "must be within [0,1]")
		}
	}
	if sum := m.LocationWeight + m.InterestsWeight + m.PreferencesWeight; math.Abs(sum-1) > 1e-6 {
		return svcErr.Configuration("weights", fmt.Sprintf("must sum to 1.0, got %.4f", sum))
	}
	if m.CountryMatchScore < 0 || m.CountryMatchScore > 1 {
		return svcErr.Configuration("COUNTRY_MATCH_SCORE", "must be within [0,1]")
	}
	if m.DefaultMaxDistanceKm <= 0 {
		return svcErr.Configuration("DEFAULT_MAX_DISTANCE_KM", "must be positive")
	}
	if m.DefaultLimit <= 0 {
		return svcErr.Configuration("MATCH_DEFAULT_LIMIT", "must be positive")
	}

	if !validBackend(c.Cache.Backend) {
		return svcErr.Configuration("CACHE_BACKEND", fmt.Sprintf("unknown backend %q", c.Cache.Backend))
	}
	if c.Cache.MaxSize <= 0 {
		return svcErr.Configuration("CACHE_MAX_SIZE", "must be positive")
	}
	if c.Cache.TTL <= 0 {
		return svcErr.Configuration("CACHE_TTL", "must be positive")
	}

	if !validBackend(c.RateLimit.Backend) {
		return svcErr.Configuration("RATE_LIMIT_BACKEND", fmt.Sprintf("unknown backend %q", c.RateLimit.Backend))
	}
	for action, l := range c.RateLimit.Limits {
		if strings.TrimSpace(action) == "" {
			return svcErr.Configuration("ratelimit.limits", "empty action type")
		}
		if l.Count <= 0 || l.Window <= 0 {
			return svcErr.Configuration("ratelimit.limits."+action, "count and window must be positive")
		}
	}

	return nil
}

func validBackend(b string) bool {
	return b == BackendMemory || b == BackendRedis
}

// ParseRateLimits parses "like=20/60s,report=5/1h". A bare window number is
// read as seconds.
func ParseRateLimits(raw string) (map[string]Limit, error) {
	out := make(map[string]Limit)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		action, rule, ok := strings.Cut(item, "=")
		if !ok {
			return nil, svcErr.Configuration("RATE_LIMITS", fmt.Sprintf("malformed entry %q", item))
		}
		countStr, windowStr, ok := strings.Cut(rule, "/")
		if !ok {
			return nil, svcErr.Configuration("RATE_LIMITS", fmt.Sprintf("malformed rule %q", rule))
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return nil, svcErr.Configuration("RATE_LIMITS", fmt.Sprintf("bad count in %q", item))
		}
		window, err := parseWindow(strings.TrimSpace(windowStr))
		if err != nil {
			return nil, svcErr.Configuration("RATE_LIMITS", fmt.Sprintf("bad window in %q", item))
		}
		out[strings.ToLower(strings.TrimSpace(action))] = Limit{Count: count, Window: window}
	}
	return out, nil
}

func parseWindow(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}
