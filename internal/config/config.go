// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. When empty the server runs on in-memory repositories,
	// which is only useful for local development.
	DatabaseURL string `koanf:"database_url"`

	// Redis backs distributed rate limiting. Optional; when empty the
	// server falls back to an in-memory rate limit store.
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret string `koanf:"jwt_secret"`

	// Ranking
	RankingZ           float64 `koanf:"ranking_z"`
	VisibilityThreshold float64 `koanf:"visibility_threshold"`
	PageSize           int     `koanf:"page_size"`

	// Rate limits (requests per minute)
	GlobalRateLimit int `koanf:"global_rate_limit"`
	VoteRateLimit   int `koanf:"vote_rate_limit"`
	SubmitRateLimit int `koanf:"submit_rate_limit"`

	// R2 (Cloudflare Object Storage), used for figure portrait uploads.
	// Optional as a group; uploads are disabled when unset.
	R2BucketName      string `koanf:"r2_bucket_name"`
	R2AccessKeyID     string `koanf:"r2_access_key_id"`
	R2SecretAccessKey string `koanf:"r2_secret_access_key"`
	R2Endpoint        string `koanf:"r2_endpoint"`
	R2MaxUploadSizeMB int    `koanf:"r2_max_upload_size_mb"`

	// CORS. When empty, cross-origin requests are not served.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// Tracing (OpenTelemetry). Disabled unless TRACING_ENABLED=true.
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporter     string  `koanf:"tracing_exporter"`
	OTLPEndpoint        string  `koanf:"otlp_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret         = errors.New("JWT_SECRET is required")
	ErrMissingR2BucketName      = errors.New("R2_BUCKET_NAME is required")
	ErrMissingR2AccessKeyID     = errors.New("R2_ACCESS_KEY_ID is required")
	ErrMissingR2SecretAccessKey = errors.New("R2_SECRET_ACCESS_KEY is required")
	ErrMissingR2Endpoint        = errors.New("R2_ENDPOINT is required")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
	ErrInvalidPageSize          = errors.New("PAGE_SIZE must be positive")
	ErrInvalidThreshold         = errors.New("VISIBILITY_THRESHOLD must be between -1 and 1")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultRankingZ            = 1.28155
	DefaultVisibilityThreshold = -0.2
	DefaultPageSize            = 10
	DefaultGlobalRateLimit     = 100
	DefaultVoteRateLimit       = 30
	DefaultSubmitRateLimit     = 10
	DefaultR2MaxUploadSizeMB   = 5
	DefaultTracingExporter     = "otlp-http"
	DefaultTracingSamplingRate = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// File values load first and lose to env vars.
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, err := getEnvIntOrDefaultMulti([]string{"HEARSAY_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	pageSize, err := getEnvIntOrDefault("PAGE_SIZE", k.Int("page_size"), DefaultPageSize)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	rankingZ, err := getEnvFloatOrDefault("RANKING_Z", k.Float64("ranking_z"), DefaultRankingZ)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	threshold := DefaultVisibilityThreshold
	if k.Exists("visibility_threshold") {
		threshold = k.Float64("visibility_threshold")
	}
	if val := os.Getenv("VISIBILITY_THRESHOLD"); val != "" {
		f, parseErr := strconv.ParseFloat(val, 64)
		if parseErr != nil {
			loadErrs = append(loadErrs, fmt.Errorf("VISIBILITY_THRESHOLD must be a valid float: %w", parseErr))
		} else {
			threshold = f
		}
	}

	globalLimit, err := getEnvIntOrDefault("GLOBAL_RATE_LIMIT", k.Int("global_rate_limit"), DefaultGlobalRateLimit)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	voteLimit, err := getEnvIntOrDefault("VOTE_RATE_LIMIT", k.Int("vote_rate_limit"), DefaultVoteRateLimit)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	submitLimit, err := getEnvIntOrDefault("SUBMIT_RATE_LIMIT", k.Int("submit_rate_limit"), DefaultSubmitRateLimit)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	maxUploadSize, err := getEnvIntOrDefault("R2_MAX_UPLOAD_SIZE_MB", k.Int("r2_max_upload_size_mb"), DefaultR2MaxUploadSizeMB)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	samplingRate, err := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	allowedOrigins := k.Strings("allowed_origins")
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		allowedOrigins = nil
		for _, origin := range strings.Split(val, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefaultMulti([]string{"HEARSAY_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:           getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		RankingZ:            rankingZ,
		VisibilityThreshold: threshold,
		PageSize:            pageSize,
		GlobalRateLimit:     globalLimit,
		VoteRateLimit:       voteLimit,
		SubmitRateLimit:     submitLimit,
		R2BucketName:        getEnvOrKoanf("R2_BUCKET_NAME", k, "r2_bucket_name"),
		R2AccessKeyID:       getEnvOrKoanf("R2_ACCESS_KEY_ID", k, "r2_access_key_id"),
		R2SecretAccessKey:   getEnvOrKoanf("R2_SECRET_ACCESS_KEY", k, "r2_secret_access_key"),
		R2Endpoint:          getEnvOrKoanf("R2_ENDPOINT", k, "r2_endpoint"),
		R2MaxUploadSizeMB:   maxUploadSize,
		AllowedOrigins:      allowedOrigins,
		TracingEnabled:      getEnvBoolOrDefault("TRACING_ENABLED", k.Bool("tracing_enabled")),
		TracingExporter:     getEnvOrDefaultMulti([]string{"TRACING_EXPORTER"}, k.String("tracing_exporter"), DefaultTracingExporter),
		OTLPEndpoint:        getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingSamplingRate: samplingRate,
		TracingInsecure:     getEnvBoolOrDefault("TRACING_INSECURE", k.Bool("tracing_insecure")),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvBoolOrDefault returns the environment variable as bool if set, otherwise the koanf value.
func getEnvBoolOrDefault(envKey string, koanfVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return koanfVal
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.PageSize < 1 {
		errs = append(errs, ErrInvalidPageSize)
	}
	if c.VisibilityThreshold < -1 || c.VisibilityThreshold > 1 {
		errs = append(errs, ErrInvalidThreshold)
	}

	// R2 configuration is optional as a group. When any field is set,
	// all of them must be.
	if c.R2BucketName != "" || c.R2AccessKeyID != "" || c.R2SecretAccessKey != "" || c.R2Endpoint != "" {
		if c.R2BucketName == "" {
			errs = append(errs, ErrMissingR2BucketName)
		}
		if c.R2AccessKeyID == "" {
			errs = append(errs, ErrMissingR2AccessKeyID)
		}
		if c.R2SecretAccessKey == "" {
			errs = append(errs, ErrMissingR2SecretAccessKey)
		}
		if c.R2Endpoint == "" {
			errs = append(errs, ErrMissingR2Endpoint)
		}
	}

	return errs
}

// UploadsEnabled reports whether portrait uploads are configured.
func (c *Config) UploadsEnabled() bool {
	return c.R2BucketName != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"ranking_z":             fmt.Sprintf("%g", c.RankingZ),
		"visibility_threshold":  fmt.Sprintf("%g", c.VisibilityThreshold),
		"page_size":             fmt.Sprintf("%d", c.PageSize),
		"global_rate_limit":     fmt.Sprintf("%d", c.GlobalRateLimit),
		"vote_rate_limit":       fmt.Sprintf("%d", c.VoteRateLimit),
		"submit_rate_limit":     fmt.Sprintf("%d", c.SubmitRateLimit),
		"r2_bucket_name":        c.R2BucketName,
		"r2_access_key_id":      maskSecret(c.R2AccessKeyID),
		"r2_secret_access_key":  maskSecret(c.R2SecretAccessKey),
		"r2_endpoint":           c.R2Endpoint,
		"r2_max_upload_size_mb": fmt.Sprintf("%d", c.R2MaxUploadSizeMB),
		"allowed_origins":       strings.Join(c.AllowedOrigins, ","),
		"tracing_enabled":       strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":      c.TracingExporter,
		"otlp_endpoint":         c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
