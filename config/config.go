// Package config loads settings for the sitecheck command.
//
// Settings are read with viper from a YAML, JSON or TOML file and may be
// overridden by environment variables prefixed with SITECHECK_ (for example
// SITECHECK_DEFAULTTIMEOUT or SITECHECK_LOG_LEVEL).
//
// Example configuration:
//
//	DefaultTimeout: 5000        # per-request timeout, integer milliseconds
//	DefaulURLRowLimit: 20       # rows kept per URL
//	DefaulTimerInterval: 60000  # pause between cycles, milliseconds
//
//	port: 8080
//	log_level: info
//	log_format: console
//	max_concurrency: 16
//	user_agent: sitecheck/${HOSTNAME:-local}
//
//	urls:
//	  - https://example.com
//	  - https://${API_HOST}/health
//
// The three Default* keys are required; everything else has a default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys of the required settings, spelled as in existing configuration files.
const (
	KeyTimeout  = "DefaultTimeout"
	KeyRowLimit = "DefaulURLRowLimit"
	KeyInterval = "DefaulTimerInterval"
)

// envPrefix prefixes environment overrides.
const envPrefix = "SITECHECK"

// ErrConfiguration is wrapped by every configuration error.
var ErrConfiguration = errors.New("invalid configuration")

// Error reports a missing or invalid setting.
type Error struct {
	// Key is the setting name as written in the configuration file.
	Key string

	// Reason describes what is wrong with the value.
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("please insert a valid value for %s in the configuration file: %s", e.Key, e.Reason)
}

// Unwrap returns [ErrConfiguration].
func (e *Error) Unwrap() error {
	return ErrConfiguration
}

// Settings is the validated configuration of the sitecheck command.
type Settings struct {
	// Timeout is the per-request timeout (DefaultTimeout).
	Timeout time.Duration

	// RowLimit is the number of results kept per URL (DefaulURLRowLimit).
	RowLimit int

	// Interval is the pause between poll cycles (DefaulTimerInterval).
	Interval time.Duration

	// Port is the HTTP port of the results API. Defaults to 8080.
	Port int

	// LogLevel is one of debug, info, warn or error. Defaults to info.
	LogLevel string

	// LogFormat is console or json. Defaults to console.
	LogFormat string

	// MaxConcurrency bounds requests in flight per cycle; 0 means unbounded.
	MaxConcurrency int

	// UserAgent is sent with every request.
	UserAgent string

	// FollowRedirects reports the final status of redirect chains. Defaults to true.
	FollowRedirects bool

	// RequestsPerSecond paces requests when positive.
	RequestsPerSecond float64

	// RequestBurst is the pacing burst. Defaults to 1.
	RequestBurst int

	// URLs optionally lists the URLs to monitor.
	URLs []string
}

// Load reads a configuration file and applies environment overrides.
//
// An empty path reads settings from the environment only.
// Returns an error wrapping [ErrConfiguration] if the file cannot be read or
// a setting is missing or invalid.
func Load(path string) (*Settings, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfiguration, err)
		}
	}
	return build(v)
}

// Parse parses configuration data in the given format ("yaml", "json" or
// "toml") and applies environment overrides.
func Parse(data []byte, format string) (*Settings, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrConfiguration, format, err)
	}
	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("max_concurrency", 0)
	v.SetDefault("user_agent", "sitecheck")
	v.SetDefault("follow_redirects", true)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("request_burst", 1)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// build validates the values held by v.
func build(v *viper.Viper) (*Settings, error) {
	timeoutMs, err := positiveInt(v, KeyTimeout)
	if err != nil {
		return nil, err
	}
	if int64(timeoutMs) > math.MaxInt64/int64(time.Millisecond) {
		return nil, &Error{Key: KeyTimeout, Reason: fmt.Sprintf("%d ms is out of range", timeoutMs)}
	}
	rowLimit, err := positiveInt(v, KeyRowLimit)
	if err != nil {
		return nil, err
	}
	intervalMs, err := positiveFloat(v, KeyInterval)
	if err != nil {
		return nil, err
	}
	interval := time.Duration(intervalMs * float64(time.Millisecond))
	if interval <= 0 || intervalMs > float64(math.MaxInt64/int64(time.Millisecond)) {
		return nil, &Error{Key: KeyInterval, Reason: fmt.Sprintf("%v ms is out of range", intervalMs)}
	}

	s := &Settings{
		Timeout:           time.Duration(timeoutMs) * time.Millisecond,
		RowLimit:          rowLimit,
		Interval:          interval,
		Port:              v.GetInt("port"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
		MaxConcurrency:    v.GetInt("max_concurrency"),
		FollowRedirects:   v.GetBool("follow_redirects"),
		RequestsPerSecond: v.GetFloat64("requests_per_second"),
		RequestBurst:      v.GetInt("request_burst"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	if s.UserAgent, err = expandEnvVars(v.GetString("user_agent")); err != nil {
		return nil, &Error{Key: "user_agent", Reason: err.Error()}
	}

	for i, raw := range v.GetStringSlice("urls") {
		expanded, err := expandEnvVars(raw)
		if err != nil {
			return nil, &Error{Key: fmt.Sprintf("urls[%d]", i), Reason: err.Error()}
		}
		s.URLs = append(s.URLs, expanded)
	}

	return s, nil
}

func (s *Settings) validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return &Error{Key: "port", Reason: fmt.Sprintf("must be between 0 and 65535, got %d", s.Port)}
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &Error{Key: "log_level", Reason: fmt.Sprintf("unknown level %q", s.LogLevel)}
	}
	switch s.LogFormat {
	case "console", "json":
	default:
		return &Error{Key: "log_format", Reason: fmt.Sprintf("must be console or json, got %q", s.LogFormat)}
	}
	if s.MaxConcurrency < 0 {
		return &Error{Key: "max_concurrency", Reason: "cannot be negative"}
	}
	if s.RequestsPerSecond < 0 {
		return &Error{Key: "requests_per_second", Reason: "cannot be negative"}
	}
	if s.RequestBurst < 1 {
		return &Error{Key: "request_burst", Reason: "must be at least 1"}
	}
	return nil
}

// positiveInt reads key as a strictly positive base-10 integer.
func positiveInt(v *viper.Viper, key string) (int, error) {
	raw, err := required(v, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 0)
	if err != nil {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("%q is not an integer", raw)}
	}
	if n <= 0 {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("must be positive, got %d", n)}
	}
	return int(n), nil
}

// positiveFloat reads key as a strictly positive finite number.
func positiveFloat(v *viper.Viper, key string) (float64, error) {
	raw, err := required(v, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if f <= 0 {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("must be positive, got %v", f)}
	}
	return f, nil
}

// required returns the trimmed textual value of key.
func required(v *viper.Viper, key string) (string, error) {
	if !v.IsSet(key) {
		return "", &Error{Key: key, Reason: "setting is missing"}
	}
	raw := strings.TrimSpace(fmt.Sprint(v.Get(key)))
	if raw == "" {
		return "", &Error{Key: key, Reason: "setting is empty"}
	}
	return raw, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		name := sub[1]
		hasDefault := sub[2] != ""

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return sub[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
