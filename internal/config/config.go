// Package config loads widget settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"chat-widget/internal/integrations/paramstore"
	"chat-widget/internal/session"
)

// Backend selects where chat histories are kept.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendRedis    Backend = "redis"
	BackendDynamoDB Backend = "dynamodb"
)

const (
	defaultAnswerTimeout = 30 * time.Second
	defaultHistoryPath   = ".chat-history"
	defaultRedisTTL      = 30 * 24 * time.Hour
	defaultMaxQuestion   = 300

	answerBaseURLParam = "answer_base_url"
)

// Config holds every setting. Durations and thresholds use session
// semantics: negative disables.
type Config struct {
	AnswerBaseURL string
	AnswerTimeout time.Duration

	HistoryPolicy  session.StartupPolicy
	HistoryBackend Backend
	HistoryPath    string
	RedisAddr      string
	RedisDB        int
	RedisTTL       time.Duration
	StateTable     string
	ParamPrefix    string

	IdleWindow       time.Duration
	PlaceholderDelay time.Duration
	ClosingThreshold int
	MaxQuestionLen   int

	LogLevel slog.Level
}

// LoadDotEnv preloads variables from .env files. Missing files are ignored;
// variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: stat %s: %w", p, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}
	cfg := Config{
		AnswerBaseURL:  env.str("ANSWER_BASE_URL", ""),
		HistoryBackend: Backend(strings.ToLower(env.str("HISTORY_BACKEND", string(BackendFile)))),
		HistoryPath:    env.str("HISTORY_PATH", defaultHistoryPath),
		RedisAddr:      env.str("REDIS_ADDR", ""),
		StateTable:     env.str("STATE_TABLE", ""),
		ParamPrefix:    env.str("PARAM_PREFIX", ""),
	}

	policy, err := session.ParsePolicy(env.str("HISTORY_POLICY", ""))
	if err != nil {
		return Config{}, fmt.Errorf("config: HISTORY_POLICY: %w", err)
	}
	cfg.HistoryPolicy = policy

	timeoutSec := env.integer("ANSWER_TIMEOUT_SECONDS", int(defaultAnswerTimeout/time.Second))
	idleSec := env.integer("IDLE_SECONDS", int(session.DefaultIdleWindow/time.Second))
	delayMS := env.integer("PLACEHOLDER_DELAY_MS", int(session.DefaultPlaceholderDelay/time.Millisecond))
	closing := env.integer("CLOSING_THRESHOLD", session.DefaultClosingThreshold)
	ttlHours := env.integer("REDIS_TTL_HOURS", int(defaultRedisTTL/time.Hour))
	cfg.RedisDB = env.integer("REDIS_DB", 0)
	cfg.MaxQuestionLen = env.integer("MAX_QUESTION_LENGTH", defaultMaxQuestion)
	level := env.str("LOG_LEVEL", "info")
	if env.err != nil {
		return Config{}, env.err
	}

	cfg.AnswerTimeout = time.Duration(timeoutSec) * time.Second
	cfg.IdleWindow = disabledIfZero(time.Duration(idleSec) * time.Second)
	cfg.PlaceholderDelay = disabledIfZero(time.Duration(delayMS) * time.Millisecond)
	cfg.ClosingThreshold = closing
	if closing == 0 {
		cfg.ClosingThreshold = -1
	}
	cfg.RedisTTL = time.Duration(ttlHours) * time.Hour

	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	if c.AnswerTimeout <= 0 {
		return errors.New("config: ANSWER_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxQuestionLen <= 0 {
		return errors.New("config: MAX_QUESTION_LENGTH must be positive")
	}
	switch c.HistoryBackend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.HistoryPath) == "" {
			return errors.New("config: HISTORY_PATH is required for the file backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis backend")
		}
		if c.RedisDB < 0 {
			return errors.New("config: REDIS_DB must not be negative")
		}
	case BackendDynamoDB:
		if c.StateTable == "" {
			return errors.New("config: STATE_TABLE is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("config: unknown HISTORY_BACKEND %q", c.HistoryBackend)
	}
	return nil
}

// ResolveParams fills settings missing from the environment from Parameter
// Store under ParamPrefix. It does nothing without a prefix.
func (c *Config) ResolveParams(ctx context.Context, g paramstore.Getter) error {
	if c.ParamPrefix == "" || c.AnswerBaseURL != "" {
		return nil
	}
	if g == nil {
		return errors.New("config: parameter getter must not be nil")
	}
	v, ok, err := paramstore.Lookup(ctx, g, c.ParamPrefix, answerBaseURLParam)
	if err != nil {
		return fmt.Errorf("config: resolve answer base URL: %w", err)
	}
	if ok {
		c.AnswerBaseURL = strings.TrimSpace(v)
	}
	return nil
}

func disabledIfZero(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) str(key, def string) string {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	return v
}

// integer records the first parse failure; negative values are rejected.
func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err == nil && n < 0 {
		err = errors.New("must not be negative")
	}
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("config: invalid %s value %q: %w", key, v, err)
		}
		return def
	}
	return n
}
