// Package config resolves the server settings from defaults, an optional YAML
// file named by CONFIG_FILE and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/freekieb7/reel/filesystem"
)

const (
	DefaultPort            = 3000
	DefaultSessionTTLHours = 24
	DefaultQueueSize       = 1024
	MinQueueSize           = 2
	DefaultResyncInterval  = time.Minute
	DefaultFFmpegPath      = "ffmpeg"
	DefaultServiceName     = "reel"
	DatabaseFileName       = "app.json"
)

var (
	ErrInvalidConfigFile = errors.New("config: invalid config file")
	ErrStaticDirMissing  = errors.New("config: static directory not found")
)

var (
	StaticDirCandidates = []string{"./web/public", "../web/public"}
	MediaDirCandidates  = []string{"./media", "../media"}
	ThumbDirCandidates  = []string{"./web/thumbnails", "../web/thumbnails"}
	DataDirCandidates   = []string{"./data", "../data"}
)

type Config struct {
	Port int `yaml:"port"`

	StaticDir string `yaml:"static_dir"`
	MediaDir  string `yaml:"media_dir"`
	ThumbDir  string `yaml:"thumb_dir"`
	DataDir   string `yaml:"data_dir"`
	DBPath    string `yaml:"db_path"`

	SessionTTLHours  int  `yaml:"session_ttl_hours"`
	SeedDefaultUsers bool `yaml:"seed_default_users"`

	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`

	ResyncInterval time.Duration `yaml:"resync_interval"`
	WatchMedia     bool          `yaml:"watch_media"`
	FFmpegPath     string        `yaml:"ffmpeg_path"`

	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

func Default() Config {
	return Config{
		Port:             DefaultPort,
		SessionTTLHours:  DefaultSessionTTLHours,
		SeedDefaultUsers: true,
		Workers:          2 * runtime.NumCPU(),
		QueueSize:        DefaultQueueSize,
		ResyncInterval:   DefaultResyncInterval,
		WatchMedia:       true,
		FFmpegPath:       DefaultFFmpegPath,
		LogLevel:         "info",
		LogFormat:        "text",
		ServiceName:      DefaultServiceName,
	}
}

// Load builds the configuration. getenv is usually os.Getenv. Numbers and
// booleans that do not parse keep their previous value. Directories left
// empty are picked from their candidates.
func Load(fs filesystem.Filesystem, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := getenv("CONFIG_FILE"); path != "" {
		content, err := fs.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfigFile, path, err)
		}
	}

	env := environment(getenv)
	cfg.Port = env.positiveInt("PORT", cfg.Port)
	cfg.StaticDir = env.get("STATIC_DIR", cfg.StaticDir)
	cfg.MediaDir = env.get("MEDIA_DIR", cfg.MediaDir)
	cfg.ThumbDir = env.get("THUMB_DIR", cfg.ThumbDir)
	cfg.DataDir = env.get("DATA_DIR", cfg.DataDir)
	cfg.DBPath = env.get("DB_PATH", cfg.DBPath)
	cfg.SessionTTLHours = env.positiveInt("SESSION_TTL_HOURS", cfg.SessionTTLHours)
	cfg.SeedDefaultUsers = env.flag("SEED_DEFAULT_USERS", cfg.SeedDefaultUsers)
	cfg.Workers = env.positiveInt("WORKERS", cfg.Workers)
	cfg.QueueSize = env.positiveInt("QUEUE_SIZE", cfg.QueueSize)
	cfg.ResyncInterval = env.duration("RESYNC_INTERVAL", cfg.ResyncInterval)
	cfg.WatchMedia = env.flag("WATCH_MEDIA", cfg.WatchMedia)
	cfg.FFmpegPath = env.get("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.LogLevel = env.get("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env.get("LOG_FORMAT", cfg.LogFormat)
	cfg.ServiceName = env.get("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.OTLPEndpoint = env.get("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	cfg.normalize(fs)
	return cfg, nil
}

func (cfg *Config) normalize(fs filesystem.Filesystem) {
	defaults := Default()
	if cfg.Port <= 0 {
		cfg.Port = defaults.Port
	}
	if cfg.SessionTTLHours <= 0 {
		cfg.SessionTTLHours = defaults.SessionTTLHours
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	cfg.QueueSize = max(ceilPow2(cfg.QueueSize), MinQueueSize)
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = defaults.ResyncInterval
	}

	if cfg.StaticDir == "" {
		cfg.StaticDir = filesystem.FirstDirectory(fs, StaticDirCandidates...)
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = filesystem.FirstDirectory(fs, MediaDirCandidates...)
	}
	if cfg.ThumbDir == "" {
		cfg.ThumbDir = filesystem.FirstDirectory(fs, ThumbDirCandidates...)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filesystem.FirstDirectory(fs, DataDirCandidates...)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, DatabaseFileName)
	}
}

// Prepare creates the writable directories and checks that the static
// directory exists.
func (cfg Config) Prepare(fs filesystem.Filesystem) error {
	for _, dir := range []string{cfg.MediaDir, cfg.ThumbDir, cfg.DataDir} {
		if err := fs.CreateDirectory(dir); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}

	isDir, err := fs.IsDirectory(cfg.StaticDir)
	if err != nil {
		return err
	}
	if !isDir {
		return fmt.Errorf("%w: %q", ErrStaticDirMissing, cfg.StaticDir)
	}
	return nil
}

func (cfg Config) Addr() string {
	return ":" + strconv.Itoa(cfg.Port)
}

func (cfg Config) SessionTTL() time.Duration {
	return time.Duration(cfg.SessionTTLHours) * time.Hour
}

// Level parses LogLevel, defaulting to info.
func (cfg Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (cfg Config) JSONLogs() bool {
	return strings.EqualFold(cfg.LogFormat, "json")
}

type environment func(string) string

func (env environment) get(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func (env environment) positiveInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(env(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (env environment) flag(key string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(env(key)))
	if err != nil {
		return def
	}
	return b
}

func (env environment) duration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(env(key)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
