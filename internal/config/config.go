package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"exam-paper-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Storage backends for statistics and history.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Question sources.
const (
	SourceGitHub   = "github"
	SourcePostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Storage struct {
		Backend string `yaml:"backend"`
	} `yaml:"storage"`
	Questions struct {
		Source  string `yaml:"source"`
		Owner   string `yaml:"owner"`
		Repo    string `yaml:"repo"`
		Branch  string `yaml:"branch"`
		APIBase string `yaml:"apiBase"`
		RawBase string `yaml:"rawBase"`
		TTL     string `yaml:"ttl"`
	} `yaml:"questions"`
	Topics []domain.Topic `yaml:"topics"`
}

// Load reads YAML config from path. ${VAR} references are expanded from the environment
// before parsing.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageMemory
	}
	if c.Questions.Source == "" {
		c.Questions.Source = SourceGitHub
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "exam-paper.db"
	}
	if len(c.Topics) == 0 {
		c.Topics = DefaultTopics()
	}
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage backend redis needs redis.addr")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Questions.Source {
	case SourceGitHub:
		if c.Questions.Owner == "" || c.Questions.Repo == "" {
			return fmt.Errorf("github question source needs questions.owner and questions.repo")
		}
	case SourcePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres question source needs postgres.url")
		}
	default:
		return fmt.Errorf("unknown question source %q", c.Questions.Source)
	}
	return nil
}

// LogLevel maps log.level to a slog level; unknown values mean info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// DefaultTopics is the chemistry topic catalogue, in loading order.
func DefaultTopics() []domain.Topic {
	return []domain.Topic{
		{ID: "topic1", Name: "Topic 1: Planet Earth", File: "Topic1.json"},
		{ID: "topic2", Name: "Topic 2: Microscopic World I", File: "Topic2.json"},
		{ID: "topic3", Name: "Topic 3: Metals", File: "Topic3.json"},
		{ID: "topic4", Name: "Topic 4: Acids and Bases", File: "Topic4.json"},
		{ID: "topic5", Name: "Topic 5: Fossil fuels and Carbon Compounds", File: "Topic5.json"},
		{ID: "topic6", Name: "Topic 6: Microscopic World II", File: "Topic6.json"},
		{ID: "topic7", Name: "Topic 7: Redox Reactions, Chemical Cells and Electrolysis", File: "Topic7.json"},
		{ID: "topic8", Name: "Topic 8: Chemical Reactions and Energy", File: "Topic8.json"},
		{ID: "topic9", Name: "Topic 9: Rate of Reaction", File: "Topic9.json"},
		{ID: "topic10", Name: "Topic 10: Chemical Equilibrium", File: "Topic10.json"},
		{ID: "topic11", Name: "Topic 11: Chemistry of Carbon Compounds", File: "Topic11.json"},
		{ID: "topic12", Name: "Topic 12: Patterns in the Chemical World", File: "Topic12.json"},
		{ID: "elective1", Name: "Elective 1: Industrial Chemistry", File: "Elective1.json"},
		{ID: "elective3", Name: "Elective 3: Analytical Chemistry", File: "Elective3.json"},
	}
}
