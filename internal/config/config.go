// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/and161185/goph-social/internal/store"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMySQL    = "mysql"
)

type Config struct {
	Backend  string
	DataDir  string
	PGDSN    string
	MongoURI string
	MongoDB  string
	MySQLDSN string

	KeyPrefix     string
	LocalUserID   string
	WriteAttempts int
	Passphrase    string
	LogLevel      string
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

// LoadFromEnv parses the environment. Cross-field checks are left to Validate
// so callers can apply their overrides first.
func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Backend:     strings.ToLower(strings.TrimSpace(getenv("SOCIAL_BACKEND"))),
		DataDir:     getenv("SOCIAL_DATA_DIR"),
		PGDSN:       getenv("SOCIAL_PG_DSN"),
		MongoURI:    getenv("SOCIAL_MONGO_URI"),
		MongoDB:     getenv("SOCIAL_MONGO_DB"),
		MySQLDSN:    getenv("SOCIAL_MYSQL_DSN"),
		KeyPrefix:   getenv("SOCIAL_KEY_PREFIX"),
		LocalUserID: strings.TrimSpace(getenv("SOCIAL_USER_ID")),
		Passphrase:  getenv("SOCIAL_PASSPHRASE"),
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv("SOCIAL_LOG_LEVEL"))),
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendFile
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir(getenv)
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "social"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = store.DefaultPrefix
	}
	if cfg.LocalUserID == "" {
		cfg.LocalUserID = store.DefaultLocalUserID
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	attemptsRaw := getenv("SOCIAL_WRITE_ATTEMPTS")
	if attemptsRaw == "" {
		cfg.WriteAttempts = store.DefaultAttempts
	} else {
		n, err := strconv.Atoi(attemptsRaw)
		if err != nil {
			return Config{}, fmt.Errorf("SOCIAL_WRITE_ATTEMPTS: %w", err)
		}
		if n <= 0 {
			return Config{}, errors.New("SOCIAL_WRITE_ATTEMPTS: must be > 0")
		}
		cfg.WriteAttempts = n
	}

	return cfg, nil
}

// Validate checks cross-field requirements. Run it after all overrides.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("SOCIAL_DATA_DIR: required for the file backend")
		}
	case BackendPostgres:
		if c.PGDSN == "" {
			return errors.New("SOCIAL_PG_DSN: required for the postgres backend")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("SOCIAL_MONGO_URI: required for the mongo backend")
		}
	case BackendMySQL:
		if c.MySQLDSN == "" {
			return errors.New("SOCIAL_MYSQL_DSN: required for the mysql backend")
		}
	default:
		return fmt.Errorf("SOCIAL_BACKEND: must be one of %s", strings.Join(Backends(), ", "))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("SOCIAL_LOG_LEVEL: must be one of debug, info, warn, error")
	}
	return nil
}

// Backends lists the accepted SOCIAL_BACKEND values.
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendPostgres, BackendMongo, BackendMySQL}
}

// StoreOptions maps the config onto store options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Prefix:      c.KeyPrefix,
		LocalUserID: c.LocalUserID,
		Attempts:    c.WriteAttempts,
	}
}

func defaultDataDir(getenv func(string) string) string {
	if v := getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "goph-social")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "goph-social")
}
