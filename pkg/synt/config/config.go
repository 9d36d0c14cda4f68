package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/text"
)

// Config is the full runtime configuration.
type Config struct {
	// Path is where the corpus and the user config live.
	Path string `yaml:"path"`
	// DBFile is the SQLite corpus.
	DBFile string `yaml:"db_file"`

	// Emoticons are kept as tokens; an empty list disables them.
	Emoticons []string `yaml:"emoticons"`
	Stopwords []string `yaml:"stopwords"`

	// Classifiers lists the enabled algorithms.
	Classifiers []string `yaml:"classifiers"`

	Redis Redis `yaml:"redis"`
	Batch Batch `yaml:"batch"`

	BestFeatures int `yaml:"best_features"`
}

// Redis holds the cache connection.
type Redis struct {
	Host     string `yaml:"host"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// TestDB is the namespace used by integration tests.
	TestDB int `yaml:"test_db"`
}

// Batch controls feature counting parallelism.
type Batch struct {
	ChunkSize int `yaml:"chunk_size"`
	// Workers is the worker pool size; 0 means the CPU count.
	Workers int `yaml:"workers"`
}

// DefaultPath returns ~/.synt, falling back to ./.synt without a home dir.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".synt"
	}
	return filepath.Join(home, ".synt")
}

// Default returns the built-in configuration.
func Default() Config {
	path := DefaultPath()
	return Config{
		Path:        path,
		DBFile:      filepath.Join(path, "samples.db"),
		Emoticons:   append([]string(nil), text.DefaultEmoticons...),
		Classifiers: []string{"naivebayes"},
		Redis: Redis{
			Host:   "localhost:6379",
			DB:     5,
			TestDB: 10,
		},
		Batch: Batch{
			ChunkSize: 10000,
		},
		BestFeatures: 10000,
	}
}

// UserConfigPath returns the default override file inside path.
func UserConfigPath(path string) string {
	return filepath.Join(path, "config.yaml")
}

// Load reads a YAML file and merges it over the defaults. Keys missing from
// the file keep their default values; a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w: %v", path, internalerr.ErrInvalidConfig, err)
	}

	// A relocated path moves the corpus with it unless set explicitly.
	var raw struct {
		DBFile *string `yaml:"db_file"`
	}
	if err := yaml.Unmarshal(data, &raw); err == nil && raw.DBFile == nil {
		cfg.DBFile = filepath.Join(cfg.Path, "samples.db")
	}

	cfg.Path = expandHome(cfg.Path)
	cfg.DBFile = expandHome(cfg.DBFile)
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.DBFile == "":
		return fmt.Errorf("db_file is empty: %w", internalerr.ErrInvalidConfig)
	case c.Redis.Host == "":
		return fmt.Errorf("redis.host is empty: %w", internalerr.ErrInvalidConfig)
	case c.Redis.DB < 0 || c.Redis.TestDB < 0:
		return fmt.Errorf("redis db index must not be negative: %w", internalerr.ErrInvalidConfig)
	case c.Redis.DB == c.Redis.TestDB:
		return fmt.Errorf("redis.db and redis.test_db must differ: %w", internalerr.ErrInvalidConfig)
	case c.Batch.ChunkSize <= 0:
		return fmt.Errorf("batch.chunk_size must be positive: %w", internalerr.ErrInvalidConfig)
	case c.Batch.Workers < 0:
		return fmt.Errorf("batch.workers must not be negative: %w", internalerr.ErrInvalidConfig)
	case c.BestFeatures < 0:
		return fmt.Errorf("best_features must not be negative: %w", internalerr.ErrInvalidConfig)
	case len(c.Classifiers) == 0:
		return fmt.Errorf("no classifiers enabled: %w", internalerr.ErrInvalidConfig)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
