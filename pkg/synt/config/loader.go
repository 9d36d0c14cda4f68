package config

import (
	"fmt"

	"github.com/cognicore/synt/pkg/synt/classify"
	"github.com/cognicore/synt/pkg/synt/text"
)

// Loader loads the configuration file and constructs components
type Loader struct {
	// ConfigPath is the YAML override file; empty means the default location.
	ConfigPath string
}

// Components holds the runtime pieces built from a configuration
type Components struct {
	Config     Config
	Tokenizer  *text.Tokenizer
	Algorithms []classify.Algorithm
}

// Load reads the configuration and returns initialized components
func (l *Loader) Load() (*Components, error) {
	path := l.ConfigPath
	if path == "" {
		path = UserConfigPath(DefaultPath())
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Build(cfg)
}

// Build constructs components from an already loaded configuration
func Build(cfg Config) (*Components, error) {
	comp := &Components{
		Config:    cfg,
		Tokenizer: text.NewTokenizer(cfg.Stopwords, cfg.Emoticons),
	}

	for _, name := range cfg.Classifiers {
		a, err := classify.ParseAlgorithm(name)
		if err != nil {
			return nil, fmt.Errorf("load classifiers: %w", err)
		}
		comp.Algorithms = append(comp.Algorithms, a)
	}

	return comp, nil
}
