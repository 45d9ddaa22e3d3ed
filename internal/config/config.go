// Package config loads the pipeline configuration from a YAML file,
// falling back to defaults when the file is absent.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"hlc/internal/store"
)

// StoreConfig locates the SQLite pipeline store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CorpusConfig describes where the tokenized documents live and how the
// boundary marker is spelled on the wire.
type CorpusConfig struct {
	Dir            string   `yaml:"dir"`
	FilePrefix     string   `yaml:"file_prefix"`
	FileExt        string   `yaml:"file_ext"`
	BoundaryMarker []string `yaml:"boundary_marker"`
}

// IndexConfig tunes the sentence-indexing stage.
type IndexConfig struct {
	BatchSize    int    `yaml:"batch_size"`
	Workers      int    `yaml:"workers"`
	OnFlushError string `yaml:"on_flush_error"`
}

// DetectConfig tunes the run-detection stage. MinOccurrences is the coarse
// candidate filter; MinRunLength the shortest run worth recording.
type DetectConfig struct {
	MinOccurrences int    `yaml:"min_occurrences"`
	MinRunLength   int    `yaml:"min_run_length"`
	BatchSize      int    `yaml:"batch_size"`
	Workers        int    `yaml:"workers"`
	OnFlushError   string `yaml:"on_flush_error"`
}

// RemoveConfig tunes the removal stage. MinRunLength may differ from the
// detection threshold: the store can hold shorter runs than removal acts on.
type RemoveConfig struct {
	MinRunLength int    `yaml:"min_run_length"`
	OutputDir    string `yaml:"output_dir"`
	OutputPrefix string `yaml:"output_prefix"`
	Workers      int    `yaml:"workers"`
}

// Config is the root pipeline configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Corpus CorpusConfig `yaml:"corpus"`
	Index  IndexConfig  `yaml:"index"`
	Detect DetectConfig `yaml:"detect"`
	Remove RemoveConfig `yaml:"remove"`
}

// Load reads a config from path. A missing file yields the defaults;
// partial files are filled in with defaults after unmarshalling.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	cfg.Store.Path = os.ExpandEnv(cfg.Store.Path)
	cfg.Corpus.Dir = os.ExpandEnv(cfg.Corpus.Dir)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = "corpus.db"
	}
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = "."
	}
	if cfg.Corpus.FilePrefix == "" {
		cfg.Corpus.FilePrefix = "slc"
	}
	if cfg.Corpus.FileExt == "" {
		cfg.Corpus.FileExt = ".json"
	}
	if len(cfg.Corpus.BoundaryMarker) == 0 {
		// The corpus's reserved in-band separator. Must match the token
		// sequence the upstream tokenizer emits between source units.
		cfg.Corpus.BoundaryMarker = []string{"i", "love", "blueberry", "waffles"}
	}
	if cfg.Index.BatchSize <= 0 {
		cfg.Index.BatchSize = 1000
	}
	if cfg.Index.OnFlushError == "" {
		cfg.Index.OnFlushError = string(store.FlushRetry)
	}
	if cfg.Detect.MinOccurrences <= 0 {
		cfg.Detect.MinOccurrences = 2
	}
	if cfg.Detect.MinRunLength <= 0 {
		cfg.Detect.MinRunLength = 4
	}
	if cfg.Detect.BatchSize <= 0 {
		cfg.Detect.BatchSize = 1000
	}
	if cfg.Detect.OnFlushError == "" {
		cfg.Detect.OnFlushError = string(store.FlushRetry)
	}
	if cfg.Remove.MinRunLength <= 0 {
		cfg.Remove.MinRunLength = cfg.Detect.MinRunLength
	}
	if cfg.Remove.OutputDir == "" {
		cfg.Remove.OutputDir = "cleaned"
	}
	if cfg.Remove.OutputPrefix == "" {
		cfg.Remove.OutputPrefix = "hlc"
	}
}

func validate(cfg *Config) error {
	if _, err := store.ParseFlushPolicy(cfg.Index.OnFlushError); err != nil {
		return fmt.Errorf("index.on_flush_error: %w", err)
	}
	if _, err := store.ParseFlushPolicy(cfg.Detect.OnFlushError); err != nil {
		return fmt.Errorf("detect.on_flush_error: %w", err)
	}
	if cfg.Remove.MinRunLength < cfg.Detect.MinRunLength {
		// Harmless but almost certainly a mistake: runs shorter than the
		// detection threshold were never recorded.
		slog.Warn("remove.min_run_length below detect.min_run_length",
			"remove", cfg.Remove.MinRunLength, "detect", cfg.Detect.MinRunLength)
	}
	return nil
}
