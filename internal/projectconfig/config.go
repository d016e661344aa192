// Package projectconfig provides the ProjectConfig struct and loader for
// .bpetok.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up from the working directory.
const FileName = ".bpetok.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultCorpus       = "pa_corpus_cleaned.txt"
	DefaultMaxVocabSize = bpe.DefaultMaxVocabSize
	DefaultSampleSize   = bpe.DefaultSampleSize

	DefaultArtifactDir  = bpe.DefaultArtifactDir
	DefaultArtifactFile = bpe.DefaultArtifactFile

	DefaultCacheDir = ".bpetok-cache"

	DefaultEncodeCacheSize = 4096
	DefaultCountWorkers    = 4
)

// TrainConfig holds training parameters.
type TrainConfig struct {
	Corpus       string `yaml:"corpus,omitempty"`
	MaxVocabSize int    `yaml:"max_vocab_size,omitempty"`
	// SampleSize is a pointer so that 0 (train on the whole corpus) can be
	// told apart from "not set".
	SampleSize *int `yaml:"sample_size,omitempty"`
}

// ArtifactConfig holds where the trained tokenizer is saved.
type ArtifactConfig struct {
	Dir  string `yaml:"dir,omitempty"`
	File string `yaml:"file,omitempty"`
}

// CacheConfig holds training cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// EncodeConfig holds inference settings.
type EncodeConfig struct {
	CacheSize *int `yaml:"cache_size,omitempty"`
}

// CountConfig holds settings for `tokens count`.
type CountConfig struct {
	Workers int `yaml:"workers,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .bpetok.yaml.
type ProjectConfig struct {
	Train    TrainConfig    `yaml:"train,omitempty"`
	Artifact ArtifactConfig `yaml:"artifact,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Encode   EncodeConfig   `yaml:"encode,omitempty"`
	Count    CountConfig    `yaml:"count,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Train: TrainConfig{
			Corpus:       DefaultCorpus,
			MaxVocabSize: DefaultMaxVocabSize,
			SampleSize:   intPtr(DefaultSampleSize),
		},
		Artifact: ArtifactConfig{
			Dir:  DefaultArtifactDir,
			File: DefaultArtifactFile,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
		Encode: EncodeConfig{
			CacheSize: intPtr(DefaultEncodeCacheSize),
		},
		Count: CountConfig{
			Workers: DefaultCountWorkers,
		},
	}
}

// Load finds .bpetok.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, fills in missing fields with defaults, and
// finally applies BPETOK_* environment overrides.
// If no config file is found, returns defaults (plus overrides) with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// no file found → defaults
	case err != nil:
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	default:
		if errs := ValidateBytes(data); len(errs) > 0 {
			return nil, &ValidationError{Problems: errs}
		}
		var fileCfg ProjectConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
		mergeConfig(cfg, &fileCfg)
	}

	if err := ApplyEnv(cfg, os.Environ()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ArtifactPath returns the configured tokenizer artifact location.
func (c *ProjectConfig) ArtifactPath() string {
	return filepath.Join(c.Artifact.Dir, c.Artifact.File)
}

// CacheEnabled reports whether the training cache is on.
func (c *ProjectConfig) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// EncodeCacheSize returns the encode memo size, 0 when disabled.
func (c *ProjectConfig) EncodeCacheSize() int {
	if c.Encode.CacheSize == nil {
		return 0
	}
	return *c.Encode.CacheSize
}

// TrainOptions converts the training section to bpe.TrainOptions.
func (c *ProjectConfig) TrainOptions() bpe.TrainOptions {
	opts := bpe.TrainOptions{MaxVocabSize: c.Train.MaxVocabSize}
	if c.Train.SampleSize != nil {
		opts.SampleSize = *c.Train.SampleSize
	}
	return opts
}

// findConfigFile walks up from dir looking for .bpetok.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Train
	if src.Train.Corpus != "" {
		dst.Train.Corpus = src.Train.Corpus
	}
	if src.Train.MaxVocabSize != 0 {
		dst.Train.MaxVocabSize = src.Train.MaxVocabSize
	}
	if src.Train.SampleSize != nil {
		dst.Train.SampleSize = src.Train.SampleSize
	}

	// Artifact
	if src.Artifact.Dir != "" {
		dst.Artifact.Dir = src.Artifact.Dir
	}
	if src.Artifact.File != "" {
		dst.Artifact.File = src.Artifact.File
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	// Encode
	if src.Encode.CacheSize != nil {
		dst.Encode.CacheSize = src.Encode.CacheSize
	}

	// Count
	if src.Count.Workers != 0 {
		dst.Count.Workers = src.Count.Workers
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}
