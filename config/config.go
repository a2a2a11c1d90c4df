package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/graphloom/graphloom/internal/util"
)

// Config holds every tunable of the ingestion pipeline. Values resolve in
// three layers: package defaults, an optional YAML file, and environment
// variables on top.
type Config struct {
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Store      StoreConfig      `yaml:"store"`
}

type ChunkerConfig struct {
	MaxSize  int     `yaml:"max_size"`
	MaxDepth int     `yaml:"max_depth"`
	Overlap  float64 `yaml:"overlap"`
}

type StrategyConfig struct {
	TokenLimit       int     `yaml:"token_limit"`
	CharsPerToken    int     `yaml:"chars_per_token"`
	MinContentLength int     `yaml:"min_content_length"`
	MaxCodeRatio     float64 `yaml:"max_code_ratio"`
}

type ExtractionConfig struct {
	Model      string `yaml:"model"`
	Parallel   int    `yaml:"parallel"`
	MaxRetries int    `yaml:"max_retries"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Chunker: ChunkerConfig{
			MaxSize:  4000,
			MaxDepth: 4,
			Overlap:  0.2,
		},
		Strategy: StrategyConfig{
			TokenLimit:       4000,
			CharsPerToken:    4,
			MinContentLength: 100,
			MaxCodeRatio:     0.7,
		},
		Extraction: ExtractionConfig{
			Parallel:   4,
			MaxRetries: 3,
		},
		Store: StoreConfig{
			Path: "graph.json",
		},
	}
}

// Load resolves the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Chunker.MaxSize = util.EnvInt("CHUNK_MAX_SIZE", cfg.Chunker.MaxSize)
	cfg.Chunker.MaxDepth = util.EnvInt("CHUNK_MAX_DEPTH", cfg.Chunker.MaxDepth)
	cfg.Chunker.Overlap = util.EnvFloat("CHUNK_OVERLAP", cfg.Chunker.Overlap)

	cfg.Strategy.TokenLimit = util.EnvInt("TOKEN_LIMIT", cfg.Strategy.TokenLimit)
	cfg.Strategy.CharsPerToken = util.EnvInt("CHARS_PER_TOKEN", cfg.Strategy.CharsPerToken)
	cfg.Strategy.MinContentLength = util.EnvInt("MIN_CONTENT_LENGTH", cfg.Strategy.MinContentLength)
	cfg.Strategy.MaxCodeRatio = util.EnvFloat("MAX_CODE_RATIO", cfg.Strategy.MaxCodeRatio)

	cfg.Extraction.Model = util.EnvString("AI_MODEL", cfg.Extraction.Model)
	cfg.Extraction.Parallel = util.EnvInt("EXTRACT_PARALLEL", cfg.Extraction.Parallel)
	cfg.Extraction.MaxRetries = util.EnvInt("EXTRACT_MAX_RETRIES", cfg.Extraction.MaxRetries)

	cfg.Store.Path = util.EnvString("GRAPH_STORE_PATH", cfg.Store.Path)
}
