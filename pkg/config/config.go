package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/devraulu/normurl/pkg/normalize"
	"github.com/pelletier/go-toml/v2"
)

var ErrDirectoryIndexMode = errors.New("remove_directory_index must be one of none, default, list")

type Config struct {
	DSN       string          `toml:"dsn"`
	Logging   LoggingConfig   `toml:"logging"`
	Normalize NormalizeConfig `toml:"normalize"`
	Batch     BatchConfig     `toml:"batch"`
	Server    ServerConfig    `toml:"server"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type NormalizeConfig struct {
	DefaultProtocol          string   `toml:"default_protocol"`
	NormalizeProtocol        bool     `toml:"normalize_protocol"`
	ForceHTTP                bool     `toml:"force_http"`
	ForceHTTPS               bool     `toml:"force_https"`
	StripAuthentication      bool     `toml:"strip_authentication"`
	StripHash                bool     `toml:"strip_hash"`
	StripProtocol            bool     `toml:"strip_protocol"`
	StripTextFragment        bool     `toml:"strip_text_fragment"`
	StripWWW                 bool     `toml:"strip_www"`
	RemoveQueryParameters    []string `toml:"remove_query_parameters"`
	RemoveAllQueryParameters bool     `toml:"remove_all_query_parameters"`
	KeepQueryParameters      []string `toml:"keep_query_parameters"`
	RemoveTrailingSlash      bool     `toml:"remove_trailing_slash"`
	RemoveSingleSlash        bool     `toml:"remove_single_slash"`
	RemoveDirectoryIndex     string   `toml:"remove_directory_index"`
	DirectoryIndexPatterns   []string `toml:"directory_index_patterns"`
	RemoveExplicitPort       bool     `toml:"remove_explicit_port"`
	SortQueryParameters      bool     `toml:"sort_query_parameters"`
}

type BatchConfig struct {
	Workers int `toml:"workers"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Logging.Format = "text"
	cfg.Logging.Level = "info"

	cfg.Normalize = NormalizeConfig{
		DefaultProtocol:       "http",
		NormalizeProtocol:     true,
		StripAuthentication:   true,
		StripTextFragment:     true,
		StripWWW:              true,
		RemoveQueryParameters: []string{`^utm_\w+`},
		RemoveTrailingSlash:   true,
		RemoveSingleSlash:     true,
		RemoveDirectoryIndex:  "none",
		SortQueryParameters:   true,
	}

	cfg.Batch.Workers = runtime.NumCPU()
	cfg.Server.Addr = ":8080"
	return &cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults, so absent keys keep their default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	err := toml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = 1
	}

	return cfg, nil
}

// NormalizeOptions compiles the configured patterns and returns validated
// options.
func (c *Config) NormalizeOptions() (normalize.Options, error) {
	n := c.Normalize

	remove, err := normalize.CompilePatterns(n.RemoveQueryParameters...)
	if err != nil {
		return normalize.Options{}, fmt.Errorf("remove_query_parameters: %w", err)
	}
	filter := normalize.RemoveMatching(remove...)
	if n.RemoveAllQueryParameters {
		filter = normalize.RemoveAll()
	}

	keep, err := normalize.CompilePatterns(n.KeepQueryParameters...)
	if err != nil {
		return normalize.Options{}, fmt.Errorf("keep_query_parameters: %w", err)
	}
	if len(keep) == 0 {
		keep = nil
	}

	var dirIndex normalize.DirectoryIndex
	switch n.RemoveDirectoryIndex {
	case "", "none":
		dirIndex = normalize.KeepDirectoryIndex()
	case "default":
		dirIndex = normalize.DefaultDirectoryIndex()
	case "list":
		patterns, err := normalize.CompilePatterns(n.DirectoryIndexPatterns...)
		if err != nil {
			return normalize.Options{}, fmt.Errorf("directory_index_patterns: %w", err)
		}
		dirIndex = normalize.DirectoryIndexMatching(patterns...)
	default:
		return normalize.Options{}, fmt.Errorf("%w: got %q", ErrDirectoryIndexMode, n.RemoveDirectoryIndex)
	}

	opts := normalize.Options{
		DefaultProtocol:       n.DefaultProtocol,
		NormalizeProtocol:     n.NormalizeProtocol,
		ForceHTTP:             n.ForceHTTP,
		ForceHTTPS:            n.ForceHTTPS,
		StripAuthentication:   n.StripAuthentication,
		StripHash:             n.StripHash,
		StripProtocol:         n.StripProtocol,
		StripTextFragment:     n.StripTextFragment,
		StripWWW:              n.StripWWW,
		RemoveQueryParameters: filter,
		KeepQueryParameters:   keep,
		RemoveTrailingSlash:   n.RemoveTrailingSlash,
		RemoveSingleSlash:     n.RemoveSingleSlash,
		RemoveDirectoryIndex:  dirIndex,
		RemoveExplicitPort:    n.RemoveExplicitPort,
		SortQueryParameters:   n.SortQueryParameters,
	}

	if err := opts.Validate(); err != nil {
		return normalize.Options{}, err
	}
	return opts, nil
}
