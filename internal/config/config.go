// Package config provides configuration loading for chatarchive.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. This package supports extraction, indexing, resolver, and
// output settings.
package config

import (
	"fmt"
	"strings"
)

// Config holds the complete chatarchive configuration.
type Config struct {
	Extraction ExtractionConfig `koanf:"extraction"`
	Indexer    IndexerConfig    `koanf:"indexer"`
	Resolver   ResolverConfig   `koanf:"resolver"`
	Output     OutputConfig     `koanf:"output"`
}

// ExtractionConfig controls the Archive Extractor.
type ExtractionConfig struct {
	// WorkDir is the ephemeral directory archives are unpacked into.
	// Empty means a fresh directory under os.TempDir() is created per run.
	WorkDir string `koanf:"work_dir"`

	// ExternalToolDeadline bounds a single fallback-extractor invocation.
	// Exceeding it promotes the error to "archive skipped".
	ExternalToolDeadline Duration `koanf:"external_tool_deadline"`

	// KeepWorkDirOnFailure is not read by the CLI. A temporary work
	// directory created by the CLI is kept after a failed run and removed
	// after a successful one regardless of this setting; a configured
	// WorkDir is never removed.
	KeepWorkDirOnFailure bool `koanf:"keep_work_dir_on_failure"`

	// ArchiveExtensions are the extensions scanned for nested archives.
	ArchiveExtensions []string `koanf:"archive_extensions"`
}

// Validate validates ExtractionConfig.
func (c *ExtractionConfig) Validate() error {
	if c.ExternalToolDeadline.Duration() < 0 {
		return fmt.Errorf("extraction.external_tool_deadline cannot be negative")
	}
	return nil
}

// IndexerConfig controls the Media Indexer.
type IndexerConfig struct {
	// MediaExtensions are the file extensions treated as media-like.
	MediaExtensions []string `koanf:"media_extensions"`

	// Workers is the number of parallel media-classification workers, and
	// the number of conversations the CLI writes at once. 1 means
	// sequential; the CLI replaces values below 1 with 4.
	Workers int `koanf:"workers"`

	// RecoveredFilesDir, if set, is indexed as an additional root whose
	// files never displace in-archive files on collision.
	RecoveredFilesDir string `koanf:"recovered_files_dir"`
}

// Validate validates IndexerConfig.
func (c *IndexerConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("indexer.workers cannot be negative, got %d", c.Workers)
	}
	if len(c.MediaExtensions) == 0 {
		return fmt.Errorf("indexer.media_extensions cannot be empty")
	}
	return nil
}

// ResolverConfig controls the Media Resolver.
type ResolverConfig struct {
	// StrategyOrder overrides the default seven-strategy order. Intended
	// for the rematch-media diagnostic tool; empty means the default
	// order defined in package resolver is used.
	StrategyOrder []string `koanf:"strategy_order"`
}

// Validate validates ResolverConfig.
func (c *ResolverConfig) Validate() error {
	return nil
}

// OutputConfig controls the Output Writer.
type OutputConfig struct {
	// Dir is the output directory. Must be empty or non-existent at start.
	Dir string `koanf:"dir"`

	// Flat disables the {date}_{title}_{ordinal} folder naming and instead
	// names conversation folders by ordinal alone.
	Flat bool `koanf:"flat"`

	// Verbose prints per-strategy match counts and the total number of
	// unresolved citations; individual unresolved citations are not listed.
	Verbose bool `koanf:"verbose"`
}

// Validate validates OutputConfig.
func (c *OutputConfig) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}
	return nil
}

// Validate validates the complete configuration.
func (c *Config) Validate() error {
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction config: %w", err)
	}
	if err := c.Indexer.Validate(); err != nil {
		return fmt.Errorf("indexer config: %w", err)
	}
	if err := c.Resolver.Validate(); err != nil {
		return fmt.Errorf("resolver config: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}
	return nil
}

// DefaultMediaExtensions lists the extensions the Media Indexer treats as
// media-like by default, per spec.
var DefaultMediaExtensions = []string{
	"png", "webp", "jpg", "jpeg", "gif", "bmp",
	"wav", "mp3", "m4a", "ogg",
	"pdf", "dat",
}

// DefaultArchiveExtensions lists the extensions the Archive Extractor scans
// for when looking for nested archives.
var DefaultArchiveExtensions = []string{"zip"}

// NewDefaultConfig returns config with the documented defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			ExternalToolDeadline: Duration(0),
			ArchiveExtensions:    DefaultArchiveExtensions,
		},
		Indexer: IndexerConfig{
			MediaExtensions: DefaultMediaExtensions,
			Workers:         4,
		},
		Output: OutputConfig{
			Dir: "./out",
		},
	}
}
