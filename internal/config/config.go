package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/multimediallc/covdiff/pkg/impacted"
	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

const FileName = "covdiff.toml"

type Config struct {
	Ignore         []string               `toml:"ignore"`
	CriticalFiles  []string               `toml:"critical_files"`
	IgnoredUploads []int                  `toml:"ignored_uploads"`
	ContextLines   *int                   `toml:"context_lines"`
	Capabilities   *impacted.Capabilities `toml:"capabilities"`
	Cache          *Cache                 `toml:"cache"`
}

type Cache struct {
	MaxEntries int `toml:"max_entries"`
}

// FileReader abstracts where the config file is read from, so it can come
// from a git ref instead of the working tree
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	PathExists(path string) bool
}

type filesystemReader struct{}

func (filesystemReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (filesystemReader) PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const defaultContextLines = 3

func defaultConfig() *Config {
	contextLines := defaultContextLines
	return &Config{
		Ignore:         []string{},
		CriticalFiles:  []string{},
		IgnoredUploads: []int{},
		ContextLines:   &contextLines,
		Capabilities:   &impacted.Capabilities{LineCoverage: true, BundleAnalysis: false},
		Cache:          &Cache{MaxEntries: impacted.DefaultMaxEntries},
	}
}

// ReadConfig reads covdiff.toml from the directory path. A nil fileReader
// reads from the filesystem. A missing file yields the defaults.
func ReadConfig(path string, fileReader FileReader) (*Config, error) {
	if fileReader == nil {
		fileReader = filesystemReader{}
	}
	defaults := defaultConfig()

	fileName := filepath.Join(path, FileName)
	if !fileReader.PathExists(fileName) {
		return defaults, nil
	}
	file, err := fileReader.ReadFile(fileName)
	if err != nil {
		return defaults, err
	}
	config := defaultConfig()
	err = toml.Unmarshal(file, config)
	if err != nil {
		return defaults, err
	}
	if config.Capabilities == nil {
		config.Capabilities = defaults.Capabilities
	}
	if config.Cache == nil {
		config.Cache = defaults.Cache
	}
	if config.ContextLines == nil || *config.ContextLines < 0 {
		config.ContextLines = defaults.ContextLines
	}
	for _, pattern := range config.CriticalFiles {
		if !doublestar.ValidatePattern(pattern) {
			return defaults, fmt.Errorf("invalid critical_files pattern %q", pattern)
		}
	}
	return config, nil
}

// IsCritical reports whether path matches any critical_files pattern
func (c *Config) IsCritical(path string, log zerolog.Logger) bool {
	for _, pattern := range c.CriticalFiles {
		match, err := doublestar.Match(pattern, path)
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("critical file pattern error")
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// IsIgnoredPath reports whether path falls under one of the ignore prefixes
func (c *Config) IsIgnoredPath(path string) bool {
	for _, dir := range c.Ignore {
		if strings.HasPrefix(path, dir) {
			return true
		}
	}
	return false
}

// IgnoredSet merges the configured ignored uploads with extra ones
func (c *Config) IgnoredSet(extra ...int) f.Set[int] {
	return f.NewSet(append(append([]int{}, c.IgnoredUploads...), extra...)...)
}
