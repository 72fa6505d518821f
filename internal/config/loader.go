// internal/config/loader.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix namespaces docqad environment variables so unrelated
	// variables never leak into the config tree.
	envPrefix = "DOCQAD_"
)

// Load loads configuration from a YAML file, then overrides with
// DOCQAD_* environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DOCQAD_SERVER__PORT, DOCQAD_LLM__API_KEY, ...)
//  2. YAML config file (default: ~/.config/docqad/config.yaml)
//  3. Hardcoded defaults (DefaultConfig)
//
// The configPath parameter specifies the YAML file to load. If empty, the
// default path is used; a missing file is not an error (defaults + env
// apply).
//
// # Environment Variable Mapping
//
// After the DOCQAD_ prefix, a double underscore descends one level in the
// config tree and single underscores stay part of the field name:
//
//	DOCQAD_SERVER__PORT          -> server.port
//	DOCQAD_EMBEDDING__API_KEY    -> embedding.api_key
//	DOCQAD_INDEX__QDRANT__HOST   -> index.qdrant.host
//
// # Security
//
// Config files may carry API keys, so files with group or world access are
// rejected (0600 or 0400 required), as are files over 1MB.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "docqad", "config.yaml")
	}

	// Load from YAML file if it exists
	if _, err := os.Stat(configPath); err == nil {
		// Open once and validate through the file descriptor to avoid a
		// TOCTOU race between stat and read.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}

		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Override with environment variables
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// DOCQAD_INDEX__QDRANT__HOST -> index.qdrant.host
		trimmed := strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(trimmed), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// EnsureDataDir creates the data directory tree (root + blobs) if missing.
// Called during startup so first runs work without manual setup.
// Directories are created with 0700 permissions.
func (c *Config) EnsureDataDir() error {
	for _, dir := range []string{c.Data.Dir, c.Data.BlobDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return nil
}

// validateConfigFileProperties checks file permissions and size.
// Takes FileInfo from an already-opened file descriptor.
func validateConfigFileProperties(info os.FileInfo) error {
	// Permission check skipped on Windows (different permission model)
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
