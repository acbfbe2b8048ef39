package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv is consulted when gemini.api_key is not configured.
const APIKeyEnv = "GEMINI_API_KEY"

// Loaded captures the resolved path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
		}
		cfg, warnings, perr := Parse(nil, Default())
		if perr != nil {
			return Loaded{}, perr
		}
		warnings = append([]Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		}}, warnings...)
		return Loaded{Path: path, Config: cfg, Warnings: warnings}, nil
	}

	cfg, warnings, err := Parse(content, Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}

// Parse expands ${VAR} references, decodes YAML over base, and validates.
// Unknown keys are rejected.
func Parse(content []byte, base Config) (Config, []Warning, error) {
	cfg := base
	expanded := os.ExpandEnv(string(content))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, nil, fmt.Errorf("decode yaml: %w", err)
	}

	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		cfg.Gemini.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}
