// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates FinBot configuration from
// ~/.finbot/config.toml with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// Config is the full application configuration.
type Config struct {
	Ollama OllamaConfig `toml:"ollama"`
	Chat   ChatConfig   `toml:"chat"`
	UI     UIConfig     `toml:"ui"`
}

// OllamaConfig configures the connection to the local Ollama server.
// BaseURL and Model are required: there are no baked-in defaults, and
// startup halts when either is missing.
type OllamaConfig struct {
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	TimeoutSecs       int    `toml:"timeout_secs"`
	StreamTimeoutSecs int    `toml:"stream_timeout_secs"`
}

// ChatConfig configures conversation behavior.
type ChatConfig struct {
	SystemPrompt       string   `toml:"system_prompt"`
	AnalysisPromptPath string   `toml:"analysis_prompt_path"`
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	UploadExtensions   []string `toml:"upload_extensions"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	// Theme is "auto", "dark", or "light".
	Theme string `toml:"theme"`
}

// Default returns the configuration defaults. Ollama.BaseURL and
// Ollama.Model are deliberately left empty: they must come from the
// config file or the environment.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			TimeoutSecs:       30,
			StreamTimeoutSecs: 300,
		},
		Chat: ChatConfig{
			SystemPrompt:       "You are FinBot, a helpful and friendly AI assistant for small business finance. Keep your responses concise and relevant to the provided information or the current conversation flow.",
			AnalysisPromptPath: "prompt.txt",
			MaxUploadBytes:     512 * 1024,
			UploadExtensions:   []string{".txt", ".md"},
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// fillDefaults tops up zero values after a partial config file load.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Ollama.TimeoutSecs == 0 {
		c.Ollama.TimeoutSecs = def.Ollama.TimeoutSecs
	}
	if c.Ollama.StreamTimeoutSecs == 0 {
		c.Ollama.StreamTimeoutSecs = def.Ollama.StreamTimeoutSecs
	}
	if c.Chat.SystemPrompt == "" {
		c.Chat.SystemPrompt = def.Chat.SystemPrompt
	}
	if c.Chat.AnalysisPromptPath == "" {
		c.Chat.AnalysisPromptPath = def.Chat.AnalysisPromptPath
	}
	if c.Chat.MaxUploadBytes == 0 {
		c.Chat.MaxUploadBytes = def.Chat.MaxUploadBytes
	}
	if len(c.Chat.UploadExtensions) == 0 {
		c.Chat.UploadExtensions = def.Chat.UploadExtensions
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the FinBot configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".finbot"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the default config file, falling back
// to defaults when the file is absent. Environment overrides are
// applied after the file, then the result is validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit TOML path. A
// missing file is not an error; defaults plus env overrides apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			// Permissions might not be fixable on all systems; keep going.
			_ = err
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# finbot configuration file")
	fmt.Fprintln(file, "# Generated by finbot - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors. Missing
// Ollama endpoint or model are reported here; the caller treats them
// as fatal at startup.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Ollama.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "ollama.base_url",
			Message: "required: set it in config.toml or export OLLAMA_API_BASE",
		})
	} else if !strings.HasPrefix(c.Ollama.BaseURL, "http://") && !strings.HasPrefix(c.Ollama.BaseURL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "ollama.base_url",
			Message: "must start with http:// or https://",
		})
	}

	if c.Ollama.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "ollama.model",
			Message: "required: set it in config.toml or export OLLAMA_MODEL",
		})
	}

	if c.Ollama.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "ollama.timeout_secs",
			Message: "must be positive",
		})
	}

	if c.Ollama.StreamTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "ollama.stream_timeout_secs",
			Message: "must be positive",
		})
	}

	if c.Chat.MaxUploadBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_upload_bytes",
			Message: "must be positive",
		})
	}

	for _, ext := range c.Chat.UploadExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, ValidationError{
				Field:   "chat.upload_extensions",
				Message: fmt.Sprintf("extension %q must start with a dot", ext),
			})
		}
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("unknown theme %q (want auto, dark, or light)", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MissingRequired reports whether err is a validation failure caused by
// an absent Ollama endpoint or model. Load wraps validation failures,
// so the chain is unwrapped rather than type-asserted.
func MissingRequired(err error) bool {
	var errs ValidateErrors
	if !errors.As(err, &errs) {
		return false
	}
	for _, e := range errs {
		if (e.Field == "ollama.base_url" || e.Field == "ollama.model") && strings.HasPrefix(e.Message, "required") {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OLLAMA_API_BASE: overrides ollama.base_url
//   - OLLAMA_MODEL: overrides ollama.model
//   - FINBOT_SYSTEM_PROMPT: overrides chat.system_prompt
//   - FINBOT_ANALYSIS_PROMPT: overrides chat.analysis_prompt_path
//   - FINBOT_STREAM_TIMEOUT: overrides ollama.stream_timeout_secs
//   - FINBOT_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("OLLAMA_API_BASE"); base != "" {
		c.Ollama.BaseURL = base
	}

	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Ollama.Model = model
	}

	if prompt := os.Getenv("FINBOT_SYSTEM_PROMPT"); prompt != "" {
		c.Chat.SystemPrompt = prompt
	}

	if path := os.Getenv("FINBOT_ANALYSIS_PROMPT"); path != "" {
		c.Chat.AnalysisPromptPath = path
	}

	if timeout := os.Getenv("FINBOT_STREAM_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.Ollama.StreamTimeoutSecs = secs
		}
	}

	if theme := os.Getenv("FINBOT_THEME"); theme != "" {
		c.UI.Theme = strings.ToLower(theme)
	}
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration, loading it on first use.
// A load failure falls back to defaults; startup code calls Load
// directly so it can surface the error.
func Global() *Config {
	globalConfigOnce.Do(func() {
		if globalConfig != nil {
			// Already injected via SetGlobal.
			return
		}
		cfg, err := Load()
		if err != nil {
			cfg = Default()
			cfg.ApplyEnvOverrides()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal replaces the global configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global config so tests start clean.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
