// Package config loads the shim's process-wide configuration once at startup.
// The resulting value is immutable and passed explicitly to every component
// that needs it; nothing reads the environment after Load returns.
package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the complete process configuration.
type Config struct {
	Upstream Upstream `koanf:"upstream"`
	Server   Server   `koanf:"server"`
}

// Upstream describes the inference server the shim forwards to.
type Upstream struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Model   string `koanf:"model" validate:"required"`
	// APIKey is optional; when set it is sent as a bearer token.
	APIKey string `koanf:"api_key"`
}

// Server describes the shim's own listener.
type Server struct {
	Port int `koanf:"port" validate:"required,min=1,max=65535"`
}

// ListenAddr returns the address the shim listens on.
func (s Server) ListenAddr() string {
	return net.JoinHostPort("", strconv.Itoa(s.Port))
}

// MaskedAPIKey reports credential presence without leaking it.
func (u Upstream) MaskedAPIKey() string {
	if u.APIKey == "" {
		return "not set"
	}
	return "***set***"
}

// Load merges configuration in precedence order: built-in defaults, an
// optional TOML file, then environment variables. path may be empty.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"upstream.base_url": "http://host.docker.internal:11434",
		"upstream.model":    "minimax-m2:cloud",
		"upstream.api_key":  "",
		"server.port":       4001,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// transformEnv maps the recognized environment variables onto config keys.
// Everything else is dropped (an empty key skips the variable).
func transformEnv(key, value string) (string, any) {
	switch key {
	case "OLLAMA_BASE_URL":
		return "upstream.base_url", value
	case "OLLAMA_MODEL":
		return "upstream.model", value
	case "OLLAMA_API_KEY":
		return "upstream.api_key", value
	case "SHIM_PORT":
		return "server.port", value
	}
	return "", nil
}
