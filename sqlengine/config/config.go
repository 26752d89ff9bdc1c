// Package config loads engine settings and the ordered extension list from YAML or JSON files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

var ErrUnsupportedFormat = errors.New("unsupported configuration format")
var ErrInvalidConfig = errors.New("invalid configuration")

var strictJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// Config is the file representation of an engine configuration.
// Extensions are registered in list order, so the last one ends up outermost.
type Config struct {
	Engine     Engine              `yaml:"engine" json:"engine"`
	Extensions []plugin.Descriptor `yaml:"extensions" json:"extensions"`
}

// Engine holds the executor settings. Timeouts use time.ParseDuration syntax, empty means none.
type Engine struct {
	ExecutorType            string `yaml:"executor_type" json:"executor_type"`
	DefaultStatementTimeout string `yaml:"default_statement_timeout" json:"default_statement_timeout"`
	TransactionTimeout      string `yaml:"transaction_timeout" json:"transaction_timeout"`
}

// StatementTimeout parses DefaultStatementTimeout.
func (e Engine) StatementTimeout() (time.Duration, error) {
	return parseTimeout("default_statement_timeout", e.DefaultStatementTimeout)
}

// TxTimeout parses TransactionTimeout.
func (e Engine) TxTimeout() (time.Duration, error) {
	return parseTimeout("transaction_timeout", e.TransactionTimeout)
}

// LoadFile reads path and decodes it by its extension (.yaml, .yml or .json).
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	case ".json":
		return LoadJSON(data)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// LoadYAML decodes and validates a YAML configuration. Unknown fields are rejected.
func LoadYAML(data []byte) (Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	return cfg, cfg.Validate()
}

// LoadJSON decodes and validates a JSON configuration. Unknown fields are rejected.
func LoadJSON(data []byte) (Config, error) {
	var cfg Config

	if err := strictJSON.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings that can be checked without the extension registry.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Engine.ExecutorType)) {
	case "", "simple", "batch":
	default:
		return fmt.Errorf("%w: executor_type %q", ErrInvalidConfig, c.Engine.ExecutorType)
	}

	if _, err := c.Engine.StatementTimeout(); err != nil {
		return err
	}

	if _, err := c.Engine.TxTimeout(); err != nil {
		return err
	}

	for i, descriptor := range c.Extensions {
		if strings.TrimSpace(descriptor.Name) == "" {
			return fmt.Errorf("%w: extension %d has no name", ErrInvalidConfig, i)
		}
	}

	return nil
}

func parseTimeout(field, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidConfig, field, value, err)
	}

	if timeout < 0 {
		return 0, fmt.Errorf("%w: %s %q is negative", ErrInvalidConfig, field, value)
	}

	return timeout, nil
}
