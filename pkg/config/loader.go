package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load reads a YAML session config from path over Default() and
// validates it eagerly. Keys absent from the document keep their
// Default() values; there is no silent clamping: an out-of-range value
// fails Load rather than being coerced into range.
func Load(path string) (SessionConfig, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return SessionConfig{}, fmt.Errorf("config: failed to load %s: %w", path, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return SessionConfig{}, fmt.Errorf("config: failed to unmarshal %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return SessionConfig{}, fmt.Errorf("config: invalid configuration in %s: %w", path, err)
	}

	return cfg, nil
}

// bytesProvider adapts an in-memory YAML document to koanf.Provider,
// for callers (tests, embedded defaults) that don't have a file path.
type bytesProvider struct{ data []byte }

func (b bytesProvider) ReadBytes() ([]byte, error) { return b.data, nil }
func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("config: bytesProvider requires a parser, not flat Read")
}

// LoadBytes parses YAML from memory, for callers that already have the
// document (tests, embedded defaults) rather than a file path.
func LoadBytes(data []byte) (SessionConfig, error) {
	k := koanf.New(".")

	if err := k.Load(bytesProvider{data: data}, yaml.Parser()); err != nil {
		return SessionConfig{}, fmt.Errorf("config: failed to parse bytes: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return SessionConfig{}, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return SessionConfig{}, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}
