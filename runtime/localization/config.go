package localization

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ftllex/ftllex/runtime/bundle"
)

// Config is the file-based description of a localization setup:
//
//	locales:
//	  - lv
//	  - en
//	resources:
//	  - main.ftl
//	  - errors.ftl
//	root: ./locales
//	use_isolating: true
type Config struct {
	Locales      []string `yaml:"locales" json:"locales"`
	Resources    []string `yaml:"resources" json:"resources"`
	Root         string   `yaml:"root" json:"root"`
	UseIsolating *bool    `yaml:"use_isolating,omitempty" json:"use_isolating,omitempty"`
	Strict       *bool    `yaml:"strict,omitempty" json:"strict,omitempty"`
	EnableCache  *bool    `yaml:"enable_cache,omitempty" json:"enable_cache,omitempty"`
	CacheSize    *int     `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`
}

// configSchema validates the decoded document before it is trusted:
// the config frequently comes from deployment tooling, and a typoed
// key should fail loudly rather than silently fall back to defaults.
const configSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["locales", "resources", "root"],
	"additionalProperties": false,
	"properties": {
		"locales": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1, "maxLength": 64}
		},
		"resources": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		},
		"root": {"type": "string", "minLength": 1},
		"use_isolating": {"type": "boolean"},
		"strict": {"type": "boolean"},
		"enable_cache": {"type": "boolean"},
		"cache_size": {"type": "integer", "minimum": 1}
	}
}`

var compiledConfigSchema = jsonschema.MustCompileString("localization-config.json", configSchema)

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("localization: read config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig decodes and schema-validates YAML config bytes.
func ParseConfig(raw []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("localization: config is not valid YAML: %w", err)
	}

	// The schema validator wants JSON-shaped data; YAML decodes into
	// map[string]any with the v3 package, which marshals cleanly.
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("localization: config: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		return nil, fmt.Errorf("localization: config: %w", err)
	}
	if err := compiledConfigSchema.Validate(jsonDoc); err != nil {
		return nil, fmt.Errorf("localization: config rejected by schema: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("localization: config: %w", err)
	}
	for _, code := range cfg.Locales {
		if strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("localization: config contains an empty locale")
		}
	}
	return &cfg, nil
}

// FromConfig builds a Localization from a validated config.
func FromConfig(cfg *Config, opts ...Option) (*Localization, error) {
	var bundleOpts []bundle.Option
	if cfg.UseIsolating != nil {
		bundleOpts = append(bundleOpts, bundle.WithIsolating(*cfg.UseIsolating))
	}
	if cfg.Strict != nil {
		bundleOpts = append(bundleOpts, bundle.WithStrict(*cfg.Strict))
	}
	if cfg.EnableCache != nil && *cfg.EnableCache {
		size := 0
		if cfg.CacheSize != nil {
			size = *cfg.CacheSize
		}
		bundleOpts = append(bundleOpts, bundle.WithCache(size))
	}

	opts = append(opts, WithBundleOptions(bundleOpts...))
	return New(cfg.Locales, cfg.Resources, NewDirLoader(cfg.Root), opts...)
}
