package schema

import (
	"fmt"
	"io"
	"os"
	"sort"

	// Packages
	yaml "gopkg.in/yaml.v3"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Config is a set of named schemas, as read from a YAML document:
//
//	schemas:
//	  avatar:
//	    fields:
//	      username: { max_size: 64 }
//	    files:
//	      image: { max_file_size: 1048576, allowed_mime_types: [ image/png ], min: 1 }
type Config struct {
	Schemas map[string]*Schema `json:"schemas" yaml:"schemas"`
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Load reads a YAML document from a reader, expanding environment variables
// before parsing, and validates each schema
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if cfg.Schemas == nil {
		cfg.Schemas = make(map[string]*Schema)
	}

	// Validate in a stable order so errors are reproducible
	for _, name := range cfg.Names() {
		if cfg.Schemas[name] == nil {
			cfg.Schemas[name] = new(Schema)
		}
		if err := cfg.Schemas[name].Validate(); err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
	}

	// Return success
	return &cfg, nil
}

// Names returns the schema names in sorted order
func (cfg *Config) Names() []string {
	names := make([]string, 0, len(cfg.Schemas))
	for name := range cfg.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads a YAML document from a file
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
