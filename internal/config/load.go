package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Sentinel errors naming spec.md §7's three fatal config-load classes.
// Callers (the root package's daemon wiring) map these onto the
// structured *Error type with errors.Is; this package stays free of any
// dependency on the root package to avoid an import cycle.
var (
	ErrNoFile     = errors.New("config: file not found")
	ErrParse      = errors.New("config: parse error")
	ErrNoChannels = errors.New("config: no channels found")
)

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("dlt-router-config.json", bytes.NewReader([]byte(schemaJSON))); err != nil {
		panic(fmt.Sprintf("config: embedded schema failed to load: %v", err))
	}
	return compiler.MustCompile("dlt-router-config.json")
}

// Load reads, schema-validates, and decodes the configuration file at path.
func Load(path string) (*StaticConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoFile, path)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNoFile, path, err)
	}
	return Parse(data)
}

// Parse schema-validates and decodes an in-memory configuration document,
// the path Load and tests that skip the filesystem both funnel through.
func Parse(data []byte) (*StaticConfig, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: schema validation: %v", ErrParse, err)
	}

	var cfg StaticConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("%w", ErrNoChannels)
	}
	return &cfg, nil
}
