package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Load reads a config file. The format is chosen by extension:
// .yaml/.yml (strict YAML) or .cue. Missing keys take defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, path)
	default:
		return Config{}, fmt.Errorf("unsupported config extension %q (want .yaml, .yml or .cue)", ext)
	}
}

// ParseYAML decodes YAML on top of Default and validates the result.
// Unknown keys are rejected.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse YAML config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseCUE unifies a CUE document with the schema (which supplies defaults)
// and decodes the result. filename is used in error positions only.
func ParseCUE(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema, err := compileSchema(ctx)
	if err != nil {
		return Config{}, err
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("compile CUE config: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode CUE config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validateSchema checks a Go-side config against the CUE schema.
func validateSchema(cfg Config) error {
	ctx := cuecontext.New()

	schema, err := compileSchema(ctx)
	if err != nil {
		return err
	}

	v := schema.Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	root := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("lookup #Config: %w", err)
	}
	return def, nil
}
