package config

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// CUEParser parses and validates CUE configuration files.
type CUEParser struct {
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
}

// NewCUEParser creates a new CUE parser with the built-in schemas.
func NewCUEParser() *CUEParser {
	return &CUEParser{
		ctx:            cuecontext.New(),
		schemaRegistry: NewSchemaRegistry(),
	}
}

// ParseFile reads a CUE file and decodes it over cfg. Fields absent from
// the file keep their current values, so callers pass in the defaults.
func (cp *CUEParser) ParseFile(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return cp.Parse(content, path, cfg)
}

// Parse compiles CUE source, validates it against the config schema and
// decodes it over cfg.
func (cp *CUEParser) Parse(content []byte, filename string, cfg *Config) error {
	val := cp.ctx.CompileBytes(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return &ParseError{Errors: cp.convertCUEErrors(err)}
	}

	if schema, ok := cp.schemaRegistry.GetSchema("config"); ok {
		unified := schemaDefinition(schema).Unify(val)
		if err := unified.Validate(); err != nil {
			return &ParseError{Errors: cp.convertCUEErrors(err)}
		}
	}

	if err := val.Decode(cfg); err != nil {
		return &ParseError{Errors: cp.convertCUEErrors(err)}
	}

	return nil
}

// GetSchemaRegistry returns the schema registry.
func (cp *CUEParser) GetSchemaRegistry() *SchemaRegistry {
	return cp.schemaRegistry
}

// convertCUEErrors converts CUE errors to a ValidationError slice.
func (cp *CUEParser) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	errs := errors.Errors(err)
	for _, e := range errs {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Message:  errors.Details(e, nil),
			Severity: "error",
		})
	}

	return validationErrors
}

// ParseError aggregates CUE parse and validation failures with their
// source locations.
type ParseError struct {
	Errors []ValidationError
}

func (e *ParseError) Error() string {
	if len(e.Errors) == 0 {
		return "config parse failed"
	}

	first := strings.TrimSpace(e.Errors[0].Error())
	if len(e.Errors) == 1 {
		return first
	}
	return fmt.Sprintf("%s (and %d more errors)", first, len(e.Errors)-1)
}
