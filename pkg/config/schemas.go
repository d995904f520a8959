package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for configuration validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	sr.RegisterSchema("config", builtinConfigSchema)
	sr.RegisterSchema("orchestrator", builtinOrchestratorSchema)
	sr.RegisterSchema("remote", builtinRemoteSchema)
	sr.RegisterSchema("sim", builtinSimSchema)
	sr.RegisterSchema("telemetry", builtinTelemetrySchema)
}

// RegisterSchema registers a CUE schema with the given name. The schema
// source declares a single definition that data is validated against.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schemaDefinition(schema).Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// schemaDefinition returns the first definition in a compiled schema, so
// data unifies against the constraint itself rather than the file value
// that encloses it. Falls back to the whole value when the schema has no
// definitions.
func schemaDefinition(v cue.Value) cue.Value {
	iter, err := v.Fields(cue.Definitions(true))
	if err != nil {
		return v
	}
	for iter.Next() {
		if iter.Selector().IsDefinition() {
			return iter.Value()
		}
	}
	return v
}

// Built-in schema definitions

const builtinConfigSchema = `
// Root orchestrator configuration
#Config: {
	orchestrator?: {
		// Fixed delay before every status check
		poll_interval_seconds?: int & >0

		// Status check budget after the first
		max_retries?: int & >=0

		// Optional submission timeout hint, 0 = none
		remote_timeout_hint_seconds?: int & >=0
	}

	remote?: {
		// Adapter kind
		mode?: "sim" | "http"

		// Base URL of the remote service in http mode
		endpoint?: string

		// Per-request HTTP timeout
		request_timeout_seconds?: int & >=0
	}

	sim?: {
		// How long a simulated operation reports RUNNING
		duration_seconds?: int & >=0

		// Resolve every simulated operation as FAILED
		fail?: bool

		// Starlark scenario file driving the status sequence
		script?: string
	}

	history?: {
		enabled?: bool
		path?:    string
	}

	policy?: {
		enabled?: bool
		dir?:     string
	}

	telemetry?: #Telemetry
}

#Telemetry: {
	log_level?:              "trace" | "debug" | "info" | "warn" | "error" | "fatal"
	log_format?:             "console" | "json"
	metrics_listen_address?: string
	tracing_enabled?:        bool
	tracing_exporter?:       "otlp" | "stdout" | "none"
	tracing_endpoint?:       string
	events_enabled?:         bool
}
`

const builtinOrchestratorSchema = `
// Orchestrator section schema
#Orchestrator: {
	poll_interval_seconds?:       int & >0
	max_retries?:                 int & >=0
	remote_timeout_hint_seconds?: int & >=0
}
`

const builtinRemoteSchema = `
// Remote adapter section schema
#Remote: {
	mode?:                    "sim" | "http"
	endpoint?:                string
	request_timeout_seconds?: int & >=0
}
`

const builtinSimSchema = `
// Simulated remote section schema
#Sim: {
	duration_seconds?: int & >=0
	fail?:             bool
	script?:           string
}
`

const builtinTelemetrySchema = `
// Telemetry section schema
#Telemetry: {
	log_level?:              "trace" | "debug" | "info" | "warn" | "error" | "fatal"
	log_format?:             "console" | "json"
	metrics_listen_address?: string
	tracing_enabled?:        bool
	tracing_exporter?:       "otlp" | "stdout" | "none"
	tracing_endpoint?:       string
	events_enabled?:         bool
}
`
