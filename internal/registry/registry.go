// Package registry implements the command registry (spec.md C2): a static
// mapping from a command's `type` string to its handler, with declarative
// per-handler parameter validation performed before the handler is invoked.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/scenebridge/blenderforge/internal/wire"
)

// Handler is the signature every registered command implements. ctx is the
// context passed to Dispatch; internal/dispatch passes context.Background(),
// so the per-request timeout bounds only the submitter's wait, never the
// handler itself. params has already passed schema validation by the time
// Handler is called.
type Handler func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)

// Command couples a Handler with its declarative parameter schema. Schema
// is a JSON-Schema document (as a Go value, marshaled once at registration
// time) describing required fields and expected JSON types — the
// "declarative: required fields, expected JSON types" validation spec.md
// §4.2 calls for. A nil Schema means "no parameters are validated" (used by
// handlers that take no params, e.g. get_scene_info).
type Command struct {
	Type    string
	Handler Handler
	Schema  map[string]interface{}

	compiled *gojsonschema.Schema
}

// Registry is the immutable-after-start table of commands (spec.md §5: "The
// handler set is an immutable registry after start").
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register compiles cmd's schema (if any) and adds it to the table. Register
// must be called before the server starts accepting connections; it is not
// safe to call concurrently with Dispatch.
func (r *Registry) Register(cmd Command) error {
	if cmd.Schema != nil {
		schemaJSON, err := json.Marshal(cmd.Schema)
		if err != nil {
			return fmt.Errorf("marshal schema for %s: %w", cmd.Type, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
		if err != nil {
			return fmt.Errorf("compile schema for %s: %w", cmd.Type, err)
		}
		cmd.compiled = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.Type] = &cmd
	return nil
}

// Lookup returns the registered command for typ, or (nil, false).
func (r *Registry) Lookup(typ string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[typ]
	return cmd, ok
}

// Validate checks params against cmd's schema. It returns a *wire.Error of
// Kind InvalidParams on any violation, never invoking the handler.
func (cmd *Command) Validate(params map[string]interface{}) error {
	if cmd.compiled == nil {
		return nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	result, err := cmd.compiled.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return wire.Wrap(wire.KindInvalidParams, err, "params for %s failed validation", cmd.Type)
	}
	if !result.Valid() {
		return wire.NewError(wire.KindInvalidParams, "params for %s: %s", cmd.Type, describeErrors(result.Errors()))
	}
	return nil
}

func describeErrors(errs []gojsonschema.ResultError) string {
	if len(errs) == 0 {
		return "invalid params"
	}
	msg := errs[0].String()
	for _, e := range errs[1:] {
		msg += "; " + e.String()
	}
	return msg
}

// Dispatch validates params against the registered command's schema and, on
// success, invokes its Handler. Unknown command types return
// KindUnknownCommand without touching params.
func (r *Registry) Dispatch(ctx context.Context, req wire.Request) (map[string]interface{}, error) {
	cmd, ok := r.Lookup(req.Type)
	if !ok {
		return nil, wire.NewError(wire.KindUnknownCommand, "unknown command type: %q", req.Type)
	}

	if err := cmd.Validate(req.Params); err != nil {
		return nil, err
	}

	params := req.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	return cmd.Handler(ctx, params)
}
