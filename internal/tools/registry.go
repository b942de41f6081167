// Package tools implements the functions the agent strategy can call:
// policy_lookup, risk_scoring and triage_logger. Every invocation is
// recorded in the audit log.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/execution"
	"github.com/piyushigoyal/claimtriage/internal/validation"
)

// Tool names offered to the model.
const (
	PolicyLookup = "policy_lookup"
	RiskScoring  = "risk_scoring"
	TriageLogger = "triage_logger"
)

type handler func(ctx context.Context, claimID string, args map[string]any) (map[string]any, error)

type tool struct {
	spec   execution.ToolSpec
	schema *jsonschema.Schema
	run    handler
}

// Registry dispatches tool calls by name.
type Registry struct {
	tools map[string]tool
	order []string
	log   *audit.Log
}

func newRegistry(log *audit.Log) *Registry {
	return &Registry{tools: map[string]tool{}, log: log}
}

func (r *Registry) register(name, description, schemaJSON string, run handler) error {
	sch, err := validation.Compile(name+".schema.json", schemaJSON)
	if err != nil {
		return err
	}
	r.tools[name] = tool{
		spec: execution.ToolSpec{
			Name:        name,
			Description: description,
			Parameters:  json.RawMessage(schemaJSON),
		},
		schema: sch,
		run:    run,
	}
	r.order = append(r.order, name)
	return nil
}

// Specs returns the tool definitions in registration order.
func (r *Registry) Specs() []execution.ToolSpec {
	specs := make([]execution.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Invoke runs a tool call and returns the JSON text handed back to the
// model. Bad arguments and tool failures are reported to the model as
// {"error": ...} rather than aborting the conversation.
func (r *Registry) Invoke(ctx context.Context, claimID string, call execution.ToolCall) string {
	input := map[string]any{}
	output := r.invoke(ctx, claimID, call, input)

	if r.log != nil {
		r.log.Append(audit.ToolCall(claimID, call.Name, input, output))
	}

	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}

func (r *Registry) invoke(ctx context.Context, claimID string, call execution.ToolCall, input map[string]any) map[string]any {
	t, ok := r.tools[call.Name]
	if !ok {
		return errorOutput(fmt.Errorf("unknown tool %q (available: %s)", call.Name, strings.Join(r.order, ", ")))
	}

	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		input["raw"] = call.Arguments
		return errorOutput(fmt.Errorf("arguments are not a JSON object: %w", err))
	}
	if errs := validation.ValidateJSON(t.schema, []byte(raw)); len(errs) > 0 {
		return errorOutput(fmt.Errorf("invalid arguments: %s", strings.Join(errs, "; ")))
	}

	out, err := t.run(ctx, claimID, input)
	if err != nil {
		slog.Debug("tool call failed", "tool", call.Name, "claim_id", claimID, "error", err)
		return errorOutput(err)
	}
	return out
}

func errorOutput(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// decode maps loosely typed JSON arguments onto a typed struct.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: false,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
