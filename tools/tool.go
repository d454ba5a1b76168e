package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// errorKey marks a tool result as a failure the model should see and recover from.
const errorKey = "error"

// Tool is a capability offered to the generation model during one planning run.
// Input and output are plain JSON objects described by the schemas.
type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (output map[string]any, err error)
}

// Call is one tool invocation requested by the model.
type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// ErrorResult builds the payload returned to the model for a failed call.
func ErrorResult(format string, args ...any) map[string]any {
	return map[string]any{errorKey: fmt.Sprintf(format, args...)}
}

// IsErrorResult reports whether a tool result carries an error payload.
func IsErrorResult(out map[string]any) bool {
	_, failed := out[errorKey]
	return failed
}
