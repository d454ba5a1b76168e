package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const RecipeLookupName = "recipe_lookup"

// RecipeLookup exposes the validated candidate recipes to the model. Each recipe is
// a JSON-like map carrying at least "name" and "meal_types".
type RecipeLookup struct{ recipes []map[string]any }

func NewRecipeLookup(recipes []map[string]any) *RecipeLookup {
	return &RecipeLookup{recipes: recipes}
}

func (t *RecipeLookup) Name() string  { return RecipeLookupName }
func (t *RecipeLookup) Title() string { return "Look Up Candidate Recipes" }
func (t *RecipeLookup) Description() string {
	return "Lists the candidate recipes allowed for the plan, optionally filtered by meal types and a name fragment. Only these recipes may be used."
}

func (t *RecipeLookup) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"meal_types": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string"},
			},
			"name": {Type: "string"},
		},
	}
}

func (t *RecipeLookup) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"recipes": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "object"},
			},
		},
		Required: []string{"recipes"},
	}
}

func (t *RecipeLookup) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := map[string]bool{}
	for _, s := range stringsOf(input["meal_types"]) {
		if s != "" {
			want[strings.ToLower(s)] = true
		}
	}
	fragment, _ := input["name"].(string)
	fragment = strings.ToLower(strings.TrimSpace(fragment))

	out := make([]map[string]any, 0, len(t.recipes))
	for _, rec := range t.recipes {
		if len(want) > 0 && !anyWanted(stringsOf(rec["meal_types"]), want) {
			continue
		}
		if fragment != "" {
			name, _ := rec["name"].(string)
			if !strings.Contains(strings.ToLower(name), fragment) {
				continue
			}
		}
		out = append(out, rec)
	}

	return map[string]any{"recipes": out}, nil
}

func anyWanted(values []string, want map[string]bool) bool {
	for _, v := range values {
		if want[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

func stringsOf(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{t}
	}
	return nil
}
