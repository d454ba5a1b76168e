package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const SubmitMealPlanName = "submit_meal_plan"

var ErrNoMealsSubmitted = errors.New("submit_meal_plan requires a non-empty meals list")

// SubmitMealPlan is the terminal tool: its input is the model's final plan. Run
// only acknowledges it; validation happens after generation.
type SubmitMealPlan struct{}

func NewSubmitMealPlan() *SubmitMealPlan { return &SubmitMealPlan{} }

func (t *SubmitMealPlan) Name() string  { return SubmitMealPlanName }
func (t *SubmitMealPlan) Title() string { return "Submit Meal Plan" }
func (t *SubmitMealPlan) Description() string {
	return "Submits the final meal plan, one meal per requested meal type, using only recipes returned by recipe_lookup."
}

func (t *SubmitMealPlan) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"meals": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"meal_type":   {Type: "string"},
						"recipe_name": {Type: "string"},
						"ingredients": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
						"preparation": {Type: "string"},
						"calories":    {Type: "number"},
						"macros": {
							Type: "object",
							Properties: map[string]*jsonschema.Schema{
								"carbs":   {Type: "number"},
								"protein": {Type: "number"},
								"fat":     {Type: "number"},
							},
						},
					},
					Required: []string{"meal_type", "recipe_name"},
				},
			},
		},
		Required: []string{"meals"},
	}
}

func (t *SubmitMealPlan) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"accepted": {Type: "boolean"},
			"meals":    {Type: "integer"},
		},
		Required: []string{"accepted"},
	}
}

func (t *SubmitMealPlan) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meals, _ := input["meals"].([]any)
	if len(meals) == 0 {
		return nil, ErrNoMealsSubmitted
	}
	return map[string]any{"accepted": true, "meals": len(meals)}, nil
}
