package planner

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
	"nutriplan/nutrition"
)

func TestUserPrompt(t *testing.T) {
	profile := threeMeals()
	profile.Allergies = []string{"maní"}
	targets := nutrition.ComputeTargets(profile)
	alloc := nutrition.Allocate(targets, profile.MealsPerDay, profile.Distribution)
	set := nutriplan.CandidateSet{
		nutriplan.SlotBreakfast: {{Recipe: nutriplan.Recipe{Name: "Avena con frutas", Calories: 700}}},
		nutriplan.SlotLunch:     {{Recipe: nutriplan.Recipe{Name: "Lentejas guisadas", Calories: 950}}},
	}

	prompt, err := UserPrompt(profile, targets, alloc, set)
	require.NoError(t, err)

	body, ok := strings.CutPrefix(prompt, "Plan one day of meals for this patient.\n\n")
	require.True(t, ok)

	var payload struct {
		Patient struct {
			Age       int      `json:"age"`
			Allergies []string `json:"allergies"`
		} `json:"patient"`
		DailyCalories int `json:"daily_calories"`
		Meals         []struct {
			MealType       string  `json:"meal_type"`
			TargetCalories float64 `json:"target_calories"`
			Candidates     []struct {
				Name string `json:"name"`
			} `json:"candidates"`
		} `json:"meals"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))

	assert.Equal(t, 30, payload.Patient.Age)
	assert.Equal(t, []string{"maní"}, payload.Patient.Allergies)
	assert.Equal(t, 2759, payload.DailyCalories)
	require.Len(t, payload.Meals, 3)

	assert.Equal(t, "desayuno", payload.Meals[0].MealType)
	assert.Equal(t, 828.0, payload.Meals[0].TargetCalories)
	assert.Equal(t, "Avena con frutas", payload.Meals[0].Candidates[0].Name)
	assert.Equal(t, "cena", payload.Meals[2].MealType)
	assert.Empty(t, payload.Meals[2].Candidates, "slots without candidates are still listed")
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, SystemPrompt(), "recipe_lookup")
	assert.Contains(t, SystemPrompt(), "submit_meal_plan")
	assert.Contains(t, SystemPrompt(), `"recipe_name"`)
}
