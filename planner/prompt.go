package planner

import (
	"encoding/json"
	"fmt"
	"math"

	"nutriplan"
)

const systemPrompt = `You are a clinical nutrition meal planner.

GOAL:
Choose exactly one recipe for every requested meal type of a single day, so that each meal
stays close to its calorie and macro target and respects the patient's restrictions.

RULES:
- Only use recipes from the candidate list. Never invent or rename recipes.
- Use recipe_lookup to browse candidates and submit_meal_plan to deliver the final plan.
- Keep each meal's calories close to the target of its meal type.
- Copy recipe names exactly as listed.

FINAL OUTPUT FORMAT (when tools are not available, reply with ONLY this JSON object):
{
  "meals": [
    {
      "meal_type": string,        // one of the requested meal types
      "recipe_name": string,      // exactly as listed in the candidates
      "ingredients": [string],
      "preparation": string,
      "calories": number,
      "macros": {"carbs": number, "protein": number, "fat": number}
    }
  ]
}
No markdown, no commentary, no trailing commas.
`

// SystemPrompt returns the instructions sent with every generation request.
func SystemPrompt() string { return systemPrompt }

type promptCandidate struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
}

type promptSlot struct {
	MealType       nutriplan.Slot    `json:"meal_type"`
	TargetCalories float64           `json:"target_calories"`
	TargetMacros   nutriplan.Macros  `json:"target_macros_g"`
	Candidates     []promptCandidate `json:"candidates"`
}

type promptPatient struct {
	Age          int                    `json:"age"`
	Sex          nutriplan.Sex          `json:"sex"`
	Objective    nutriplan.Objective    `json:"objective,omitempty"`
	Pathologies  []string               `json:"pathologies,omitempty"`
	Allergies    []string               `json:"allergies,omitempty"`
	Preferences  []string               `json:"food_preferences,omitempty"`
	Dislikes     []string               `json:"food_dislikes,omitempty"`
	EconomicTier nutriplan.EconomicTier `json:"economic_level,omitempty"`
}

// UserPrompt renders the day's targets and ranked candidates as the task text.
func UserPrompt(profile nutriplan.PatientProfile, targets nutriplan.NutritionTargets, alloc nutriplan.MealAllocation, set nutriplan.CandidateSet) (string, error) {
	slots := make([]promptSlot, 0, len(alloc.Slots))
	for _, st := range alloc.Slots {
		ps := promptSlot{
			MealType:       st.Slot,
			TargetCalories: math.Round(st.Calories),
			TargetMacros:   roundMacros(st.Grams),
			Candidates:     make([]promptCandidate, 0, len(set[st.Slot])),
		}
		for _, c := range set[st.Slot] {
			ps.Candidates = append(ps.Candidates, promptCandidate{Name: c.Recipe.Name, Calories: c.Recipe.Calories})
		}
		slots = append(slots, ps)
	}

	payload := map[string]any{
		"patient": promptPatient{
			Age:          profile.Age,
			Sex:          profile.Sex,
			Objective:    profile.Objective,
			Pathologies:  profile.Pathologies,
			Allergies:    profile.Allergies,
			Preferences:  profile.Preferences,
			Dislikes:     profile.Dislikes,
			EconomicTier: profile.EconomicTier,
		},
		"daily_calories": targets.DailyCalories,
		"daily_macros_g": roundMacros(targets.Grams),
		"meals":          slots,
	}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal prompt payload: %w", err)
	}
	return "Plan one day of meals for this patient.\n\n" + string(b), nil
}

// Catalog flattens a candidate set into the records served by recipe_lookup.
// A recipe offered for several slots appears once with every slot listed.
func Catalog(set nutriplan.CandidateSet, slots []nutriplan.Slot) []map[string]any {
	var out []map[string]any
	byName := map[string]map[string]any{}

	for _, slot := range slots {
		for _, c := range set[slot] {
			key := c.Recipe.Key()
			if rec, ok := byName[key]; ok {
				rec["meal_types"] = appendSlot(rec["meal_types"].([]any), slot)
				continue
			}

			mealTypes := make([]any, 0, len(c.Recipe.Slots)+1)
			for _, s := range c.Recipe.Slots {
				mealTypes = appendSlot(mealTypes, s)
			}
			rec := map[string]any{
				"name":        c.Recipe.Name,
				"meal_types":  appendSlot(mealTypes, slot),
				"calories":    c.Recipe.Calories,
				"ingredients": c.Recipe.Ingredients,
				"preparation": c.Recipe.Preparation,
				"score":       c.Score,
			}
			if c.Recipe.Macros != nil {
				rec["macros"] = *c.Recipe.Macros
			}
			byName[key] = rec
			out = append(out, rec)
		}
	}
	return out
}

func appendSlot(list []any, slot nutriplan.Slot) []any {
	for _, v := range list {
		if v == string(slot) {
			return list
		}
	}
	return append(list, string(slot))
}

func roundMacros(m nutriplan.Macros) nutriplan.Macros {
	return nutriplan.Macros{
		Carbs:   math.Round(m.Carbs),
		Protein: math.Round(m.Protein),
		Fat:     math.Round(m.Fat),
	}
}
