package planner

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"strings"

	"nutriplan"
	"nutriplan/nutrition"
	"nutriplan/plan"
	"nutriplan/retrieval"
)

const (
	replacementSearchLimit = 20
	maxReplacements        = 10
)

// ReplacementRequest asks for alternatives to one meal of a plan.
type ReplacementRequest struct {
	Profile                nutriplan.PatientProfile `json:"patient"`
	MealToReplace          string                   `json:"meal_to_replace"`
	MealType               string                   `json:"meal_type"`
	Reason                 string                   `json:"reason"`
	MaintainCalories       bool                     `json:"maintain_calories"`
	TargetCalories         float64                  `json:"target_calories,omitempty"`
	Tolerance              float64                  `json:"tolerance,omitempty"`
	AlternativeIngredients []string                 `json:"alternative_ingredients,omitempty"`
	AvoidIngredients       []string                 `json:"avoid_ingredients,omitempty"`
}

// Replacement is one ranked alternative.
type Replacement struct {
	Recipe           nutriplan.Recipe `json:"recipe"`
	MatchScore       float64          `json:"match_score"`
	NutritionalMatch string           `json:"nutritional_match"`
	Notes            []string         `json:"special_notes,omitempty"`
}

// FindReplacements searches the corpus for slot-tagged recipes that avoid the
// listed ingredients and the patient's allergies, ranked by retrieval similarity.
func FindReplacements(ctx context.Context, retriever nutriplan.Retriever, req ReplacementRequest) ([]Replacement, error) {
	slot := plan.NormalizeMealType(req.MealType)
	query := ReplacementQuery(slot, req)

	docs, err := retriever.Search(ctx, query, replacementSearchLimit, maps.Clone(retrieval.BaseFilters))
	if err != nil {
		return nil, fmt.Errorf("failed to search replacements for %s with query %q: %w", slot, query, err)
	}

	avoid := make([]string, 0, len(req.AvoidIngredients)+len(req.Profile.Allergies))
	avoid = append(avoid, req.AvoidIngredients...)
	avoid = append(avoid, req.Profile.Allergies...)

	lo, hi := 0.0, math.Inf(1)
	if req.MaintainCalories {
		lo, hi = calorieWindow(slot, req)
	}

	replaced := nutriplan.NameKey(req.MealToReplace)
	notes := replacementNotes(req.Reason)
	match := "Apto para el plan"
	if req.MaintainCalories {
		match = "Calorías similares"
	}

	out := make([]Replacement, 0, len(docs))
	for _, doc := range docs {
		r := retrieval.ToRecipe(doc)
		if !r.HasSlot(slot) || r.Key() == replaced {
			continue
		}
		if _, bad := retrieval.Excluded(r, avoid); bad {
			continue
		}
		if r.Calories < lo || r.Calories > hi {
			continue
		}
		out = append(out, Replacement{
			Recipe:           r,
			MatchScore:       math.Round((1-doc.Distance)*100) / 100,
			NutritionalMatch: match,
			Notes:            notes,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if len(out) > maxReplacements {
		out = out[:maxReplacements]
	}
	return out, nil
}

// ReplacementQuery joins the slot, wanted ingredients and pathology hints.
func ReplacementQuery(slot nutriplan.Slot, req ReplacementRequest) string {
	parts := []string{string(slot)}
	parts = append(parts, req.AlternativeIngredients...)
	for _, p := range req.Profile.Pathologies {
		p = strings.ToLower(p)
		switch {
		case strings.Contains(p, "diabetes"):
			parts = append(parts, "bajo indice glucemico")
		case strings.Contains(p, "hipertension"), strings.Contains(p, "hipertensión"):
			parts = append(parts, "bajo sodio")
		}
	}
	return strings.Join(parts, " ")
}

func calorieWindow(slot nutriplan.Slot, req ReplacementRequest) (float64, float64) {
	target := req.TargetCalories
	if target <= 0 {
		targets := nutrition.ComputeTargets(req.Profile)
		alloc := nutrition.Allocate(targets, req.Profile.MealsPerDay, req.Profile.Distribution)
		st, ok := alloc.Target(slot)
		if !ok {
			return 0, math.Inf(1)
		}
		target = st.Calories
	}
	return retrieval.Criteria{TargetCalories: target, Tolerance: req.Tolerance}.CalorieWindow()
}

func replacementNotes(reason string) []string {
	reason = strings.ToLower(reason)
	var notes []string
	if strings.Contains(reason, "monoton") || strings.Contains(reason, "variedad") {
		notes = append(notes, "Nueva opción para variar el menú")
	}
	if strings.Contains(reason, "allergi") || strings.Contains(reason, "alergia") {
		notes = append(notes, "Libre de alérgenos identificados")
	}
	if strings.Contains(reason, "prefer") {
		notes = append(notes, "Alternativa según preferencias")
	}
	return notes
}
