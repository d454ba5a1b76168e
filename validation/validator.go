package validation

import (
	"fmt"
	"log/slog"
	"math"

	"nutriplan"
	"nutriplan/plan"
)

// ValidationError is returned in reject mode for the first draft whose recipe
// was not offered for its slot.
type ValidationError struct {
	Slot   nutriplan.Slot
	Recipe string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recipe %q for slot %s is not among the validated candidates", e.Recipe, e.Slot)
}

type Status string

const (
	StatusValid       Status = "valid"
	StatusSubstituted Status = "substituted"
	StatusDropped     Status = "dropped"
	StatusUnverified  Status = "unverified"
)

// Record is the audit entry for one validated slot.
type Record struct {
	Slot        nutriplan.Slot `json:"slot"`
	Draft       string         `json:"draft"`
	Status      Status         `json:"status"`
	Replacement string         `json:"replacement,omitempty"`
	DeltaKcal   float64        `json:"delta_kcal,omitempty"`
}

// Outcome is the result of validating a draft plan.
type Outcome struct {
	Selections map[nutriplan.Slot]nutriplan.MealSelection
	Warnings   []string
	Records    []Record
	Summary    nutriplan.ValidationSummary
}

// Validator checks each drafted meal against the recipes offered in the same run.
// RejectInvalid takes precedence over StrictValidation.
type Validator struct {
	StrictValidation bool
	RejectInvalid    bool
	LogValidation    bool
}

// Validate processes drafts in order, one slot at a time.
func (v Validator) Validate(drafts []plan.Draft, ix *ValidRecipeIndex) (Outcome, error) {
	if ix == nil {
		ix = NewIndex()
	}
	out := Outcome{
		Selections: make(map[nutriplan.Slot]nutriplan.MealSelection, len(drafts)),
		Summary:    nutriplan.ValidationSummary{CandidatesSent: ix.Len()},
	}

	for _, d := range drafts {
		if entry, ok := ix.Lookup(d.Slot, d.Name); ok {
			out.Selections[d.Slot] = fromValid(d, entry.Recipe)
			out.Summary.Validated++
			v.record(&out, Record{Slot: d.Slot, Draft: d.Name, Status: StatusValid})
			continue
		}

		if v.RejectInvalid {
			slog.Error("VALIDATOR: rejecting plan", "slot", d.Slot, "recipe", d.Name)
			return Outcome{}, &ValidationError{Slot: d.Slot, Recipe: d.Name}
		}

		if !v.StrictValidation {
			sel := fromDraft(d)
			out.Selections[d.Slot] = sel
			out.Summary.Unverified++
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %q could not be verified against the recipe database", d.Slot, d.Name))
			v.record(&out, Record{Slot: d.Slot, Draft: d.Name, Status: StatusUnverified})
			continue
		}

		best, delta, ok := nearest(ix.Eligible(d.Slot), d.Calories)
		if !ok {
			out.Summary.Dropped++
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %q is not a known recipe and no substitute is available; slot needs manual follow-up", d.Slot, d.Name))
			v.record(&out, Record{Slot: d.Slot, Draft: d.Name, Status: StatusDropped})
			continue
		}

		out.Selections[d.Slot] = fromSubstitute(d.Slot, best.Recipe)
		out.Summary.Substituted++
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %q replaced with %q", d.Slot, d.Name, best.Recipe.Name))
		v.record(&out, Record{
			Slot:        d.Slot,
			Draft:       d.Name,
			Status:      StatusSubstituted,
			Replacement: best.Recipe.Name,
			DeltaKcal:   delta,
		})
	}

	slog.Info("VALIDATOR: plan validated",
		"validated", out.Summary.Validated,
		"substituted", out.Summary.Substituted,
		"dropped", out.Summary.Dropped,
		"unverified", out.Summary.Unverified,
	)
	return out, nil
}

func (v Validator) record(out *Outcome, r Record) {
	if !v.LogValidation {
		return
	}
	slog.Info("VALIDATOR: slot checked",
		"slot", r.Slot,
		"draft", r.Draft,
		"status", r.Status,
		"replacement", r.Replacement,
		"delta_kcal", r.DeltaKcal,
	)
	out.Records = append(out.Records, r)
}

// nearest picks the entry with the smallest calorie distance; ties keep the
// earlier entry.
func nearest(entries []IndexEntry, kcal float64) (IndexEntry, float64, bool) {
	var (
		best  IndexEntry
		delta = math.Inf(1)
		found bool
	)
	for _, e := range entries {
		if d := math.Abs(e.Recipe.Calories - kcal); d < delta {
			best, delta, found = e, d, true
		}
	}
	return best, delta, found
}

func fromValid(d plan.Draft, r nutriplan.Recipe) nutriplan.MealSelection {
	sel := fromDraft(d)
	sel.Name = r.Name
	if len(sel.Ingredients) == 0 {
		sel.Ingredients = r.Ingredients
	}
	if sel.Preparation == "" {
		sel.Preparation = r.Preparation
	}
	if sel.Calories <= 0 {
		sel.Calories = r.Calories
	}
	if sel.Macros == (nutriplan.Macros{}) && r.Macros != nil {
		sel.Macros = *r.Macros
	}
	return sel
}

func fromDraft(d plan.Draft) nutriplan.MealSelection {
	return nutriplan.MealSelection{
		Slot:        d.Slot,
		Name:        d.Name,
		Ingredients: d.Ingredients,
		Preparation: d.Preparation,
		Calories:    d.Calories,
		Macros:      d.Macros,
		Origin:      nutriplan.OriginGenerated,
	}
}

func fromSubstitute(slot nutriplan.Slot, r nutriplan.Recipe) nutriplan.MealSelection {
	sel := nutriplan.MealSelection{
		Slot:        slot,
		Name:        r.Name,
		Ingredients: r.Ingredients,
		Preparation: r.Preparation,
		Calories:    r.Calories,
		Origin:      nutriplan.OriginSubstituted,
	}
	if r.Macros != nil {
		sel.Macros = *r.Macros
	}
	return sel
}
