package planner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"nutriplan"
	"nutriplan/nutrition"
	"nutriplan/retrieval"
)

const (
	adjustmentSearchLimit = 20
	defaultAdjustQuery    = "recetas saludables variadas"
)

var issueQueries = []struct {
	term  string
	query string
}{
	{"hambre", "alto contenido proteico saciante"},
	{"monoton", "variedad nuevas opciones"},
	{"difícil", "fácil preparación simple"},
	{"dificil", "fácil preparación simple"},
}

// AdjustmentResult is the progress analysis of a control visit and the plan
// recomputed from it.
type AdjustmentResult struct {
	Progress     nutrition.ProgressAnalysis `json:"progress"`
	CalorieDelta float64                    `json:"calorie_delta"`
	Adjustments  []string                   `json:"adjustments_summary,omitempty"`
	Query        string                     `json:"alternatives_query,omitempty"`
	Plan         nutriplan.PlanResult       `json:"plan"`
}

// Adjust analyzes a control visit and plans the next day at the patient's
// current weight, shifting daily calories by the progress adjustment before
// allocation. Reported issues or requested changes pull extra candidates from
// an issue-derived search.
func (p *Planner) Adjust(ctx context.Context, visit nutrition.ControlVisit) (AdjustmentResult, error) {
	if visit.CurrentWeightKG <= 0 {
		return AdjustmentResult{}, errors.New("invalid control visit: current weight must be positive")
	}

	progress := nutrition.AnalyzeProgress(visit)
	out := AdjustmentResult{
		Progress:     progress,
		CalorieDelta: nutrition.CalorieAdjustment(progress.Status),
		Adjustments:  nutrition.PlanAdjustments(visit, progress.Status),
	}
	if progress.IssuesReported || progress.ChangesRequested {
		out.Query = AdjustmentQuery(visit, progress.Status)
	}

	result, err := p.run(ctx, "Planner.Adjust", visit.UpdatedProfile(), adjustment{
		calories: out.CalorieDelta,
		query:    out.Query,
		notes:    out.Adjustments,
	})
	if err != nil {
		return out, err
	}
	out.Plan = result
	return out, nil
}

// AdjustmentQuery builds the search text for alternatives from the reported
// issues, the progress status and the requested changes.
func AdjustmentQuery(visit nutrition.ControlVisit, status nutrition.ProgressStatus) string {
	issues := strings.ToLower(strings.Join(visit.ReportedIssues, " "))

	var parts []string
	for _, iq := range issueQueries {
		if strings.Contains(issues, iq.term) && !slices.Contains(parts, iq.query) {
			parts = append(parts, iq.query)
		}
	}
	if status == nutrition.ProgressSlowLoss {
		parts = append(parts, "bajo calorías volumen")
	}
	parts = append(parts, visit.RequestedChanges...)

	if len(parts) == 0 {
		return defaultAdjustQuery
	}
	return strings.Join(parts, " ")
}

// addAlternatives appends search hits to the slots they are tagged for when
// they fit the slot's calorie window, avoid the patient's restrictions and are
// not already offered there.
func (p *Planner) addAlternatives(ctx context.Context, set nutriplan.CandidateSet, profile nutriplan.PatientProfile, alloc nutriplan.MealAllocation, query string) (nutriplan.CandidateSet, int, error) {
	if set == nil {
		set = nutriplan.CandidateSet{}
	}
	if p.retriever == nil {
		return set, 0, nil
	}

	docs, err := p.retriever.Search(ctx, query, adjustmentSearchLimit, maps.Clone(retrieval.BaseFilters))
	if err != nil {
		return set, 0, fmt.Errorf("failed to search alternatives with query %q: %w", query, err)
	}

	restrictions := retrieval.CombineRestrictions(profile)
	var added int
	for _, doc := range docs {
		r := retrieval.ToRecipe(doc)
		if _, bad := retrieval.Excluded(r, restrictions); bad {
			continue
		}
		for _, st := range alloc.Slots {
			if !r.HasSlot(st.Slot) || offered(set[st.Slot], r) {
				continue
			}
			lo, hi := retrieval.Criteria{TargetCalories: st.Calories, Tolerance: p.opts.Tolerance}.CalorieWindow()
			if r.Calories < lo || r.Calories > hi {
				continue
			}
			set[st.Slot] = append(set[st.Slot], nutriplan.ScoredCandidate{
				Recipe: r,
				Score:  math.Round((1-doc.Distance)*100) / 100,
				Rank:   len(set[st.Slot]),
			})
			added++
		}
	}
	return set, added, nil
}

func offered(cands []nutriplan.ScoredCandidate, r nutriplan.Recipe) bool {
	for _, c := range cands {
		if c.Recipe.Key() == r.Key() {
			return true
		}
	}
	return false
}

// AdjustmentNotes renders the plan adjustments appended to the task text.
func AdjustmentNotes(notes []string) string {
	if len(notes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nADJUSTMENTS FROM THE LAST CONTROL:\n")
	for _, n := range notes {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	return b.String()
}
