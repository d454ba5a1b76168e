package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"nutriplan"
	"nutriplan/batch"
	"nutriplan/nutrition"
	"nutriplan/retrieval"
	"nutriplan/validation"
)

func rapidLossVisit() nutrition.ControlVisit {
	return nutrition.ControlVisit{
		Profile:         threeMeals(),
		CurrentWeightKG: 77,
		DaysOnPlan:      14,
		ReportedIssues:  []string{"Me aburre la monotonía"},
	}
}

func TestPlanner_Adjust(t *testing.T) {
	gen := &fakeGenerator{out: generatedPlan}
	p := newTestPlanner(t, gen, validation.Validator{StrictValidation: true})
	visit := rapidLossVisit()

	out, err := p.Adjust(context.Background(), visit)
	require.NoError(t, err)

	assert.Equal(t, nutrition.ProgressRapidLoss, out.Progress.Status)
	assert.InDelta(t, 250, out.CalorieDelta, 0.001)
	assert.Equal(t, "variedad nuevas opciones", out.Query)
	assert.Contains(t, out.Adjustments, "Daily calories +250 kcal (rapid_loss)")

	base := nutrition.ComputeTargets(visit.UpdatedProfile())
	assert.Equal(t, base.DailyCalories+250, out.Plan.Targets.DailyCalories)
	breakfast, ok := out.Plan.Allocation.Target(nutriplan.SlotBreakfast)
	require.True(t, ok)
	assert.InDelta(t, float64(out.Plan.Targets.DailyCalories)*0.30, breakfast.Calories, 0.01, "the adjusted total is allocated")

	assert.Equal(t, "Tostadas con palta", out.Plan.Selections[nutriplan.SlotBreakfast].Name)

	require.Len(t, gen.reqs, 1)
	assert.Contains(t, gen.reqs[0].UserPrompt, "ADJUSTMENTS FROM THE LAST CONTROL:\n- Daily calories +250 kcal (rapid_loss)\n")
}

func TestPlanner_Adjust_StableKeepsTargets(t *testing.T) {
	gen := &fakeGenerator{out: generatedPlan}
	p := newTestPlanner(t, gen, validation.Validator{StrictValidation: true})

	out, err := p.Adjust(context.Background(), nutrition.ControlVisit{Profile: threeMeals(), CurrentWeightKG: 80, DaysOnPlan: 21})
	require.NoError(t, err)

	assert.Equal(t, nutrition.ProgressStable, out.Progress.Status)
	assert.Zero(t, out.CalorieDelta)
	assert.Empty(t, out.Query, "no issues and no requests skip the alternatives search")
	assert.Equal(t, 2759, out.Plan.Targets.DailyCalories)
	require.Len(t, gen.reqs, 1)
	assert.NotContains(t, gen.reqs[0].UserPrompt, "ADJUSTMENTS")
}

func TestPlanner_Adjust_InvalidVisit(t *testing.T) {
	gen := &fakeGenerator{out: generatedPlan}
	p := newTestPlanner(t, gen, validation.Validator{})

	_, err := p.Adjust(context.Background(), nutrition.ControlVisit{Profile: threeMeals(), DaysOnPlan: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current weight")
	assert.Empty(t, gen.reqs)
}

func TestPlanner_Adjust_AlternativesSearchFails(t *testing.T) {
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	meter := metricnoop.NewMeterProvider().Meter("test")
	cache, err := batch.NewCache(32, time.Minute, nil)
	require.NoError(t, err)
	corpus := retrieval.NewCorpusFromDocuments(testCorpus())
	orch := batch.NewOrchestrator(retrieval.NewFinder(corpus, retrieval.DefaultWeights()), cache, batch.Options{}, tracer, meter)

	gen := &fakeGenerator{out: generatedPlan}
	p := New(orch, gen, failingRetriever{}, Options{Validator: validation.Validator{StrictValidation: true}}, tracer, meter)

	out, err := p.Adjust(context.Background(), rapidLossVisit())
	require.NoError(t, err)
	assert.Contains(t, out.Plan.Warnings, `adjustment search failed: failed to search alternatives with query "variedad nuevas opciones": vector store down`)
	assert.NotEmpty(t, out.Plan.Selections)
}

func TestAddAlternatives(t *testing.T) {
	p := newTestPlanner(t, &fakeGenerator{}, validation.Validator{})
	profile := threeMeals()
	alloc := nutrition.Allocate(nutrition.ComputeTargets(profile), 3, "")

	tests := []struct {
		name      string
		allergies []string
		breakfast []string
		added     int
	}{
		{"all fitting hits", nil, []string{"Tostadas con palta", "Avena con frutas", "Torta dulce"}, 6},
		{"restricted hits skipped", []string{"azúcar"}, []string{"Tostadas con palta", "Avena con frutas"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile.Allergies = tt.allergies
			set := nutriplan.CandidateSet{
				nutriplan.SlotDinner: {{Recipe: retrieval.ToRecipe(testCorpus()[5]), Score: 80}},
			}

			set, added, err := p.addAlternatives(context.Background(), set, profile, alloc, "tarta verduras")
			require.NoError(t, err)

			assert.Equal(t, tt.added, added)
			assert.Equal(t, tt.breakfast, candidateNames(set[nutriplan.SlotBreakfast]))
			assert.Equal(t, []string{"Pollo grillado con arroz", "Lentejas guisadas"}, candidateNames(set[nutriplan.SlotLunch]))

			dinner := set[nutriplan.SlotDinner]
			assert.Equal(t, []string{"Merluza al horno", "Tarta de verduras"}, candidateNames(dinner), "offered recipes are not repeated")
			assert.Equal(t, 1, dinner[1].Rank)
			assert.InDelta(t, 1, dinner[1].Score, 0.001)
		})
	}
}

func candidateNames(cands []nutriplan.ScoredCandidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Recipe.Name)
	}
	return out
}

func TestAdjustmentQuery(t *testing.T) {
	tests := []struct {
		name     string
		visit    nutrition.ControlVisit
		status   nutrition.ProgressStatus
		expected string
	}{
		{
			name:     "issues",
			visit:    nutrition.ControlVisit{ReportedIssues: []string{"Tengo hambre", "Es difícil cocinar", "muy dificil"}},
			status:   nutrition.ProgressGoodLoss,
			expected: "alto contenido proteico saciante fácil preparación simple",
		},
		{
			name:     "slow loss and requests",
			visit:    nutrition.ControlVisit{RequestedChanges: []string{"más pescado"}},
			status:   nutrition.ProgressSlowLoss,
			expected: "bajo calorías volumen más pescado",
		},
		{
			name:     "nothing to go on",
			status:   nutrition.ProgressStable,
			expected: "recetas saludables variadas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AdjustmentQuery(tt.visit, tt.status))
		})
	}
}

func TestAdjustmentNotes(t *testing.T) {
	assert.Empty(t, AdjustmentNotes(nil))
	assert.Equal(t, "\n\nADJUSTMENTS FROM THE LAST CONTROL:\n- a\n- b\n", AdjustmentNotes([]string{"a", "b"}))
}
