package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visit(current float64, days int) ControlVisit {
	return ControlVisit{Profile: referenceMale(), CurrentWeightKG: current, DaysOnPlan: days}
}

func TestAnalyzeProgress_Status(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		days    int
		weekly  float64
		status  ProgressStatus
		next    int
	}{
		{"rapid loss", 77, 14, -1.5, ProgressRapidLoss, 7},
		{"good loss", 78.5, 14, -0.75, ProgressGoodLoss, 21},
		{"slow loss", 79.5, 14, -0.25, ProgressSlowLoss, 21},
		{"rapid gain", 82, 14, 1, ProgressRapidGain, 7},
		{"moderate gain", 80.5, 14, 0.25, ProgressModerateGain, 21},
		{"stable", 80, 14, 0, ProgressStable, 21},
		{"zero days counts as one", 79, 0, -7, ProgressRapidLoss, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeProgress(visit(tt.current, tt.days))
			assert.InDelta(t, tt.weekly, got.WeeklyChangeKG, 0.001)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, progressMessages[tt.status], got.Message)
			assert.Equal(t, tt.next, got.NextControlDays)
		})
	}
}

func TestAnalyzeProgress_WeightAndBMI(t *testing.T) {
	got := AnalyzeProgress(visit(77, 14))

	assert.InDelta(t, -3, got.WeightChangeKG, 0.001)
	assert.InDelta(t, -3.75, got.WeightChangePercent, 0.001)
	assert.InDelta(t, 23.77, got.CurrentBMI, 0.001)
	assert.Equal(t, BMINormal, got.BMICategory)
	assert.Equal(t, AdherenceGood, got.Adherence, "missing adherence defaults to 80%")
	assert.False(t, got.IssuesReported)
	assert.False(t, got.ChangesRequested)
}

func TestAnalyzeProgress_Adherence(t *testing.T) {
	tests := []struct {
		pct  float64
		want AdherenceLevel
	}{
		{150, AdherenceExcellent},
		{90, AdherenceExcellent},
		{89.9, AdherenceGood},
		{70, AdherenceGood},
		{50, AdherenceModerate},
		{49.9, AdherencePoor},
		{-5, AdherencePoor},
	}

	for _, tt := range tests {
		v := visit(80, 14)
		v.Adherence = ptr(tt.pct)
		assert.Equal(t, tt.want, AnalyzeProgress(v).Adherence, "adherence %.1f", tt.pct)
	}
}

func TestAnalyzeProgress_Recommendations(t *testing.T) {
	v := visit(79.5, 14)
	v.Adherence = ptr(40.0)
	v.ReportedIssues = []string{"Mucha hambre a la tarde"}
	v.RequestedChanges = []string{"más pescado"}
	v.NewPathologies = []string{"hipertensión"}

	got := AnalyzeProgress(v)

	assert.Equal(t, []string{
		"Review portion sizes and ensure accurate tracking",
		"Consider increasing physical activity",
		"Simplify meal preparation with batch cooking",
		"Consider meal prep services or simpler recipes",
		"Increase fiber and protein content in meals",
		"Add healthy snacks between meals",
		"Adjust plan for new medical conditions",
		"Consult with medical team for specific restrictions",
	}, got.Recommendations)
	assert.Equal(t, 10, got.NextControlDays, "poor adherence comes before new pathologies")
	assert.True(t, got.IssuesReported)
	assert.True(t, got.ChangesRequested)
}

func TestAnalyzeProgress_NewMedicationsShortenControl(t *testing.T) {
	v := visit(80, 14)
	v.NewMedications = []string{"metformina"}

	assert.Equal(t, 14, AnalyzeProgress(v).NextControlDays)
}

func TestControlVisit_UpdatedProfile(t *testing.T) {
	v := visit(77, 14)
	v.Profile.Pathologies = []string{"celiaquía"}
	v.NewPathologies = []string{"diabetes"}

	p := v.UpdatedProfile()

	assert.InDelta(t, 77, p.WeightKG, 0.001)
	assert.Equal(t, []string{"celiaquía", "diabetes"}, p.Pathologies)
	assert.Equal(t, []string{"celiaquía"}, v.Profile.Pathologies, "the original profile is untouched")
}

func TestCalorieAdjustment(t *testing.T) {
	assert.InDelta(t, 250, CalorieAdjustment(ProgressRapidLoss), 0.001)
	assert.InDelta(t, -150, CalorieAdjustment(ProgressSlowLoss), 0.001)
	assert.InDelta(t, -250, CalorieAdjustment(ProgressRapidGain), 0.001)
	assert.Zero(t, CalorieAdjustment(ProgressGoodLoss))
	assert.Zero(t, CalorieAdjustment(ProgressStable))
}

func TestPlanAdjustments(t *testing.T) {
	v := visit(77, 14)
	v.ReportedIssues = []string{"fatigue"}
	v.NewPathologies = []string{"hipertensión", "gastritis"}
	v.RequestedChanges = []string{"menos lácteos"}

	assert.Equal(t, []string{
		"Daily calories +250 kcal (rapid_loss)",
		"Added iron-rich foods",
		"Improved meal timing for energy",
		"Adapted for new conditions: hipertensión, gastritis",
		"Accommodated request: menos lácteos",
	}, PlanAdjustments(v, ProgressRapidLoss))

	assert.Empty(t, PlanAdjustments(visit(80, 14), ProgressStable))
}

func TestAdjustTargets(t *testing.T) {
	p := referenceMale()
	base := ComputeTargets(p)

	assert.Equal(t, base, AdjustTargets(p, base, 0))

	got := AdjustTargets(p, base, 250)
	require.Equal(t, 3009, got.DailyCalories)
	assert.InDelta(t, base.BMR, got.BMR, 0.001)
	assert.InDelta(t, base.TDEE, got.TDEE, 0.001)
	assert.Equal(t, base.Split, got.Split)
	assert.Equal(t, gramsFor(3009, base.Split), got.Grams)

	assert.Zero(t, AdjustTargets(p, base, -5000).DailyCalories)
}
