package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
)

func ptr[T any](v T) *T { return &v }

func referenceMale() nutriplan.PatientProfile {
	return nutriplan.PatientProfile{
		Age:           30,
		Sex:           nutriplan.SexMale,
		HeightCM:      180,
		WeightKG:      80,
		ActivityLevel: nutriplan.ActivityModerate,
		Objective:     nutriplan.ObjectiveMaintain,
	}
}

func TestComputeTargets_ReferenceMale(t *testing.T) {
	targets := ComputeTargets(referenceMale())

	assert.InDelta(t, 1780, targets.BMR, 0.001)
	assert.InDelta(t, 2759, targets.TDEE, 0.001)
	assert.Equal(t, 2759, targets.DailyCalories)
	assert.Equal(t, nutriplan.MacroSplit{Carbs: 0.45, Protein: 0.25, Fat: 0.30}, targets.Split)
}

func TestBMR(t *testing.T) {
	tests := []struct {
		name     string
		profile  nutriplan.PatientProfile
		expected float64
	}{
		{
			name:     "male",
			profile:  nutriplan.PatientProfile{Sex: nutriplan.SexMale, Age: 30, HeightCM: 180, WeightKG: 80},
			expected: 1780,
		},
		{
			name:     "female",
			profile:  nutriplan.PatientProfile{Sex: nutriplan.SexFemale, Age: 40, HeightCM: 165, WeightKG: 60},
			expected: 600 + 1031.25 - 200 - 161,
		},
		{
			name:     "unknown sex uses the female constant",
			profile:  nutriplan.PatientProfile{Sex: "x", Age: 40, HeightCM: 165, WeightKG: 60},
			expected: 600 + 1031.25 - 200 - 161,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, BMR(tt.profile), 0.0001)
		})
	}
}

func TestActivityMultiplier(t *testing.T) {
	tests := []struct {
		level    nutriplan.ActivityLevel
		expected float64
	}{
		{nutriplan.ActivitySedentary, 1.2},
		{nutriplan.ActivityLight, 1.375},
		{nutriplan.ActivityModerate, 1.55},
		{nutriplan.ActivityActive, 1.725},
		{nutriplan.ActivityVeryActive, 1.9},
		{"couch", 1.2},
		{"", 1.2},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.expected, ActivityMultiplier(tt.level))
		})
	}
}

func TestComputeTargets_Objectives(t *testing.T) {
	tests := []struct {
		objective nutriplan.Objective
		delta     int
		split     nutriplan.MacroSplit
	}{
		{nutriplan.ObjectiveMaintain, 0, defaultSplit},
		{nutriplan.ObjectiveLose025, -250, weightLossSplit},
		{nutriplan.ObjectiveLose05, -500, weightLossSplit},
		{nutriplan.ObjectiveLose075, -750, weightLossSplit},
		{nutriplan.ObjectiveLose1, -1000, weightLossSplit},
		{nutriplan.ObjectiveGain025, 250, weightGainSplit},
		{nutriplan.ObjectiveGain1, 1000, weightGainSplit},
		{"bajar_mucho", 0, weightLossSplit},
		{"whatever", 0, defaultSplit},
	}

	for _, tt := range tests {
		t.Run(string(tt.objective), func(t *testing.T) {
			p := referenceMale()
			p.Objective = tt.objective
			targets := ComputeTargets(p)

			assert.Equal(t, 2759+tt.delta, targets.DailyCalories)
			assert.Equal(t, tt.split, targets.Split)
		})
	}
}

func TestComputeTargets_PathologyWinsOverObjective(t *testing.T) {
	tests := []struct {
		name        string
		pathologies []string
	}{
		{"diabetes", []string{"Diabetes tipo 2"}},
		{"insulin resistance spanish", []string{"Resistencia a la insulina"}},
		{"fatty liver", []string{"hígado graso"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := referenceMale()
			p.Objective = nutriplan.ObjectiveGain05
			p.Pathologies = tt.pathologies

			assert.Equal(t, metabolicSplit, ComputeTargets(p).Split)
		})
	}
}

func TestComputeTargets_DerivesActivityFromFrequency(t *testing.T) {
	p := referenceMale()
	p.ActivityLevel = ""
	p.ActivityType = "pesas"
	p.ActivityFrequency = 4

	assert.InDelta(t, 1780*1.55, ComputeTargets(p).TDEE, 0.001)
}

func TestCustomSplit(t *testing.T) {
	tests := []struct {
		name     string
		weight   float64
		daily    int
		macros   nutriplan.MacroOverrides
		expected nutriplan.MacroSplit
	}{
		{
			name:     "protein level with remainder fat",
			weight:   80,
			daily:    3040,
			macros:   nutriplan.MacroOverrides{ProteinLevel: ptr(nutriplan.ProteinHigh), CarbsPercent: ptr(40)},
			expected: nutriplan.MacroSplit{Carbs: 0.40, Protein: 0.20, Fat: 0.40},
		},
		{
			name:     "protein capped and fat absorbs residual",
			weight:   80,
			daily:    1500,
			macros:   nutriplan.MacroOverrides{ProteinLevel: ptr(nutriplan.ProteinExtreme), CarbsPercent: ptr(65)},
			expected: nutriplan.MacroSplit{Carbs: 0.45, Protein: 0.40, Fat: 0.15},
		},
		{
			name:     "explicit fat clamped then residual absorbed",
			weight:   70,
			daily:    2000,
			macros:   nutriplan.MacroOverrides{CarbsPercent: ptr(30), FatPercent: ptr(60)},
			expected: nutriplan.MacroSplit{Carbs: 0.30, Protein: 0.25, Fat: 0.45},
		},
		{
			name:     "carbs snapped to multiple of five",
			weight:   70,
			daily:    2000,
			macros:   nutriplan.MacroOverrides{CarbsPercent: ptr(47)},
			expected: nutriplan.MacroSplit{Carbs: 0.45, Protein: 0.25, Fat: 0.30},
		},
		{
			name:     "unknown protein level keeps rule protein",
			weight:   70,
			daily:    2000,
			macros:   nutriplan.MacroOverrides{ProteinLevel: ptr(nutriplan.ProteinLevel("mucha"))},
			expected: nutriplan.MacroSplit{Carbs: 0.45, Protein: 0.25, Fat: 0.30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := nutriplan.PatientProfile{WeightKG: tt.weight, Macros: tt.macros}
			got := MacroDistribution(p, tt.daily)

			assert.InDelta(t, tt.expected.Carbs, got.Carbs, 0.0001)
			assert.InDelta(t, tt.expected.Protein, got.Protein, 0.0001)
			assert.InDelta(t, tt.expected.Fat, got.Fat, 0.0001)
			assert.InDelta(t, 1.0, got.Sum(), 0.02)
		})
	}
}

func TestComputeTargets_Properties(t *testing.T) {
	levels := []nutriplan.ProteinLevel{
		nutriplan.ProteinVeryLow, nutriplan.ProteinStandard, nutriplan.ProteinModerate,
		nutriplan.ProteinHigh, nutriplan.ProteinVeryHigh, nutriplan.ProteinExtreme,
	}
	objectives := []nutriplan.Objective{nutriplan.ObjectiveMaintain, nutriplan.ObjectiveLose1, nutriplan.ObjectiveGain05}

	for _, weight := range []float64{45, 80, 140} {
		for _, carbs := range []int{5, 30, 65} {
			for _, level := range levels {
				for _, obj := range objectives {
					p := referenceMale()
					p.WeightKG = weight
					p.Objective = obj
					p.Macros = nutriplan.MacroOverrides{ProteinLevel: ptr(level), CarbsPercent: ptr(carbs)}

					first := ComputeTargets(p)
					second := ComputeTargets(p)
					require.Equal(t, first, second, "calculator must be pure")

					assert.InDelta(t, 1.0, first.Split.Sum(), 0.02)
					assert.LessOrEqual(t, first.Split.Protein, proteinCap+1e-9)

					kcal := first.Grams.Kcal()
					daily := float64(first.DailyCalories)
					assert.InDelta(t, daily*first.Split.Carbs, kcal.Carbs, 0.5)
					assert.InDelta(t, daily*first.Split.Protein, kcal.Protein, 0.5)
					assert.InDelta(t, daily*first.Split.Fat, kcal.Fat, 0.5)
				}
			}
		}
	}
}
