package nutrition

import (
	"math"
	"strings"

	"nutriplan"
)

// activityMultipliers maps activity levels to their TDEE multiplier. Unknown
// levels fall back to the sedentary multiplier.
var activityMultipliers = map[nutriplan.ActivityLevel]float64{
	nutriplan.ActivitySedentary:  1.2,
	nutriplan.ActivityLight:      1.375,
	nutriplan.ActivityModerate:   1.55,
	nutriplan.ActivityActive:     1.725,
	nutriplan.ActivityVeryActive: 1.9,
}

const defaultActivityMultiplier = 1.2

// objectiveAdjustments is the daily kcal delta per objective (250 kcal per 0.25 kg/week).
var objectiveAdjustments = map[nutriplan.Objective]float64{
	nutriplan.ObjectiveMaintain: 0,
	nutriplan.ObjectiveLose025:  -250,
	nutriplan.ObjectiveLose05:   -500,
	nutriplan.ObjectiveLose075:  -750,
	nutriplan.ObjectiveLose1:    -1000,
	nutriplan.ObjectiveGain025:  250,
	nutriplan.ObjectiveGain05:   500,
	nutriplan.ObjectiveGain075:  750,
	nutriplan.ObjectiveGain1:    1000,
}

// proteinGramsPerKG holds the midpoint of each protein intensity range.
var proteinGramsPerKG = map[nutriplan.ProteinLevel]float64{
	nutriplan.ProteinVeryLow:  0.65,
	nutriplan.ProteinStandard: 1.0,
	nutriplan.ProteinModerate: 1.4,
	nutriplan.ProteinHigh:     1.9,
	nutriplan.ProteinVeryHigh: 2.5,
	nutriplan.ProteinExtreme:  3.25,
}

// metabolicPathologies shift the default split toward fewer carbohydrates.
// Matched as substrings so "resistencia a la insulina" hits "insulin".
var metabolicPathologies = []string{
	"diabetes",
	"insulin",
	"higado graso",
	"hígado graso",
	"fatty liver",
}

var (
	defaultSplit    = nutriplan.MacroSplit{Carbs: 0.45, Protein: 0.25, Fat: 0.30}
	metabolicSplit  = nutriplan.MacroSplit{Carbs: 0.40, Protein: 0.30, Fat: 0.30}
	weightLossSplit = nutriplan.MacroSplit{Carbs: 0.40, Protein: 0.30, Fat: 0.30}
	weightGainSplit = nutriplan.MacroSplit{Carbs: 0.50, Protein: 0.20, Fat: 0.30}
)

const (
	proteinCap   = 0.40
	minFat       = 0.15
	maxFat       = 0.45
	minCarbs     = 5
	maxCarbs     = 65
	sumTolerance = 0.02
)

// BMR returns the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(p nutriplan.PatientProfile) float64 {
	base := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.Age)
	if p.Sex == nutriplan.SexMale {
		return base + 5
	}
	return base - 161
}

// ActivityMultiplier returns the TDEE multiplier for the level.
func ActivityMultiplier(level nutriplan.ActivityLevel) float64 {
	if m, ok := activityMultipliers[level]; ok {
		return m
	}
	return defaultActivityMultiplier
}

// ObjectiveAdjustment returns the daily kcal delta for the objective.
func ObjectiveAdjustment(o nutriplan.Objective) float64 {
	return objectiveAdjustments[o]
}

// ComputeTargets derives daily calorie and macro targets from the profile. It is
// a pure function and never fails; unknown enum values use defaults.
func ComputeTargets(p nutriplan.PatientProfile) nutriplan.NutritionTargets {
	level := p.ActivityLevel
	if level == "" && p.ActivityType != "" {
		level = ActivityFromFrequency(p.ActivityType, p.ActivityFrequency)
	}

	bmr := BMR(p)
	tdee := bmr * ActivityMultiplier(level)
	daily := int(math.Round(tdee + ObjectiveAdjustment(p.Objective)))

	split := MacroDistribution(p, daily)

	return nutriplan.NutritionTargets{
		BMR:           bmr,
		TDEE:          tdee,
		DailyCalories: daily,
		Split:         split,
		Grams:         gramsFor(daily, split),
	}
}

// MacroDistribution returns the macro split for the profile at the given daily calories.
func MacroDistribution(p nutriplan.PatientProfile, dailyCalories int) nutriplan.MacroSplit {
	base := ruleSplit(p)
	if !p.Macros.IsSet() {
		return base
	}
	return customSplit(p, dailyCalories, base)
}

func ruleSplit(p nutriplan.PatientProfile) nutriplan.MacroSplit {
	switch {
	case hasMetabolicPathology(p.Pathologies):
		return metabolicSplit
	case p.Objective.IsLoss():
		return weightLossSplit
	case p.Objective.IsGain():
		return weightGainSplit
	default:
		return defaultSplit
	}
}

func customSplit(p nutriplan.PatientProfile, dailyCalories int, base nutriplan.MacroSplit) nutriplan.MacroSplit {
	protein := base.Protein
	if p.Macros.ProteinLevel != nil && dailyCalories > 0 {
		if gkg, ok := proteinGramsPerKG[*p.Macros.ProteinLevel]; ok {
			protein = gkg * p.WeightKG * nutriplan.KcalPerGramProtein / float64(dailyCalories)
		}
	}
	protein = math.Min(protein, proteinCap)

	carbs := base.Carbs
	if p.Macros.CarbsPercent != nil {
		carbs = float64(normalizeCarbsPercent(*p.Macros.CarbsPercent)) / 100
	}

	var fat float64
	if p.Macros.FatPercent != nil {
		fat = float64(*p.Macros.FatPercent) / 100
	} else {
		fat = 1 - protein - carbs
	}
	fat = clamp(fat, minFat, maxFat)

	// Fat absorbs whatever residual the clamps left behind.
	if math.Abs(protein+carbs+fat-1) > sumTolerance {
		fat = 1 - protein - carbs
		if fat < minFat {
			fat = minFat
			carbs = 1 - protein - fat
		}
	}

	return nutriplan.MacroSplit{Carbs: carbs, Protein: protein, Fat: fat}
}

// normalizeCarbsPercent snaps the override to a multiple of 5 within 5..65.
func normalizeCarbsPercent(v int) int {
	v = int(math.Round(float64(v)/5)) * 5
	if v < minCarbs {
		return minCarbs
	}
	if v > maxCarbs {
		return maxCarbs
	}
	return v
}

func gramsFor(dailyCalories int, split nutriplan.MacroSplit) nutriplan.Macros {
	kcal := float64(dailyCalories)
	return nutriplan.Macros{
		Carbs:   kcal * split.Carbs / nutriplan.KcalPerGramCarbs,
		Protein: kcal * split.Protein / nutriplan.KcalPerGramProtein,
		Fat:     kcal * split.Fat / nutriplan.KcalPerGramFat,
	}
}

func hasMetabolicPathology(pathologies []string) bool {
	for _, p := range pathologies {
		lp := strings.ToLower(p)
		for _, m := range metabolicPathologies {
			if strings.Contains(lp, m) {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
