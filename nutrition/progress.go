package nutrition

import (
	"fmt"
	"math"
	"strings"

	"nutriplan"
)

// ControlVisit is a follow-up consultation for a patient already on a plan.
// Profile carries the values the current plan was computed from.
type ControlVisit struct {
	Profile          nutriplan.PatientProfile `json:"patient"`
	CurrentWeightKG  float64                  `json:"current_weight"`
	DaysOnPlan       int                      `json:"days_on_plan"`
	Adherence        *float64                 `json:"adherence_percentage,omitempty"`
	ReportedIssues   []string                 `json:"reported_issues,omitempty"`
	RequestedChanges []string                 `json:"requested_changes,omitempty"`
	NewPathologies   []string                 `json:"new_pathologies,omitempty"`
	NewMedications   []string                 `json:"new_medications,omitempty"`
}

const defaultAdherence = 80.0

// AdherencePercent returns the reported adherence, 80 when absent, within 0..100.
func (v ControlVisit) AdherencePercent() float64 {
	if v.Adherence == nil {
		return defaultAdherence
	}
	return clamp(*v.Adherence, 0, 100)
}

// WeightChange is the current weight minus the plan's starting weight.
func (v ControlVisit) WeightChange() float64 {
	return round2(v.CurrentWeightKG - v.Profile.WeightKG)
}

func (v ControlVisit) WeightChangePercent() float64 {
	if v.Profile.WeightKG <= 0 {
		return 0
	}
	return round2(v.WeightChange() / v.Profile.WeightKG * 100)
}

// UpdatedProfile returns the profile at the current weight with the new
// pathologies appended.
func (v ControlVisit) UpdatedProfile() nutriplan.PatientProfile {
	p := v.Profile
	if v.CurrentWeightKG > 0 {
		p.WeightKG = v.CurrentWeightKG
	}
	if len(v.NewPathologies) > 0 {
		p.Pathologies = append(append([]string(nil), p.Pathologies...), v.NewPathologies...)
	}
	return p
}

type ProgressStatus string

const (
	ProgressRapidLoss    ProgressStatus = "rapid_loss"
	ProgressGoodLoss     ProgressStatus = "good_loss"
	ProgressSlowLoss     ProgressStatus = "slow_loss"
	ProgressRapidGain    ProgressStatus = "rapid_gain"
	ProgressModerateGain ProgressStatus = "moderate_gain"
	ProgressStable       ProgressStatus = "stable"
)

var progressMessages = map[ProgressStatus]string{
	ProgressRapidLoss:    "Weight loss is too rapid",
	ProgressGoodLoss:     "Weight loss is on track",
	ProgressSlowLoss:     "Weight loss is slower than expected",
	ProgressRapidGain:    "Weight gain is too rapid",
	ProgressModerateGain: "Slight weight gain observed",
	ProgressStable:       "Weight is stable",
}

// Daily kcal applied on top of the computed targets for the next plan.
var calorieAdjustments = map[ProgressStatus]float64{
	ProgressRapidLoss: 250,
	ProgressSlowLoss:  -150,
	ProgressRapidGain: -250,
}

type AdherenceLevel string

const (
	AdherenceExcellent AdherenceLevel = "excellent"
	AdherenceGood      AdherenceLevel = "good"
	AdherenceModerate  AdherenceLevel = "moderate"
	AdherencePoor      AdherenceLevel = "poor"
)

// ProgressAnalysis summarizes a control visit.
type ProgressAnalysis struct {
	WeightChangeKG      float64        `json:"weight_change"`
	WeightChangePercent float64        `json:"weight_change_percentage"`
	WeeklyChangeKG      float64        `json:"weekly_change"`
	Status              ProgressStatus `json:"progress_status"`
	Message             string         `json:"status_message"`
	Adherence           AdherenceLevel `json:"adherence_level"`
	CurrentBMI          float64        `json:"current_bmi"`
	BMICategory         BMICategory    `json:"bmi_category"`
	IssuesReported      bool           `json:"issues_reported"`
	ChangesRequested    bool           `json:"changes_requested"`
	Recommendations     []string       `json:"recommendations"`
	NextControlDays     int            `json:"next_control_days"`
}

// AnalyzeProgress classifies the weight trend and adherence of a control visit
// and derives recommendations and the next control interval.
func AnalyzeProgress(v ControlVisit) ProgressAnalysis {
	days := max(v.DaysOnPlan, 1)
	change := v.WeightChange()
	weekly := round2(change / float64(days) * 7)

	status := classifyProgress(change, weekly)
	adherence := classifyAdherence(v.AdherencePercent())
	bmi := BMI(v.UpdatedProfile())

	return ProgressAnalysis{
		WeightChangeKG:      change,
		WeightChangePercent: v.WeightChangePercent(),
		WeeklyChangeKG:      weekly,
		Status:              status,
		Message:             progressMessages[status],
		Adherence:           adherence,
		CurrentBMI:          bmi,
		BMICategory:         CategorizeBMI(bmi),
		IssuesReported:      len(v.ReportedIssues) > 0,
		ChangesRequested:    len(v.RequestedChanges) > 0,
		Recommendations:     progressRecommendations(v, status, adherence),
		NextControlDays:     nextControlDays(v, status, adherence),
	}
}

func classifyProgress(change, weekly float64) ProgressStatus {
	switch {
	case change < 0 && weekly < -1:
		return ProgressRapidLoss
	case change < 0 && weekly < -0.5:
		return ProgressGoodLoss
	case change < 0:
		return ProgressSlowLoss
	case change > 0 && weekly > 0.5:
		return ProgressRapidGain
	case change > 0:
		return ProgressModerateGain
	default:
		return ProgressStable
	}
}

func classifyAdherence(pct float64) AdherenceLevel {
	switch {
	case pct >= 90:
		return AdherenceExcellent
	case pct >= 70:
		return AdherenceGood
	case pct >= 50:
		return AdherenceModerate
	default:
		return AdherencePoor
	}
}

func progressRecommendations(v ControlVisit, status ProgressStatus, adherence AdherenceLevel) []string {
	var out []string
	switch status {
	case ProgressRapidLoss:
		out = append(out, "Increase caloric intake by 200-300 kcal/day", "Ensure adequate protein intake to preserve muscle mass")
	case ProgressSlowLoss:
		out = append(out, "Review portion sizes and ensure accurate tracking", "Consider increasing physical activity")
	case ProgressRapidGain:
		out = append(out, "Reduce caloric intake by 200-300 kcal/day", "Focus on nutrient-dense, lower-calorie foods")
	}

	switch adherence {
	case AdherencePoor:
		out = append(out, "Simplify meal preparation with batch cooking", "Consider meal prep services or simpler recipes")
	case AdherenceModerate:
		out = append(out, "Identify specific challenges with plan adherence", "Consider flexibility in meal timing or choices")
	}

	issues := strings.ToLower(strings.Join(v.ReportedIssues, " "))
	if strings.Contains(issues, "hunger") || strings.Contains(issues, "hambre") {
		out = append(out, "Increase fiber and protein content in meals", "Add healthy snacks between meals")
	}
	if strings.Contains(issues, "fatigue") || strings.Contains(issues, "cansancio") {
		out = append(out, "Ensure adequate iron and B-vitamin intake", "Review meal timing for energy optimization")
	}

	if len(v.NewPathologies) > 0 {
		out = append(out, "Adjust plan for new medical conditions", "Consult with medical team for specific restrictions")
	}
	return out
}

func nextControlDays(v ControlVisit, status ProgressStatus, adherence AdherenceLevel) int {
	switch {
	case status == ProgressRapidLoss || status == ProgressRapidGain:
		return 7
	case adherence == AdherencePoor:
		return 10
	case len(v.NewPathologies) > 0 || len(v.NewMedications) > 0:
		return 14
	default:
		return 21
	}
}

// CalorieAdjustment returns the daily kcal delta for the next plan.
func CalorieAdjustment(status ProgressStatus) float64 {
	return calorieAdjustments[status]
}

// PlanAdjustments lists the changes the next plan makes for this visit.
func PlanAdjustments(v ControlVisit, status ProgressStatus) []string {
	var out []string
	if delta := CalorieAdjustment(status); delta != 0 {
		out = append(out, fmt.Sprintf("Daily calories %+.0f kcal (%s)", delta, status))
	}

	issues := strings.ToLower(strings.Join(v.ReportedIssues, " "))
	if strings.Contains(issues, "hunger") || strings.Contains(issues, "hambre") {
		out = append(out, "Added more high-fiber foods for satiety", "Increased protein portions")
	}
	if strings.Contains(issues, "fatigue") || strings.Contains(issues, "cansancio") {
		out = append(out, "Added iron-rich foods", "Improved meal timing for energy")
	}
	if len(v.NewPathologies) > 0 {
		out = append(out, "Adapted for new conditions: "+strings.Join(v.NewPathologies, ", "))
	}
	for _, r := range v.RequestedChanges {
		out = append(out, "Accommodated request: "+r)
	}
	return out
}

// AdjustTargets shifts the daily calories by delta and recomputes the macro
// split and grams at the new total. BMR and TDEE are kept.
func AdjustTargets(p nutriplan.PatientProfile, t nutriplan.NutritionTargets, delta float64) nutriplan.NutritionTargets {
	if delta == 0 {
		return t
	}
	daily := max(t.DailyCalories+int(math.Round(delta)), 0)
	split := MacroDistribution(p, daily)
	t.DailyCalories = daily
	t.Split = split
	t.Grams = gramsFor(daily, split)
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
