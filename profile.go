package nutriplan

import "strings"

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// Objective is the weight goal, expressed as a weekly rate for loss and gain.
type Objective string

const (
	ObjectiveMaintain Objective = "mantenimiento"
	ObjectiveLose025  Objective = "bajar_025"
	ObjectiveLose05   Objective = "bajar_05"
	ObjectiveLose075  Objective = "bajar_075"
	ObjectiveLose1    Objective = "bajar_1"
	ObjectiveGain025  Objective = "subir_025"
	ObjectiveGain05   Objective = "subir_05"
	ObjectiveGain075  Objective = "subir_075"
	ObjectiveGain1    Objective = "subir_1"
)

func (o Objective) IsLoss() bool { return strings.HasPrefix(string(o), "bajar_") }
func (o Objective) IsGain() bool { return strings.HasPrefix(string(o), "subir_") }

// ProteinLevel selects a grams-per-kg protein intensity.
type ProteinLevel string

const (
	ProteinVeryLow  ProteinLevel = "muy_baja"
	ProteinStandard ProteinLevel = "conservada"
	ProteinModerate ProteinLevel = "moderada"
	ProteinHigh     ProteinLevel = "alta"
	ProteinVeryHigh ProteinLevel = "muy_alta"
	ProteinExtreme  ProteinLevel = "extrema"
)

type EconomicTier string

const (
	EconomicUnrestricted EconomicTier = "sin_restricciones"
	EconomicMedium       EconomicTier = "medio"
	EconomicLimited      EconomicTier = "limitado"
	EconomicLow          EconomicTier = "bajo_recursos"
)

// DistributionPolicy controls how daily targets are split across meal slots.
type DistributionPolicy string

const (
	DistributionTraditional DistributionPolicy = "traditional"
	DistributionEquitable   DistributionPolicy = "equitable"
)

// MacroOverrides are optional nutritionist-supplied adjustments to the macro split.
// Percentages are whole numbers (45 means 45%).
type MacroOverrides struct {
	ProteinLevel *ProteinLevel `json:"protein_level,omitempty"`
	CarbsPercent *int          `json:"carbs_percentage,omitempty" validate:"omitempty,min=5,max=65,multiple5"`
	FatPercent   *int          `json:"fat_percentage,omitempty" validate:"omitempty,min=15,max=45"`
}

// IsSet reports whether any override is present.
func (m MacroOverrides) IsSet() bool {
	return m.ProteinLevel != nil || m.CarbsPercent != nil || m.FatPercent != nil
}

// PatientProfile holds everything collected about a patient for one planning request.
type PatientProfile struct {
	Name              string             `json:"name,omitempty" validate:"max=100"`
	Age               int                `json:"age" validate:"min=1,max=120"`
	Sex               Sex                `json:"sex"`
	HeightCM          float64            `json:"height" validate:"gt=0,max=300"`
	WeightKG          float64            `json:"weight" validate:"gt=0,max=500"`
	ActivityLevel     ActivityLevel      `json:"activity_level,omitempty"`
	ActivityType      string             `json:"activity_type,omitempty"`
	ActivityFrequency int                `json:"activity_frequency,omitempty" validate:"min=0,max=7"`
	Objective         Objective          `json:"objective,omitempty"`
	Macros            MacroOverrides     `json:"macros,omitempty"`
	Pathologies       []string           `json:"pathologies,omitempty"`
	Allergies         []string           `json:"allergies,omitempty"`
	Preferences       []string           `json:"food_preferences,omitempty"`
	Dislikes          []string           `json:"food_dislikes,omitempty"`
	EconomicTier      EconomicTier       `json:"economic_level,omitempty"`
	MealsPerDay       int                `json:"meals_per_day,omitempty" validate:"omitempty,min=3,max=6"`
	Distribution      DistributionPolicy `json:"distribution_type,omitempty"`
}
