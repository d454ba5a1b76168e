package nutrition

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"nutriplan"
)

type BMICategory string

const (
	BMIUnderweight BMICategory = "underweight"
	BMINormal      BMICategory = "normal"
	BMIOverweight  BMICategory = "overweight"
	BMIObese       BMICategory = "obese"
)

var exerciseRecommendations = map[nutriplan.ActivityLevel]string{
	nutriplan.ActivitySedentary:  "Start with 30 minutes of light walking daily",
	nutriplan.ActivityLight:      "Maintain 30-45 minutes of moderate exercise 3-4 times/week",
	nutriplan.ActivityModerate:   "Continue with 45-60 minutes of exercise 4-5 times/week",
	nutriplan.ActivityActive:     "Maintain current activity level with variety in exercises",
	nutriplan.ActivityVeryActive: "Ensure adequate rest and recovery between intense sessions",
}

const (
	hydrationRecommendation = "8-10 glasses of water daily"
	manyAllergies           = 5
)

// BMI returns kg/m² rounded to two decimals. Zero height yields zero.
func BMI(p nutriplan.PatientProfile) float64 {
	if p.HeightCM <= 0 {
		return 0
	}
	m := p.HeightCM / 100
	return math.Round(p.WeightKG/(m*m)*100) / 100
}

func CategorizeBMI(bmi float64) BMICategory {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// ActivityFromFrequency derives an activity level from the kind of activity and
// how many times per week it is practiced.
func ActivityFromFrequency(activityType string, timesPerWeek int) nutriplan.ActivityLevel {
	switch {
	case strings.EqualFold(strings.TrimSpace(activityType), "sedentario"):
		return nutriplan.ActivitySedentary
	case timesPerWeek <= 2:
		return nutriplan.ActivityLight
	case timesPerWeek <= 4:
		return nutriplan.ActivityModerate
	case timesPerWeek <= 5:
		return nutriplan.ActivityActive
	default:
		return nutriplan.ActivityVeryActive
	}
}

func ExerciseRecommendation(level nutriplan.ActivityLevel) string {
	if r, ok := exerciseRecommendations[level]; ok {
		return r
	}
	return "Consult with a fitness professional"
}

// ProfileReport is the outcome of checking a profile before planning.
type ProfileReport struct {
	Valid           bool                    `json:"valid"`
	Errors          []string                `json:"errors,omitempty"`
	Warnings        []string                `json:"warnings,omitempty"`
	BMI             float64                 `json:"bmi"`
	BMICategory     BMICategory             `json:"bmi_category"`
	ActivityLevel   nutriplan.ActivityLevel `json:"activity_level"`
	Recommendations map[string]string       `json:"recommendations"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("multiple5", func(fl validator.FieldLevel) bool {
			return fl.Field().Int()%5 == 0
		})
		validate = v
	})
	return validate
}

// ValidateProfile range-checks the profile and collects planning warnings.
// Out-of-range fields are reported as errors; the profile itself is not changed.
func ValidateProfile(p nutriplan.PatientProfile) ProfileReport {
	level := p.ActivityLevel
	if level == "" {
		level = ActivityFromFrequency(p.ActivityType, p.ActivityFrequency)
	}

	bmi := BMI(p)
	report := ProfileReport{
		BMI:           bmi,
		BMICategory:   CategorizeBMI(bmi),
		ActivityLevel: level,
		Recommendations: map[string]string{
			"meals_per_day": fmt.Sprintf("%d", mealsPerDay(p)),
			"hydration":     hydrationRecommendation,
			"exercise":      ExerciseRecommendation(level),
		},
	}

	if err := profileValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				report.Errors = append(report.Errors, describeFieldError(fe))
			}
		} else {
			report.Errors = append(report.Errors, err.Error())
		}
	}

	switch {
	case bmi > 0 && bmi < 18.5:
		report.Warnings = append(report.Warnings, "Patient is underweight. Plan will focus on healthy weight gain.")
	case bmi > 30:
		report.Warnings = append(report.Warnings, "Patient is obese. Plan will focus on gradual weight loss.")
	}
	if len(p.Allergies) > manyAllergies {
		report.Warnings = append(report.Warnings, "Multiple allergies detected. Recipe selection may be limited.")
	}
	switch {
	case p.Age > 0 && p.Age < 18:
		report.Warnings = append(report.Warnings, "Patient is under 18. Nutritional needs for growth will be considered.")
	case p.Age > 65:
		report.Warnings = append(report.Warnings, "Patient is over 65. Age-specific nutritional needs will be considered.")
	}

	report.Valid = len(report.Errors) == 0
	return report
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "multiple5":
		return fmt.Sprintf("%s must be a multiple of 5", fe.Namespace())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Namespace(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
}

func mealsPerDay(p nutriplan.PatientProfile) int {
	if _, ok := slotSets[p.MealsPerDay]; ok {
		return p.MealsPerDay
	}
	return defaultSlotCount
}
