package nutriplan

const (
	KcalPerGramCarbs   = 4.0
	KcalPerGramProtein = 4.0
	KcalPerGramFat     = 9.0
)

// MacroSplit is a macro distribution expressed as fractions of total calories.
type MacroSplit struct {
	Carbs   float64 `json:"carbs"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
}

func (m MacroSplit) Sum() float64 { return m.Carbs + m.Protein + m.Fat }

// Macros holds gram amounts per macro.
type Macros struct {
	Carbs   float64 `json:"carbohydrates"`
	Protein float64 `json:"proteins"`
	Fat     float64 `json:"fats"`
}

// Kcal returns the energy carried by each macro, in the same field order.
func (m Macros) Kcal() Macros {
	return Macros{
		Carbs:   m.Carbs * KcalPerGramCarbs,
		Protein: m.Protein * KcalPerGramProtein,
		Fat:     m.Fat * KcalPerGramFat,
	}
}

func (m Macros) Scale(f float64) Macros {
	return Macros{Carbs: m.Carbs * f, Protein: m.Protein * f, Fat: m.Fat * f}
}

// NutritionTargets are the daily requirements derived from a PatientProfile.
type NutritionTargets struct {
	BMR           float64    `json:"bmr"`
	TDEE          float64    `json:"tdee"`
	DailyCalories int        `json:"daily_calories"`
	Split         MacroSplit `json:"split"`
	Grams         Macros     `json:"grams"`
}

// Slot identifies a meal occasion. Values match the corpus meal_types tags.
type Slot string

const (
	SlotBreakfast      Slot = "desayuno"
	SlotMorningSnack   Slot = "colacion_am"
	SlotLunch          Slot = "almuerzo"
	SlotAfternoonSnack Slot = "merienda"
	SlotDinner         Slot = "cena"
	SlotEveningSnack   Slot = "colacion_pm"
)

// SlotTarget is one slot's share of the daily targets.
type SlotTarget struct {
	Slot     Slot    `json:"slot"`
	Share    float64 `json:"share"`
	Calories float64 `json:"calories"`
	Grams    Macros  `json:"grams"`
}

// MealAllocation distributes daily targets over the ordered slots of a day.
type MealAllocation struct {
	Policy DistributionPolicy `json:"policy"`
	Slots  []SlotTarget       `json:"slots"`
}

func (a MealAllocation) SlotIDs() []Slot {
	out := make([]Slot, 0, len(a.Slots))
	for _, s := range a.Slots {
		out = append(out, s.Slot)
	}
	return out
}

func (a MealAllocation) Target(slot Slot) (SlotTarget, bool) {
	for _, s := range a.Slots {
		if s.Slot == slot {
			return s, true
		}
	}
	return SlotTarget{}, false
}

func (a MealAllocation) TotalShare() float64 {
	var sum float64
	for _, s := range a.Slots {
		sum += s.Share
	}
	return sum
}
