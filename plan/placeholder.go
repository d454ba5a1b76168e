package plan

import (
	"fmt"

	"nutriplan"
)

// Placeholder builds one stand-in meal per allocated slot, sized to the slot's
// calories and split with the day's macro distribution.
func Placeholder(targets nutriplan.NutritionTargets, alloc nutriplan.MealAllocation) []nutriplan.MealSelection {
	out := make([]nutriplan.MealSelection, 0, len(alloc.Slots))
	for _, st := range alloc.Slots {
		kcal := st.Calories
		out = append(out, nutriplan.MealSelection{
			Slot:        st.Slot,
			Name:        fmt.Sprintf("Placeholder %s", st.Slot),
			Ingredients: []string{"Ingrediente 1", "Ingrediente 2"},
			Preparation: "Preparación de prueba",
			Calories:    kcal,
			Macros: nutriplan.Macros{
				Carbs:   kcal * targets.Split.Carbs / nutriplan.KcalPerGramCarbs,
				Protein: kcal * targets.Split.Protein / nutriplan.KcalPerGramProtein,
				Fat:     kcal * targets.Split.Fat / nutriplan.KcalPerGramFat,
			},
			Origin: nutriplan.OriginPlaceholder,
		})
	}
	return out
}
