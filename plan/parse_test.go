package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
)

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		shape     string
		slots     []nutriplan.Slot
		firstName string
	}{
		{
			name:      "flat meals list",
			raw:       `{"meals": [{"meal_type": "breakfast", "recipe_name": "Avena"}, {"meal_type": "Cena", "name": "Pollo grillado"}]}`,
			shape:     "flat:meals",
			slots:     []nutriplan.Slot{nutriplan.SlotBreakfast, nutriplan.SlotDinner},
			firstName: "Avena",
		},
		{
			name:      "day_meals list",
			raw:       `{"day_meals": [{"meal_type": "lunch", "name": "Milanesa"}]}`,
			shape:     "flat:day_meals",
			slots:     []nutriplan.Slot{nutriplan.SlotLunch},
			firstName: "Milanesa",
		},
		{
			name:      "first non-empty list",
			raw:       `{"notes": [], "plan": [{"meal_type": "merienda", "name": "Yogur"}], "other": [{"meal_type": "cena", "name": "X"}]}`,
			shape:     "flat:plan",
			slots:     []nutriplan.Slot{nutriplan.SlotAfternoonSnack},
			firstName: "Yogur",
		},
		{
			name:      "top level array",
			raw:       `[{"meal_type": "colacion_am", "name": "Fruta"}]`,
			shape:     "flat:",
			slots:     []nutriplan.Slot{nutriplan.SlotMorningSnack},
			firstName: "Fruta",
		},
		{
			name: "slot options takes the first option",
			raw: `{"meal_plan": {
				"desayuno": {"opciones": [{"nombre": "Tostadas con palta"}, {"nombre": "Avena"}]},
				"almuerzo": {"opciones": []},
				"cena": {"opciones": [{"name": "Pollo grillado"}]}
			}}`,
			shape:     "slot_options",
			slots:     []nutriplan.Slot{nutriplan.SlotBreakfast, nutriplan.SlotDinner},
			firstName: "Tostadas con palta",
		},
		{
			name:      "days with keyed meals",
			raw:       `{"days": [{"meals": {"almuerzo": {"name": "Guiso"}, "desayuno": {"name": "Mate cocido"}}}, {"meals": {}}]}`,
			shape:     "day_meals",
			slots:     []nutriplan.Slot{nutriplan.SlotLunch, nutriplan.SlotBreakfast},
			firstName: "Guiso",
		},
		{
			name:      "days with meal list",
			raw:       `{"days": [{"meals": [{"meal_type": "dinner", "name": "Sopa"}]}]}`,
			shape:     "day_meals",
			slots:     []nutriplan.Slot{nutriplan.SlotDinner},
			firstName: "Sopa",
		},
		{
			name:      "meals keyed by slot",
			raw:       `{"meals": {"cena": {"name": "Tarta"}}}`,
			shape:     "day_meals",
			slots:     []nutriplan.Slot{nutriplan.SlotDinner},
			firstName: "Tarta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.raw)
			require.NoError(t, err)

			assert.Equal(t, tt.shape, p.Shape.Name())
			slots := make([]nutriplan.Slot, 0, len(p.Drafts))
			for _, d := range p.Drafts {
				slots = append(slots, d.Slot)
			}
			assert.Equal(t, tt.slots, slots)
			assert.Equal(t, tt.firstName, p.Drafts[0].Name)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{"prose only", "Lo siento, no puedo generar el plan.", ErrInvalidJSON},
		{"broken json", `{"meals": [`, ErrInvalidJSON},
		{"no list anywhere", `{"status": "ok", "count": 3}`, ErrUnrecognizedShape},
		{"empty meals", `{"meals": []}`, ErrNoMeals},
		{"meals without types", `{"meals": [{"name": "Algo"}]}`, ErrNoMeals},
		{"empty days", `{"days": []}`, ErrNoMeals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParse_FieldFallbacks(t *testing.T) {
	raw := "Aquí está tu plan:\n```json\n" + `{"meals": [
		{
			"meal_type": "almuerzo",
			"name": "Pollo grillado",
			"ingredients": [{"alimento": "pollo", "cantidad": "150 g"}, "arroz"],
			"instructions": "Grillar el pollo.",
			"calories": "650 kcal",
			"carbohydrates": 60,
			"proteins": "45",
			"fats": 18.5
		},
		{
			"meal_type": "cena",
			"recipe_name": "Sopa de verduras",
			"ingredients": "zapallo, zanahoria",
			"calories": 400,
			"macros": {"carbs": 50, "protein": 10, "fat": 8}
		}
	]}` + "\n```\nBuen provecho."

	p, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, p.Drafts, 2)

	lunch, ok := p.Draft(nutriplan.SlotLunch)
	require.True(t, ok)
	assert.Equal(t, Draft{
		Slot:        nutriplan.SlotLunch,
		Name:        "Pollo grillado",
		Ingredients: []string{"pollo (150 g)", "arroz"},
		Preparation: "Grillar el pollo.",
		Calories:    650,
		Macros:      nutriplan.Macros{Carbs: 60, Protein: 45, Fat: 18.5},
	}, lunch)

	dinner, ok := p.Draft(nutriplan.SlotDinner)
	require.True(t, ok)
	assert.Equal(t, []string{"zapallo", "zanahoria"}, dinner.Ingredients)
	assert.Equal(t, nutriplan.Macros{Carbs: 50, Protein: 10, Fat: 8}, dinner.Macros)

	_, ok = p.Draft(nutriplan.SlotBreakfast)
	assert.False(t, ok)
}

func TestParse_SlotOptionsSpanishFields(t *testing.T) {
	p, err := Parse(`{"meal_plan": {"desayuno": {"opciones": [{
		"nombre": "Avena con banana",
		"ingredientes": [{"alimento": "Avena", "cantidad": "50g"}, {"alimento": "Banana", "cantidad": "1 unidad"}],
		"preparacion": "Cocinar la avena y agregar la banana.",
		"calorias": 350,
		"macros": {"carbohidratos_g": 55, "proteinas_g": 12, "grasas_g": 8}
	}]}}}`)
	require.NoError(t, err)

	breakfast, ok := p.Draft(nutriplan.SlotBreakfast)
	require.True(t, ok)
	assert.Equal(t, Draft{
		Slot:        nutriplan.SlotBreakfast,
		Name:        "Avena con banana",
		Ingredients: []string{"Avena (50g)", "Banana (1 unidad)"},
		Preparation: "Cocinar la avena y agregar la banana.",
		Calories:    350,
		Macros:      nutriplan.Macros{Carbs: 55, Protein: 12, Fat: 8},
	}, breakfast)
}

func TestParse_SpanishFlatMacros(t *testing.T) {
	p, err := Parse(`{"meals": [{"meal_type": "cena", "nombre": "Sopa", "carbohidratos": 30, "proteinas": "20", "grasas": 5}]}`)
	require.NoError(t, err)

	assert.Equal(t, nutriplan.Macros{Carbs: 30, Protein: 20, Fat: 5}, p.Drafts[0].Macros)
}

func TestParse_LaterMealReplacesEarlier(t *testing.T) {
	p, err := Parse(`{"meals": [
		{"meal_type": "cena", "name": "Primera"},
		{"meal_type": "desayuno", "name": "Avena"},
		{"meal_type": "dinner", "name": "Segunda"}
	]}`)
	require.NoError(t, err)

	require.Len(t, p.Drafts, 2)
	assert.Equal(t, nutriplan.SlotDinner, p.Drafts[0].Slot)
	assert.Equal(t, "Segunda", p.Drafts[0].Name)
}

func TestNormalizeMealType(t *testing.T) {
	tests := []struct {
		in       string
		expected nutriplan.Slot
	}{
		{"Breakfast", nutriplan.SlotBreakfast},
		{"desayuno", nutriplan.SlotBreakfast},
		{"LUNCH", nutriplan.SlotLunch},
		{"dinner", nutriplan.SlotDinner},
		{"snack", nutriplan.SlotAfternoonSnack},
		{"merienda", nutriplan.SlotAfternoonSnack},
		{"colacion_am", nutriplan.SlotMorningSnack},
		{"morning snack", nutriplan.SlotMorningSnack},
		{"colacion_pm", nutriplan.SlotEveningSnack},
		{"colación", nutriplan.SlotEveningSnack},
		{"colación de media mañana", nutriplan.SlotMorningSnack},
		{"Colación mañana", nutriplan.SlotMorningSnack},
		{"colacion manana", nutriplan.SlotMorningSnack},
		{"evening snack", nutriplan.SlotEveningSnack},
		{"brunch", "brunch"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeMealType(tt.in))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without language", "```\n[1, 2]\n```", `[1, 2]`},
		{"surrounding prose", `Plan: {"a": {"b": 2}} fin`, `{"a": {"b": 2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(got))
		})
	}
}

func TestPlaceholder(t *testing.T) {
	targets := nutriplan.NutritionTargets{
		DailyCalories: 2000,
		Split:         nutriplan.MacroSplit{Carbs: 0.40, Protein: 0.30, Fat: 0.30},
	}
	alloc := nutriplan.MealAllocation{Slots: []nutriplan.SlotTarget{
		{Slot: nutriplan.SlotBreakfast, Share: 0.25, Calories: 500},
		{Slot: nutriplan.SlotLunch, Share: 0.75, Calories: 1500},
	}}

	meals := Placeholder(targets, alloc)

	require.Len(t, meals, 2)
	assert.Equal(t, "Placeholder desayuno", meals[0].Name)
	assert.Equal(t, nutriplan.OriginPlaceholder, meals[0].Origin)
	assert.InDelta(t, 500, meals[0].Calories, 0.0001)
	assert.InDelta(t, 50, meals[0].Macros.Carbs, 0.0001)
	assert.InDelta(t, 37.5, meals[0].Macros.Protein, 0.0001)
	assert.InDelta(t, 16.6667, meals[0].Macros.Fat, 0.001)
	assert.True(t, meals[1].IsValid())
}
