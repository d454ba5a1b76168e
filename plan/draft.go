package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"nutriplan"
)

// Draft is one meal proposed by the generator. It is untrusted until validated.
type Draft struct {
	Slot        nutriplan.Slot   `json:"slot"`
	Name        string           `json:"name"`
	Ingredients []string         `json:"ingredients"`
	Preparation string           `json:"preparation"`
	Calories    float64          `json:"calories"`
	Macros      nutriplan.Macros `json:"macros"`
}

// NormalizeMealType maps the meal labels generators use onto slot ids.
// Unknown labels are returned lower-cased as-is.
func NormalizeMealType(mealType string) nutriplan.Slot {
	t := strings.ToLower(strings.TrimSpace(mealType))
	switch t {
	case "breakfast", "desayuno":
		return nutriplan.SlotBreakfast
	case "lunch", "almuerzo":
		return nutriplan.SlotLunch
	case "dinner", "cena":
		return nutriplan.SlotDinner
	case "snack", "merienda":
		return nutriplan.SlotAfternoonSnack
	}
	if strings.Contains(t, "colacion") || strings.Contains(t, "colación") || strings.Contains(t, "snack") {
		if strings.Contains(t, "am") || strings.Contains(t, "morning") ||
			strings.Contains(t, "mañana") || strings.Contains(t, "manana") {
			return nutriplan.SlotMorningSnack
		}
		return nutriplan.SlotEveningSnack
	}
	return nutriplan.Slot(t)
}

// rawMeal decodes the loosely-typed meal objects generators emit.
type rawMeal struct {
	MealType    string
	Name        string
	Ingredients []string
	Preparation string
	Calories    float64
	Macros      nutriplan.Macros
}

func (m *rawMeal) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	m.MealType = stringField(fields, "meal_type", "type", "slot")
	m.Name = stringField(fields, "recipe_name", "name", "nombre")
	m.Preparation = stringField(fields, "preparation", "instructions", "preparacion")
	m.Calories = numberField(fields, "calories", "calorias", "kcal")
	m.Ingredients = ingredientsField(fields["ingredients"])
	if len(m.Ingredients) == 0 {
		m.Ingredients = ingredientsField(fields["ingredientes"])
	}

	macros := fields
	if raw, ok := fields["macros"]; ok {
		var nested map[string]json.RawMessage
		if json.Unmarshal(raw, &nested) == nil {
			macros = nested
		}
	}
	m.Macros = nutriplan.Macros{
		Carbs:   numberField(macros, "carbs", "carbohydrates", "carbohidratos_g", "carbohidratos"),
		Protein: numberField(macros, "protein", "proteins", "proteinas_g", "proteinas", "proteínas"),
		Fat:     numberField(macros, "fat", "fats", "grasas_g", "grasas"),
	}
	return nil
}

func (m rawMeal) draft(slot nutriplan.Slot) Draft {
	if slot == "" {
		slot = NormalizeMealType(m.MealType)
	}
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = "Sin nombre"
	}
	return Draft{
		Slot:        slot,
		Name:        name,
		Ingredients: m.Ingredients,
		Preparation: m.Preparation,
		Calories:    m.Calories,
		Macros:      m.Macros,
	}
}

func stringField(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// numberField accepts numbers and numeric strings such as "450" or "450 kcal".
func numberField(fields map[string]json.RawMessage, keys ...string) float64 {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var f float64
		if json.Unmarshal(raw, &f) == nil {
			return f
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			s = strings.TrimSpace(s)
			if i := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); i > 0 {
				s = s[:i]
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func ingredientsField(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
			return nil
		}
		list = nil
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, json.RawMessage(strconv.Quote(part)))
			}
		}
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj map[string]json.RawMessage
		if json.Unmarshal(item, &obj) == nil {
			name := stringField(obj, "name", "alimento", "ingredient")
			if name == "" {
				continue
			}
			if qty := stringField(obj, "quantity", "cantidad"); qty != "" {
				name = fmt.Sprintf("%s (%s)", name, qty)
			}
			out = append(out, name)
		}
	}
	return out
}
