package retrieval

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nutriplan"
)

// caloriesInText accepts dotted thousands ("1.200 kcal") and short decimals
// ("12,5 kcal").
var caloriesInText = regexp.MustCompile(`(?i)(?:(\d{1,3}(?:\.\d{3})+)|(\d+(?:[.,]\d{1,2})?))\s*(?:kcal|calorias|calorías)`)

// ToRecipe normalizes a retrieved document into a Recipe. Metadata keys vary
// across corpus generations so several spellings are accepted for each field.
func ToRecipe(doc nutriplan.Document) nutriplan.Recipe {
	md := doc.Metadata
	r := nutriplan.Recipe{
		ID:           doc.ID,
		Name:         firstString(md, "recipe_name", "name"),
		Calories:     caloriesOf(doc),
		Slots:        slotsOf(md),
		Ingredients:  ingredientsOf(md),
		Preparation:  firstString(md, "preparation", "preparacion"),
		EconomicTier: nutriplan.EconomicTier(firstString(md, "economic_level")),
		Content:      doc.Content,
		Macros:       macrosOf(md),
	}
	if r.Name == "" {
		r.Name = firstLine(doc.Content)
	}
	if r.EconomicTier == "" {
		r.EconomicTier = nutriplan.EconomicMedium
	}
	return r
}

func firstString(md map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := md[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstLine(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(strings.TrimLeft(line, "#*- "))
	return strings.TrimSpace(strings.TrimPrefix(line, "Receta:"))
}

func caloriesOf(doc nutriplan.Document) float64 {
	for _, k := range []string{"calories", "calorias"} {
		if v, ok := number(doc.Metadata[k]); ok {
			return v
		}
	}
	if m := caloriesInText.FindStringSubmatch(doc.Content); m != nil {
		if m[1] != "" {
			v, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ".", ""), 64)
			return v
		}
		v, _ := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
		return v
	}
	return 0
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func slotsOf(md map[string]any) []nutriplan.Slot {
	var raw []string
	switch v := md["meal_types"].(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			raw = splitList(v)
		}
	case []any:
		for _, item := range v {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = v
	}
	if len(raw) == 0 {
		if s, ok := md["meal_type"].(string); ok {
			raw = []string{s}
		}
	}

	out := make([]nutriplan.Slot, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, nutriplan.Slot(s))
		}
	}
	return out
}

func ingredientsOf(md map[string]any) []string {
	switch v := md["ingredients"].(type) {
	case string:
		var list []any
		if err := json.Unmarshal([]byte(v), &list); err == nil {
			return ingredientNames(list)
		}
		return splitList(v)
	case []any:
		return ingredientNames(v)
	case []string:
		return v
	}
	return nil
}

func ingredientNames(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch ing := item.(type) {
		case string:
			if s := strings.TrimSpace(ing); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if s := firstString(ing, "name", "alimento"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '|'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func macrosOf(md map[string]any) *nutriplan.Macros {
	src := md
	switch v := md["macros"].(type) {
	case map[string]any:
		src = v
	case string:
		var m map[string]any
		if json.Unmarshal([]byte(v), &m) == nil {
			src = m
		}
	}

	var (
		out   nutriplan.Macros
		found bool
	)
	if v, ok := firstNumber(src, "carbs", "carbohydrates", "carbohidratos"); ok {
		out.Carbs, found = v, true
	}
	if v, ok := firstNumber(src, "protein", "proteins", "proteinas"); ok {
		out.Protein, found = v, true
	}
	if v, ok := firstNumber(src, "fat", "fats", "grasas"); ok {
		out.Fat, found = v, true
	}
	if !found {
		return nil
	}
	return &out
}

func firstNumber(md map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := number(md[k]); ok {
			return v, true
		}
	}
	return 0, false
}
