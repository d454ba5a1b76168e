package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nutriplan"
)

var (
	ErrInvalidJSON       = errors.New("generated plan is not valid JSON")
	ErrUnrecognizedShape = errors.New("generated plan has an unrecognized shape")
	ErrNoMeals           = errors.New("generated plan contains no meals")
)

// Shape is the layout a generated plan arrived in. It is one of FlatMeals,
// SlotOptions or DayMeals.
type Shape interface {
	drafts() []Draft
	Name() string
}

// FlatMeals is a plain list of meals, each carrying its own meal type.
type FlatMeals struct {
	Key   string
	Meals []rawMeal
}

// SlotOptions is meal_plan.<slot>.opciones; the first option of each slot is used.
type SlotOptions struct {
	Slots []slotMeal
}

// DayMeals is days[0].meals, either a list or an object keyed by slot.
type DayMeals struct {
	Meals []slotMeal
}

type slotMeal struct {
	Slot nutriplan.Slot
	Meal rawMeal
}

func (s FlatMeals) Name() string   { return "flat:" + s.Key }
func (s SlotOptions) Name() string { return "slot_options" }
func (s DayMeals) Name() string    { return "day_meals" }

func (s FlatMeals) drafts() []Draft {
	out := make([]Draft, 0, len(s.Meals))
	for _, m := range s.Meals {
		out = append(out, m.draft(""))
	}
	return out
}

func (s SlotOptions) drafts() []Draft { return slotDrafts(s.Slots) }
func (s DayMeals) drafts() []Draft    { return slotDrafts(s.Meals) }

func slotDrafts(meals []slotMeal) []Draft {
	out := make([]Draft, 0, len(meals))
	for _, m := range meals {
		out = append(out, m.Meal.draft(m.Slot))
	}
	return out
}

// Plan is a normalized generated plan: at most one draft per slot, in the
// order the slots first appeared.
type Plan struct {
	Shape  Shape
	Drafts []Draft
}

// Draft returns the draft for a slot.
func (p Plan) Draft(slot nutriplan.Slot) (Draft, bool) {
	for _, d := range p.Drafts {
		if d.Slot == slot {
			return d, true
		}
	}
	return Draft{}, false
}

// Parse extracts, decodes and normalizes a generated plan. A later meal for an
// already seen slot replaces the earlier one.
func Parse(raw string) (Plan, error) {
	body, err := ExtractJSON(raw)
	if err != nil {
		return Plan{}, err
	}

	shape, err := detect(body)
	if err != nil {
		return Plan{}, err
	}

	var (
		drafts []Draft
		index  = make(map[nutriplan.Slot]int)
	)
	for _, d := range shape.drafts() {
		if d.Slot == "" {
			continue
		}
		if i, ok := index[d.Slot]; ok {
			drafts[i] = d
			continue
		}
		index[d.Slot] = len(drafts)
		drafts = append(drafts, d)
	}
	if len(drafts) == 0 {
		return Plan{Shape: shape}, ErrNoMeals
	}
	return Plan{Shape: shape, Drafts: drafts}, nil
}

// ExtractJSON strips code fences and surrounding prose from generator output.
func ExtractJSON(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, ErrInvalidJSON
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return nil, ErrInvalidJSON
	}
	candidate := []byte(s[start : end+1])
	if !json.Valid(candidate) {
		return nil, ErrInvalidJSON
	}
	return candidate, nil
}

func detect(body []byte) (Shape, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var meals []rawMeal
		if err := json.Unmarshal(body, &meals); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
		}
		return FlatMeals{Meals: meals}, nil
	}

	keys, fields, err := orderedObject(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}

	if raw, ok := fields["meal_plan"]; ok {
		return slotOptions(raw)
	}
	if raw, ok := fields["days"]; ok {
		return dayMeals(raw)
	}
	for _, key := range []string{"meals", "day_meals"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if isObject(raw) {
			meals, err := keyedMeals(raw)
			if err != nil {
				return nil, err
			}
			return DayMeals{Meals: meals}, nil
		}
		var meals []rawMeal
		if err := json.Unmarshal(raw, &meals); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnrecognizedShape, key, err)
		}
		return FlatMeals{Key: key, Meals: meals}, nil
	}

	for _, key := range keys {
		var meals []rawMeal
		if err := json.Unmarshal(fields[key], &meals); err == nil && len(meals) > 0 {
			return FlatMeals{Key: key, Meals: meals}, nil
		}
	}
	return nil, ErrUnrecognizedShape
}

func slotOptions(raw json.RawMessage) (Shape, error) {
	keys, fields, err := orderedObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: meal_plan: %v", ErrUnrecognizedShape, err)
	}
	var out SlotOptions
	for _, key := range keys {
		var slot struct {
			Options []rawMeal `json:"opciones"`
		}
		if err := json.Unmarshal(fields[key], &slot); err != nil {
			return nil, fmt.Errorf("%w: meal_plan.%s: %v", ErrUnrecognizedShape, key, err)
		}
		if len(slot.Options) == 0 {
			continue
		}
		out.Slots = append(out.Slots, slotMeal{Slot: NormalizeMealType(key), Meal: slot.Options[0]})
	}
	return out, nil
}

func dayMeals(raw json.RawMessage) (Shape, error) {
	var days []struct {
		Meals json.RawMessage `json:"meals"`
	}
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("%w: days: %v", ErrUnrecognizedShape, err)
	}
	if len(days) == 0 || len(days[0].Meals) == 0 {
		return DayMeals{}, nil
	}

	first := days[0].Meals
	if isObject(first) {
		meals, err := keyedMeals(first)
		if err != nil {
			return nil, err
		}
		return DayMeals{Meals: meals}, nil
	}

	var list []rawMeal
	if err := json.Unmarshal(first, &list); err != nil {
		return nil, fmt.Errorf("%w: days[0].meals: %v", ErrUnrecognizedShape, err)
	}
	out := DayMeals{Meals: make([]slotMeal, 0, len(list))}
	for _, m := range list {
		out.Meals = append(out.Meals, slotMeal{Meal: m})
	}
	return out, nil
}

// keyedMeals decodes an object of slot -> meal, keeping key order.
func keyedMeals(raw json.RawMessage) ([]slotMeal, error) {
	keys, fields, err := orderedObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}
	out := make([]slotMeal, 0, len(keys))
	for _, key := range keys {
		var m rawMeal
		if err := json.Unmarshal(fields[key], &m); err != nil {
			return nil, fmt.Errorf("%w: meals.%s: %v", ErrUnrecognizedShape, key, err)
		}
		out = append(out, slotMeal{Slot: NormalizeMealType(key), Meal: m})
	}
	return out, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// orderedObject decodes a JSON object and also returns its keys in document order.
func orderedObject(raw []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected an object")
	}

	var keys []string
	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := fields[key]; !seen {
			keys = append(keys, key)
		}
		fields[key] = value
	}
	return keys, fields, nil
}
