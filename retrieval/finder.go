package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"nutriplan"
)

const (
	DefaultTolerance  = 0.2
	DefaultMaxResults = 10

	searchLimit = 50
)

// BaseFilters are applied to every corpus query.
var BaseFilters = map[string]string{"type": "recipe"}

var slotQueries = map[nutriplan.Slot][]string{
	nutriplan.SlotBreakfast:      {"desayuno", "breakfast", "mañana"},
	nutriplan.SlotLunch:          {"almuerzo", "lunch", "mediodía"},
	nutriplan.SlotAfternoonSnack: {"merienda", "snack", "té"},
	nutriplan.SlotDinner:         {"cena", "dinner", "noche"},
	nutriplan.SlotMorningSnack:   {"colacion", "snack", string(nutriplan.SlotMorningSnack)},
	nutriplan.SlotEveningSnack:   {"colacion", "snack", string(nutriplan.SlotEveningSnack)},
}

// SlotQueries returns the synonym queries issued for a slot.
func SlotQueries(slot nutriplan.Slot) []string {
	if q, ok := slotQueries[slot]; ok {
		return q
	}
	return []string{string(slot)}
}

// Criteria describes what a slot needs.
type Criteria struct {
	Slot           nutriplan.Slot
	TargetCalories float64
	Tolerance      float64
	Restrictions   []string
	Allergies      []string
	Preferences    []string
	EconomicTier   nutriplan.EconomicTier
	MaxResults     int
}

func (c Criteria) withDefaults() Criteria {
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.EconomicTier == "" {
		c.EconomicTier = nutriplan.EconomicMedium
	}
	return c
}

// CalorieWindow is the inclusive range of admissible recipe calories.
func (c Criteria) CalorieWindow() (float64, float64) {
	c = c.withDefaults()
	return c.TargetCalories * (1 - c.Tolerance), c.TargetCalories * (1 + c.Tolerance)
}

// ScoreWeights are the bonuses added to Base when ranking candidates.
type ScoreWeights struct {
	Base           float64
	PerPreference  float64
	PreferenceCap  float64
	TierMatch      float64
	Proximity      float64
	HasPreparation float64
	RichIngredient float64
	HasMacros      float64
}

func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Base:           100,
		PerPreference:  15,
		PreferenceCap:  50,
		TierMatch:      20,
		Proximity:      30,
		HasPreparation: 5,
		RichIngredient: 5,
		HasMacros:      10,
	}
}

// Finder retrieves, filters and ranks recipes for a single slot.
type Finder struct {
	retriever nutriplan.Retriever
	weights   ScoreWeights
}

func NewFinder(retriever nutriplan.Retriever, weights ScoreWeights) *Finder {
	return &Finder{retriever: retriever, weights: weights}
}

// FindCandidates returns the admissible recipes for the criteria, best first.
// Every returned recipe is tagged for the slot, inside the calorie window and
// free of every restriction and allergy term.
func (f *Finder) FindCandidates(ctx context.Context, c Criteria) ([]nutriplan.ScoredCandidate, error) {
	c = c.withDefaults()

	docs, err := f.retrieve(ctx, c.Slot)
	if err != nil {
		return nil, err
	}

	lo, hi := c.CalorieWindow()
	excluded := normalizeTerms(append(append([]string(nil), c.Restrictions...), c.Allergies...))

	out := make([]nutriplan.ScoredCandidate, 0, len(docs))
	for rank, doc := range docs {
		r := ToRecipe(doc)
		if !r.HasSlot(c.Slot) {
			continue
		}
		if r.Calories < lo || r.Calories > hi {
			continue
		}
		if term, ok := Excluded(r, excluded); ok {
			slog.Debug("RETRIEVAL: recipe excluded", "recipe", r.Name, "term", term)
			continue
		}
		out = append(out, nutriplan.ScoredCandidate{
			Recipe: r,
			Score:  f.Score(r, c),
			Rank:   rank,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > c.MaxResults {
		out = out[:c.MaxResults]
	}

	slog.Debug("RETRIEVAL: candidates found",
		"slot", c.Slot,
		"retrieved", len(docs),
		"candidates", len(out),
		"min_kcal", lo,
		"max_kcal", hi,
	)
	return out, nil
}

// retrieve runs every synonym query for the slot and de-duplicates by id,
// keeping first-seen order.
func (f *Finder) retrieve(ctx context.Context, slot nutriplan.Slot) ([]nutriplan.Document, error) {
	var (
		docs []nutriplan.Document
		seen = make(map[string]struct{})
	)
	for _, q := range SlotQueries(slot) {
		hits, err := f.retriever.Search(ctx, q, searchLimit, BaseFilters)
		if err != nil {
			return nil, fmt.Errorf("failed to search recipes for %s with query %q: %w", slot, q, err)
		}
		for _, h := range hits {
			id := h.ID
			if id == "" {
				id = h.Content
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			docs = append(docs, h)
		}
	}
	return docs, nil
}

// Score ranks an admissible recipe. Proximity decays linearly to zero at the
// edge of the calorie window.
func (f *Finder) Score(r nutriplan.Recipe, c Criteria) float64 {
	c = c.withDefaults()
	w := f.weights
	score := w.Base

	if len(c.Preferences) > 0 {
		text := r.SearchText()
		var matches int
		for _, p := range c.Preferences {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(text, p) {
				matches++
			}
		}
		score += math.Min(w.PerPreference*float64(matches), w.PreferenceCap)
	}

	if r.EconomicTier == c.EconomicTier {
		score += w.TierMatch
	}

	if r.Calories > 0 && c.TargetCalories > 0 {
		relErr := math.Abs(r.Calories-c.TargetCalories) / c.TargetCalories
		score += w.Proximity * math.Max(0, 1-relErr/c.Tolerance)
	}

	if r.Preparation != "" {
		score += w.HasPreparation
	}
	if len(r.Ingredients) > 2 {
		score += w.RichIngredient
	}
	if r.Macros != nil {
		score += w.HasMacros
	}
	return score
}
