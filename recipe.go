package nutriplan

import "strings"

// Document is a single hit returned by a Retriever.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

// Recipe is a normalized corpus record. The core never mutates recipes.
type Recipe struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Slots        []Slot       `json:"meal_types"`
	Calories     float64      `json:"calories"`
	Ingredients  []string     `json:"ingredients"`
	Preparation  string       `json:"preparation,omitempty"`
	EconomicTier EconomicTier `json:"economic_level"`
	Content      string       `json:"content,omitempty"`
	Macros       *Macros      `json:"macros,omitempty"`
}

func (r Recipe) HasSlot(slot Slot) bool {
	for _, s := range r.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Key is the lower-cased, trimmed name used for index lookups.
func (r Recipe) Key() string { return NameKey(r.Name) }

// SearchText is the lower-cased text restriction and preference terms are matched against.
func (r Recipe) SearchText() string {
	parts := make([]string, 0, len(r.Ingredients)+2)
	parts = append(parts, r.Name)
	parts = append(parts, r.Ingredients...)
	parts = append(parts, r.Content)
	return strings.ToLower(strings.Join(parts, " "))
}

func NameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// ScoredCandidate is an admissible recipe with its ranking score. Rank is the
// position the recipe had in the retrieval results.
type ScoredCandidate struct {
	Recipe Recipe  `json:"recipe"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

// CandidateSet maps every requested slot to its ranked candidates (possibly empty).
type CandidateSet map[Slot][]ScoredCandidate

func (c CandidateSet) Count() int {
	var n int
	for _, cands := range c {
		n += len(cands)
	}
	return n
}
