package retrieval

import (
	"slices"
	"strings"

	"nutriplan"
)

// pathologyRestrictions maps a pathology fragment to foods that must be avoided.
// The order is the match order; the first fragment found in a pathology wins.
var pathologyRestrictions = []struct {
	condition string
	foods     []string
}{
	{"diabetes", []string{"azúcar", "dulce", "mermelada", "miel"}},
	{"hipertensión", []string{"sal", "embutido", "fiambre", "snack"}},
	{"hipertension", []string{"sal", "embutido", "fiambre", "snack"}},
	{"colesterol", []string{"manteca", "grasa", "fritura", "yema"}},
	{"celíaco", []string{"gluten", "trigo", "harina", "pan"}},
	{"celiaco", []string{"gluten", "trigo", "harina", "pan"}},
	{"gota", []string{"mariscos", "vísceras", "anchoas"}},
	{"renal", []string{"sal", "potasio", "fósforo"}},
}

// PathologyRestrictions returns the foods to avoid for a pathology, or nil.
func PathologyRestrictions(pathology string) []string {
	p := strings.ToLower(pathology)
	for _, r := range pathologyRestrictions {
		if strings.Contains(p, r.condition) {
			return r.foods
		}
	}
	return nil
}

// CombineRestrictions merges dislikes, allergies and pathology restrictions into a
// lower-cased, de-duplicated, sorted list.
func CombineRestrictions(p nutriplan.PatientProfile) []string {
	terms := make([]string, 0, len(p.Dislikes)+len(p.Allergies)+4*len(p.Pathologies))
	terms = append(terms, p.Dislikes...)
	terms = append(terms, p.Allergies...)
	for _, path := range p.Pathologies {
		terms = append(terms, PathologyRestrictions(path)...)
	}
	return normalizeTerms(terms)
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Excluded reports the first restriction term found in the recipe text.
func Excluded(r nutriplan.Recipe, restrictions []string) (string, bool) {
	text := r.SearchText()
	for _, term := range restrictions {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}
