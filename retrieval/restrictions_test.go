package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nutriplan"
)

func TestPathologyRestrictions(t *testing.T) {
	tests := []struct {
		pathology string
		expected  []string
	}{
		{"Diabetes tipo 2", []string{"azúcar", "dulce", "mermelada", "miel"}},
		{"Hipertensión arterial", []string{"sal", "embutido", "fiambre", "snack"}},
		{"hipertension", []string{"sal", "embutido", "fiambre", "snack"}},
		{"Colesterol alto", []string{"manteca", "grasa", "fritura", "yema"}},
		{"celiaco", []string{"gluten", "trigo", "harina", "pan"}},
		{"Gota", []string{"mariscos", "vísceras", "anchoas"}},
		{"insuficiencia renal", []string{"sal", "potasio", "fósforo"}},
		{"asma", nil},
	}

	for _, tt := range tests {
		t.Run(tt.pathology, func(t *testing.T) {
			assert.Equal(t, tt.expected, PathologyRestrictions(tt.pathology))
		})
	}
}

func TestCombineRestrictions(t *testing.T) {
	p := nutriplan.PatientProfile{
		Dislikes:    []string{"Hígado", " sal "},
		Allergies:   []string{"Maní", "hígado"},
		Pathologies: []string{"Hipertensión", "renal"},
	}

	assert.Equal(t,
		[]string{"embutido", "fiambre", "fósforo", "hígado", "maní", "potasio", "sal", "snack"},
		CombineRestrictions(p),
	)
	assert.Empty(t, CombineRestrictions(nutriplan.PatientProfile{}))
}

func TestExcluded(t *testing.T) {
	r := nutriplan.Recipe{Name: "Tostadas con palta", Ingredients: []string{"pan integral", "palta"}}

	term, ok := Excluded(r, []string{"maní", "PAN"})
	assert.True(t, ok)
	assert.Equal(t, "pan", term)

	_, ok = Excluded(r, []string{"huevo"})
	assert.False(t, ok)
}
