package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
	"nutriplan/storage"
)

const corpusJSON = `[
	{"id": "a", "content": "Avena con banana para el desayuno", "metadata": {"type": "recipe", "recipe_name": "Avena con banana", "meal_types": "[\"desayuno\"]", "calories": 400}},
	{"id": "b", "content": "Tostadas integrales", "metadata": {"type": "recipe", "recipe_name": "Tostadas", "meal_types": ["desayuno", "merienda"], "calories": 300}},
	{"id": "c", "content": "Milanesa con ensalada", "metadata": {"type": "recipe", "recipe_name": "Milanesa", "meal_type": "almuerzo", "calories": 750}},
	{"id": "d", "content": "Tabla de equivalencias", "metadata": {"type": "equivalence"}}
]`

func TestCorpus_Load(t *testing.T) {
	t.Run("loads documents", func(t *testing.T) {
		c := NewCorpus(storage.NewTestCorpusState([]byte(corpusJSON)))
		require.NoError(t, c.Load(context.Background()))
		assert.Equal(t, 4, c.Len())

		doc, ok := c.ByName("  MILANESA ")
		require.True(t, ok)
		assert.Equal(t, "c", doc.ID)
	})

	t.Run("state error", func(t *testing.T) {
		err := NewCorpus(storage.NewTestCorpusStateWithError()).Load(context.Background())
		assert.ErrorContains(t, err, "failed to load corpus")
	})

	t.Run("bad json", func(t *testing.T) {
		err := NewCorpus(storage.NewTestCorpusState([]byte(`{`))).Load(context.Background())
		assert.ErrorContains(t, err, "failed to decode corpus")
	})
}

func TestCorpus_Search(t *testing.T) {
	c := NewCorpus(storage.NewTestCorpusState([]byte(corpusJSON)))
	require.NoError(t, c.Load(context.Background()))

	tests := []struct {
		name     string
		query    string
		limit    int
		filters  map[string]string
		expected []string
	}{
		{
			name:     "type filter excludes non recipes",
			query:    "desayuno",
			limit:    10,
			filters:  map[string]string{"type": "recipe"},
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "list membership on json string and list",
			query:    "tostadas",
			limit:    10,
			filters:  map[string]string{"meal_types": "desayuno"},
			expected: []string{"b", "a"},
		},
		{
			name:     "limit",
			query:    "milanesa",
			limit:    1,
			filters:  nil,
			expected: []string{"c"},
		},
		{
			name:     "missing metadata key",
			query:    "cena",
			limit:    10,
			filters:  map[string]string{"season": "verano"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := c.Search(context.Background(), tt.query, tt.limit, tt.filters)
			require.NoError(t, err)

			ids := make([]string, 0, len(docs))
			for _, d := range docs {
				ids = append(ids, d.ID)
				assert.GreaterOrEqual(t, d.Distance, 0.0)
				assert.LessOrEqual(t, d.Distance, 1.0)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestCorpus_FeedsFinder(t *testing.T) {
	c := NewCorpusFromDocuments([]nutriplan.Document{
		recipeDoc("m1", "Tostadas con palta", 350, `["merienda"]`, nil),
		recipeDoc("m2", "Licuado de frutas", 320, `["merienda"]`, nil),
		recipeDoc("l1", "Milanesa", 700, `["almuerzo"]`, nil),
	})

	got, err := NewFinder(c, DefaultWeights()).FindCandidates(context.Background(), Criteria{
		Slot:           nutriplan.SlotAfternoonSnack,
		TargetCalories: 300,
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Licuado de frutas", got[0].Recipe.Name)
}

func TestCorpus_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCorpusFromDocuments(nil).Search(ctx, "cena", 5, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
