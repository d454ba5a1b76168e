package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"nutriplan"
	"nutriplan/storage"
)

// Corpus is an in-memory keyword retriever over a recipe corpus. Documents are
// ranked by the share of query terms found in their name, tags and content.
type Corpus struct {
	state storage.CorpusState

	mu    sync.RWMutex
	docs  []indexedDoc
	byKey map[string]int
}

type indexedDoc struct {
	doc   nutriplan.Document
	terms map[string]struct{}
}

func NewCorpus(state storage.CorpusState) *Corpus {
	return &Corpus{state: state}
}

// NewCorpusFromDocuments builds a corpus without a backing state, mostly for tests.
func NewCorpusFromDocuments(docs []nutriplan.Document) *Corpus {
	c := &Corpus{}
	c.index(docs)
	return c
}

// Load (re)reads the corpus from its state.
func (c *Corpus) Load(ctx context.Context) error {
	if c.state == nil {
		return fmt.Errorf("corpus has no backing state")
	}
	data, err := c.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	var docs []nutriplan.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to decode corpus: %w", err)
	}
	c.index(docs)
	slog.Info("RETRIEVAL: corpus loaded", "documents", len(docs))
	return nil
}

func (c *Corpus) index(docs []nutriplan.Document) {
	indexed := make([]indexedDoc, 0, len(docs))
	byKey := make(map[string]int, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			d.ID = fmt.Sprintf("doc-%d", i)
		}
		r := ToRecipe(d)
		text := []string{r.Name, d.Content, strings.Join(r.Ingredients, " ")}
		for _, s := range r.Slots {
			text = append(text, string(s))
		}
		indexed = append(indexed, indexedDoc{doc: d, terms: termSet(strings.Join(text, " "))})
		byKey[r.Key()] = len(indexed) - 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = indexed
	c.byKey = byKey
}

func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// ByName returns the document whose normalized recipe name matches.
func (c *Corpus) ByName(name string) (nutriplan.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byKey[nutriplan.NameKey(name)]
	if !ok {
		return nutriplan.Document{}, false
	}
	return c.docs[i].doc, true
}

// Search returns up to limit documents matching every filter, closest first.
// Documents sharing no term with the query are still returned, at distance 1.
func (c *Corpus) Search(ctx context.Context, query string, limit int, filters map[string]string) ([]nutriplan.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	queryTerms := termSet(query)

	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := make([]nutriplan.Document, 0, len(c.docs))
	for _, d := range c.docs {
		if !matchesFilters(d.doc.Metadata, filters) {
			continue
		}
		hit := d.doc
		hit.Distance = distance(queryTerms, d.terms)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func distance(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 1
	}
	var matched int
	for t := range query {
		if _, ok := doc[t]; ok {
			matched++
		}
	}
	return 1 - float64(matched)/float64(len(query))
}

// matchesFilters treats list-valued metadata (including JSON-encoded lists) as a
// membership test and everything else as case-insensitive equality.
func matchesFilters(md map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		v, ok := md[key]
		if !ok {
			return false
		}
		if !matchesValue(v, want) {
			return false
		}
	}
	return true
}

func matchesValue(v any, want string) bool {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if strings.EqualFold(fmt.Sprint(item), want) {
				return true
			}
		}
		return false
	case string:
		if strings.HasPrefix(strings.TrimSpace(val), "[") {
			var list []string
			if json.Unmarshal([]byte(val), &list) == nil {
				for _, item := range list {
					if strings.EqualFold(item, want) {
						return true
					}
				}
				return false
			}
		}
		return strings.EqualFold(val, want)
	default:
		return strings.EqualFold(fmt.Sprint(val), want)
	}
}

func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
