package validation

import "nutriplan"

// IndexEntry is a recipe known to the current run and the slots it was offered for.
type IndexEntry struct {
	Recipe  nutriplan.Recipe
	Offered map[nutriplan.Slot]struct{}
}

// EligibleFor reports whether the recipe may fill the slot: it is tagged for
// the slot or was retrieved as a candidate for it.
func (e IndexEntry) EligibleFor(slot nutriplan.Slot) bool {
	if _, ok := e.Offered[slot]; ok {
		return true
	}
	return e.Recipe.HasSlot(slot)
}

// ValidRecipeIndex is the set of recipes surfaced by retrieval during one
// planning run, keyed by lower-cased name and kept in insertion order.
// It is not safe for concurrent mutation.
type ValidRecipeIndex struct {
	entries map[string]*IndexEntry
	order   []string
}

func NewIndex() *ValidRecipeIndex {
	return &ValidRecipeIndex{entries: make(map[string]*IndexEntry)}
}

// IndexFromCandidates builds an index walking the slots in the given order.
func IndexFromCandidates(set nutriplan.CandidateSet, slots []nutriplan.Slot) *ValidRecipeIndex {
	ix := NewIndex()
	for _, slot := range slots {
		for _, c := range set[slot] {
			ix.Add(slot, c.Recipe)
		}
	}
	return ix
}

// Add records a recipe as offered for a slot. The first recipe seen under a
// name is kept.
func (ix *ValidRecipeIndex) Add(slot nutriplan.Slot, r nutriplan.Recipe) {
	key := r.Key()
	if key == "" {
		return
	}
	e, ok := ix.entries[key]
	if !ok {
		e = &IndexEntry{Recipe: r, Offered: make(map[nutriplan.Slot]struct{})}
		ix.entries[key] = e
		ix.order = append(ix.order, key)
	}
	if slot != "" {
		e.Offered[slot] = struct{}{}
	}
}

func (ix *ValidRecipeIndex) Len() int { return len(ix.order) }

// Contains reports whether the name is known regardless of slot.
func (ix *ValidRecipeIndex) Contains(name string) bool {
	_, ok := ix.entries[nutriplan.NameKey(name)]
	return ok
}

// Get returns the entry for a name regardless of slot.
func (ix *ValidRecipeIndex) Get(name string) (IndexEntry, bool) {
	e, ok := ix.entries[nutriplan.NameKey(name)]
	if !ok {
		return IndexEntry{}, false
	}
	return *e, true
}

// Lookup returns the entry for a name only if it is eligible for the slot.
func (ix *ValidRecipeIndex) Lookup(slot nutriplan.Slot, name string) (IndexEntry, bool) {
	e, ok := ix.entries[nutriplan.NameKey(name)]
	if !ok || !e.EligibleFor(slot) {
		return IndexEntry{}, false
	}
	return *e, true
}

// Eligible lists the entries eligible for a slot in insertion order.
func (ix *ValidRecipeIndex) Eligible(slot nutriplan.Slot) []IndexEntry {
	var out []IndexEntry
	for _, key := range ix.order {
		if e := ix.entries[key]; e.EligibleFor(slot) {
			out = append(out, *e)
		}
	}
	return out
}

// Names lists recipe display names in insertion order.
func (ix *ValidRecipeIndex) Names() []string {
	out := make([]string, 0, len(ix.order))
	for _, key := range ix.order {
		out = append(out, ix.entries[key].Recipe.Name)
	}
	return out
}
