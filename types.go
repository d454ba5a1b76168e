package nutriplan

import (
	"context"
	"net/http"

	"nutriplan/tools"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

type ToolProvider interface {
	GetTools() []tools.Tool
	GetTool(name string) (tools.Tool, error)
}

// Retriever is the recipe corpus search collaborator. Filters are flat equality
// constraints on document metadata.
type Retriever interface {
	Search(ctx context.Context, query string, limit int, filters map[string]string) ([]Document, error)
}

// GenerationRequest is what a Generator needs to draft a plan. Tools may be nil.
type GenerationRequest struct {
	RunID        string
	SystemPrompt string
	UserPrompt   string
	Tools        ToolProvider
}

// Generator turns a prompt into a structured (but untrusted) JSON meal plan.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

type Origin string

const (
	OriginGenerated   Origin = "generated"
	OriginSubstituted Origin = "substituted"
	OriginPlaceholder Origin = "placeholder"
)

// MealSelection is one recipe chosen for one slot.
type MealSelection struct {
	Slot        Slot     `json:"slot"`
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Preparation string   `json:"preparation"`
	Calories    float64  `json:"calories"`
	Macros      Macros   `json:"macros"`
	Origin      Origin   `json:"origin"`
}

// IsValid checks the selection carries the minimum fields to be rendered.
func (m MealSelection) IsValid() bool {
	return m.Slot != "" && m.Name != "" && m.Calories >= 0
}

// ValidationSummary is presentation metadata about a planning run.
type ValidationSummary struct {
	CandidatesSent int  `json:"candidates_sent"`
	Validated      int  `json:"validated"`
	Substituted    int  `json:"substituted"`
	Dropped        int  `json:"dropped"`
	Unverified     int  `json:"unverified"`
	Placeholder    bool `json:"placeholder"`
}

// PlanResult is the produced output of one planning run. Slots missing from
// Selections need manual follow-up.
type PlanResult struct {
	RunID      string                 `json:"run_id"`
	Targets    NutritionTargets       `json:"targets"`
	Allocation MealAllocation         `json:"allocation"`
	Selections map[Slot]MealSelection `json:"selections"`
	Summary    ValidationSummary      `json:"summary"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// OrderedSelections returns the selections following the allocation's slot order.
func (p PlanResult) OrderedSelections() []MealSelection {
	out := make([]MealSelection, 0, len(p.Selections))
	for _, slot := range p.Allocation.SlotIDs() {
		if sel, ok := p.Selections[slot]; ok {
			out = append(out, sel)
		}
	}
	return out
}

// MissingSlots lists allocated slots that have no final selection.
func (p PlanResult) MissingSlots() []Slot {
	var out []Slot
	for _, slot := range p.Allocation.SlotIDs() {
		if _, ok := p.Selections[slot]; !ok {
			out = append(out, slot)
		}
	}
	return out
}
