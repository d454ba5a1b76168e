package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nutriplan"
	"nutriplan/batch"
	"nutriplan/nutrition"
	"nutriplan/plan"
	"nutriplan/tools"
	"nutriplan/validation"
)

const DefaultGenerateTimeout = 90 * time.Second

// CandidateSearcher finds the day's candidates for every allocated slot.
type CandidateSearcher interface {
	Run(ctx context.Context, profile nutriplan.PatientProfile, dailyCalories float64, alloc nutriplan.MealAllocation) (batch.Result, error)
}

type Options struct {
	Validator       validation.Validator
	GenerateTimeout time.Duration
	Tolerance       float64
}

// Planner runs one planning pass: targets, allocation, candidates, generation,
// validation.
type Planner struct {
	searcher  CandidateSearcher
	generator nutriplan.Generator
	retriever nutriplan.Retriever
	opts      Options
	tracer    trace.Tracer
	newID     func() string

	runs         metric.Int64Counter
	placeholders metric.Int64Counter
	duration     metric.Float64Histogram
}

func New(searcher CandidateSearcher, generator nutriplan.Generator, retriever nutriplan.Retriever, opts Options, tracer trace.Tracer, meter metric.Meter) *Planner {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}

	p := &Planner{
		searcher:  searcher,
		generator: generator,
		retriever: retriever,
		opts:      opts,
		tracer:    tracer,
		newID:     uuid.NewString,
	}
	p.runs, _ = meter.Int64Counter("planner_runs_total",
		metric.WithDescription("Total number of planning runs by outcome"))
	p.placeholders, _ = meter.Int64Counter("planner_placeholder_plans_total",
		metric.WithDescription("Planning runs that fell back to a placeholder plan"))
	p.duration, _ = meter.Float64Histogram("planner_run_seconds",
		metric.WithDescription("Duration of a planning run in seconds"))
	return p
}

// Plan produces the day's plan for a profile. Generation failures degrade to a
// placeholder plan; only cancellation, candidate search failures and reject-mode
// validation errors are returned.
func (p *Planner) Plan(ctx context.Context, profile nutriplan.PatientProfile) (nutriplan.PlanResult, error) {
	return p.run(ctx, "Planner.Plan", profile, adjustment{})
}

// adjustment alters a planning run for a control visit.
type adjustment struct {
	calories float64
	query    string
	notes    []string
}

func (p *Planner) run(ctx context.Context, spanName string, profile nutriplan.PatientProfile, adj adjustment) (nutriplan.PlanResult, error) {
	start := time.Now()
	runID := p.newID()

	ctx, span := p.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Float64("calorie_adjustment", adj.calories),
	))
	defer span.End()

	result, outcome, err := p.plan(ctx, runID, profile, adj)
	p.duration.Record(ctx, time.Since(start).Seconds())
	p.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if err != nil {
		span.SetStatus(codes.Error, outcome)
		span.RecordError(err)
		slog.Error("PLANNER: Run failed", "run_id", runID, "outcome", outcome, "error", err)
		return nutriplan.PlanResult{}, err
	}

	span.SetAttributes(
		attribute.Int("selections", len(result.Selections)),
		attribute.Int("warnings", len(result.Warnings)),
		attribute.Bool("placeholder", result.Summary.Placeholder),
	)
	slog.Info("PLANNER: Run complete",
		"run_id", runID,
		"outcome", outcome,
		"selections", len(result.Selections),
		"missing", len(result.MissingSlots()),
		"warnings", len(result.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (p *Planner) plan(ctx context.Context, runID string, profile nutriplan.PatientProfile, adj adjustment) (nutriplan.PlanResult, string, error) {
	report := nutrition.ValidateProfile(profile)
	targets := nutrition.AdjustTargets(profile, nutrition.ComputeTargets(profile), adj.calories)
	alloc := nutrition.Allocate(targets, profile.MealsPerDay, profile.Distribution)

	result := nutriplan.PlanResult{RunID: runID, Targets: targets, Allocation: alloc}
	for _, e := range report.Errors {
		result.Warnings = append(result.Warnings, "profile: "+e)
	}
	result.Warnings = append(result.Warnings, report.Warnings...)

	slog.Info("PLANNER: Targets computed",
		"run_id", runID,
		"daily_calories", targets.DailyCalories,
		"slots", len(alloc.Slots),
		"policy", alloc.Policy,
	)

	found, err := p.searcher.Run(ctx, profile, float64(targets.DailyCalories), alloc)
	if err != nil {
		if ctx.Err() != nil {
			return result, "cancelled", err
		}
		return result, "search_failed", fmt.Errorf("failed to find candidates: %w", err)
	}
	result.Warnings = append(result.Warnings, found.Warnings...)

	if adj.query != "" {
		var added int
		found.Candidates, added, err = p.addAlternatives(ctx, found.Candidates, profile, alloc, adj.query)
		if err != nil {
			if ctx.Err() != nil {
				return result, "cancelled", ctx.Err()
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("adjustment search failed: %v", err))
		}
		slog.Info("PLANNER: Adjustment alternatives added", "run_id", runID, "query", adj.query, "added", added)
	}

	slots := alloc.SlotIDs()
	ix := validation.IndexFromCandidates(found.Candidates, slots)

	drafts, genErr := p.generate(ctx, runID, profile, targets, alloc, found.Candidates, adj.notes)
	if genErr != nil {
		if ctx.Err() != nil {
			return result, "cancelled", ctx.Err()
		}
		p.placeholders.Add(ctx, 1)
		slog.Warn("PLANNER: Generation failed; using placeholder plan", "run_id", runID, "error", genErr)

		result.Selections = make(map[nutriplan.Slot]nutriplan.MealSelection, len(slots))
		for _, sel := range plan.Placeholder(targets, alloc) {
			result.Selections[sel.Slot] = sel
		}
		result.Summary = nutriplan.ValidationSummary{CandidatesSent: ix.Len(), Placeholder: true}
		result.Warnings = append(result.Warnings, fmt.Sprintf("generation failed, placeholder plan used: %v", genErr))
		return result, "placeholder", nil
	}

	substitutes := p.opts.Validator.StrictValidation && !p.opts.Validator.RejectInvalid
	drafts, ignored := fitDrafts(drafts, alloc, ix, substitutes)
	result.Warnings = append(result.Warnings, ignored...)

	out, err := p.opts.Validator.Validate(drafts, ix)
	if err != nil {
		return result, "rejected", fmt.Errorf("plan %s rejected: %w", runID, err)
	}

	result.Selections = out.Selections
	result.Summary = out.Summary
	result.Warnings = append(result.Warnings, out.Warnings...)
	return result, "planned", nil
}

func (p *Planner) generate(ctx context.Context, runID string, profile nutriplan.PatientProfile, targets nutriplan.NutritionTargets, alloc nutriplan.MealAllocation, set nutriplan.CandidateSet, notes []string) ([]plan.Draft, error) {
	if p.generator == nil {
		return nil, errors.New("no generator configured")
	}

	userPrompt, err := UserPrompt(profile, targets, alloc, set)
	if err != nil {
		return nil, err
	}
	userPrompt += AdjustmentNotes(notes)

	gctx, cancel := context.WithTimeout(ctx, p.opts.GenerateTimeout)
	defer cancel()

	raw, err := p.generator.Generate(gctx, nutriplan.GenerationRequest{
		RunID:        runID,
		SystemPrompt: SystemPrompt(),
		UserPrompt:   userPrompt,
		Tools: tools.NewRegistry(
			tools.NewRecipeLookup(Catalog(set, alloc.SlotIDs())),
			tools.NewSubmitMealPlan(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}

	parsed, err := plan.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse generated plan: %w", err)
	}
	slog.Info("PLANNER: Generated plan parsed", "run_id", runID, "shape", parsed.Shape.Name(), "drafts", len(parsed.Drafts))
	return parsed.Drafts, nil
}

// fitDrafts drops drafts for slots outside the allocation. When substitution
// applies, unknown recipes without stated calories are compared at the slot
// target; known ones take the recipe's calories during validation.
func fitDrafts(drafts []plan.Draft, alloc nutriplan.MealAllocation, ix *validation.ValidRecipeIndex, substitutes bool) ([]plan.Draft, []string) {
	var warnings []string
	out := make([]plan.Draft, 0, len(drafts))
	for _, d := range drafts {
		target, ok := alloc.Target(d.Slot)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("ignored %q for unplanned slot %s", d.Name, d.Slot))
			continue
		}
		if _, known := ix.Lookup(d.Slot, d.Name); substitutes && !known && d.Calories <= 0 {
			d.Calories = target.Calories
		}
		out = append(out, d)
	}
	return out, warnings
}

// FindReplacements searches alternatives for one meal of a plan.
func (p *Planner) FindReplacements(ctx context.Context, req ReplacementRequest) ([]Replacement, error) {
	if p.retriever == nil {
		return nil, errors.New("no retriever configured")
	}
	if req.Tolerance <= 0 {
		req.Tolerance = p.opts.Tolerance
	}
	return FindReplacements(ctx, p.retriever, req)
}
