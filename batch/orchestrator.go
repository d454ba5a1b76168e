package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"nutriplan"
	"nutriplan/retrieval"
)

const (
	DefaultWorkers       = 4
	DefaultSearchTimeout = 10 * time.Second

	batchMaxResults    = 10
	fallbackMaxResults = 5
)

// CandidateFinder finds ranked candidates for one slot.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, c retrieval.Criteria) ([]nutriplan.ScoredCandidate, error)
}

type Options struct {
	Workers       int
	SearchTimeout time.Duration
	Tolerance     float64
}

// Result is the outcome of a whole-day candidate search.
type Result struct {
	Candidates nutriplan.CandidateSet
	Warnings   []string
	CacheHits  int
	Fallback   bool
}

// Orchestrator runs the per-slot searches of a plan concurrently, memoizing
// results in a shared Cache. It is safe for concurrent use.
type Orchestrator struct {
	finder CandidateFinder
	cache  *Cache
	opts   Options
	tracer trace.Tracer

	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	fallbacks   metric.Int64Counter
	latency     metric.Float64Histogram
}

func NewOrchestrator(finder CandidateFinder, cache *Cache, opts Options, tracer trace.Tracer, meter metric.Meter) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = retrieval.DefaultTolerance
	}

	o := &Orchestrator{finder: finder, cache: cache, opts: opts, tracer: tracer}
	o.cacheHits, _ = meter.Int64Counter("batch_cache_hits_total",
		metric.WithDescription("Slot searches answered from the candidate cache"))
	o.cacheMisses, _ = meter.Int64Counter("batch_cache_misses_total",
		metric.WithDescription("Slot searches that had to query the corpus"))
	o.fallbacks, _ = meter.Int64Counter("batch_fallbacks_total",
		metric.WithDescription("Batch searches that degraded to sequential search"))
	o.latency, _ = meter.Float64Histogram("batch_slot_search_seconds",
		metric.WithDescription("Duration of a single slot search in seconds"))
	return o
}

// FindBestRecipesForPlan returns candidates for every slot of the allocation.
func (o *Orchestrator) FindBestRecipesForPlan(ctx context.Context, profile nutriplan.PatientProfile, dailyCalories float64, alloc nutriplan.MealAllocation) (nutriplan.CandidateSet, error) {
	res, err := o.Run(ctx, profile, dailyCalories, alloc)
	if err != nil {
		return nil, err
	}
	return res.Candidates, nil
}

type slotSearch struct {
	slot     nutriplan.Slot
	key      string
	criteria retrieval.Criteria
}

type slotFound struct {
	cands  []nutriplan.ScoredCandidate
	cached bool
}

// Run is FindBestRecipesForPlan with the warnings and cache details of the search.
// On cancellation it returns ctx.Err() and leaves the cache untouched.
func (o *Orchestrator) Run(ctx context.Context, profile nutriplan.PatientProfile, dailyCalories float64, alloc nutriplan.MealAllocation) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.FindBestRecipesForPlan")
	defer span.End()

	restrictions := retrieval.CombineRestrictions(profile)
	searches := make([]slotSearch, 0, len(alloc.Slots))
	for _, st := range alloc.Slots {
		target := dailyCalories * st.Share
		searches = append(searches, slotSearch{
			slot: st.Slot,
			key:  CacheKey(st.Slot, target, restrictions),
			criteria: retrieval.Criteria{
				Slot:           st.Slot,
				TargetCalories: target,
				Tolerance:      o.opts.Tolerance,
				Restrictions:   restrictions,
				Allergies:      profile.Allergies,
				Preferences:    profile.Preferences,
				EconomicTier:   profile.EconomicTier,
				MaxResults:     batchMaxResults,
			},
		})
	}
	span.SetAttributes(
		attribute.Int("slots", len(searches)),
		attribute.Int("restrictions", len(restrictions)),
	)

	slog.Info("BATCH: Starting candidate search", "slots", len(searches), "restrictions", len(restrictions))

	found, err := o.scatter(ctx, searches)
	if ctxErr := ctx.Err(); ctxErr != nil {
		span.SetStatus(codes.Error, "cancelled")
		return Result{}, ctxErr
	}
	if err != nil {
		slog.Error("BATCH: batch search failed, falling back to sequential search", "error", err)
		span.RecordError(err)
		o.fallbacks.Add(ctx, 1)
		return o.sequential(ctx, searches)
	}

	res := Result{Candidates: make(nutriplan.CandidateSet, len(searches))}
	for i, s := range searches {
		f := found[i]
		res.Candidates[s.slot] = f.cands
		if f.cached {
			res.CacheHits++
			continue
		}
		o.cache.Put(s.key, f.cands)
		slog.Info("BATCH: slot searched", "slot", s.slot, "candidates", len(f.cands))
	}
	span.SetAttributes(attribute.Int("cache_hits", res.CacheHits), attribute.Int("candidates", res.Candidates.Count()))
	return res, nil
}

// scatter runs one search per uncached slot on a bounded pool. Each task writes
// only its own slot of the returned slice.
func (o *Orchestrator) scatter(ctx context.Context, searches []slotSearch) ([]slotFound, error) {
	found := make([]slotFound, len(searches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)

	for i, s := range searches {
		if cands, ok := o.cache.Get(s.key); ok {
			slog.Info("BATCH: cache hit", "slot", s.slot)
			o.cacheHits.Add(ctx, 1)
			found[i] = slotFound{cands: cands, cached: true}
			continue
		}
		o.cacheMisses.Add(ctx, 1)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cands, err := o.search(gctx, s)
			if err != nil {
				return fmt.Errorf("slot %s: %w", s.slot, err)
			}
			found[i] = slotFound{cands: cands}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func (o *Orchestrator) search(ctx context.Context, s slotSearch) ([]nutriplan.ScoredCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.SearchTimeout)
	defer cancel()

	start := time.Now()
	cands, err := o.finder.FindCandidates(ctx, s.criteria)
	o.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("slot", string(s.slot))))
	return cands, err
}

// sequential searches slot by slot with a smaller result count. A failing slot
// gets an empty list and a warning. Nothing is cached.
func (o *Orchestrator) sequential(ctx context.Context, searches []slotSearch) (Result, error) {
	res := Result{Candidates: make(nutriplan.CandidateSet, len(searches)), Fallback: true}
	for _, s := range searches {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s.criteria.MaxResults = fallbackMaxResults
		cands, err := o.search(ctx, s)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			slog.Warn("BATCH: fallback search failed", "slot", s.slot, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("no candidates for %s: %v", s.slot, err))
			cands = nil
		}
		if cands == nil {
			cands = []nutriplan.ScoredCandidate{}
		}
		res.Candidates[s.slot] = cands
	}
	return res, nil
}
