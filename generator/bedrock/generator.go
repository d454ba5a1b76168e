package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nutriplan"
	"nutriplan/tools"
)

const defaultMaxIterations = 6

var ErrNoFinalPlan = errors.New("model did not produce a final plan")

type llmClient interface {
	Invoke(ctx context.Context, prompt Prompt) (Response, error)
}

// Generator drives a bounded tool-use conversation with the model until it
// submits a plan or answers with final text.
type Generator struct {
	llm           llmClient
	maxIterations int
	logger        nutriplan.GenerationLogger
	tracer        trace.Tracer

	runs          metric.Int64Counter
	iterations    metric.Int64Counter
	toolCalls     metric.Int64Counter
	toolFailures  metric.Int64Counter
	invokeSeconds metric.Float64Histogram
}

func NewGenerator(llm llmClient, maxIterations int, logger nutriplan.GenerationLogger, tracer trace.Tracer, meter metric.Meter) *Generator {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if logger == nil {
		logger = nutriplan.NewNoOpGenerationLogger()
	}

	g := &Generator{llm: llm, maxIterations: maxIterations, logger: logger, tracer: tracer}
	g.runs, _ = meter.Int64Counter("generator_runs_total",
		metric.WithDescription("Total number of generation runs by outcome"))
	g.iterations, _ = meter.Int64Counter("generator_iterations_total",
		metric.WithDescription("Total number of model round trips"))
	g.toolCalls, _ = meter.Int64Counter("tool_calls_total",
		metric.WithDescription("Total number of tool calls executed"))
	g.toolFailures, _ = meter.Int64Counter("tool_calls_failed_total",
		metric.WithDescription("Total number of tool calls that failed"))
	g.invokeSeconds, _ = meter.Float64Histogram("llm_response_time_seconds",
		metric.WithDescription("Time taken to receive a response from the model in seconds"))
	return g
}

// Generate returns the model's plan as JSON text. A submit_meal_plan call wins
// over any free text; otherwise the first non-empty final text is returned.
func (g *Generator) Generate(ctx context.Context, req nutriplan.GenerationRequest) (string, error) {
	ctx, span := g.tracer.Start(ctx, "Generator.Generate")
	defer span.End()

	prompt := NewPrompt(req)
	slog.Info("GENERATOR: Starting run", "run_id", req.RunID, "tools_count", len(prompt.Tools))

	for iter := 1; iter <= g.maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			g.fail(ctx, span, "cancelled", err)
			return "", err
		}
		g.iterations.Add(ctx, 1)

		iterLog := nutriplan.IterationLog{RunID: req.RunID, Iteration: iter, Timestamp: time.Now()}
		if b, err := json.Marshal(prompt); err == nil {
			iterLog.Input = string(b)
		}

		slog.Info("GENERATOR: Sending prompt to model",
			"iteration", iter,
			"messages_count", len(prompt.Messages),
			"last_message_preview", prompt.LastText(),
		)

		start := time.Now()
		res, err := g.llm.Invoke(ctx, prompt)
		g.invokeSeconds.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			iterLog.Error = err.Error()
			g.logIteration(iterLog)
			g.fail(ctx, span, "invoke_failed", err)
			return "", fmt.Errorf("invoke failed: %w", err)
		}
		iterLog.Output = res

		span.AddEvent("model response received", trace.WithAttributes(
			attribute.Int("iteration", iter),
			attribute.Int("content_length", len(res.Content)),
			attribute.Int("tool_calls", len(res.ToolCalls)),
		))

		if len(res.ToolCalls) == 0 {
			final := strings.TrimSpace(res.Content)
			g.logIteration(iterLog)
			if final != "" {
				g.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "final_text")))
				slog.Info("GENERATOR: Final text received", "iteration", iter, "content_length", len(final))
				return final, nil
			}
			slog.Warn("GENERATOR: Empty response; asking for the plan", "iteration", iter)
			prompt.Messages = append(prompt.Messages, Message{
				Role:    "user",
				Content: MessageParts{{Type: "text", Text: "Respond with the final meal plan JSON or call submit_meal_plan."}},
			})
			continue
		}

		assistantMsg := Message{Role: "assistant", Content: MessageParts{}}
		if res.Content != "" {
			assistantMsg.Content = append(assistantMsg.Content, MessagePart{Type: "text", Text: res.Content})
		}
		for _, call := range res.ToolCalls {
			assistantMsg.Content = append(assistantMsg.Content, MessagePart{
				Type:      "tool_use",
				ToolUseID: call.ToolUseID,
				ToolName:  call.Name,
				Data:      call.Input,
			})
		}

		var (
			results   []ToolResult
			submitted string
		)
		for _, call := range res.ToolCalls {
			tlog, result := g.runTool(ctx, req.Tools, call)
			iterLog.ToolCalls = append(iterLog.ToolCalls, tlog)
			results = append(results, ToolResult{ToolUseID: call.ToolUseID, ToolName: call.Name, Data: result})

			if call.Name == tools.SubmitMealPlanName && tlog.Error == "" && submitted == "" {
				b, err := json.Marshal(call.Input)
				if err == nil {
					submitted = string(b)
				}
			}
		}
		g.logIteration(iterLog)

		if submitted != "" {
			g.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "submitted")))
			slog.Info("GENERATOR: Plan submitted", "iteration", iter, "content_length", len(submitted))
			return submitted, nil
		}

		prompt.Messages = append(prompt.Messages, assistantMsg, NewToolResultMessage(results))
	}

	g.fail(ctx, span, "max_iterations", ErrNoFinalPlan)
	return "", fmt.Errorf("%w after %d iterations", ErrNoFinalPlan, g.maxIterations)
}

// runTool executes one call. Failures are reported back to the model as an
// error payload rather than aborting the run.
func (g *Generator) runTool(ctx context.Context, provider nutriplan.ToolProvider, call tools.Call) (nutriplan.ToolCallLog, map[string]any) {
	g.toolCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool_name", call.Name)))
	tlog := nutriplan.ToolCallLog{Name: call.Name, Input: call.Input}

	if provider == nil {
		tlog.Error = "no tools available"
		g.toolFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tool_name", call.Name)))
		return tlog, tools.ErrorResult("%s", tlog.Error)
	}

	tool, err := provider.GetTool(call.Name)
	if err != nil {
		tlog.Error = err.Error()
		g.toolFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool_name", call.Name),
			attribute.String("error_type", "tool_not_found"),
		))
		return tlog, tools.ErrorResult("tool %q not found: %v", call.Name, err)
	}

	out, err := tool.Run(ctx, call.Input)
	if err != nil {
		tlog.Error = err.Error()
		g.toolFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool_name", call.Name),
			attribute.String("error_type", "tool_execution_failed"),
		))
		slog.Warn("GENERATOR: Tool failed", "tool", call.Name, "error", err)
		return tlog, tools.ErrorResult("tool %q failed: %v", call.Name, err)
	}

	tlog.Output = out
	slog.Info("GENERATOR: Tool executed", "tool", call.Name)
	return tlog, out
}

func (g *Generator) fail(ctx context.Context, span trace.Span, outcome string, err error) {
	g.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetStatus(codes.Error, outcome)
	span.RecordError(err)
}

func (g *Generator) logIteration(iteration nutriplan.IterationLog) {
	if err := g.logger.LogIteration(iteration); err != nil {
		slog.Error("GENERATOR: Failed to log iteration", "error", err)
	}
}
