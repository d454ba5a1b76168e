package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nutriplan"
	"nutriplan/batch"
	"nutriplan/generator/bedrock"
	"nutriplan/generator/ollama"
	"nutriplan/nutrition"
	"nutriplan/planner"
	"nutriplan/retrieval"
	"nutriplan/slack"
	"nutriplan/storage"
	"nutriplan/validation"
)

func main() {
	dump := flag.Bool("dump", false, "dump intermediate planning values to stderr")
	withOtel := flag.Bool("otel", false, "export traces and metrics over OTLP")
	controlPath := flag.String("control", "", "control visit JSON; adjusts the profile's plan from its progress")
	flag.Parse()

	ctx := context.Background()

	var modelConfig nutriplan.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var plannerConfig nutriplan.PlannerConfig
	if err := envdecode.Decode(&plannerConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	profilePath := "artifacts/patient.json"
	if flag.NArg() > 0 {
		profilePath = flag.Arg(0)
	}
	profile, err := loadProfile(profilePath)
	if err != nil {
		slog.Error("SETUP: Failed to load patient profile", "path", profilePath, "error", err)
		return
	}

	corpus := retrieval.NewCorpus(storage.NewFileCorpusState(plannerConfig.CorpusPath))
	if err := corpus.Load(ctx); err != nil {
		slog.Error("SETUP: Failed to load recipe corpus", "path", plannerConfig.CorpusPath, "error", err)
		return
	}
	slog.Info("SETUP: Recipe corpus loaded", "documents", corpus.Len())

	var (
		tracerProvider trace.TracerProvider = otel.GetTracerProvider()
		meterProvider  metric.MeterProvider = otel.GetMeterProvider()
	)
	if *withOtel {
		tp, mp, otelShutdown, err := nutriplan.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()
		tracerProvider, meterProvider = tp, mp
	}

	runLabel := "local"
	logger, cleanup, err := newGenerationLogger(runLabel, modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create generation logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush generation log", "error", err)
		}
	}()

	generator, err := newGenerator(ctx, plannerConfig, modelConfig, logger, tracerProvider, meterProvider)
	if err != nil {
		slog.Error("SETUP: Failed to create generator", "backend", plannerConfig.Generator, "error", err)
		return
	}

	cache, err := batch.NewCache(plannerConfig.CacheCapacity, plannerConfig.CacheTTL, nil)
	if err != nil {
		slog.Error("SETUP: Failed to create candidate cache", "error", err)
		return
	}
	orchestrator := batch.NewOrchestrator(
		retrieval.NewFinder(corpus, retrieval.DefaultWeights()),
		cache,
		batch.Options{
			Workers:       plannerConfig.Workers,
			SearchTimeout: plannerConfig.SearchTimeout,
			Tolerance:     plannerConfig.Tolerance,
		},
		tracerProvider.Tracer(nutriplan.TracerNameBatch),
		meterProvider.Meter(nutriplan.TracerNameBatch),
	)

	tracer := tracerProvider.Tracer(nutriplan.TracerNamePlanner)
	ctx, span := tracer.Start(ctx, nutriplan.TracerNamePlanner, trace.WithAttributes(
		attribute.String("generator", plannerConfig.Generator),
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("model.max_tokens", int(modelConfig.MaxTokens)),
		attribute.Float64("model.temperature", float64(modelConfig.Temperature)),
		attribute.Float64("model.top_p", float64(modelConfig.TopP)),
	))
	defer span.End()

	p := planner.New(orchestrator, generator, corpus, planner.Options{
		Validator: validation.Validator{
			StrictValidation: plannerConfig.StrictValidation,
			RejectInvalid:    plannerConfig.RejectInvalid,
			LogValidation:    plannerConfig.LogValidation,
		},
		GenerateTimeout: plannerConfig.GenerateTimeout,
		Tolerance:       plannerConfig.Tolerance,
	}, tracer, meterProvider.Meter(nutriplan.TracerNamePlanner))

	if *dump {
		nutriplan.Dump(os.Stderr, "patient profile", profile)
	}

	var (
		result nutriplan.PlanResult
		output any
	)
	if *controlPath != "" {
		visit, err := loadControl(*controlPath, profile)
		if err != nil {
			slog.Error("SETUP: Failed to load control visit", "path", *controlPath, "error", err)
			return
		}
		adjusted, err := p.Adjust(ctx, visit)
		if err != nil {
			slog.Error("RESULT: Error adjusting plan", "error", err)
			return
		}
		result, output = adjusted.Plan, adjusted
	} else {
		result, err = p.Plan(ctx, profile)
		if err != nil {
			slog.Error("RESULT: Error planning", "error", err)
			return
		}
		output = result
	}

	if *dump {
		nutriplan.Dump(os.Stderr, "plan result", output)
	}

	out, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		slog.Error("RESULT: Failed to encode plan", "error", err)
		return
	}
	fmt.Println(string(out))

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body) // nolint: errcheck
		slog.Info("FINAL: Received request",
			"method", r.Method,
			"path", r.URL.Path,
			"header", r.Header,
			"body", body.String(),
		)
		w.WriteHeader(http.StatusOK)
	}))
	defer testServer.Close()

	slackClient := slack.NewClient(testServer.URL, http.DefaultClient)
	if err := slack.NotifyPlan(ctx, slackClient, plannerConfig.SlackChannel, result); err != nil {
		slog.Error("RESULT: Failed to post plan to Slack", "error", err)
	}
}

func newGenerator(ctx context.Context, pc nutriplan.PlannerConfig, mc nutriplan.ModelConfig, logger nutriplan.GenerationLogger, tp trace.TracerProvider, mp metric.MeterProvider) (nutriplan.Generator, error) {
	switch pc.Generator {
	case "bedrock":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		llm := bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
			ModelID:     mc.ModelID,
			MaxTokens:   mc.MaxTokens,
			Temperature: mc.Temperature,
			TopP:        mc.TopP,
		})
		return bedrock.NewGenerator(llm, pc.MaxIterations, logger, tp.Tracer(nutriplan.TracerNameBedrock), mp.Meter(nutriplan.TracerNameBedrock)), nil
	case "ollama":
		return ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: pc.BaseOllamaEndpoint,
			ModelID:      mc.ModelID,
			HTTPClient:   http.DefaultClient,
			Logger:       logger,
			Tracer:       tp.Tracer(nutriplan.TracerNameOllama),
		})
	default:
		return nil, fmt.Errorf("unknown generator %q (want bedrock or ollama)", pc.Generator)
	}
}

func loadProfile(path string) (nutriplan.PatientProfile, error) {
	var profile nutriplan.PatientProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, err
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to decode profile: %w", err)
	}
	return profile, nil
}

// loadControl reads a control visit. A visit without a patient uses profile.
func loadControl(path string, profile nutriplan.PatientProfile) (nutrition.ControlVisit, error) {
	var visit nutrition.ControlVisit
	data, err := os.ReadFile(path)
	if err != nil {
		return visit, err
	}
	if err := json.Unmarshal(data, &visit); err != nil {
		return visit, fmt.Errorf("failed to decode control visit: %w", err)
	}
	if visit.Profile.Age == 0 {
		visit.Profile = profile
	}
	return visit, nil
}

func newGenerationLogger(runLabel, modelID string) (*nutriplan.FileGenerationLogger, func() error, error) {
	if err := os.MkdirAll("./logs", 0o755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFilePath := nutriplan.NewGenerationLogFilePath(runLabel, modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := nutriplan.NewFileGenerationLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
