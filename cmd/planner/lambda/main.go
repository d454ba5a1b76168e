package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"nutriplan"
	"nutriplan/batch"
	"nutriplan/generator/bedrock"
	"nutriplan/nutrition"
	"nutriplan/planner"
	"nutriplan/retrieval"
	"nutriplan/slack"
	"nutriplan/storage"
	"nutriplan/validation"
)

const (
	actionPlan     = "plan"
	actionValidate = "validate"
	actionReplace  = "replace"
	actionAdjust   = "adjust"
)

// Params is the invocation payload. Patient is used by plan and validate,
// Replacement by replace, Control by adjust.
type Params struct {
	Action      string                      `json:"action"`
	Patient     *nutriplan.PatientProfile   `json:"patient,omitempty"`
	Replacement *planner.ReplacementRequest `json:"replacement,omitempty"`
	Control     *nutrition.ControlVisit     `json:"control,omitempty"`
}

type Results struct {
	Output any `json:"output"`
}

func main() {
	ctx := context.Background()

	var modelConfig nutriplan.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var plannerConfig nutriplan.PlannerConfig
	if err := envdecode.Decode(&plannerConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}
	if plannerConfig.CorpusS3Bucket == "" || plannerConfig.CorpusS3Key == "" {
		log.Fatalf("SETUP: missing S3 config: CORPUS_S3_BUCKET and CORPUS_S3_KEY must be set")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		log.Fatalf("SETUP: Failed to load AWS config: %s", err)
	}

	corpus := retrieval.NewCorpus(storage.NewS3CorpusState(s3.NewFromConfig(awsCfg), plannerConfig.CorpusS3Bucket, plannerConfig.CorpusS3Key))
	if err := corpus.Load(ctx); err != nil {
		log.Fatalf("SETUP: Failed to load recipe corpus from S3: %s", err)
	}
	slog.Info("SETUP: Recipe corpus loaded from S3", "documents", corpus.Len())

	// lambda.Start never returns; telemetry is flushed after every invocation
	// instead of shut down.
	tracerProvider, meterProvider, _, err := nutriplan.InitOtel(ctx)
	if err != nil {
		log.Fatalf("SETUP: Failed to initialize OpenTelemetry: %s", err)
	}

	cache, err := batch.NewCache(plannerConfig.CacheCapacity, plannerConfig.CacheTTL, nil)
	if err != nil {
		log.Fatalf("SETUP: %s", err)
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

	llm := bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
		ModelID:     modelConfig.ModelID,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		TopP:        modelConfig.TopP,
	})
	generator := bedrock.NewGenerator(
		llm,
		plannerConfig.MaxIterations,
		nutriplan.NewStdoutGenerationLogger(),
		tracerProvider.Tracer(nutriplan.TracerNameBedrock),
		meterProvider.Meter(nutriplan.TracerNameBedrock),
	)

	p := planner.New(orchestrator, generator, corpus, planner.Options{
		Validator: validation.Validator{
			StrictValidation: plannerConfig.StrictValidation,
			RejectInvalid:    plannerConfig.RejectInvalid,
			LogValidation:    plannerConfig.LogValidation,
		},
		GenerateTimeout: plannerConfig.GenerateTimeout,
		Tolerance:       plannerConfig.Tolerance,
	}, tracerProvider.Tracer(nutriplan.TracerNamePlanner), meterProvider.Meter(nutriplan.TracerNamePlanner))

	var notifier nutriplan.SlackClient
	if plannerConfig.SlackWebhookURL != "" {
		notifier = slack.NewClient(plannerConfig.SlackWebhookURL, http.DefaultClient)
	}

	fn := func(ctx context.Context, params Params) (Results, error) {
		defer func() {
			if err := errors.Join(tracerProvider.ForceFlush(ctx), meterProvider.ForceFlush(ctx)); err != nil {
				slog.Error("RESULT: Failed to flush telemetry", "error", err)
			}
		}()

		output, err := handle(ctx, p, notifier, plannerConfig.SlackChannel, params)
		if err != nil {
			slog.Error("RESULT: Error handling action", "action", params.Action, "error", err)
			return Results{}, err
		}
		return Results{Output: output}, nil
	}

	lambda.Start(fn)
}

func handle(ctx context.Context, p *planner.Planner, notifier nutriplan.SlackClient, channel string, params Params) (any, error) {
	switch params.Action {
	case actionPlan, "":
		if params.Patient == nil {
			return nil, errors.New("plan requires a patient")
		}
		result, err := p.Plan(ctx, *params.Patient)
		if err != nil {
			return nil, err
		}
		if notifier != nil {
			if err := slack.NotifyPlan(ctx, notifier, channel, result); err != nil {
				slog.Error("RESULT: Failed to post plan to Slack", "run_id", result.RunID, "error", err)
			}
		}
		return result, nil

	case actionValidate:
		if params.Patient == nil {
			return nil, errors.New("validate requires a patient")
		}
		return nutrition.ValidateProfile(*params.Patient), nil

	case actionReplace:
		if params.Replacement == nil {
			return nil, errors.New("replace requires a replacement request")
		}
		return p.FindReplacements(ctx, *params.Replacement)

	case actionAdjust:
		if params.Control == nil {
			return nil, errors.New("adjust requires a control visit")
		}
		return p.Adjust(ctx, *params.Control)

	default:
		return nil, fmt.Errorf("unknown action %q", params.Action)
	}
}
