package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nutriplan"
)

var ErrEmptyResponse = errors.New("ollama returned an empty message")

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

// Client generates plans through Ollama's chat endpoint in JSON format mode.
// Tools are not offered; the candidates travel in the prompt.
type Client struct {
	endpoint   string
	model      string
	httpClient nutriplan.HTTPClient
	options    options
	logger     nutriplan.GenerationLogger
	tracer     trace.Tracer
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   nutriplan.HTTPClient
	Logger       nutriplan.GenerationLogger
	Tracer       trace.Tracer
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("ollama model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = nutriplan.NewNoOpGenerationLogger()
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		logger:     opts.Logger,
		tracer:     opts.Tracer,
		options: options{
			Temperature:   0.2,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        16384,
		},
	}, nil
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Format   string    `json:"format,omitempty"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options,omitempty"`
}

type wireResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Generate sends the system and user prompts and returns the model's message
// content verbatim.
func (c *Client) Generate(ctx context.Context, req nutriplan.GenerationRequest) (string, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "Ollama.Generate", trace.WithAttributes(attribute.String("model", c.model)))
		defer span.End()
		out, err := c.generate(ctx, req)
		if err != nil {
			span.SetStatus(codes.Error, "generation failed")
			span.RecordError(err)
		}
		return out, err
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, req nutriplan.GenerationRequest) (string, error) {
	if req.Tools != nil && len(req.Tools.GetTools()) > 0 {
		slog.Debug("LLM_CLIENT: Tools ignored in JSON format mode", "tools_count", len(req.Tools.GetTools()))
	}

	var msgs []Message
	if sp := strings.TrimSpace(req.SystemPrompt); sp != "" {
		msgs = append(msgs, Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, Message{Role: "user", Content: req.UserPrompt})

	reqBytes, err := json.Marshal(wireRequest{
		Model:    c.model,
		Messages: msgs,
		Format:   "json",
		Stream:   false,
		Options:  c.options,
	})
	if err != nil {
		return "", err
	}

	iterLog := nutriplan.IterationLog{RunID: req.RunID, Iteration: 1, Timestamp: time.Now(), Input: string(reqBytes)}
	content, err := c.post(ctx, reqBytes)
	if err != nil {
		iterLog.Error = err.Error()
	} else {
		iterLog.Output = content
	}
	if lerr := c.logger.LogIteration(iterLog); lerr != nil {
		slog.Error("LLM_CLIENT: Failed to log iteration", "error", lerr)
	}
	return content, err
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	slog.Info("LLM_CLIENT: Invoking ollama", "model", c.model, "request_bytes", len(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw body", "error", err)
		return string(raw), nil
	}

	content := strings.TrimSpace(wr.Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
