package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"nutriplan/tools"
)

const (
	// defaultModelID is an inference profile ID, not a foundation model ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A full day of meals with ingredients and preparation needs more room than a
	// short answer.
	defaultMaxTokens = 2048

	// Low temperature and top_p keep tool use and JSON output consistent.
	defaultTemperature = 0.2
	defaultTopP        = 0.9
)

var (
	ErrMaxTokens = errors.New("model hit MaxTokens limit; consider increasing MaxTokens")
	ErrBlocked   = errors.New("model response blocked by Bedrock safety filters")
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMClient struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewLLMClient(brc bedrockRuntimeClient, opts LLMOptions) *LLMClient {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &LLMClient{
		brc:  brc,
		opts: opts,
	}
}

// Invoke sends the conversation to the Converse API and returns either the
// final text or the tool calls the model asked for.
func (c *LLMClient) Invoke(ctx context.Context, prompt Prompt) (Response, error) {
	slog.Debug("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "model", c.opts.ModelID)

	var sys []types.SystemContentBlock
	var msgs []types.Message
	for _, m := range prompt.Messages {
		if m.Role == "system" {
			sys = append(sys, &types.SystemContentBlockMemberText{Value: m.Content.Join()})
			continue
		}
		msg, err := buildMessage(m)
		if err != nil {
			return Response{}, err
		}
		msgs = append(msgs, msg)
	}

	var toolSpecs []types.Tool
	for _, t := range prompt.Tools {
		spec, err := buildToolSpec(t)
		if err != nil {
			slog.Error("LLM_CLIENT: Failed to build tool spec", "tool", t.Name, "error", err)
			continue
		}
		toolSpecs = append(toolSpecs, &types.ToolMemberToolSpec{Value: spec})
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.opts.ModelID),
		System:   sys,
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}
	// Converse rejects an empty tool list.
	if len(toolSpecs) > 0 {
		in.ToolConfig = &types.ToolConfiguration{Tools: toolSpecs, ToolChoice: &types.ToolChoiceMemberAuto{}}
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock invoke failed", "error", err, "messages_len", len(msgs))
		return Response{}, fmt.Errorf("bedrock converse: %w", err)
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
		)
	}
	slog.Info("LLM_CLIENT: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonToolUse:
		calls, err := toolCallsFromOutput(out)
		if err != nil {
			return Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
		}
		text, _ := textFromOutput(out)
		return Response{Content: text, ToolCalls: calls}, nil

	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		text, err := textFromOutput(out)
		if err != nil {
			return Response{}, fmt.Errorf("failed to extract final text: %w", err)
		}
		return Response{Content: text}, nil

	case types.StopReasonMaxTokens:
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit", "max_tokens", c.opts.MaxTokens)
		return Response{}, ErrMaxTokens

	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return Response{}, ErrBlocked

	default:
		text, err := textFromOutput(out)
		if err != nil {
			return Response{}, fmt.Errorf("failed to extract text: %w", err)
		}
		calls, err := toolCallsFromOutput(out)
		if err != nil {
			return Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
		}
		return Response{Content: text, ToolCalls: calls}, nil
	}
}

func buildMessage(m Message) (types.Message, error) {
	msg := types.Message{Role: types.ConversationRole(m.Role)}

	for _, part := range m.Content {
		switch part.Type {
		case "text":
			if part.Text == "" {
				continue
			}
			msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: part.Text})

		case "tool_use":
			msg.Content = append(msg.Content, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
				ToolUseId: aws.String(part.ToolUseID),
				Name:      aws.String(part.ToolName),
				Input:     document.NewLazyDocument(cloneData(part.Data)),
			}})

		case "tool_result":
			if part.Data == nil {
				return types.Message{}, fmt.Errorf("tool result %s has no data", part.ToolUseID)
			}
			status := types.ToolResultStatusSuccess
			if tools.IsErrorResult(part.Data) {
				status = types.ToolResultStatusError
			}
			msg.Content = append(msg.Content, &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
				ToolUseId: aws.String(part.ToolUseID),
				Status:    status,
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(cloneData(part.Data))},
				},
			}})
		}
	}

	return msg, nil
}

// cloneData round-trips through JSON so the lazy document never shares maps
// with the conversation history.
func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	b, err := json.Marshal(data)
	if err == nil && json.Unmarshal(b, &out) == nil {
		return out
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// buildToolSpec constructs a ToolSpecification for a tool. The schema is
// marshaled first so its own MarshalJSON is honored.
func buildToolSpec(t Tool) (types.ToolSpecification, error) {
	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name),
		Description: aws.String(t.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

// textFromOutput returns assistant text:
// 1) the last text block that looks like a single JSON object, else
// 2) the only text block, else
// 3) all text blocks joined with '\n'.
func textFromOutput(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return "", nil
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	if len(texts) == 0 {
		return "", nil
	}

	for i := len(texts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(texts[i])
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s, nil
		}
	}

	if len(texts) == 1 {
		return texts[0], nil
	}
	return strings.Join(texts, "\n"), nil
}

// toolCallsFromOutput extracts tool uses emitted by the assistant.
func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) ([]tools.Call, error) {
	var calls []tools.Call
	if out == nil {
		return calls, nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || msg.Value.Content == nil {
		return calls, nil
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok || tu == nil {
			continue
		}

		input := map[string]any{}
		if tu.Value.Input != nil {
			if err := tu.Value.Input.UnmarshalSmithyDocument(&input); err != nil {
				input = map[string]any{}
			}
		}

		calls = append(calls, tools.Call{
			Name:      aws.ToString(tu.Value.Name),
			Input:     normalizeInput(input).(map[string]any),
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls, nil
}

// normalizeInput recursively coerces types for safe downstream use: whole
// floats become ints and stringified JSON arrays or objects are decoded.
func normalizeInput(val any) any {
	switch v := val.(type) {
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
		return v

	case string:
		s := strings.TrimSpace(v)
		if len(s) > 1 && (s[0] == '[' || s[0] == '{') {
			var decoded any
			if json.Unmarshal([]byte(s), &decoded) == nil {
				return normalizeInput(decoded)
			}
		}
		return v

	case []any:
		for i := range v {
			v[i] = normalizeInput(v[i])
		}
		return v

	case map[string]any:
		for key, val := range v {
			v[key] = normalizeInput(val)
		}
		return v

	case interface{ Float64() (float64, error) }:
		// json.Number and smithy document numbers.
		f, err := v.Float64()
		if err != nil {
			return v
		}
		return normalizeInput(f)

	default:
		return v
	}
}
