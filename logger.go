package nutriplan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// GenerationLogger records each round trip with a generation model.
type GenerationLogger interface {
	LogIteration(iteration IterationLog) error
}

// NewGenerationLogFilePath returns a log path stamped with the run id and a cleaned up model id.
func NewGenerationLogFilePath(runID, model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.%s.json",
		time.Now().Unix(),
		runID,
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// IterationLog is a single request/response exchange with the model.
type IterationLog struct {
	RunID     string        `json:"run_id,omitempty"`
	Iteration int           `json:"iteration"`
	Timestamp time.Time     `json:"timestamp"`
	Input     string        `json:"input,omitempty"`
	Output    any           `json:"output"`
	ToolCalls []ToolCallLog `json:"tool_calls,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ToolCallLog is one tool execution requested by the model.
type ToolCallLog struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output"`
	Error  string         `json:"error,omitempty"`
}

// FileGenerationLogger buffers iterations and writes them out on Flush.
type FileGenerationLogger struct {
	iterations []IterationLog
	writer     io.Writer
}

func NewFileGenerationLogger(writer io.Writer) *FileGenerationLogger {
	return &FileGenerationLogger{
		iterations: make([]IterationLog, 0),
		writer:     writer,
	}
}

func (l *FileGenerationLogger) LogIteration(iteration IterationLog) error {
	l.iterations = append(l.iterations, iteration)
	return nil
}

// Flush writes all buffered iterations as one JSON document and resets the buffer.
func (l *FileGenerationLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"generation_session": map[string]any{
			"timestamp":  time.Now(),
			"iterations": l.iterations,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal generation log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write generation log: %w", err)
	}

	l.iterations = l.iterations[:0]
	return nil
}

type NoOpGenerationLogger struct{}

func NewNoOpGenerationLogger() *NoOpGenerationLogger { return &NoOpGenerationLogger{} }

func (NoOpGenerationLogger) LogIteration(IterationLog) error { return nil }

// StdoutGenerationLogger writes each iteration as a JSON line (for Lambda/CloudWatch).
type StdoutGenerationLogger struct {
	out io.Writer
}

func NewStdoutGenerationLogger() *StdoutGenerationLogger {
	return &StdoutGenerationLogger{out: os.Stdout}
}

func (l *StdoutGenerationLogger) LogIteration(iteration IterationLog) error {
	data, err := json.Marshal(iteration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}
