package attempt

import (
	"context"
	"time"

	"eccorun/internal/source"
)

// Processor corrects a document's chunks. It must return exactly one output
// per input chunk, in order.
type Processor interface {
	Correct(ctx context.Context, chunks []string) ([]string, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, chunks []string) ([]string, error)

func (f ProcessorFunc) Correct(ctx context.Context, chunks []string) ([]string, error) {
	return f(ctx, chunks)
}

// Source yields the shard's records in input order and io.EOF at the end.
type Source interface {
	Next() (source.Record, error)
}

// State is a step of the attempt state machine.
type State int

const (
	StateRunning State = iota
	StateSkipped
	StateAbandoned
	StateProcessedOk
	StateProcessedFailed
	StateBudgetExceeded
	StateInputExhausted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSkipped:
		return "skipped"
	case StateAbandoned:
		return "abandoned"
	case StateProcessedOk:
		return "processed_ok"
	case StateProcessedFailed:
		return "processed_failed"
	case StateBudgetExceeded:
		return "budget_exceeded"
	case StateInputExhausted:
		return "input_exhausted"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the document appended to the result log for a completed record.
type Result struct {
	URL         string    `json:"url"`
	LenOrig     int       `json:"len_orig"`
	Corrections []string  `json:"corrections"`
	TextOrig    string    `json:"text-orig"`
	Model       string    `json:"model,omitempty"`
	Job         string    `json:"job"`
	ChunkLength int       `json:"chunk_length"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Summary reports what one attempt did.
type Summary struct {
	State     State         `json:"state"`
	Seen      int           `json:"seen"`
	Skipped   int           `json:"skipped"`
	Abandoned int           `json:"abandoned"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Processed counts records handed to the processor.
func (s Summary) Processed() int {
	return s.Completed + s.Failed
}

// Event describes one record transition; observers receive one per record.
type Event struct {
	Index   int64
	URL     string
	State   State
	Chunks  int
	Elapsed time.Duration
	Err     error
}
