package correction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"eccorun/internal/config"
	"eccorun/internal/logging"
	"eccorun/internal/services"
)

// ChunkCorrector corrects one chunk.
type ChunkCorrector interface {
	Correct(ctx context.Context, chunk string) (string, error)
}

// Corrector corrects a whole document's chunks, preserving order and arity.
type Corrector interface {
	Correct(ctx context.Context, chunks []string) ([]string, error)
}

// Processor corrects a document's chunks in parallel over a ChunkCorrector.
type Processor struct {
	chunks      ChunkCorrector
	concurrency int
	logger      *slog.Logger
}

// NewProcessor wraps corrector; concurrency bounds in-flight chunk requests.
func NewProcessor(corrector ChunkCorrector, concurrency int, logger *slog.Logger) *Processor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Processor{
		chunks:      corrector,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "correction"),
	}
}

// Correct returns one corrected chunk per input chunk, NFC-normalized. The
// first chunk failure cancels the rest and fails the document.
func (p *Processor) Correct(ctx context.Context, chunks []string) ([]string, error) {
	out := make([]string, len(chunks))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)
	for i, chunk := range chunks {
		group.Go(func() error {
			corrected, err := p.chunks.Correct(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			out[i] = norm.NFC.String(corrected)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, services.Wrap(services.ErrProcessing, "correction", "correct", "", err)
	}
	logging.WithContext(ctx, p.logger).Debug("document corrected", logging.Int("chunks", len(chunks)))
	return out, nil
}

// Echo returns chunks unchanged. It stands in for the model in dry runs.
type Echo struct{}

func (Echo) Correct(ctx context.Context, chunks []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), chunks...), nil
}

// HealthChecker is implemented by backends that can probe their endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Backend bundles the document corrector with an optional health probe.
type Backend struct {
	Corrector
	Health HealthChecker
	Model  string
}

// FromConfig builds the backend selected in cfg.LLM.
func FromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (Backend, error) {
	if cfg == nil {
		return Backend{}, services.Wrap(services.ErrConfiguration, "correction", "configure", "config is required", nil)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Backend)) {
	case "echo":
		return Backend{Corrector: Echo{}, Model: "echo"}, nil
	case "", "openai":
		client := NewClient(Config{
			BaseURL:        cfg.LLM.BaseURL,
			APIKey:         cfg.LLM.APIKey,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			TopK:           cfg.LLM.TopK,
			TopP:           cfg.LLM.TopP,
			MaxTokens:      cfg.LLM.MaxTokens,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, opts...)
		return Backend{
			Corrector: NewProcessor(client, cfg.LLM.Concurrency, logger),
			Health:    client,
			Model:     client.Model(),
		}, nil
	default:
		return Backend{}, services.Wrap(services.ErrConfiguration, "correction", "configure",
			fmt.Sprintf("unknown llm backend %q", cfg.LLM.Backend), nil)
	}
}
