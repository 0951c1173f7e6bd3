package correction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"eccorun/internal/config"
	"eccorun/internal/services"
)

type chunkFunc func(ctx context.Context, chunk string) (string, error)

func (f chunkFunc) Correct(ctx context.Context, chunk string) (string, error) { return f(ctx, chunk) }

func TestProcessorPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	slowFirst := chunkFunc(func(_ context.Context, chunk string) (string, error) {
		if chunk == "a" {
			time.Sleep(20 * time.Millisecond)
		}
		return strings.ToUpper(chunk), nil
	})
	p := NewProcessor(slowFirst, 4, nil)
	got, err := p.Correct(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D", "E"}, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessorBoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	track := chunkFunc(func(_ context.Context, chunk string) (string, error) {
		n := inFlight.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return chunk, nil
	})
	p := NewProcessor(track, 2, nil)
	if _, err := p.Correct(context.Background(), make([]string, 10)); err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds limit 2", peak.Load())
	}
}

func TestProcessorFailsDocumentOnChunkError(t *testing.T) {
	defer goleak.VerifyNone(t)

	failing := chunkFunc(func(ctx context.Context, chunk string) (string, error) {
		if chunk == "bad" {
			return "", errors.New("model unavailable")
		}
		return chunk, nil
	})
	p := NewProcessor(failing, 1, nil)
	_, err := p.Correct(context.Background(), []string{"ok", "bad", "ok"})
	if !errors.Is(err, services.ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
	if !strings.Contains(err.Error(), "chunk 2/3") {
		t.Fatalf("error should name the chunk, got %v", err)
	}
}

func TestProcessorNormalizesToNFC(t *testing.T) {
	decomposed := chunkFunc(func(context.Context, string) (string, error) {
		return "Cafe\u0301", nil
	})
	got, err := NewProcessor(decomposed, 1, nil).Correct(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if got[0] != "Caf\u00e9" {
		t.Fatalf("expected composed form, got %q", got[0])
	}
}

func TestEchoReturnsInput(t *testing.T) {
	in := []string{"one", ""}
	got, err := Echo{}.Correct(context.Background(), in)
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("echo mismatch (-want +got):\n%s", diff)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Backend = "echo"
	backend, err := FromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("echo backend: %v", err)
	}
	if _, ok := backend.Corrector.(Echo); !ok || backend.Health != nil {
		t.Fatalf("unexpected echo backend %+v", backend)
	}

	cfg.LLM.Backend = "openai"
	backend, err = FromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("openai backend: %v", err)
	}
	if backend.Health == nil || backend.Model != cfg.LLM.Model {
		t.Fatalf("unexpected openai backend %+v", backend)
	}

	cfg.LLM.Backend = "carrier-pigeon"
	if _, err := FromConfig(&cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
