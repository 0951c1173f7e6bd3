package ledger

import (
	"context"
	"sync"
)

// Entry is one append held by the in-memory ledger.
type Entry struct {
	ID     AttemptID
	URL    string
	Result any
}

// Memory is a process-local ledger with the same read semantics as Files.
type Memory struct {
	mu        sync.Mutex
	completed []Entry
	failed    []Entry
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordCompleted(ctx context.Context, id AttemptID, url string, result any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkWrite(id, url); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, Entry{ID: id, URL: url, Result: result})
	return nil
}

func (m *Memory) RecordFailed(ctx context.Context, id AttemptID, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkWrite(id, url); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, Entry{ID: id, URL: url})
	return nil
}

func (m *Memory) CompletedSet(_ context.Context, shard int) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	done := make(map[string]struct{})
	for _, e := range m.completed {
		if e.ID.Shard == shard {
			done[e.URL] = struct{}{}
		}
	}
	return done, nil
}

func (m *Memory) FailureCounts(_ context.Context, shard int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range m.failed {
		if e.ID.Shard == shard {
			counts[e.URL]++
		}
	}
	return counts, nil
}

// Completed returns a copy of every completion appended so far.
func (m *Memory) Completed() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.completed...)
}

// Failed returns a copy of every failure appended so far.
func (m *Memory) Failed() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.failed...)
}

func (m *Memory) Close() error { return nil }
