// Package ledger records which records a shard has completed or failed.
//
// Every write is an append; nothing is ever rewritten or deleted. Resume
// state is derived by scanning everything any attempt of a shard has
// appended, so a crash at any point loses at most the record in flight.
// A record appearing in the completed set is done regardless of how many
// failures were logged for it beforehand.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"eccorun/internal/services"
)

// AttemptID identifies one execution of one shard.
type AttemptID struct {
	Shard int
	Total int
	Job   string
}

// Validate rejects identities that cannot be encoded into file names.
func (id AttemptID) Validate() error {
	if id.Total <= 0 || id.Shard < 0 || id.Shard >= id.Total {
		return fmt.Errorf("attempt: rank %d of %d is not a valid shard", id.Shard, id.Total)
	}
	if strings.TrimSpace(id.Job) == "" {
		return fmt.Errorf("attempt: job id is required")
	}
	if strings.ContainsAny(id.Job, `/\`) || strings.ContainsAny(id.Job, "\n\r") {
		return fmt.Errorf("attempt: job id %q contains path or line separators", id.Job)
	}
	return nil
}

// Prefix is the common stem of this attempt's ledger files.
func (id AttemptID) Prefix() string {
	return fmt.Sprintf("rank_%d_of_%d_%s", id.Shard, id.Total, id.Job)
}

// CompletedFile names the plain-text completion log.
func (id AttemptID) CompletedFile() string { return id.Prefix() + ".completed.txt" }

// ResultsFile names the compressed result log.
func (id AttemptID) ResultsFile() string { return id.Prefix() + ".completed.jsonl.gz" }

// FailedFile names the failure log.
func (id AttemptID) FailedFile() string { return id.Prefix() + ".failed.txt" }

func (id AttemptID) String() string { return id.Prefix() }

// Ledger is the durable bookkeeping store shared by every attempt of every shard.
type Ledger interface {
	// RecordCompleted persists result and then marks url done. It returns only
	// once both writes are durable.
	RecordCompleted(ctx context.Context, id AttemptID, url string, result any) error
	// RecordFailed appends one failure for url.
	RecordFailed(ctx context.Context, id AttemptID, url string) error
	// CompletedSet returns the urls completed by any attempt of shard.
	CompletedSet(ctx context.Context, shard int) (map[string]struct{}, error)
	// FailureCounts returns, per url, how many failures any attempt of shard logged.
	FailureCounts(ctx context.Context, shard int) (map[string]int, error)
	Close() error
}

// Snapshot is the resume state of one shard at the start of an attempt.
type Snapshot struct {
	Done     map[string]struct{}
	Failures map[string]int
}

// IsDone reports whether url was completed by any earlier attempt.
func (s Snapshot) IsDone(url string) bool {
	_, ok := s.Done[url]
	return ok
}

// FailureCount returns the number of logged failures for url.
func (s Snapshot) FailureCount(url string) int {
	return s.Failures[url]
}

// Abandoned counts urls that are not done and have more than maxFails failures.
func (s Snapshot) Abandoned(maxFails int) int {
	n := 0
	for url, count := range s.Failures {
		if count > maxFails && !s.IsDone(url) {
			n++
		}
	}
	return n
}

// Load reads the full resume state of shard.
func Load(ctx context.Context, l Ledger, shard int) (Snapshot, error) {
	done, err := l.CompletedSet(ctx, shard)
	if err != nil {
		return Snapshot{}, err
	}
	failures, err := l.FailureCounts(ctx, shard)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Done: done, Failures: failures}, nil
}

func checkWrite(id AttemptID, url string) error {
	if err := id.Validate(); err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "append", "", err)
	}
	if url == "" || strings.ContainsAny(url, "\n\r") || strings.TrimSpace(url) != url {
		return services.Wrap(services.ErrInput, "ledger", "append", fmt.Sprintf("url %q cannot be stored as one ledger line", url), nil)
	}
	return nil
}
