// Package resume decides, per record, what an attempt does with it given
// the shard's accumulated ledger state.
package resume

import "eccorun/internal/ledger"

// Decision is the gate outcome for one record.
type Decision int

const (
	// Process means the record has not been completed and still has failure budget.
	Process Decision = iota
	// Skip means some attempt already completed the record.
	Skip
	// Abandon means the record failed more than the allowed number of times.
	Abandon
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case Abandon:
		return "abandon"
	default:
		return "process"
	}
}

// Decide applies the resume rules in order: completed records are skipped,
// records with more than maxFails failures are abandoned, everything else
// is processed. A record with exactly maxFails failures is still retried.
func Decide(url string, snap ledger.Snapshot, maxFails int) Decision {
	if snap.IsDone(url) {
		return Skip
	}
	if snap.FailureCount(url) > maxFails {
		return Abandon
	}
	return Process
}
