// Package shard maps positions in the input stream onto worker ranks.
package shard

import "fmt"

// Assignment is one worker's place in a fixed-size pool. A record at global
// index i belongs to the worker whose Rank equals i mod Total.
type Assignment struct {
	Rank  int
	Total int
}

// Validate reports whether the assignment describes a real worker.
func (a Assignment) Validate() error {
	if a.Total <= 0 {
		return fmt.Errorf("shard: total workers must be positive, got %d", a.Total)
	}
	if a.Rank < 0 || a.Rank >= a.Total {
		return fmt.Errorf("shard: rank %d outside [0, %d)", a.Rank, a.Total)
	}
	return nil
}

// Owns reports whether the record at the 0-based global index belongs to this worker.
func (a Assignment) Owns(index int64) bool {
	if a.Total <= 0 || index < 0 {
		return false
	}
	return index%int64(a.Total) == int64(a.Rank)
}

func (a Assignment) String() string {
	return fmt.Sprintf("rank %d of %d", a.Rank, a.Total)
}
