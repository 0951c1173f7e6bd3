// Package monitor summarizes ledger progress per shard and plans which
// shards to (re)submit to the batch scheduler.
//
// A shard is in queue when its job name shows up in the scheduler's queue
// listing or when an attempt currently holds its shard lock. A shard is
// done once completed plus failed distinct urls reach its expected share of
// the input. Every other shard gets an sbatch line until the queue limit is
// reached.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"eccorun/internal/ledger"
	"eccorun/internal/shardlock"
)

// Counts is the distinct-url progress of one shard.
type Counts struct {
	Rank      int `json:"rank"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	// Abandoned counts failed urls over the failure budget and never completed.
	Abandoned int `json:"abandoned"`
}

// Scan loads counts for shards [0, total) from l, at most concurrency at a time.
func Scan(ctx context.Context, l ledger.Ledger, total, maxFails, concurrency int) ([]Counts, error) {
	if total <= 0 {
		return nil, fmt.Errorf("monitor: total shards must be positive, got %d", total)
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	out := make([]Counts, total)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for rank := 0; rank < total; rank++ {
		group.Go(func() error {
			snap, err := ledger.Load(gctx, l, rank)
			if err != nil {
				return fmt.Errorf("shard %d: %w", rank, err)
			}
			out[rank] = Counts{
				Rank:      rank,
				Completed: len(snap.Done),
				Failed:    len(snap.Failures),
				Abandoned: snap.Abandoned(maxFails),
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseQueue extracts shard ranks from scheduler queue output such as
// squeue, matching job names of the form {prefix}NNN surrounded by whitespace.
func ParseQueue(r io.Reader, prefix string) (map[int]struct{}, error) {
	pattern, err := regexp.Compile(`\s` + regexp.QuoteMeta(prefix) + `([0-9]{1,3})\s`)
	if err != nil {
		return nil, fmt.Errorf("monitor: queue pattern: %w", err)
	}
	queued := make(map[int]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// Pad so names at either end of the line still have whitespace around them.
		line := " " + scanner.Text() + " "
		for _, match := range pattern.FindAllStringSubmatch(line, -1) {
			rank, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			queued[rank] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("monitor: read queue: %w", err)
	}
	return queued, nil
}

// LiveShards returns the shards whose lock is currently held in dir.
func LiveShards(dir string, total int) (map[int]struct{}, error) {
	live := make(map[int]struct{})
	for rank := 0; rank < total; rank++ {
		held, err := shardlock.Held(dir, rank)
		if err != nil {
			return nil, fmt.Errorf("monitor: probe lock %d: %w", rank, err)
		}
		if held {
			live[rank] = struct{}{}
		}
	}
	return live, nil
}

// Options controls planning and the emitted submission commands.
type Options struct {
	Total         int
	ExpectedTotal int
	MaxInQueue    int
	RunName       string
	Script        string
	QueuePrefix   string
	StdoutDir     string
}

// Status is the planning verdict for one shard.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusDone    Status = "done"
	StatusPending Status = "pending"
)

// Partition is one shard's line in the plan.
type Partition struct {
	Counts
	Status  Status `json:"status"`
	Command string `json:"command,omitempty"`
	// Deferred is set on pending shards that did not fit under the queue limit.
	Deferred bool `json:"deferred,omitempty"`
}

// Plan is the full scheduling decision.
type Plan struct {
	Partitions     []Partition `json:"partitions"`
	InQueue        int         `json:"in_queue"`
	TotalCompleted int         `json:"total_completed"`
	TotalFailed    int         `json:"total_failed"`
	Submissions    int         `json:"submissions"`
}

// Threshold is the completed+failed count at which a shard counts as done.
func (o Options) Threshold() int {
	if o.Total <= 0 {
		return 0
	}
	return o.ExpectedTotal / o.Total
}

// Name renders a shard's scheduler job name, e.g. EB007.
func (o Options) Name(rank int) string {
	return fmt.Sprintf("%s%03d", o.QueuePrefix, rank)
}

// Command renders the sbatch line that submits an attempt for rank.
func (o Options) Command(rank int) string {
	name := o.Name(rank)
	return fmt.Sprintf("sbatch -J %s -o %s/%s_%03d.eo %s --worker-rank %d",
		name, strings.TrimRight(o.StdoutDir, "/"), o.RunName, rank, o.Script, rank)
}

// BuildPlan classifies every shard and assigns submissions in rank order.
func BuildPlan(counts []Counts, queued map[int]struct{}, opts Options) Plan {
	plan := Plan{InQueue: len(queued)}
	canSchedule := opts.MaxInQueue - len(queued)
	threshold := opts.Threshold()
	for _, c := range counts {
		plan.TotalCompleted += c.Completed
		plan.TotalFailed += c.Failed
		p := Partition{Counts: c}
		switch {
		case isQueued(queued, c.Rank):
			p.Status = StatusQueued
		case c.Completed+c.Failed >= threshold:
			p.Status = StatusDone
		default:
			p.Status = StatusPending
			if canSchedule > 0 {
				p.Command = opts.Command(c.Rank)
				plan.Submissions++
				canSchedule--
			} else {
				p.Deferred = true
			}
		}
		plan.Partitions = append(plan.Partitions, p)
	}
	return plan
}

func isQueued(queued map[int]struct{}, rank int) bool {
	_, ok := queued[rank]
	return ok
}

// Commands returns the submission lines in rank order.
func (p Plan) Commands() []string {
	var out []string
	for _, part := range p.Partitions {
		if part.Command != "" {
			out = append(out, part.Command)
		}
	}
	return out
}

// WriteScript writes the plan as a shell script: comments describe each
// shard and submission lines are executable.
func (p Plan) WriteScript(w io.Writer, opts Options) error {
	bw := bufio.NewWriter(w)
	for _, part := range p.Partitions {
		name := opts.Name(part.Rank)
		switch part.Status {
		case StatusQueued:
			fmt.Fprintf(bw, "# %s in queue or running completed:%d failed:%d\n", name, part.Completed, part.Failed)
		case StatusDone:
			fmt.Fprintf(bw, "# %s DONE completed:%d failed:%d\n", name, part.Completed, part.Failed)
		default:
			fmt.Fprintf(bw, "# %s completed:%d failed:%d\n", name, part.Completed, part.Failed)
			if part.Command != "" {
				fmt.Fprintln(bw, part.Command)
			} else {
				fmt.Fprintln(bw, "# cannot schedule more this time")
			}
		}
	}
	fmt.Fprintf(bw, "#TOTALS: completed: %d  failed: %d\n", p.TotalCompleted, p.TotalFailed)
	return bw.Flush()
}
