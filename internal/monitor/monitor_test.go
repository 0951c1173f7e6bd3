package monitor

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"eccorun/internal/ledger"
	"eccorun/internal/shardlock"
)

func TestParseQueue(t *testing.T) {
	squeue := `             JOBID PARTITION     NAME     USER ST       TIME  NODES NODELIST(REASON)
           8812345  standard    EB007   ginter  R    1:02:11      1 nid005001
           8812346  standard    EB150   ginter PD       0:00      1 (Priority)
           8812347  standard    XEB009  ginter PD       0:00      1 (Priority)
           8812348  standard    EB1234  ginter PD       0:00      1 (Priority)
`
	got, err := ParseQueue(strings.NewReader(squeue), "EB")
	if err != nil {
		t.Fatalf("ParseQueue: %v", err)
	}
	want := map[int]struct{}{7: {}, 150: {}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("queue mismatch (-want +got):\n%s", diff)
	}
}

func TestScanCountsDistinctURLs(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	mem := ledger.NewMemory()
	a := ledger.AttemptID{Shard: 0, Total: 3, Job: "1"}
	b := ledger.AttemptID{Shard: 0, Total: 3, Job: "2"}
	c := ledger.AttemptID{Shard: 2, Total: 3, Job: "1"}
	for _, op := range []struct {
		id   ledger.AttemptID
		url  string
		done bool
	}{
		{a, "x", true}, {b, "x", true}, {a, "y", false}, {b, "y", false}, {b, "y", false}, {c, "z", true},
	} {
		var err error
		if op.done {
			err = mem.RecordCompleted(ctx, op.id, op.url, nil)
		} else {
			err = mem.RecordFailed(ctx, op.id, op.url)
		}
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := Scan(ctx, mem, 3, 2, 2)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []Counts{
		{Rank: 0, Completed: 1, Failed: 1, Abandoned: 1},
		{Rank: 1},
		{Rank: 2, Completed: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPlanAndScript(t *testing.T) {
	opts := Options{
		Total:         4,
		ExpectedTotal: 40,
		MaxInQueue:    2,
		RunName:       "run1",
		Script:        "run_vllm_lumi.sh",
		QueuePrefix:   "EB",
		StdoutDir:     "STDOUTERR-ECCO-BIG-RUN",
	}
	counts := []Counts{
		{Rank: 0, Completed: 9, Failed: 1},
		{Rank: 1, Completed: 2},
		{Rank: 2, Completed: 3, Failed: 1},
		{Rank: 3},
	}
	queued := map[int]struct{}{1: {}}

	plan := BuildPlan(counts, queued, opts)
	statuses := []Status{}
	for _, p := range plan.Partitions {
		statuses = append(statuses, p.Status)
	}
	if diff := cmp.Diff([]Status{StatusDone, StatusQueued, StatusPending, StatusPending}, statuses); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
	if plan.Submissions != 1 || !plan.Partitions[3].Deferred {
		t.Fatalf("expected one submission and shard 3 deferred, got %+v", plan)
	}
	if diff := cmp.Diff([]string{"sbatch -J EB002 -o STDOUTERR-ECCO-BIG-RUN/run1_002.eo run_vllm_lumi.sh --worker-rank 2"}, plan.Commands()); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := plan.WriteScript(&buf, opts); err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	wantScript := `# EB000 DONE completed:9 failed:1
# EB001 in queue or running completed:2 failed:0
# EB002 completed:3 failed:1
sbatch -J EB002 -o STDOUTERR-ECCO-BIG-RUN/run1_002.eo run_vllm_lumi.sh --worker-rank 2
# EB003 completed:0 failed:0
# cannot schedule more this time
#TOTALS: completed: 14  failed: 2
`
	if diff := cmp.Diff(wantScript, buf.String()); diff != "" {
		t.Fatalf("script mismatch (-want +got):\n%s", diff)
	}
}

func TestLiveShards(t *testing.T) {
	dir := t.TempDir()
	lock, err := shardlock.Acquire(dir, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	live, err := LiveShards(dir, 3)
	if err != nil {
		t.Fatalf("LiveShards: %v", err)
	}
	if diff := cmp.Diff(map[int]struct{}{1: {}}, live); diff != "" {
		t.Fatalf("live mismatch (-want +got):\n%s", diff)
	}
}
