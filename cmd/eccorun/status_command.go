package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"eccorun/internal/config"
	"eccorun/internal/ledger"
	"eccorun/internal/monitor"
)

type shardProgress struct {
	monitor.Counts
	Live  bool   `json:"live"`
	State string `json:"state"`
}

type progressReport struct {
	Backend        string          `json:"backend"`
	Location       string          `json:"location"`
	Total          int             `json:"total_shards"`
	ExpectedTotal  int             `json:"expected_total"`
	Threshold      int             `json:"done_threshold"`
	MaxFails       int             `json:"max_fails"`
	Shards         []shardProgress `json:"shards"`
	Done           int             `json:"done_shards"`
	Live           int             `json:"live_shards"`
	TotalCompleted int             `json:"total_completed"`
	TotalFailed    int             `json:"total_failed"`
	TotalAbandoned int             `json:"total_abandoned"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

func collectProgress(ctx context.Context, cfg *config.Config, l ledger.Ledger) (progressReport, error) {
	opts := monitorOptions(cfg)
	counts, err := monitor.Scan(ctx, l, cfg.Shard.Total, cfg.Attempt.MaxFails, 0)
	if err != nil {
		return progressReport{}, err
	}
	live, err := monitor.LiveShards(cfg.Paths.OutDir, cfg.Shard.Total)
	if err != nil {
		return progressReport{}, err
	}

	report := progressReport{
		Backend:       cfg.Ledger.Backend,
		Location:      ledgerLocation(cfg),
		Total:         cfg.Shard.Total,
		ExpectedTotal: cfg.Monitor.ExpectedTotal,
		Threshold:     opts.Threshold(),
		MaxFails:      cfg.Attempt.MaxFails,
		GeneratedAt:   time.Now().UTC(),
	}
	for _, c := range counts {
		_, isLive := live[c.Rank]
		p := shardProgress{Counts: c, Live: isLive}
		switch {
		case isLive:
			p.State = "running"
			report.Live++
		case report.Threshold > 0 && c.Completed+c.Failed >= report.Threshold:
			p.State = "done"
			report.Done++
		case c.Completed+c.Failed > 0:
			p.State = "partial"
		default:
			p.State = "untouched"
		}
		report.TotalCompleted += c.Completed
		report.TotalFailed += c.Failed
		report.TotalAbandoned += c.Abandoned
		report.Shards = append(report.Shards, p)
	}
	return report, nil
}

func ledgerLocation(cfg *config.Config) string {
	if cfg.Ledger.Backend == "sqlite" {
		return cfg.Ledger.SQLitePath
	}
	return cfg.Paths.OutDir
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		watch      bool
		all        bool
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger progress per shard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(cfg *config.Config, l ledger.Ledger) error {
				render := func() error {
					report, err := collectProgress(cmd.Context(), cfg, l)
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, report)
					}
					out := cmd.OutOrStdout()
					renderProgress(out, report, all, shouldColorize(out))
					return nil
				}
				if err := render(); err != nil {
					return err
				}
				if !watch {
					return nil
				}
				return watchLedger(cmd.Context(), cfg.Paths.OutDir, interval, render)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render whenever the ledger changes")
	cmd.Flags().BoolVar(&all, "all", false, "List untouched shards too")
	cmd.Flags().DurationVar(&interval, "debounce", 2*time.Second, "Minimum delay between re-renders in watch mode")
	return cmd
}

func renderProgress(out io.Writer, report progressReport, all, colorize bool) {
	for _, line := range renderSectionHeader("Ledger", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, fmt.Sprintf("%s (%s)", report.Backend, report.Location), colorize))
	fmt.Fprintln(out, renderStatusLine("Shards", statusInfo,
		fmt.Sprintf("%d total, %d done, %d running", report.Total, report.Done, report.Live), colorize))

	completedKind := statusInfo
	if report.ExpectedTotal > 0 && report.TotalCompleted+report.TotalFailed >= report.ExpectedTotal {
		completedKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Completed", completedKind,
		fmt.Sprintf("%d (%s of %d)", report.TotalCompleted, percent(report.TotalCompleted, report.ExpectedTotal), report.ExpectedTotal), colorize))

	failedKind := statusOK
	if report.TotalFailed > 0 {
		failedKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind,
		fmt.Sprintf("%d urls, %d abandoned (over %d failures)", report.TotalFailed, report.TotalAbandoned, report.MaxFails), colorize))

	var rows [][]string
	for _, s := range report.Shards {
		if !all && s.State == "untouched" {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Rank),
			strconv.Itoa(s.Completed),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Abandoned),
			percent(s.Completed+s.Failed, report.Threshold),
			s.State,
		})
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Shards", colorize) {
		fmt.Fprintln(out, line)
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No shard has ledger entries yet")
		return
	}
	fmt.Fprintln(out, shardTable{
		headers: []string{"Shard", "Completed", "Failed", "Abandoned", "Progress", "State"},
		rows:    rows,
		right:   map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true},
		footer: []string{"Total", strconv.Itoa(report.TotalCompleted), strconv.Itoa(report.TotalFailed),
			strconv.Itoa(report.TotalAbandoned), percent(report.TotalCompleted+report.TotalFailed, report.ExpectedTotal),
			fmt.Sprintf("%d/%d done", report.Done, report.Total)},
	}.render())
}
