package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/fatih/color"

	"github.com/ethpandaops/storebenchoor/pkg/bench"
	"github.com/ethpandaops/storebenchoor/pkg/store"
)

// opDisplayNames maps wire operation names to their display form.
var opDisplayNames = map[string]string{
	"WRITE":   "SEQUENTIAL WRITE",
	"WRITE-P": "PARALLEL WRITE",
	"READ":    "SEQUENTIAL READ",
	"READ-P":  "PARALLEL READ",
}

func opOrder(op string) int {
	for i, o := range bench.Operations {
		if string(o) == op {
			return i
		}
	}

	return len(bench.Operations)
}

// Reporter renders runs, results, and comparisons as tables.
type Reporter struct {
	w    io.Writer
	best func(a ...interface{}) string
	fail func(a ...interface{}) string
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{
		w:    w,
		best: color.New(color.FgGreen, color.Bold).SprintFunc(),
		fail: color.New(color.FgRed).SprintFunc(),
	}
}

// WriteRunList renders a table of runs, newest first.
func (r *Reporter) WriteRunList(runs []store.Run) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tTIMESTAMP\tNAME\tPROFILE\tWORKERS\tREPEATS\tSTATUS\tNOTES")

	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Name,
			run.Profile,
			run.Workers,
			run.Repeats,
			run.Status,
			run.Notes,
		)
	}

	tw.Flush()
}

// WriteRunResults renders the full result table of one run.
func (r *Reporter) WriteRunResults(run *store.Run, results []store.Result) {
	fmt.Fprintf(r.w, "Run #%d  %s  profile=%s  workers=%d  repeats=%d  status=%s\n\n",
		run.ID,
		run.Timestamp.Format("2006-01-02 15:04:05"),
		run.Profile,
		run.Workers,
		run.Repeats,
		run.Status,
	)

	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PROVIDER\tOPERATION\tSIZE\tFILES\tTHROUGHPUT\tIOPS\tAVG LAT\tMIN/MAX LAT\tVARIANCE\tFAILURES")

	for _, res := range results {
		if res.Failed {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t\t\t\t\t%d\n",
				res.Provider,
				res.Operation,
				units.BytesSize(float64(res.ByteSize)),
				res.FileCount,
				r.fail("FAILED"),
				res.Failures,
			)

			continue
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f MB/s\t%.2f\t%.2f ms\t%.2f/%.2f ms\t%.1f%%\t%d\n",
			res.Provider,
			res.Operation,
			units.BytesSize(float64(res.ByteSize)),
			res.FileCount,
			res.ThroughputMBps,
			res.OpsPerSec,
			res.AvgLatencyMs,
			res.MinLatencyMs,
			res.MaxLatencyMs,
			res.VariancePct,
			res.Failures,
		)
	}

	tw.Flush()
}

// WriteProviderStats renders the all-time aggregate table per provider.
func (r *Reporter) WriteProviderStats(stats []store.ProviderStats) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PROVIDER\tCELLS\tAVG THROUGHPUT\tAVG LATENCY\tFAILURES")

	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.2f MB/s\t%.2f ms\t%d\n",
			s.Provider,
			s.Cells,
			s.AvgThroughputMBps,
			s.AvgLatencyMs,
			s.TotalFailures,
		)
	}

	tw.Flush()
}

// WriteComparison renders the cross-provider comparison: a per-cell table
// grouped by operation and size, followed by the overall scoreboard.
func (r *Reporter) WriteComparison(results []store.Result) {
	providers := providerNames(results)
	if len(providers) < 2 {
		fmt.Fprintln(r.w, "Comparison requires results from at least two providers.")

		return
	}

	grouped := groupByCell(results)

	keys := make([]cellKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].op != keys[j].op {
			return opOrder(keys[i].op) < opOrder(keys[j].op)
		}

		return keys[i].byteSize < keys[j].byteSize
	})

	fmt.Fprintln(r.w, "PROVIDER PERFORMANCE COMPARISON")

	currentOp := ""

	for _, key := range keys {
		cells := grouped[key]
		if len(cells) < 2 {
			continue
		}

		if key.op != currentOp {
			currentOp = key.op

			fmt.Fprintf(r.w, "\n%s\n", opDisplayNames[key.op])
		}

		fmt.Fprintf(r.w, "\n  File Size: %s\n", units.BytesSize(float64(key.byteSize)))

		sort.Slice(cells, func(i, j int) bool {
			return cells[i].ThroughputMBps > cells[j].ThroughputMBps
		})

		bestThroughput := cells[0].ThroughputMBps

		tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  PROVIDER\tTHROUGHPUT\tIOPS\tLATENCY\tVS BEST\t")

		for i, cell := range cells {
			if cell.Failed {
				fmt.Fprintf(tw, "  %s\t%s\t\t\t\t\n", cell.Provider, r.fail("FAILED"))

				continue
			}

			diff := "baseline"
			mark := r.best("BEST")

			if i > 0 && bestThroughput > 0 {
				diff = fmt.Sprintf("%+.1f%%",
					(cell.ThroughputMBps-bestThroughput)/bestThroughput*100)
				mark = ""
			}

			fmt.Fprintf(tw, "  %s\t%.2f MB/s\t%.2f\t%.2f ms\t%s\t%s\n",
				cell.Provider,
				cell.ThroughputMBps,
				cell.OpsPerSec,
				cell.AvgLatencyMs,
				diff,
				mark,
			)
		}

		tw.Flush()
	}

	r.writeScoreboard(results, providers)
}

// Scores rates each provider 0-100: up to 25 points per operation type,
// scaled by its average throughput relative to the best provider for that
// operation. Failed cells contribute nothing.
func Scores(results []store.Result) map[string]float64 {
	type opStat struct {
		sum   float64
		count int
	}

	avgs := make(map[string]map[string]opStat)

	for _, res := range results {
		if res.Failed {
			continue
		}

		if avgs[res.Provider] == nil {
			avgs[res.Provider] = make(map[string]opStat)
		}

		s := avgs[res.Provider][res.Operation]
		s.sum += res.ThroughputMBps
		s.count++
		avgs[res.Provider][res.Operation] = s
	}

	best := make(map[string]float64)

	for _, ops := range avgs {
		for op, s := range ops {
			if avg := s.sum / float64(s.count); avg > best[op] {
				best[op] = avg
			}
		}
	}

	scores := make(map[string]float64, len(avgs))

	for provider, ops := range avgs {
		var score float64

		for _, op := range bench.Operations {
			s, ok := ops[string(op)]
			if !ok || best[string(op)] == 0 {
				continue
			}

			score += s.sum / float64(s.count) / best[string(op)] * 25
		}

		scores[provider] = score
	}

	return scores
}

func (r *Reporter) writeScoreboard(results []store.Result, providers []string) {
	scores := Scores(results)

	sort.Slice(providers, func(i, j int) bool {
		return scores[providers[i]] > scores[providers[j]]
	})

	fmt.Fprintln(r.w, "\nOVERALL PERFORMANCE SUMMARY")

	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSEQ WRITE\tPAR WRITE\tSEQ READ\tPAR READ\tSCORE\t")

	for i, provider := range providers {
		mark := ""
		if i == 0 {
			mark = r.best("BEST")
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f/100\t%s\n",
			provider,
			avgThroughput(results, provider, "WRITE"),
			avgThroughput(results, provider, "WRITE-P"),
			avgThroughput(results, provider, "READ"),
			avgThroughput(results, provider, "READ-P"),
			scores[provider],
			mark,
		)
	}

	tw.Flush()

	if len(providers) > 0 {
		fmt.Fprintf(r.w, "\nOVERALL WINNER: %s (score %.1f/100)\n",
			providers[0], scores[providers[0]])
	}
}

type cellKey struct {
	op       string
	byteSize int64
}

func groupByCell(results []store.Result) map[cellKey][]store.Result {
	grouped := make(map[cellKey][]store.Result)

	for _, res := range results {
		key := cellKey{op: res.Operation, byteSize: res.ByteSize}
		grouped[key] = append(grouped[key], res)
	}

	return grouped
}

func providerNames(results []store.Result) []string {
	seen := make(map[string]bool)

	var names []string

	for _, res := range results {
		if !seen[res.Provider] {
			seen[res.Provider] = true

			names = append(names, res.Provider)
		}
	}

	sort.Strings(names)

	return names
}

func avgThroughput(results []store.Result, provider, op string) string {
	var (
		sum   float64
		count int
	)

	for _, res := range results {
		if res.Provider == provider && res.Operation == op && !res.Failed {
			sum += res.ThroughputMBps
			count++
		}
	}

	if count == 0 {
		return "N/A"
	}

	return fmt.Sprintf("%.1f MB/s", sum/float64(count))
}
