package pool

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

type statsCounters struct {
	submitted atomic.Int64
	chunks    atomic.Int64
	collected atomic.Int64
	errored   atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers    int
	QueueDepth int

	// Submitted counts tasks accepted onto the input queue; Chunks counts
	// the batches they were dispatched in.
	Submitted int64
	Chunks    int64

	// Collected counts outcomes drained from the output queue.
	Collected int64

	// Errored counts task errors captured in workers, Retried the caller
	// re-executions they triggered, Failed the confirmed fatal ones.
	Errored int64
	Retried int64
	Failed  int64
}

// Stats returns a snapshot of the pool's activity counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:    p.Workers(),
		QueueDepth: p.QueueDepth(),
		Submitted:  p.stats.submitted.Load(),
		Chunks:     p.stats.chunks.Load(),
		Collected:  p.stats.collected.Load(),
		Errored:    p.stats.errored.Load(),
		Retried:    p.stats.retried.Load(),
		Failed:     p.stats.failed.Load(),
	}
}

var statsHeader = color.New(color.FgCyan, color.Bold)

// WriteTable renders the snapshot as a table.
func (s Stats) WriteTable(w io.Writer) error {
	_, _ = statsHeader.Fprintln(w, "Pool activity")

	table := tablewriter.NewWriter(w)
	table.Header("Workers", "Queue", "Submitted", "Chunks", "Collected", "Errored", "Retried", "Failed")
	if err := table.Append(
		fmt.Sprint(s.Workers),
		fmt.Sprint(s.QueueDepth),
		fmt.Sprint(s.Submitted),
		fmt.Sprint(s.Chunks),
		fmt.Sprint(s.Collected),
		fmt.Sprint(s.Errored),
		fmt.Sprint(s.Retried),
		fmt.Sprint(s.Failed),
	); err != nil {
		return err
	}
	return table.Render()
}
