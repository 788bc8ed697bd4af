package build

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
)

// stageReporter writes one status line per build stage, for example
//
//	[2/5] tokenize 300/300 ok (41ms)
//
// Stages that process the corpus entry by entry also rewrite their line
// with a running count every interval entries. A nil *stageReporter
// reports nothing.
type stageReporter struct {
	mu       sync.Mutex
	w        io.Writer
	interval int
	stage    Stage
	total    int
	done     int
	shown    int
}

func newStageReporter(w io.Writer, interval int) *stageReporter {
	if w == nil {
		return nil
	}
	if interval < 1 {
		interval = 1
	}
	return &stageReporter{w: w, interval: interval}
}

// begin opens the line for stage. total is the number of entries the
// stage will count through advance, or 0 when it does not count.
func (r *stageReporter) begin(stage Stage, total int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage, r.total, r.done, r.shown = stage, total, 0, 0
	r.line()
}

// advance records one finished entry. Safe for concurrent use.
func (r *stageReporter) advance() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done < r.total {
		r.done++
	}
	if r.done-r.shown >= r.interval || r.done == r.total {
		r.shown = r.done
		r.line()
	}
}

// end closes the line for the current stage.
func (r *stageReporter) end(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.line()
	status := "ok"
	if err != nil {
		status = "failed"
	}
	fmt.Fprintf(r.w, " %s (%s)\n", status, elapsed.Round(time.Millisecond))
}

// line must be called with the lock held.
func (r *stageReporter) line() {
	fmt.Fprintf(r.w, "\r[%d/%d] %s", slices.Index(Stages, r.stage)+1, len(Stages), r.stage)
	if r.total > 0 {
		fmt.Fprintf(r.w, " %d/%d", r.done, r.total)
	}
}
