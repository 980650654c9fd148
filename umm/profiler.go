package umm

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// RunID identifies one accumulation scope opened with Recorder.BeginRun. The zero value is
// never a valid run.
type RunID int64

// Report is the immutable profiling snapshot of one run: migration operation counts and
// byte totals split per trigger kind (on-demand vs prefetch) and per direction (to an
// accelerator vs back to the host), plus the elapsed time of the measured unit of work.
//
// Field names and units are stable across runs so an optimization loop can compare them
// meaningfully: counts are operations, byte totals are bytes, and elapsed time is a
// time.Duration with a microsecond accessor.
type Report struct {
	Run RunID

	OnDemandOps int64
	PrefetchOps int64

	OnDemandBytesToDevice int64
	OnDemandBytesToHost   int64
	PrefetchBytesToDevice int64
	PrefetchBytesToHost   int64

	Elapsed time.Duration
}

// TotalOps returns the total number of migration operations in the run.
func (rep Report) TotalOps() int64 {
	return rep.OnDemandOps + rep.PrefetchOps
}

// TotalBytes returns the total number of bytes migrated in the run, in either direction.
func (rep Report) TotalBytes() int64 {
	return rep.OnDemandBytesToDevice + rep.OnDemandBytesToHost +
		rep.PrefetchBytesToDevice + rep.PrefetchBytesToHost
}

// ElapsedMicros returns the measured elapsed time in microseconds.
func (rep Report) ElapsedMicros() int64 {
	return rep.Elapsed.Microseconds()
}

// String implements fmt.Stringer.
func (rep Report) String() string {
	return fmt.Sprintf("Report[run #%d, %dus, on-demand: %d ops/%d bytes, prefetch: %d ops/%d bytes]",
		rep.Run, rep.ElapsedMicros(),
		rep.OnDemandOps, rep.OnDemandBytesToDevice+rep.OnDemandBytesToHost,
		rep.PrefetchOps, rep.PrefetchBytesToDevice+rep.PrefetchBytesToHost)
}

// Recorder accumulates migration counters per run. A run is opened with BeginRun, filled by
// the engine as accesses fault and prefetches are issued, and frozen into an immutable
// Report when the next run begins (or by EndRun). The accumulator is append-only during the
// run; a closed Report never changes.
//
// Independently of runs, the recorder keeps cumulative totals since creation, exported as
// Prometheus metrics by NewCollector.
type Recorder struct {
	mu      sync.Mutex
	nextRun RunID
	current RunID // 0 when no run is open.
	open    Report
	reports map[RunID]Report

	// Cumulative since creation, indexed [TriggerKind][Direction].
	totalOps   [2][2]int64
	totalBytes [2][2]int64
	totalRuns  int64
}

func newRecorder() *Recorder {
	return &Recorder{reports: make(map[RunID]Report)}
}

// BeginRun opens a fresh accumulation scope and returns its id. If a run was open, its
// counters are frozen first, as if by EndRun.
func (rec *Recorder) BeginRun() RunID {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.closeCurrentLocked()
	rec.nextRun++
	rec.current = rec.nextRun
	rec.open = Report{Run: rec.current}
	rec.totalRuns++
	return rec.current
}

// EndRun closes the currently open run and returns its frozen Report. It fails with
// ErrUnknownRun if no run is open.
func (rec *Recorder) EndRun() (Report, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.current == 0 {
		return Report{}, errors.Wrap(ErrUnknownRun, "EndRun with no open run")
	}
	id := rec.current
	rec.closeCurrentLocked()
	return rec.reports[id], nil
}

func (rec *Recorder) closeCurrentLocked() {
	if rec.current == 0 {
		return
	}
	rec.reports[rec.current] = rec.open
	rec.current = 0
}

// Report returns the frozen report of the given run. It fails with ErrUnknownRun if the run
// was never begun or is still open.
func (rec *Recorder) Report(id RunID) (Report, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if id == rec.current {
		return Report{}, errors.Wrapf(ErrUnknownRun, "run #%d is still open", id)
	}
	rep, found := rec.reports[id]
	if !found {
		return Report{}, errors.Wrapf(ErrUnknownRun, "run #%d was never begun", id)
	}
	return rep, nil
}

// RecordElapsed adds the elapsed time of a measured unit of work to the open run. It is a
// no-op (beyond a log line) when no run is open.
func (rec *Recorder) RecordElapsed(elapsed time.Duration) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.current == 0 {
		klog.V(2).Infof("RecordElapsed(%s) with no open run, dropped", elapsed)
		return
	}
	rec.open.Elapsed += elapsed
}

// record accumulates one migration op into the open run (if any) and the cumulative totals.
func (rec *Recorder) record(op MigrationOp) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.totalOps[op.Trigger][op.Direction()]++
	rec.totalBytes[op.Trigger][op.Direction()] += op.Bytes()
	if rec.current == 0 {
		return
	}
	switch op.Trigger {
	case TriggerOnDemand:
		rec.open.OnDemandOps++
		if op.Direction() == ToHost {
			rec.open.OnDemandBytesToHost += op.Bytes()
		} else {
			rec.open.OnDemandBytesToDevice += op.Bytes()
		}
	case TriggerPrefetch:
		rec.open.PrefetchOps++
		if op.Direction() == ToHost {
			rec.open.PrefetchBytesToHost += op.Bytes()
		} else {
			rec.open.PrefetchBytesToDevice += op.Bytes()
		}
	}
}

// totalsSnapshot returns a consistent copy of the cumulative counters, for the Prometheus
// collector.
func (rec *Recorder) totalsSnapshot() (ops, bytes [2][2]int64, runs int64) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.totalOps, rec.totalBytes, rec.totalRuns
}
