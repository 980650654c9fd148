package umm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecorderRunLifecycle(t *testing.T) {
	rec := newRecorder()

	// Reports for unknown runs fail.
	_, err := rec.Report(RunID(42))
	require.ErrorIs(t, err, ErrUnknownRun)

	run1 := rec.BeginRun()
	require.NotZero(t, run1)

	// Still open: no report yet.
	_, err = rec.Report(run1)
	require.ErrorIs(t, err, ErrUnknownRun)

	rec.RecordElapsed(1500 * time.Microsecond)
	rec.RecordElapsed(500 * time.Microsecond)

	// BeginRun freezes the prior run.
	run2 := rec.BeginRun()
	require.NotEqual(t, run1, run2)
	report, err := rec.Report(run1)
	require.NoError(t, err)
	require.Equal(t, run1, report.Run)
	require.Equal(t, int64(2000), report.ElapsedMicros())

	// EndRun closes without opening a new one.
	report2, err := rec.EndRun()
	require.NoError(t, err)
	require.Equal(t, run2, report2.Run)
	_, err = rec.EndRun()
	require.ErrorIs(t, err, ErrUnknownRun)
}

func TestRecorderCounters(t *testing.T) {
	rec := newRecorder()
	run := rec.BeginRun()

	rec.record(MigrationOp{Source: HostDevice, Dest: 0, NumPages: 4, Trigger: TriggerOnDemand})
	rec.record(MigrationOp{Source: 0, Dest: HostDevice, NumPages: 2, Trigger: TriggerOnDemand})
	rec.record(MigrationOp{Source: HostDevice, Dest: 1, NumPages: 8, Trigger: TriggerPrefetch})

	report, err := rec.EndRun()
	require.NoError(t, err)
	require.Equal(t, run, report.Run)
	require.Equal(t, int64(2), report.OnDemandOps)
	require.Equal(t, int64(1), report.PrefetchOps)
	require.Equal(t, int64(3), report.TotalOps())
	require.Equal(t, int64(4*PageSize), report.OnDemandBytesToDevice)
	require.Equal(t, int64(2*PageSize), report.OnDemandBytesToHost)
	require.Equal(t, int64(8*PageSize), report.PrefetchBytesToDevice)
	require.Zero(t, report.PrefetchBytesToHost)
	require.Equal(t, int64(14*PageSize), report.TotalBytes())
}

func TestRecorderReportImmutable(t *testing.T) {
	rec := newRecorder()
	run := rec.BeginRun()
	rec.record(MigrationOp{Source: HostDevice, Dest: 0, NumPages: 1, Trigger: TriggerOnDemand})
	_, err := rec.EndRun()
	require.NoError(t, err)

	frozen, err := rec.Report(run)
	require.NoError(t, err)

	// Counters recorded after the close land nowhere near the frozen report.
	rec.record(MigrationOp{Source: HostDevice, Dest: 0, NumPages: 5, Trigger: TriggerOnDemand})
	again, err := rec.Report(run)
	require.NoError(t, err)
	require.Equal(t, frozen, again)
}

func TestRecorderCumulativeTotals(t *testing.T) {
	rec := newRecorder()

	// Cumulative totals accumulate even with no open run.
	rec.record(MigrationOp{Source: HostDevice, Dest: 0, NumPages: 3, Trigger: TriggerPrefetch})
	rec.RecordElapsed(time.Millisecond) // Dropped: no open run.

	ops, bytes, runs := rec.totalsSnapshot()
	require.Equal(t, int64(1), ops[TriggerPrefetch][ToDevice])
	require.Equal(t, int64(3*PageSize), bytes[TriggerPrefetch][ToDevice])
	require.Zero(t, ops[TriggerOnDemand][ToDevice])
	require.Zero(t, runs)

	rec.BeginRun()
	_, _, runs = rec.totalsSnapshot()
	require.Equal(t, int64(1), runs)
}
