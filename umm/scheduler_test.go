package umm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefetchIdempotence(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 5)

	ops, err := region.Prefetch(0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, TriggerPrefetch, ops[0].Trigger)
	require.Equal(t, 5, ops[0].NumPages)
	requireResidentOn(t, region, 0)

	// Repeating with no intervening foreign access is a no-op.
	ops, err = region.Prefetch(0)
	require.NoError(t, err)
	require.Nil(t, ops)
}

func TestPrefetchEliminatesFaults(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 6)
	_, err := region.Prefetch(0)
	require.NoError(t, err)

	run := eng.Recorder().BeginRun()
	ops, err := region.Access().OnDevice(0).Read().Done()
	require.NoError(t, err)
	require.Empty(t, ops, "fully prefetched region must fault zero times")

	_, err = eng.Recorder().EndRun()
	require.NoError(t, err)
	report, err := eng.Recorder().Report(run)
	require.NoError(t, err)
	require.Zero(t, report.OnDemandOps)
}

func TestPrefetchToHostOfFreshRegionIsNoOp(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 3)

	// Unresident pages are logically host-backed: prefetching them "to the host" has
	// nothing to move.
	ops, err := region.Prefetch(HostDevice)
	require.NoError(t, err)
	require.Nil(t, ops)
	requireResidentOn(t, region, HostDevice)
}

func TestPrefetchRoundTripCounts(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 4)
	rec := eng.Recorder()

	run := rec.BeginRun()
	_, err := region.Prefetch(0)
	require.NoError(t, err)
	_, err = region.Prefetch(HostDevice)
	require.NoError(t, err)
	_, err = rec.EndRun()
	require.NoError(t, err)

	report, err := rec.Report(run)
	require.NoError(t, err)
	require.Equal(t, int64(2), report.PrefetchOps)
	require.Equal(t, int64(4*PageSize), report.PrefetchBytesToDevice)
	require.Equal(t, int64(4*PageSize), report.PrefetchBytesToHost)
	require.Zero(t, report.OnDemandOps)
}

func TestFaultJoinsInflightPrefetch(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 4)

	_, err := region.Prefetch(0)
	require.NoError(t, err)
	require.Len(t, region.inflight, 4)

	// An access by the destination observes completion and must not double count.
	run := eng.Recorder().BeginRun()
	ops, err := region.Access().OnDevice(0).Write().Done()
	require.NoError(t, err)
	require.Empty(t, ops)
	require.Empty(t, region.inflight, "completion observed, in-flight entries dropped")

	_, err = eng.Recorder().EndRun()
	require.NoError(t, err)
	report, err := eng.Recorder().Report(run)
	require.NoError(t, err)
	require.Zero(t, report.OnDemandOps)
}

func TestStaleInflightPrefetchDropped(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 2)

	_, err := region.Prefetch(0)
	require.NoError(t, err)

	// A foreign access supersedes the in-flight transfer: the version bump invalidates it.
	ops, err := region.Access().OnDevice(1).Read().Done()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, DeviceID(0), ops[0].Source)

	// Accessing from the original prefetch destination faults again: the old transfer is
	// stale, a fresh migration from #1 is needed.
	ops, err = region.Access().OnDevice(0).Read().Done()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, DeviceID(1), ops[0].Source)
	require.Empty(t, region.inflight)
}

func TestPrefetchRange(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 8)

	ops, err := region.Prefetch(0, Range{Offset: 2 * PageSize, Length: 3 * PageSize})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, 2, ops[0].FirstPage)
	require.Equal(t, 3, ops[0].NumPages)

	_, ok, err := region.ResidentDevice(0)
	require.NoError(t, err)
	require.False(t, ok, "pages outside the range stay unresident")

	resident, ok, err := region.ResidentDevice(3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, DeviceID(0), resident)

	_, err = region.Prefetch(0, Range{Offset: 0, Length: 9 * PageSize})
	require.ErrorIs(t, err, ErrInvalidSize)
	_, err = region.Prefetch(5)
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestFreeDropsInflightPrefetch(t *testing.T) {
	eng := newTestEngine(t)
	region := allocPages(t, eng, 4)
	_, err := region.Prefetch(0)
	require.NoError(t, err)

	// Freeing with transfers logically in flight is silent.
	require.NoError(t, region.Free())
}
