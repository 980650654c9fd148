package umm

import (
	"fmt"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// MigrationOp is one batched page transfer between two devices. It is an accounting record:
// the engine decides and counts migrations, the actual byte copy belongs to whatever
// executes the work (the backing storage here is shared, so there is nothing to copy).
//
// Contiguous pages moved by one access or one prefetch call from the same source coalesce
// into a single op -- fewer, larger transfers are cheaper than many small page-fault
// transfers, which is exactly the lever the optimization loop exists to exploit.
type MigrationOp struct {
	RegionID  uint64
	Source    DeviceID
	Dest      DeviceID
	FirstPage int
	NumPages  int
	Trigger   TriggerKind
}

// Bytes returns the number of bytes the op moves.
func (op MigrationOp) Bytes() int64 {
	return int64(op.NumPages) * PageSize
}

// Direction classifies the op by its destination.
func (op MigrationOp) Direction() Direction {
	if op.Dest == HostDevice {
		return ToHost
	}
	return ToDevice
}

// String implements fmt.Stringer.
func (op MigrationOp) String() string {
	return fmt.Sprintf("%s[region #%d, pages %d..%d, %s -> %s]",
		op.Trigger, op.RegionID, op.FirstPage, op.FirstPage+op.NumPages-1,
		deviceName(op.Source), deviceName(op.Dest))
}

func deviceName(id DeviceID) string {
	if id == HostDevice {
		return "host"
	}
	return fmt.Sprintf("accelerator#%d", id)
}

// Range selects a byte range within a region.
type Range struct {
	Offset, Length int
}

// resolveRange validates an optional byte range against the region size and returns the
// first and last page it overlaps. Must be called with r.mu held.
func (r *Region) resolveRange(byteRange []Range) (first, last int, err error) {
	if len(byteRange) > 1 {
		return 0, 0, errors.Errorf("at most one Range can be given, %d were given", len(byteRange))
	}
	rng := Range{Offset: 0, Length: r.size}
	if len(byteRange) == 1 {
		rng = byteRange[0]
	}
	if rng.Offset < 0 || rng.Length <= 0 || rng.Offset+rng.Length > r.size {
		return 0, 0, errors.Wrapf(ErrInvalidSize, "range [%d, %d) outside region #%d of %d bytes",
			rng.Offset, rng.Offset+rng.Length, r.id, r.size)
	}
	return rng.Offset / PageSize, (rng.Offset + rng.Length - 1) / PageSize, nil
}

// migratePages walks pages [first, last] and moves to dest every page not already there,
// coalescing contiguous pages with the same source into single MigrationOps. It implements
// both fault handling (TriggerOnDemand, synchronous from the caller's point of view) and
// prefetch (TriggerPrefetch, which only records intent and in-flight state).
//
// Must be called with r.mu held; the lock is what serializes page-state transitions, making
// the single-writer-per-page invariant hold while unrelated regions proceed independently.
func (r *Region) migratePages(dest DeviceID, first, last int, kind AccessKind, trigger TriggerKind) []MigrationOp {
	var ops []MigrationOp
	runStart, runLen := 0, 0
	runSource := unresident
	flush := func() {
		if runLen == 0 {
			return
		}
		ops = append(ops, MigrationOp{
			RegionID:  r.id,
			Source:    runSource,
			Dest:      dest,
			FirstPage: runStart,
			NumPages:  runLen,
			Trigger:   trigger,
		})
		runLen = 0
	}

	for idx := first; idx <= last; idx++ {
		page := &r.pages[idx]

		if entry, ok := r.inflight[idx]; ok {
			if entry.version != page.version {
				// The page moved on after the prefetch was issued; the entry is stale.
				delete(r.inflight, idx)
			} else if entry.dest == dest {
				// The page is already mid-migration to this destination: the fault (or
				// repeated prefetch) joins the transfer under way instead of opening a
				// duplicate op. An on-demand access additionally observes completion.
				if trigger == TriggerOnDemand {
					delete(r.inflight, idx)
					page.touch(kind)
				}
				flush()
				continue
			}
			// In flight to some other destination: the migration below supersedes it, and
			// the version bump invalidates the entry.
		}

		if page.resident == dest {
			// Already resident here: no fault. A write still takes exclusive ownership.
			if trigger == TriggerOnDemand {
				page.touch(kind)
			}
			flush()
			continue
		}

		source := page.source()
		if page.resident == unresident && source == dest {
			// First touch from the host: the page is populated in place, there is nothing
			// to copy and no operation to account for.
			page.migrateTo(dest)
			if trigger == TriggerOnDemand {
				page.touch(kind)
			}
			flush()
			continue
		}

		page.migrateTo(dest)
		if trigger == TriggerOnDemand {
			page.touch(kind)
			delete(r.inflight, idx)
		} else {
			r.inflight[idx] = inflightEntry{dest: dest, version: page.version}
		}

		if runLen > 0 && runSource == source && idx == runStart+runLen {
			runLen++
		} else {
			flush()
			runStart, runLen, runSource = idx, 1, source
		}
	}
	flush()

	for _, op := range ops {
		r.engine.rec.record(op)
		if klog.V(2).Enabled() {
			klog.Infof("%s", op)
		}
	}
	return ops
}

// Prefetch asynchronously relocates the given byte range (default: the whole region) to
// device, ahead of its use: the call returns after recording intent, and the represented
// transfer stays logically in flight until the destination's next access observes the pages
// as resident. No completion callback is involved -- completion is observed, not awaited.
//
// Pages already resident on (or already in flight to) the device are skipped, so repeating
// a prefetch is an idempotent no-op returning nil -- the defining benefit over taking the
// same pages through repeated on-demand faults. The remaining pages batch into one
// MigrationOp per maximal contiguous same-source run, recorded with the profiler under
// TriggerPrefetch.
func (r *Region) Prefetch(device DeviceID, byteRange ...Range) ([]MigrationOp, error) {
	if _, err := r.engine.topo.Device(device); err != nil {
		return nil, errors.WithMessagef(err, "Prefetch on region #%d", r.id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.freed {
		return nil, errors.Wrapf(ErrUseAfterFree, "Prefetch on region #%d", r.id)
	}
	first, last, err := r.resolveRange(byteRange)
	if err != nil {
		return nil, err
	}
	ops := r.migratePages(device, first, last, AccessRead, TriggerPrefetch)
	if len(ops) == 0 {
		return nil, nil
	}
	return ops, nil
}
