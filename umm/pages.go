package umm

// PageSize is the fixed granularity, in bytes, of residency tracking and migration.
const PageSize = 4096

// unresident marks a page that was never touched since allocation. For migration purposes
// an unresident page is logically backed by zeroed host memory: migrating it to the host is
// a plain first touch (nothing to copy, no operation emitted), migrating it to an
// accelerator is a host-to-device transfer.
const unresident DeviceID = -2

// pageState tracks the residency of one page. All transitions happen under the owning
// region's lock (single writer per page).
type pageState struct {
	resident DeviceID

	// version increments on every residency transition. It detects stale in-flight
	// prefetches: an inflight entry whose version no longer matches the page is dropped.
	version uint64

	// dirty is set when the resident device wrote the page since it arrived.
	dirty bool

	// exclusive is set when a write access handed the page to its resident device
	// exclusively; it is cleared by the next cross-device migration.
	exclusive bool
}

// source returns the device a migration away from this page would copy from.
func (p *pageState) source() DeviceID {
	if p.resident == unresident {
		return HostDevice
	}
	return p.resident
}

// migrateTo moves the page to dest, bumping the version. Dirty and exclusive state is
// reset; a write fault re-marks them via touch.
func (p *pageState) migrateTo(dest DeviceID) {
	p.resident = dest
	p.version++
	p.dirty = false
	p.exclusive = false
}

// touch updates dirty/exclusive state for an access by the (already resident) device.
func (p *pageState) touch(kind AccessKind) {
	if kind == AccessWrite {
		p.dirty = true
		p.exclusive = true
	}
}
