package umm

import (
	"github.com/pkg/errors"
)

// AccessConfig configures one access (a touch by a unit of work) to a region, and is
// created with Region.Access.
//
// The accessing device must be set with OnDevice; the byte range defaults to the whole
// region (see Over) and the kind to a read (see Write). At the end, call Done to apply the
// access: it returns the on-demand MigrationOps the access triggered, empty when every
// touched page was already resident on the accessing device.
type AccessConfig struct {
	region    *Region
	device    DeviceID
	deviceSet bool
	byteRange []Range
	kind      AccessKind

	// err stores the first error that happened during configuration.
	// If it is not nil, it is immediately returned by the Done call.
	err error
}

// Access starts configuring an access to the region. See AccessConfig.
func (r *Region) Access() *AccessConfig {
	return &AccessConfig{region: r, kind: AccessRead}
}

// OnDevice sets the accessing device. There is no implicit "current device": every access
// carries its device identity explicitly.
func (a *AccessConfig) OnDevice(device DeviceID) *AccessConfig {
	if a.err != nil {
		return a
	}
	if _, err := a.region.engine.topo.Device(device); err != nil {
		a.err = errors.WithMessagef(err, "Access().OnDevice() on region #%d", a.region.id)
		return a
	}
	a.device = device
	a.deviceSet = true
	return a
}

// Over restricts the access to the given byte range. If not called, the access touches the
// whole region.
func (a *AccessConfig) Over(offset, length int) *AccessConfig {
	if a.err != nil {
		return a
	}
	a.byteRange = []Range{{Offset: offset, Length: length}}
	return a
}

// Read marks the access as a read. This is the default.
func (a *AccessConfig) Read() *AccessConfig {
	a.kind = AccessRead
	return a
}

// Write marks the access as a write: faulted pages become exclusively owned by the
// accessing device until the next cross-device access.
func (a *AccessConfig) Write() *AccessConfig {
	a.kind = AccessWrite
	return a
}

// Done applies the access. It is synchronous: it only returns once every touched page is
// resident on the accessing device, since the accessing unit of work cannot proceed with
// stale data. Each page not already resident faults; contiguous faulting pages with the
// same source batch into one MigrationOp, and every op increments the profiler's on-demand
// counters for the current run.
func (a *AccessConfig) Done() ([]MigrationOp, error) {
	if a.err != nil {
		return nil, a.err
	}
	if !a.deviceSet {
		return nil, errors.Errorf("Access() on region #%d requires OnDevice before Done", a.region.id)
	}
	r := a.region
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.freed {
		return nil, errors.Wrapf(ErrUseAfterFree, "Access on region #%d", r.id)
	}
	first, last, err := r.resolveRange(a.byteRange)
	if err != nil {
		return nil, err
	}
	return r.migratePages(a.device, first, last, a.kind, TriggerOnDemand), nil
}
