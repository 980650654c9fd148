package umm

import "github.com/pkg/errors"

// Error kinds reported by the engine. They are all local, non-fatal conditions: none of them
// leaves the engine in an inconsistent state. Use errors.Is to test for them -- the engine
// wraps them with context (see github.com/pkg/errors).
var (
	// ErrInvalidSize is returned for a non-positive allocation size or an access range that
	// falls outside its region.
	ErrInvalidSize = errors.New("invalid size")

	// ErrUseAfterFree is returned for any operation on a region that has been freed.
	ErrUseAfterFree = errors.New("use after free")

	// ErrNoDevice is returned when a device identity is not part of the topology.
	ErrNoDevice = errors.New("no such device")

	// ErrUnknownRun is returned by Recorder.Report for a run that was never begun or is
	// still open.
	ErrUnknownRun = errors.New("unknown run")
)
