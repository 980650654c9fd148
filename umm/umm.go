// Package umm implements a unified-memory residency and migration engine: it tracks which
// device holds each page of a unified allocation, triggers on-demand migrations on
// cross-device access, batches adjacent pages into single transfer operations, and exposes
// per-run profiling counters that can drive an iterative launch-configuration optimizer.
//
// The engine models the page-fault mechanism of a real unified-memory runtime as an explicit
// state machine (page residency plus a version counter) instead of relying on virtual-memory
// trapping, preserving the same observable contract: a cross-device access to a non-resident
// page triggers a synchronous relocation before the access completes, while Region.Prefetch
// relocates pages asynchronously ahead of their use.
//
// Typical usage:
//
//	topo, err := umm.NewTopology(umm.Device{ExecutionUnits: 80, GroupingSize: 32})
//	eng := umm.New(topo)
//	region, err := eng.Allocate(10 * umm.PageSize)
//	_, err = region.Access().OnDevice(umm.HostDevice).Write().Done()
//	_, err = region.Prefetch(0) // Move everything to accelerator #0 ahead of the launch.
//	result, err := eng.Launch(kernel).OnDevice(0).Done()
//	report, err := eng.Recorder().EndRun()
//
// There is no process-wide "current device": every call takes the device identity explicitly,
// which keeps concurrent multi-device access well-defined.
package umm

import (
	"fmt"
	"sync"
)

// Engine owns the unified regions, their page residency state and the profiling recorder.
// It is safe for concurrent use: page-state transitions are serialized per region, so
// accesses to unrelated regions proceed independently.
type Engine struct {
	topo *Topology
	rec  *Recorder

	// BlockSizeFactor multiplies a device's minimum grouping size to form the block size
	// proposed by ProposeLaunch. Values <= 0 mean DefaultBlockSizeFactor.
	BlockSizeFactor int

	mu           sync.Mutex
	regions      map[uint64]*Region
	nextRegionID uint64
	buffers      *bufferPools
}

// New creates an Engine for the given device topology.
// The topology is consumed as-is and must not change afterwards.
func New(topo *Topology) *Engine {
	return &Engine{
		topo:    topo,
		rec:     newRecorder(),
		regions: make(map[uint64]*Region),
		buffers: newBufferPools(),
	}
}

// Topology returns the device topology the engine was created with.
func (e *Engine) Topology() *Topology {
	return e.topo
}

// Recorder returns the engine's profile recorder.
// Open a run with Recorder.BeginRun before the measured unit of work, and read the frozen
// Report after closing it.
func (e *Engine) Recorder() *Recorder {
	return e.rec
}

// NumRegions returns the number of currently allocated (not yet freed) regions.
func (e *Engine) NumRegions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.regions)
}

// String implements fmt.Stringer.
func (e *Engine) String() string {
	return fmt.Sprintf("umm.Engine[%s, %d regions]", e.topo, e.NumRegions())
}
