package umm

import (
	"fmt"

	"github.com/pkg/errors"
)

// LaunchConfig is a grid/block shape for one kernel launch on a device, as proposed by
// Engine.ProposeLaunch. Invariant: Grid*Block >= the requested element count, and Block is
// a positive multiple of the device's minimum grouping size.
type LaunchConfig struct {
	Grid   int
	Block  int
	Device DeviceID
}

// Threads returns the total number of threads the configuration launches.
func (c LaunchConfig) Threads() int {
	return c.Grid * c.Block
}

// String implements fmt.Stringer.
func (c LaunchConfig) String() string {
	return fmt.Sprintf("LaunchConfig[grid=%d, block=%d, device=%s]", c.Grid, c.Block, deviceName(c.Device))
}

// DefaultBlockSizeFactor is the multiplier applied to a device's minimum grouping size to
// form the default block size: 4, i.e. 128 threads per block when the grouping size is 32.
const DefaultBlockSizeFactor = 4

// ProposeLaunch proposes a launch configuration for elementCount elements on the given
// device. The block size is the device's minimum grouping size times the engine's
// BlockSizeFactor; the grid size is ceil(elementCount/block), rounded up to the nearest
// multiple of the device's execution-unit count unless that would launch more than
// 2*elementCount threads (the bound keeps tiny inputs from being pathologically
// over-provisioned). Deterministic given the element count and topology.
//
// It fails with ErrNoDevice if the device is not in the topology, and with ErrInvalidSize
// if elementCount is not positive.
func (e *Engine) ProposeLaunch(elementCount int, device DeviceID) (LaunchConfig, error) {
	dev, err := e.topo.Device(device)
	if err != nil {
		return LaunchConfig{}, errors.WithMessagef(err, "ProposeLaunch(elementCount=%d)", elementCount)
	}
	if elementCount <= 0 {
		return LaunchConfig{}, errors.Wrapf(ErrInvalidSize, "ProposeLaunch(elementCount=%d)", elementCount)
	}
	factor := e.BlockSizeFactor
	if factor <= 0 {
		factor = DefaultBlockSizeFactor
	}
	block := dev.GroupingSize * factor
	grid := ceilDiv(elementCount, block)
	if dev.ExecutionUnits > 0 {
		rounded := ceilDiv(grid, dev.ExecutionUnits) * dev.ExecutionUnits
		if rounded*block <= 2*elementCount {
			grid = rounded
		}
	}
	return LaunchConfig{Grid: grid, Block: block, Device: device}, nil
}
