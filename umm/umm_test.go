package umm

// Common initialization and testing tools for all test files.

import (
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

// newTestEngine creates an engine over a topology with two accelerators: #0 with 80
// execution units and #1 with 4, both with grouping size 32.
func newTestEngine(t *testing.T) *Engine {
	topo, err := NewTopology(
		Device{ExecutionUnits: 80, GroupingSize: 32},
		Device{ExecutionUnits: 4, GroupingSize: 32})
	require.NoError(t, err)
	return New(topo)
}

// allocPages allocates a region of exactly numPages pages.
func allocPages(t *testing.T, eng *Engine, numPages int) *Region {
	region, err := eng.Allocate(numPages * PageSize)
	require.NoError(t, err)
	return region
}

// requireResidentOn checks that every page of the region is resident on the given device.
func requireResidentOn(t *testing.T, region *Region, device DeviceID) {
	for page := 0; page < region.NumPages(); page++ {
		resident, ok, err := region.ResidentDevice(page)
		require.NoError(t, err)
		require.Truef(t, ok, "page %d should be resident", page)
		require.Equalf(t, device, resident, "page %d resident on wrong device", page)
	}
}
