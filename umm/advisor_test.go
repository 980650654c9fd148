package umm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProposeLaunch(t *testing.T) {
	eng := newTestEngine(t)

	// 1M elements on 80 units with grouping 32: block=128, ceil(1e6/128)=7813, rounded up
	// to the next multiple of 80 (7840) since 7840*128 stays under 2e6 threads.
	cfg, err := eng.ProposeLaunch(1_000_000, 0)
	require.NoError(t, err)
	fmt.Printf("Proposed: %s\n", cfg)
	require.Equal(t, 128, cfg.Block)
	require.Zero(t, cfg.Block%32, "block size must be a multiple of the grouping size")
	require.Equal(t, 7840, cfg.Grid)
	require.Zero(t, cfg.Grid%80, "grid rounded up to a multiple of the execution-unit count")
	require.GreaterOrEqual(t, cfg.Threads(), 1_000_000)
	require.LessOrEqual(t, cfg.Threads(), 2_000_000)

	// Deterministic.
	again, err := eng.ProposeLaunch(1_000_000, 0)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestProposeLaunchTinyInput(t *testing.T) {
	eng := newTestEngine(t)

	// Rounding the grid up to 80 blocks for a single element would launch 10240 threads;
	// the 2x bound forbids it, so the grid stays at 1.
	cfg, err := eng.ProposeLaunch(1, 0)
	require.NoError(t, err)
	require.Equal(t, 128, cfg.Block)
	require.Equal(t, 1, cfg.Grid)
}

func TestProposeLaunchFactor(t *testing.T) {
	eng := newTestEngine(t)
	eng.BlockSizeFactor = 8
	cfg, err := eng.ProposeLaunch(100_000, 1)
	require.NoError(t, err)
	require.Equal(t, 256, cfg.Block)
	require.GreaterOrEqual(t, cfg.Threads(), 100_000)

	// Grid is a multiple of accelerator #1's 4 execution units.
	require.Zero(t, cfg.Grid%4)
}

func TestProposeLaunchHost(t *testing.T) {
	eng := newTestEngine(t)

	// The host's grouping size is 1, so the block is just the factor.
	cfg, err := eng.ProposeLaunch(10, HostDevice)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Block)
	require.GreaterOrEqual(t, cfg.Threads(), 10)
}

func TestProposeLaunchErrors(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.ProposeLaunch(100, 9)
	require.ErrorIs(t, err, ErrNoDevice)
	_, err = eng.ProposeLaunch(0, 0)
	require.ErrorIs(t, err, ErrInvalidSize)
	_, err = eng.ProposeLaunch(-5, 0)
	require.ErrorIs(t, err, ErrInvalidSize)
}
