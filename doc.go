// Package unimem is a unified-memory residency and migration engine with a
// profiling-guided launch optimizer, for teaching and experimenting with the performance
// behavior of unified (managed) memory on heterogeneous host/accelerator systems.
//
// The actual functionality is in the sub-packages:
//
//   - github.com/gomlx/unimem/umm: the engine itself -- device topology, unified regions
//     with page-level residency tracking, on-demand and prefetch migration with batching,
//     launch-configuration proposals and per-run profiling reports.
//   - github.com/gomlx/unimem/tuner: the optimization loop driving repeated
//     configure/run/profile/adjust cycles over the engine.
//
// The cmd/umtuner binary runs the whole loop over a saxpy-like demo workload.
package unimem
