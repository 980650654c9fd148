// Package tuner drives the profiling-guided optimization loop on top of the umm engine:
// repeatedly configure, run, profile and adjust, until the best launch configuration and
// prefetch placement for a kernel is found.
//
// The loop is caller-level policy, not engine state: the engine supplies the levers
// (prefetch calls and launch configurations) and the signal (the per-run profile Report),
// and guarantees every run's report is attributable to exactly the trial active during that
// run. Re-running a slow trial with a different configuration is policy, never an error.
package tuner

import (
	"fmt"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/unimem/umm"
)

// Trial is one candidate point in the search space: a launch configuration and an optional
// prefetch placement applied inside the trial's run scope, before the kernel launches, so
// its operations land in the run's prefetch counters.
type Trial struct {
	Name   string
	Config umm.LaunchConfig

	// Setup runs before the trial's run scope opens, outside the measured and counted
	// window -- typically re-initializing input regions from the host, which also pulls
	// their pages back so trials start from comparable residency.
	Setup func(eng *umm.Engine) error

	// Prefetch runs inside the run scope, before the kernel launches.
	Prefetch func(eng *umm.Engine) error
}

// Result pairs a Trial with the profile Report of the run that executed it.
type Result struct {
	Trial  Trial
	Run    umm.RunID
	Launch umm.LaunchResult
	Report umm.Report
}

// Run executes every trial once and returns the winner along with all per-trial results.
// The winner minimizes elapsed time; ties break toward the fewest on-demand migration
// operations -- the question the profile exists to answer is "did migrations shrink in
// count but grow in size after adding a prefetch?".
func Run(eng *umm.Engine, kernel umm.Kernel, trials []Trial) (best Result, all []Result, err error) {
	if len(trials) == 0 {
		return Result{}, nil, errors.New("tuner.Run needs at least one trial")
	}
	rec := eng.Recorder()
	all = make([]Result, 0, len(trials))
	for _, trial := range trials {
		if trial.Setup != nil {
			if err = trial.Setup(eng); err != nil {
				return Result{}, all, errors.WithMessagef(err, "trial %q setup", trial.Name)
			}
		}
		id := rec.BeginRun()
		if trial.Prefetch != nil {
			if err = trial.Prefetch(eng); err != nil {
				return Result{}, all, errors.WithMessagef(err, "trial %q prefetch", trial.Name)
			}
		}
		var launched umm.LaunchResult
		launched, err = eng.Launch(kernel).WithConfig(trial.Config).Done()
		if err != nil {
			return Result{}, all, errors.WithMessagef(err, "trial %q launch", trial.Name)
		}
		var report umm.Report
		report, err = rec.EndRun()
		if err != nil {
			return Result{}, all, errors.WithMessagef(err, "trial %q report", trial.Name)
		}
		klog.V(1).Infof("Trial %q: %s", trial.Name, report)
		all = append(all, Result{Trial: trial, Run: id, Launch: launched, Report: report})
	}
	return pick(all), all, nil
}

// pick selects the result with the smallest elapsed time, breaking ties by the smallest
// on-demand operation count.
func pick(results []Result) Result {
	best := results[0]
	for _, candidate := range results[1:] {
		if candidate.Report.Elapsed < best.Report.Elapsed ||
			(candidate.Report.Elapsed == best.Report.Elapsed &&
				candidate.Report.OnDemandOps < best.Report.OnDemandOps) {
			best = candidate
		}
	}
	return best
}

// FactorSweep builds one trial per block-size factor for the given problem size and device,
// using the engine's advisor for each proposal. When prefetch regions are given, each
// factor also gets a twin trial that prefetches them to the device first.
func FactorSweep(eng *umm.Engine, elementCount int, device umm.DeviceID, factors []int,
	prefetchRegions ...*umm.Region) ([]Trial, error) {
	saved := eng.BlockSizeFactor
	defer func() { eng.BlockSizeFactor = saved }()

	var trials []Trial
	for _, factor := range factors {
		eng.BlockSizeFactor = factor
		cfg, err := eng.ProposeLaunch(elementCount, device)
		if err != nil {
			return nil, errors.WithMessagef(err, "proposing configuration for factor %d", factor)
		}
		trials = append(trials, Trial{
			Name:   trialName(factor, false),
			Config: cfg,
		})
		if len(prefetchRegions) > 0 {
			regions := prefetchRegions
			trials = append(trials, Trial{
				Name:   trialName(factor, true),
				Config: cfg,
				Prefetch: func(*umm.Engine) error {
					for _, region := range regions {
						if _, err := region.Prefetch(device); err != nil {
							return err
						}
					}
					return nil
				},
			})
		}
	}
	return trials, nil
}

func trialName(factor int, prefetch bool) string {
	name := fmt.Sprintf("factor=%d", factor)
	if prefetch {
		name += "+prefetch"
	}
	return name
}
