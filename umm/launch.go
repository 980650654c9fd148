package umm

import (
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kernel describes one unit of work -- a host function or a device kernel -- by the region
// ranges it touches and an optional body. The engine doesn't mandate how work actually
// executes on a device; the kernel only has to declare its touches so they can be converted
// into access events before the body runs.
type Kernel struct {
	Name string

	// Elements is the problem size, used to propose a launch configuration when the caller
	// doesn't provide one.
	Elements int

	// Touches are applied in order before Body runs; each one is a synchronous access, so
	// by the time the body executes every declared page is resident on the target device.
	Touches []Touch

	// Body runs with the declared touches resident. Optional.
	Body func(cfg LaunchConfig) error
}

// Touch declares one byte range a kernel reads or writes.
type Touch struct {
	Region *Region
	Kind   AccessKind

	// Range limits the touch; nil means the whole region.
	Range *Range
}

// LaunchResult describes one completed launch: the configuration it ran with, the on-demand
// migrations its touches triggered, and the measured elapsed time.
type LaunchResult struct {
	Config  LaunchConfig
	Ops     []MigrationOp
	Elapsed time.Duration
}

// LaunchExecutionConfig is used to configure the execution of a Kernel, it is created with
// Engine.Launch.
//
// Set the target with OnDevice (the launch configuration is then proposed from
// Kernel.Elements) or give a full configuration with WithConfig. At the end call Done to
// execute: it converts the kernel's declared touches into accesses, runs the body, and
// records the elapsed time with the engine's profiler.
type LaunchExecutionConfig struct {
	engine    *Engine
	kernel    Kernel
	device    DeviceID
	deviceSet bool
	config    LaunchConfig
	configSet bool

	// err stores the first error that happened during configuration.
	// If it is not nil, it is immediately returned by the Done call.
	err error
}

// Launch starts configuring the execution of the kernel. See LaunchExecutionConfig.
func (e *Engine) Launch(kernel Kernel) *LaunchExecutionConfig {
	return &LaunchExecutionConfig{engine: e, kernel: kernel}
}

// OnDevice sets the device the kernel executes on. The launch configuration is proposed
// with Engine.ProposeLaunch from Kernel.Elements, unless WithConfig was given.
func (x *LaunchExecutionConfig) OnDevice(device DeviceID) *LaunchExecutionConfig {
	if x.err != nil {
		return x
	}
	if _, err := x.engine.topo.Device(device); err != nil {
		x.err = errors.WithMessagef(err, "Launch(%q).OnDevice()", x.kernel.Name)
		return x
	}
	x.device = device
	x.deviceSet = true
	return x
}

// WithConfig sets the full launch configuration, including the target device.
func (x *LaunchExecutionConfig) WithConfig(cfg LaunchConfig) *LaunchExecutionConfig {
	if x.err != nil {
		return x
	}
	if _, err := x.engine.topo.Device(cfg.Device); err != nil {
		x.err = errors.WithMessagef(err, "Launch(%q).WithConfig(%s)", x.kernel.Name, cfg)
		return x
	}
	if x.deviceSet && x.device != cfg.Device {
		x.err = errors.Errorf("Launch(%q): OnDevice(%s) conflicts with WithConfig(%s)",
			x.kernel.Name, deviceName(x.device), cfg)
		return x
	}
	x.config = cfg
	x.configSet = true
	x.device = cfg.Device
	x.deviceSet = true
	return x
}

// Done executes the kernel: the declared touches become synchronous accesses on the target
// device (faulting in whatever isn't resident), then the body runs, and the elapsed time of
// the whole unit of work is recorded into the profiler's open run.
func (x *LaunchExecutionConfig) Done() (LaunchResult, error) {
	if x.err != nil {
		return LaunchResult{}, x.err
	}
	if !x.deviceSet {
		return LaunchResult{}, errors.Errorf("Launch(%q) requires OnDevice or WithConfig before Done", x.kernel.Name)
	}
	cfg := x.config
	if !x.configSet {
		var err error
		cfg, err = x.engine.ProposeLaunch(x.kernel.Elements, x.device)
		if err != nil {
			return LaunchResult{}, errors.WithMessagef(err, "Launch(%q) proposing a configuration", x.kernel.Name)
		}
	}

	start := time.Now()
	var ops []MigrationOp
	for idx, touch := range x.kernel.Touches {
		access := touch.Region.Access().OnDevice(x.device)
		if touch.Kind == AccessWrite {
			access.Write()
		}
		if touch.Range != nil {
			access.Over(touch.Range.Offset, touch.Range.Length)
		}
		touchOps, err := access.Done()
		if err != nil {
			return LaunchResult{}, errors.WithMessagef(err, "Launch(%q) touch #%d", x.kernel.Name, idx)
		}
		ops = append(ops, touchOps...)
	}
	if x.kernel.Body != nil {
		if err := x.kernel.Body(cfg); err != nil {
			return LaunchResult{}, errors.WithMessagef(err, "Launch(%q) body", x.kernel.Name)
		}
	}
	elapsed := time.Since(start)
	x.engine.rec.RecordElapsed(elapsed)
	klog.V(1).Infof("Launched %q with %s: %d on-demand op(s), %s", x.kernel.Name, cfg, len(ops), elapsed)
	return LaunchResult{Config: cfg, Ops: ops, Elapsed: elapsed}, nil
}
