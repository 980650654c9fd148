// umtuner runs the profiling-guided launch optimization loop over a saxpy-like workload on
// a simulated unified-memory topology, and prints the per-trial profile reports alongside
// the winning configuration.
//
// Every trial re-initializes the inputs on the host, optionally prefetches the three
// regions to the accelerator, launches the kernel, and verifies the result back on the
// host. Comparing the "factor=N" and "factor=N+prefetch" rows shows the effect the loop
// exists to find: prefetching makes migrations shrink in count and grow in size, and the
// on-demand fault count drops to zero.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/janpfeifer/must"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/gomlx/unimem/tuner"
	"github.com/gomlx/unimem/umm"
)

var (
	flagTopology = flag.String("topology", "",
		"Path to a YAML topology configuration (see umm.ParseTopologyConfig). "+
			"If empty, a single accelerator with 80 execution units and grouping size 32 is assumed.")
	flagElements = flag.Int("elements", 1<<20, "Number of vector elements in the workload.")
	flagFactors  = flag.String("factors", "1,2,4,8", "Comma-separated block-size factors to sweep.")
	flagHalf     = flag.Bool("half", false,
		"Store the vectors in half precision (float16) instead of float32, halving the bytes migrated.")
	flagMetrics = flag.Bool("metrics", false, "Dump the cumulative Prometheus counters at the end.")
)

const saxpyA = float32(2.5)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	topo := must.M1(buildTopology())
	eng := umm.New(topo)
	registry := prometheus.NewRegistry()
	registry.MustRegister(umm.NewCollector(eng.Recorder()))
	fmt.Printf("Tuning on %s\n", topo)

	device := umm.DeviceID(0)
	if topo.NumAccelerators() == 0 {
		fmt.Println("No accelerator in topology, running on the host.")
		device = umm.HostDevice
	}

	elemSize := 4
	if *flagHalf {
		elemSize = 2
	}
	size := *flagElements * elemSize
	x := must.M1(eng.Allocate(size))
	y := must.M1(eng.Allocate(size))
	z := must.M1(eng.Allocate(size))

	trials := must.M1(buildTrials(eng, device, x, y, z))
	kernel := saxpyKernel(x, y, z)
	best, all, err := tuner.Run(eng, kernel, trials)
	must.M(err)
	must.M(verify(z))

	fmt.Printf("\n%-20s %10s %12s %12s %14s %14s\n",
		"trial", "elapsed", "on-demand", "prefetch", "bytes to dev", "bytes to host")
	for _, result := range all {
		rep := result.Report
		fmt.Printf("%-20s %9dus %12d %12d %14d %14d\n",
			result.Trial.Name, rep.ElapsedMicros(), rep.OnDemandOps, rep.PrefetchOps,
			rep.OnDemandBytesToDevice+rep.PrefetchBytesToDevice,
			rep.OnDemandBytesToHost+rep.PrefetchBytesToHost)
	}
	fmt.Printf("\nWinner: %s with %s (%dus, %d on-demand ops)\n",
		best.Trial.Name, best.Launch.Config, best.Report.ElapsedMicros(), best.Report.OnDemandOps)

	if *flagMetrics {
		dumpMetrics(registry)
	}
}

func buildTopology() (*umm.Topology, error) {
	if *flagTopology != "" {
		return umm.LoadTopologyConfig(*flagTopology)
	}
	return umm.NewTopology(umm.Device{ExecutionUnits: 80, GroupingSize: 32})
}

// buildTrials creates the factor sweep: for every block-size factor one trial without and
// one with a prefetch of all three regions. Each trial re-initializes the inputs on the
// host first, so runs start from comparable residency.
func buildTrials(eng *umm.Engine, device umm.DeviceID, x, y, z *umm.Region) ([]tuner.Trial, error) {
	factors, err := parseFactors(*flagFactors)
	if err != nil {
		return nil, err
	}
	saved := eng.BlockSizeFactor
	defer func() { eng.BlockSizeFactor = saved }()

	setup := func(*umm.Engine) error { return initInputs(x, y) }
	var trials []tuner.Trial
	for _, factor := range factors {
		eng.BlockSizeFactor = factor
		cfg, err := eng.ProposeLaunch(*flagElements, device)
		if err != nil {
			return nil, err
		}
		trials = append(trials,
			tuner.Trial{
				Name:   fmt.Sprintf("factor=%d", factor),
				Config: cfg,
				Setup:  setup,
			},
			tuner.Trial{
				Name:   fmt.Sprintf("factor=%d+prefetch", factor),
				Config: cfg,
				Setup:  setup,
				Prefetch: func(*umm.Engine) error {
					for _, region := range []*umm.Region{x, y, z} {
						if _, err := region.Prefetch(device); err != nil {
							return err
						}
					}
					return nil
				},
			})
	}
	return trials, nil
}

// initInputs writes the input vectors from the host, faulting the pages back if a previous
// trial left them on the accelerator.
func initInputs(x, y *umm.Region) error {
	for idx, region := range []*umm.Region{x, y} {
		if _, err := region.Access().OnDevice(umm.HostDevice).Write().Done(); err != nil {
			return err
		}
		// Values stay small enough to be exactly representable in half precision.
		scale := float32(idx + 1)
		if err := storeAll(region, func(i int) float32 { return scale * float32(i%256) }); err != nil {
			return err
		}
	}
	return nil
}

// saxpyKernel computes z = a*x + y over the declared touches.
func saxpyKernel(x, y, z *umm.Region) umm.Kernel {
	return umm.Kernel{
		Name:     "saxpy",
		Elements: *flagElements,
		Touches: []umm.Touch{
			{Region: x, Kind: umm.AccessRead},
			{Region: y, Kind: umm.AccessRead},
			{Region: z, Kind: umm.AccessWrite},
		},
		Body: func(cfg umm.LaunchConfig) error {
			xs, err := values(x)
			if err != nil {
				return err
			}
			ys, err := values(y)
			if err != nil {
				return err
			}
			return storeAll(z, func(i int) float32 { return saxpyA*xs[i] + ys[i] })
		},
	}
}

// verify checks the result on the host: a host-side access followed by an element-wise
// comparison.
func verify(z *umm.Region) error {
	if _, err := z.Access().OnDevice(umm.HostDevice).Read().Done(); err != nil {
		return err
	}
	zs, err := values(z)
	if err != nil {
		return err
	}
	tolerance := float32(1e-2)
	if !*flagHalf {
		tolerance = 1e-5
	}
	for i, got := range zs {
		want := saxpyA*float32(i%256) + 2*float32(i%256)
		if math32.Abs(got-want) > tolerance*math32.Max(1, math32.Abs(want)) {
			return fmt.Errorf("verification failed at element %d: got %g, want %g", i, got, want)
		}
	}
	fmt.Printf("Verified %d elements on the host.\n", len(zs))
	return nil
}

// values reads the region as float32 values, decoding from float16 when -half is set.
func values(region *umm.Region) ([]float32, error) {
	if !*flagHalf {
		return umm.View[float32](region)
	}
	bits, err := umm.View[uint16](region)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(bits))
	for i, b := range bits {
		out[i] = float16.Frombits(b).Float32()
	}
	return out, nil
}

// storeAll stores fn(i) into every element of the region, encoding to float16 when -half
// is set.
func storeAll(region *umm.Region, fn func(i int) float32) error {
	if !*flagHalf {
		out, err := umm.View[float32](region)
		if err != nil {
			return err
		}
		for i := range out {
			out[i] = fn(i)
		}
		return nil
	}
	out, err := umm.View[uint16](region)
	if err != nil {
		return err
	}
	for i := range out {
		out[i] = float16.Fromfloat32(fn(i)).Bits()
	}
	return nil
}

func dumpMetrics(registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		klog.Errorf("Failed to gather metrics: %v", err)
		os.Exit(1)
	}
	fmt.Println()
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			var labels []string
			for _, pair := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
			}
			fmt.Printf("%s{%s} %g\n", family.GetName(), strings.Join(labels, ","), metric.GetCounter().GetValue())
		}
	}
}

// parseFactors parses a comma-separated list of positive integers.
func parseFactors(s string) ([]int, error) {
	var factors []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		factor, err := strconv.Atoi(part)
		if err != nil || factor <= 0 {
			return nil, fmt.Errorf("invalid block-size factor %q", part)
		}
		factors = append(factors, factor)
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("no block-size factors given")
	}
	return factors, nil
}
