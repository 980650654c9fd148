package umm

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

// DeviceID identifies a device within a Topology: HostDevice for the host CPU, or the
// accelerator index (0, 1, ...) assigned at topology construction.
type DeviceID int

// HostDevice is the DeviceID of the host.
const HostDevice DeviceID = -1

// Device describes one compute device: its number of parallel execution units (the
// streaming-multiprocessor analogue) and its minimum efficient thread-grouping size (the
// warp analogue, a fixed hardware constant, usually 32 on accelerators).
//
// Devices are immutable after topology construction: the Topology assigns the ID and fills
// in defaults, callers only provide the counts.
type Device struct {
	ID             DeviceID
	ExecutionUnits int
	GroupingSize   int
}

// IsHost returns whether this is the host device.
func (d Device) IsHost() bool {
	return d.ID == HostDevice
}

// String implements fmt.Stringer.
func (d Device) String() string {
	if d.IsHost() {
		return fmt.Sprintf("host[units=%d]", d.ExecutionUnits)
	}
	return fmt.Sprintf("accelerator#%d[units=%d, grouping=%d]", d.ID, d.ExecutionUnits, d.GroupingSize)
}

// Topology is the static description of the available compute devices: the host plus zero
// or more accelerators. It is consumed at construction and immutable thereafter.
type Topology struct {
	host         Device
	accelerators []Device
}

const (
	defaultHostExecutionUnits = 1
	defaultGroupingSize       = 32
)

// NewTopology creates a Topology with a default host device and the given accelerators,
// numbered 0, 1, ... in the order given. Any ID set by the caller is overridden.
// A zero GroupingSize defaults to 32; ExecutionUnits must be positive.
func NewTopology(accelerators ...Device) (*Topology, error) {
	t := &Topology{
		host: Device{ID: HostDevice, ExecutionUnits: defaultHostExecutionUnits, GroupingSize: 1},
	}
	t.accelerators = make([]Device, len(accelerators))
	for idx, dev := range accelerators {
		dev.ID = DeviceID(idx)
		if dev.GroupingSize == 0 {
			dev.GroupingSize = defaultGroupingSize
		}
		if dev.ExecutionUnits <= 0 || dev.GroupingSize < 0 {
			return nil, errors.Errorf("invalid accelerator #%d: executionUnits=%d, groupingSize=%d must be positive",
				idx, dev.ExecutionUnits, dev.GroupingSize)
		}
		t.accelerators[idx] = dev
	}
	return t, nil
}

// DeviceConfig is one entry of a TopologyConfig. Exactly one entry may set Host; the
// remaining entries describe accelerators in index order.
type DeviceConfig struct {
	Host           bool `json:"host,omitempty"`
	ExecutionUnits int  `json:"executionUnits"`
	GroupingSize   int  `json:"groupingSize,omitempty"`
}

// TopologyConfig is the serializable form of a Topology, parsed from YAML (or JSON) with
// ParseTopologyConfig.
type TopologyConfig struct {
	Devices []DeviceConfig `json:"devices"`
}

// ParseTopologyConfig builds a Topology from a YAML (or JSON) document like:
//
//	devices:
//	  - host: true
//	    executionUnits: 8
//	  - executionUnits: 80
//	    groupingSize: 32
func ParseTopologyConfig(data []byte) (*Topology, error) {
	var cfg TopologyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse topology configuration")
	}
	var accelerators []Device
	var host *DeviceConfig
	for idx, devCfg := range cfg.Devices {
		if devCfg.Host {
			if host != nil {
				return nil, errors.Errorf("topology configuration has more than one host entry (entry #%d)", idx)
			}
			hostCopy := devCfg
			host = &hostCopy
			continue
		}
		accelerators = append(accelerators, Device{
			ExecutionUnits: devCfg.ExecutionUnits,
			GroupingSize:   devCfg.GroupingSize,
		})
	}
	t, err := NewTopology(accelerators...)
	if err != nil {
		return nil, err
	}
	if host != nil {
		if host.ExecutionUnits > 0 {
			t.host.ExecutionUnits = host.ExecutionUnits
		}
		if host.GroupingSize > 0 {
			t.host.GroupingSize = host.GroupingSize
		}
	}
	klog.V(1).Infof("Parsed topology: %s", t)
	return t, nil
}

// LoadTopologyConfig reads filePath and parses it with ParseTopologyConfig.
func LoadTopologyConfig(filePath string) (*Topology, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read topology configuration from %q", filePath)
	}
	return ParseTopologyConfig(data)
}

// Device returns the descriptor for the given id, or ErrNoDevice if the id is not part of
// the topology.
func (t *Topology) Device(id DeviceID) (Device, error) {
	if id == HostDevice {
		return t.host, nil
	}
	if id < 0 || int(id) >= len(t.accelerators) {
		return Device{}, errors.Wrapf(ErrNoDevice, "device %d not in topology with %d accelerator(s)",
			id, len(t.accelerators))
	}
	return t.accelerators[id], nil
}

// Host returns the host device descriptor.
func (t *Topology) Host() Device {
	return t.host
}

// Accelerators returns the accelerator descriptors.
// The returned slice is owned by the Topology, don't change it.
func (t *Topology) Accelerators() []Device {
	return t.accelerators
}

// NumAccelerators returns the number of accelerators in the topology.
func (t *Topology) NumAccelerators() int {
	return len(t.accelerators)
}

// Devices returns the host followed by the accelerators.
func (t *Topology) Devices() []Device {
	all := make([]Device, 0, 1+len(t.accelerators))
	all = append(all, t.host)
	all = append(all, t.accelerators...)
	return all
}

// String implements fmt.Stringer.
func (t *Topology) String() string {
	parts := make([]string, 0, 1+len(t.accelerators))
	for _, dev := range t.Devices() {
		parts = append(parts, dev.String())
	}
	return fmt.Sprintf("Topology{%s}", strings.Join(parts, ", "))
}
