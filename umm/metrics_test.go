package umm

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	eng := newTestEngine(t)
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(NewCollector(eng.Recorder())))

	region := allocPages(t, eng, 4)
	_, err := region.Prefetch(0)
	require.NoError(t, err)
	_, err = region.Access().OnDevice(HostDevice).Read().Done()
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += "," + label.GetName() + "=" + label.GetValue()
			}
			values[key] = metric.GetCounter().GetValue()
		}
	}

	require.Equal(t, float64(1), values["unimem_migration_ops_total,direction=to_device,trigger=prefetch"])
	require.Equal(t, float64(1), values["unimem_migration_ops_total,direction=to_host,trigger=on_demand"])
	require.Equal(t, float64(4*PageSize), values["unimem_migration_bytes_total,direction=to_device,trigger=prefetch"])
	require.Equal(t, float64(4*PageSize), values["unimem_migration_bytes_total,direction=to_host,trigger=on_demand"])
	require.Zero(t, values["unimem_migration_ops_total,direction=to_device,trigger=on_demand"])
	require.Contains(t, values, "unimem_profile_runs_total")
}
