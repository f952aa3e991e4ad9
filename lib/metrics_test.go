package lib

import (
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestResourceMetrics(t *testing.T) {
	usage, err := NewResourceUsage(os.TempDir())
	require.NoError(t, err)
	require.NotZero(t, usage.Process.RSS)
	require.NotZero(t, usage.System.TotalRAM)
	require.NotZero(t, usage.System.TotalDisk)
	m := NewMetricsServer(DefaultMetricsConfig(), os.TempDir(), NewNullLogger())
	m.UpdateResourceMetrics(usage)
	require.Equal(t, float64(usage.Process.RSS), testutil.ToFloat64(m.ProcessRSS))
	require.Equal(t, float64(usage.Process.ThreadCount), testutil.ToFloat64(m.ProcessThreads))
	require.Equal(t, usage.System.UsedDiskPercent, testutil.ToFloat64(m.DiskUsedPercent))
	// a node without metrics ignores the sample
	var none *Metrics
	none.UpdateResourceMetrics(usage)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Start()
	m.UpdateBlockMetrics(1, 2, 0)
	m.RejectTx("validation")
	m.UpdateExecution(3)
	m.IncArbitrage()
	m.UpdatePositions(1, 1)
	m.SetActiveAuctions(1)
	m.Stop()
}
