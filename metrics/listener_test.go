package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/vmdbg/listener"
)

func gather(t *testing.T, registry *prometheus.Registry, name string) *dto.Metric {
	t.Helper()
	mfs, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0]
		}
	}
	return nil
}

func TestNewRegistersAllMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	l := New(registry)

	require.NotNil(t, l.events)
	require.NotNil(t, l.breakpoints)
	require.NotNil(t, l.pauseTime)
	require.NotNil(t, l.stdioBytes)
	assert.Equal(t, registry, l.Registerer())
}

func TestProcessLifecycleIncrementsEventCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	l := New(registry)

	l.ProcessStart(1)
	l.ProcessRunnable(1)
	l.ProcessExit(1)

	m := gather(t, registry, "vmdbg_session_events_total")
	require.NotNil(t, m)
}

func TestBreakpointAddedAndRemovedIncrementBreakpointCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	l := New(registry)

	l.BreakpointAdded(1, nil)
	l.BreakpointRemoved(1, nil)
	l.PauseBreakpoint(1, listener.RemoteFrame{}, nil)

	m := gather(t, registry, "vmdbg_breakpoint_events_total")
	require.NotNil(t, m)
}

func TestPauseStartThenResumeObservesPauseDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	l := New(registry)

	l.PauseStart(1)
	l.Resume(1)

	m := gather(t, registry, "vmdbg_pause_duration_seconds")
	require.NotNil(t, m)
	assert.EqualValues(t, 1, m.GetHistogram().GetSampleCount())
}

func TestResumeWithoutPauseDoesNotObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	l := New(registry)

	l.Resume(1)

	m := gather(t, registry, "vmdbg_pause_duration_seconds")
	require.NotNil(t, m)
	assert.EqualValues(t, 0, m.GetHistogram().GetSampleCount())
}

func TestWriteStdOutAndStdErrAccumulateByteCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	l := New(registry)

	l.WriteStdOut(1, []byte("hello"))
	l.WriteStdOut(1, []byte("!!"))
	l.WriteStdErr(1, []byte("oops"))

	mfs, err := registry.Gather()
	require.NoError(t, err)

	var stdout, stderr float64
	for _, mf := range mfs {
		if mf.GetName() != "vmdbg_stdio_bytes_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == "stdout" {
					stdout = metric.GetCounter().GetValue()
				}
				if label.GetValue() == "stderr" {
					stderr = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(7), stdout)
	assert.Equal(t, float64(4), stderr)
}

func TestNewWithNilRegistererUsesDefault(t *testing.T) {
	l := New(nil)
	assert.Equal(t, prometheus.DefaultRegisterer, l.Registerer())
}
