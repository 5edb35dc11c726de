// Package metrics implements a listener.Listener that records
// Prometheus counters and histograms for every lifecycle event the
// Request/Reply Engine and High-Level Operations emit. Grounded on
// the gss package's GSSMetrics: one CounterVec per event family keyed
// by event name, generalized from a
// single fixed metrics struct to the full listener.Listener capability
// set.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lookbusy1344/vmdbg/breakpoint"
	"github.com/lookbusy1344/vmdbg/listener"
)

// Listener records session lifecycle events as Prometheus metrics. The
// zero value is not usable; build one with New.
type Listener struct {
	listener.BaseListener

	registerer prometheus.Registerer

	events      *prometheus.CounterVec
	breakpoints *prometheus.CounterVec
	pauseTime   prometheus.Histogram
	stdioBytes  *prometheus.CounterVec

	mu          sync.Mutex
	pausedSince time.Time
}

// New builds a Listener and registers its metrics against registerer.
// If registerer is nil, prometheus.DefaultRegisterer is used.
func New(registerer prometheus.Registerer) *Listener {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	l := &Listener{
		registerer: registerer,
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmdbg_session_events_total",
				Help: "Total session lifecycle events by name.",
			},
			[]string{"event"},
		),
		breakpoints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmdbg_breakpoint_events_total",
				Help: "Total breakpoint add/remove/hit events by kind.",
			},
			[]string{"kind"},
		),
		pauseTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vmdbg_pause_duration_seconds",
				Help:    "Time spent paused between a pause start and the following resume.",
				Buckets: prometheus.DefBuckets,
			},
		),
		stdioBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmdbg_stdio_bytes_total",
				Help: "Total bytes of debuggee stdio relayed by stream.",
			},
			[]string{"stream"},
		),
	}

	registerer.MustRegister(l.events, l.breakpoints, l.pauseTime, l.stdioBytes)
	return l
}

// Registerer exposes the registry-facing side so cmd/vmdbgctl can wire
// a promhttp handler without reaching into Listener internals.
func (l *Listener) Registerer() prometheus.Registerer {
	return l.registerer
}

func (l *Listener) ProcessStart(int64)      { l.events.WithLabelValues("process_start").Inc() }
func (l *Listener) ProcessRunnable(int64)   { l.events.WithLabelValues("process_runnable").Inc() }
func (l *Listener) ProcessExit(int64)       { l.events.WithLabelValues("process_exit").Inc() }
func (l *Listener) GC(int64)                { l.events.WithLabelValues("gc").Inc() }
func (l *Listener) LostConnection()         { l.events.WithLabelValues("lost_connection").Inc() }
func (l *Listener) Terminated()             { l.events.WithLabelValues("terminated").Inc() }

func (l *Listener) PauseStart(int64) {
	l.events.WithLabelValues("pause_start").Inc()
	l.markPaused()
}

func (l *Listener) PauseBreakpoint(_ int64, _ listener.RemoteFrame, _ *breakpoint.Breakpoint) {
	l.events.WithLabelValues("pause_breakpoint").Inc()
	l.breakpoints.WithLabelValues("hit").Inc()
	l.markPaused()
}

func (l *Listener) PauseInterrupted(int64, listener.RemoteFrame) {
	l.events.WithLabelValues("pause_interrupted").Inc()
	l.markPaused()
}

func (l *Listener) PauseException(int64, listener.RemoteFrame, any) {
	l.events.WithLabelValues("pause_exception").Inc()
	l.markPaused()
}

func (l *Listener) PauseExit(int64, listener.RemoteFrame) {
	l.events.WithLabelValues("pause_exit").Inc()
}

func (l *Listener) Resume(int64) {
	l.events.WithLabelValues("resume").Inc()
	l.observePauseEnd()
}

func (l *Listener) BreakpointAdded(int64, *breakpoint.Breakpoint) {
	l.breakpoints.WithLabelValues("added").Inc()
}

func (l *Listener) BreakpointRemoved(int64, *breakpoint.Breakpoint) {
	l.breakpoints.WithLabelValues("removed").Inc()
}

func (l *Listener) WriteStdOut(_ int64, data []byte) {
	l.stdioBytes.WithLabelValues("stdout").Add(float64(len(data)))
}

func (l *Listener) WriteStdErr(_ int64, data []byte) {
	l.stdioBytes.WithLabelValues("stderr").Add(float64(len(data)))
}

func (l *Listener) markPaused() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pausedSince = time.Now()
}

func (l *Listener) observePauseEnd() {
	l.mu.Lock()
	since := l.pausedSince
	l.pausedSince = time.Time{}
	l.mu.Unlock()

	if since.IsZero() {
		return
	}
	l.pauseTime.Observe(time.Since(since).Seconds())
}

var _ listener.Listener = (*Listener)(nil)
