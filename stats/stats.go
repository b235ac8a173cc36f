// Package stats tracks per-worker counters and latencies: frames in/out,
// reconnects, handler failures, and outbound-call timings.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tracker owns its own registry so that multiple workers (and tests) never
// collide on metric registration. Embedding applications may scrape it via
// Registry().
type Tracker struct {
	reg *prometheus.Registry

	framesIn        prometheus.Counter
	framesOut       prometheus.Counter
	bytesIn         prometheus.Counter
	bytesOut        prometheus.Counter
	framesDropped   prometheus.Counter
	reconnects      prometheus.Counter
	handlerFailures prometheus.Counter
	callTimeouts    prometheus.Counter
	callLatency     prometheus.Histogram
}

func NewTracker(worker string) *Tracker {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	lbl := prometheus.Labels{"worker": worker}
	return &Tracker{
		reg: reg,
		framesIn: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_frames_in_total", Help: "complete frames received", ConstLabels: lbl,
		}),
		framesOut: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_frames_out_total", Help: "frames written to the broker", ConstLabels: lbl,
		}),
		bytesIn: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_frame_bytes_in_total", Help: "frame payload bytes received", ConstLabels: lbl,
		}),
		bytesOut: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_frame_bytes_out_total", Help: "frame payload bytes written", ConstLabels: lbl,
		}),
		framesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_frames_dropped_total", Help: "frames dropped (corrupt, oversized, unparsable, malformed, or replies with no awaiting caller)", ConstLabels: lbl,
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_reconnects_total", Help: "broker reconnects", ConstLabels: lbl,
		}),
		handlerFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_handler_failures_total", Help: "endpoint handlers that returned an error or panicked", ConstLabels: lbl,
		}),
		callTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptic_call_timeouts_total", Help: "outbound calls that saw no reply in time", ConstLabels: lbl,
		}),
		callLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name: "cryptic_call_latency_seconds", Help: "outbound call round-trip latency", ConstLabels: lbl,
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (t *Tracker) Registry() *prometheus.Registry { return t.reg }

func (t *Tracker) FrameIn(size int) {
	t.framesIn.Inc()
	t.bytesIn.Add(float64(size))
}

func (t *Tracker) FrameOut(size int) {
	t.framesOut.Inc()
	t.bytesOut.Add(float64(size))
}

func (t *Tracker) FrameDropped()   { t.framesDropped.Inc() }
func (t *Tracker) Reconnect()      { t.reconnects.Inc() }
func (t *Tracker) HandlerFailure() { t.handlerFailures.Inc() }
func (t *Tracker) CallTimeout()    { t.callTimeouts.Inc() }

func (t *Tracker) CallDone(elapsed time.Duration) {
	t.callLatency.Observe(elapsed.Seconds())
}
