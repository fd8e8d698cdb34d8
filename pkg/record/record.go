// Package record provides a minimal sample recorder for the wall-clock
// sampler plus a JSON session report. Richer recorders (unwinding,
// aggregation, export) are expected to live outside this module and plug in
// through the same Recorder interface.
package record

import (
	"sync/atomic"
	"time"

	"github.com/maxgio92/wallprof/pkg/frame"
)

// Collector counts samples as they arrive. RecordSample runs in
// signal-handler context, so it only touches atomic counters: no allocation,
// no locks.
type Collector struct {
	samples atomic.Uint64
	nanos   atomic.Int64
}

func NewCollector() *Collector {
	return new(Collector)
}

// RecordSample implements wallclock.Recorder.
func (c *Collector) RecordSample(_ *frame.Context, interval time.Duration, _ uint64, _ any) {
	c.samples.Add(1)
	c.nanos.Add(int64(interval))
}

// Samples returns the number of samples recorded so far.
func (c *Collector) Samples() uint64 {
	return c.samples.Load()
}

// WallTime returns the total execution time the samples stand for, each
// sample accounting for one sampling interval.
func (c *Collector) WallTime() time.Duration {
	return time.Duration(c.nanos.Load())
}
