package record

import (
	"encoding/json"
	"io"
	"time"
)

const ReportFileName = "wallprof-report.json"

type SampleReport struct {
	Event          string `json:"event"`
	IntervalNS     int64  `json:"interval_ns"`
	Samples        uint64 `json:"samples"`
	RunningSignals uint64 `json:"running_signals"`
	IdleSignals    uint64 `json:"idle_signals"`
	WallTimeNS     int64  `json:"wall_time_ns"`
}

type SampleReportOption func(*SampleReport)

func NewReport(opts ...SampleReportOption) *SampleReport {
	report := new(SampleReport)
	for _, opt := range opts {
		opt(report)
	}

	return report
}

func WithReportEvent(event string) SampleReportOption {
	return func(o *SampleReport) {
		o.Event = event
	}
}

func WithReportInterval(interval time.Duration) SampleReportOption {
	return func(o *SampleReport) {
		o.IntervalNS = int64(interval)
	}
}

func WithReportSamples(samples uint64) SampleReportOption {
	return func(o *SampleReport) {
		o.Samples = samples
	}
}

func WithReportSignals(running, idle uint64) SampleReportOption {
	return func(o *SampleReport) {
		o.RunningSignals = running
		o.IdleSignals = idle
	}
}

func WithReportWallTime(wallTime time.Duration) SampleReportOption {
	return func(o *SampleReport) {
		o.WallTimeNS = int64(wallTime)
	}
}

func (r *SampleReport) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(r)
}
