package wallclock

import (
	"syscall"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/wallprof/pkg/filter"
)

type Options struct {
	os       OS
	recorder Recorder
	filter   *filter.ThreadFilter

	cpuSignal    syscall.Signal
	idleSignal   syscall.Signal
	wakeupSignal syscall.Signal

	logger log.Logger
}

type Option func(*WallClock)

func WithOS(os OS) Option {
	return func(w *WallClock) {
		w.os = os
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(w *WallClock) {
		w.recorder = recorder
	}
}

func WithThreadFilter(filter *filter.ThreadFilter) Option {
	return func(w *WallClock) {
		w.filter = filter
	}
}

// WithSignals overrides the sampling and wakeup signal numbers.
func WithSignals(cpu, idle, wakeup syscall.Signal) Option {
	return func(w *WallClock) {
		w.cpuSignal = cpu
		w.idleSignal = idle
		w.wakeupSignal = wakeup
	}
}

func WithLogger(logger log.Logger) Option {
	return func(w *WallClock) {
		w.logger = logger
	}
}
