// Package wallclock implements a periodic signal-driven thread sampler.
// A dedicated timer loop enumerates the live threads of the target process,
// filters them against a thread allow-list, and interrupts a bounded number
// of them per tick with a sampling signal so that a recorder can capture
// their execution state.
package wallclock

import (
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/wallprof/pkg/frame"
)

// ThreadsPerTick is the maximum number of threads signalled in one loop
// iteration. The limit throttles signal generation on applications with
// very many threads and keeps contention on the recorder low, since the
// recorder serializes concurrent sample captures.
const ThreadsPerTick = 8

// DefaultInterval is used when the configured interval is zero.
const DefaultInterval = 10 * time.Millisecond

const (
	// EventWall selects wall-clock profiling: idle threads are sampled too.
	EventWall = "wall"
	// EventCPU selects CPU profiling: only running threads are sampled.
	EventCPU = "cpu"
)

const (
	// DefaultCPUSignal interrupts running threads.
	DefaultCPUSignal = syscall.SIGPROF
	// DefaultIdleSignal interrupts sleeping threads during wall profiling.
	DefaultIdleSignal = syscall.SIGVTALRM
	// DefaultWakeupSignal only interrupts the timer loop's blocking sleep.
	// It is never delivered for sampling. All three signal numbers must not
	// collide with signals the profiled application relies on.
	DefaultWakeupSignal = syscall.SIGIO
)

// Config carries the per-session sampling parameters. Interval zero selects
// DefaultInterval; a negative interval is rejected. Event equal to EventWall
// enables idle-thread sampling, any other value disables it.
type Config struct {
	Interval time.Duration
	Event    string
}

// Stats counts successfully-delivered sampling signals per kind.
type Stats struct {
	Running uint64
	Idle    uint64
}

// WallClock is the sampling controller. It owns one background loop between
// Start and Stop; configuration is fixed at Start for the session.
type WallClock struct {
	interval   time.Duration
	sampleIdle bool

	running atomic.Bool
	loopTID atomic.Int64
	wake    chan struct{}
	done    chan struct{}

	nRunning atomic.Uint64
	nIdle    atomic.Uint64

	*Options
}

// New builds a WallClock from the given options. The OS and Recorder
// collaborators are mandatory; signal numbers default to DefaultCPUSignal,
// DefaultIdleSignal and DefaultWakeupSignal.
func New(opts ...Option) (*WallClock, error) {
	w := &WallClock{
		Options: &Options{
			cpuSignal:    DefaultCPUSignal,
			idleSignal:   DefaultIdleSignal,
			wakeupSignal: DefaultWakeupSignal,
			logger:       log.Nop(),
		},
	}
	for _, f := range opts {
		f(w)
	}
	if w.os == nil {
		return nil, ErrNoOS
	}
	if w.recorder == nil {
		return nil, ErrNoRecorder
	}

	return w, nil
}

// Start validates the configuration, installs the signal handlers and spawns
// the timer loop. It returns once the loop is live. Starting an already
// running WallClock fails.
func (w *WallClock) Start(cfg Config) error {
	if cfg.Interval < 0 {
		return ErrIntervalNegative
	}
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	w.interval = cfg.Interval
	if w.interval == 0 {
		w.interval = DefaultInterval
	}
	w.sampleIdle = cfg.Event == EventWall

	w.wake = make(chan struct{}, 1)
	w.done = make(chan struct{})

	for _, sig := range []syscall.Signal{w.cpuSignal, w.idleSignal} {
		if err := w.os.InstallSignalHandler(sig, w.sampleHandler); err != nil {
			w.running.Store(false)
			return errors.Wrapf(err, "failed to install handler for signal %d", sig)
		}
	}
	if err := w.os.InstallSignalHandler(w.wakeupSignal, w.wakeupHandler); err != nil {
		w.running.Store(false)
		return errors.Wrapf(err, "failed to install handler for signal %d", w.wakeupSignal)
	}

	started := make(chan struct{})
	go w.timerLoop(started)
	<-started

	w.logger.Debug().
		Dur("interval", w.interval).
		Bool("sample_idle", w.sampleIdle).
		Msg("sampler started")

	return nil
}

// Stop flips the running flag, interrupts the loop's blocking sleep and joins
// the loop. It returns in bounded time regardless of the configured interval.
func (w *WallClock) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	w.os.SendSignal(int(w.loopTID.Load()), w.wakeupSignal)
	// The wakeup signal cannot reach the loop when the collaborator observes
	// a foreign process, so the sleep is poked directly as well.
	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
	w.logger.Debug().Msg("sampler stopped")
}

// Stats returns the delivery counters accumulated since Start.
func (w *WallClock) Stats() Stats {
	return Stats{
		Running: w.nRunning.Load(),
		Idle:    w.nIdle.Load(),
	}
}

// Interval returns the effective sampling interval of the current session.
func (w *WallClock) Interval() time.Duration {
	return w.interval
}

// sampleHandler runs on the interrupted target thread. It restarts a poll(2)
// the kernel left un-restarted after signal delivery, then forwards to the
// recorder. Bound by the Handler contract: no allocation, no blocking.
func (w *WallClock) sampleHandler(_ syscall.Signal, ctx *frame.Context) {
	if ctx != nil && ctx.InterruptedPoll() {
		ctx.RestartSyscall()
	}
	w.recorder.RecordSample(ctx, w.interval, 0, nil)
}

// wakeupHandler only pokes the timer loop out of its sleep.
func (w *WallClock) wakeupHandler(_ syscall.Signal, _ *frame.Context) {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *WallClock) timerLoop(started chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	self := w.os.ThreadID()
	w.loopTID.Store(int64(self))
	close(started)

	filterEnabled := w.filter != nil && w.filter.Enabled()
	sampleIdle := w.sampleIdle

	var threads ThreadList

	for w.running.Load() {
		if threads == nil {
			threads = w.os.ListThreads()
		}

		for count := 0; count < ThreadsPerTick; {
			tid, ok := threads.Next()
			if !ok {
				threads = nil
				break
			}

			if tid == self || (filterEnabled && !w.filter.Accept(tid)) {
				continue
			}

			switch w.os.ThreadState(tid) {
			case StateRunning:
				if w.os.SendSignal(tid, w.cpuSignal) {
					w.nRunning.Add(1)
					count++
				}
			case StateSleeping:
				if sampleIdle && w.os.SendSignal(tid, w.idleSignal) {
					w.nIdle.Add(1)
					count++
				}
			}
		}

		w.sleep()
	}
}

// sleep blocks for the full interval unless the wakeup signal arrives first.
func (w *WallClock) sleep() {
	t := time.NewTimer(w.interval)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.wake:
	}
}
