package wallclock

import (
	"syscall"
	"time"

	"github.com/maxgio92/wallprof/pkg/frame"
)

// State classifies the scheduler state of an OS thread.
type State int

const (
	StateRunning State = iota
	StateSleeping
	StateOther
)

// ThreadList is an order-unspecified cursor over the thread ids that were
// live when the list was taken. Next returns ok=false once exhausted.
type ThreadList interface {
	Next() (tid int, ok bool)
}

// Handler runs when an installed signal arrives. Sampling handlers execute
// while the target thread is suspended inside them: they must not allocate,
// must not block on locks or channels, and must return quickly. ctx may be
// nil when the delivery path cannot capture register state.
type Handler func(sig syscall.Signal, ctx *frame.Context)

// OS is the operating-system collaborator the sampler drives: thread
// enumeration and state inspection, directed signal delivery, and handler
// installation.
type OS interface {
	// ThreadID returns the id of the calling OS thread.
	ThreadID() int
	// ListThreads takes a snapshot cursor over currently-live thread ids.
	ListThreads() ThreadList
	// ThreadState inspects the scheduler state of one thread.
	ThreadState(tid int) State
	// SendSignal delivers sig to tid, reporting whether delivery succeeded.
	SendSignal(tid int, sig syscall.Signal) bool
	// InstallSignalHandler registers h for sig before sampling starts.
	InstallSignalHandler(sig syscall.Signal, h Handler) error
}

// Recorder captures one sample from a thread interrupted by a sampling
// signal. RecordSample is invoked from signal-handler context and is bound
// by the same contract as Handler: no allocation, no blocking, fast return.
type Recorder interface {
	RecordSample(ctx *frame.Context, interval time.Duration, counter uint64, extra any)
}
