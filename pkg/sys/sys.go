// Package sys is the Linux implementation of the sampler's OS collaborator.
// Threads are enumerated and inspected through procfs and signalled with
// tgkill(2); signal handlers are dispatched through os/signal.
package sys

import (
	"bytes"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	log "github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/maxgio92/wallprof/pkg/wallclock"
)

// Process observes and signals the threads of a single process.
type Process struct {
	mu   sync.Mutex
	subs map[syscall.Signal]*subscription

	*ProcessOptions
}

// subscription is one os/signal registration and its dispatcher goroutine.
type subscription struct {
	ch   chan os.Signal
	stop chan struct{}
}

// NewProcess builds a Process collaborator. Without WithPid it targets the
// current process.
func NewProcess(opts ...ProcessOpt) *Process {
	p := &Process{
		subs: make(map[syscall.Signal]*subscription),
		ProcessOptions: &ProcessOptions{
			pid:    os.Getpid(),
			logger: log.Nop(),
		},
	}
	for _, f := range opts {
		f(p)
	}

	return p
}

// Pid returns the id of the observed process.
func (p *Process) Pid() int {
	return p.pid
}

// ThreadID returns the kernel task id of the calling thread.
func (p *Process) ThreadID() int {
	return unix.Gettid()
}

// ListThreads snapshots the ids of the currently-live threads of the process
// by reading /proc/<pid>/task. On error the cursor is empty, which makes the
// sampler re-enumerate on its next tick.
func (p *Process) ListThreads() wallclock.ThreadList {
	entries, err := os.ReadDir("/proc/" + strconv.Itoa(p.pid) + "/task")
	if err != nil {
		p.logger.Debug().Err(err).Int("pid", p.pid).Msg("failed to list threads")
		return new(threadList)
	}

	tids := make([]int, 0, len(entries))
	for _, e := range entries {
		tid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		tids = append(tids, tid)
	}

	return &threadList{tids: tids}
}

// ThreadState inspects the scheduler state of one thread of the process.
// Threads that disappeared or cannot be read report StateOther and are
// skipped by the sampler.
func (p *Process) ThreadState(tid int) wallclock.State {
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(p.pid) + "/task/" + strconv.Itoa(tid) + "/stat")
	if err != nil {
		return wallclock.StateOther
	}

	return parseStatState(stat)
}

// SendSignal delivers sig to one thread of the process.
func (p *Process) SendSignal(tid int, sig syscall.Signal) bool {
	return unix.Tgkill(p.pid, tid, sig) == nil
}

// InstallSignalHandler registers h for sig through os/signal and dispatches
// deliveries to it from a dedicated goroutine. Installing a handler for a
// signal that already has one replaces the previous subscription, so each
// delivery reaches exactly one handler. Register state of the interrupted
// thread is not observable from os/signal, so handlers receive a nil context
// on this path.
func (p *Process) InstallSignalHandler(sig syscall.Signal, h wallclock.Handler) error {
	sub := &subscription{
		ch:   make(chan os.Signal, 64),
		stop: make(chan struct{}),
	}
	signal.Notify(sub.ch, sig)

	p.mu.Lock()
	if prev, ok := p.subs[sig]; ok {
		signal.Stop(prev.ch)
		close(prev.stop)
	}
	p.subs[sig] = sub
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.ch:
				h(sig, nil)
			case <-sub.stop:
				return
			}
		}
	}()

	return nil
}

// Close unregisters every installed handler and stops its dispatcher.
func (p *Process) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sig, sub := range p.subs {
		signal.Stop(sub.ch)
		close(sub.stop)
		delete(p.subs, sig)
	}
}

type threadList struct {
	tids []int
	next int
}

func (l *threadList) Next() (int, bool) {
	if l.next >= len(l.tids) {
		return 0, false
	}
	tid := l.tids[l.next]
	l.next++

	return tid, true
}

// parseStatState extracts the state character from a procfs stat line. The
// comm field may itself contain spaces and parentheses, so the state is
// located relative to the last closing parenthesis.
func parseStatState(stat []byte) wallclock.State {
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return wallclock.StateOther
	}

	switch stat[i+2] {
	case 'R':
		return wallclock.StateRunning
	case 'S', 'D':
		return wallclock.StateSleeping
	default:
		return wallclock.StateOther
	}
}
