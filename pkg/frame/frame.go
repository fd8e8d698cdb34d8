// Package frame gives sampling-signal handlers a narrow view of the register
// state saved when a thread was interrupted, and the single fixup the handler
// is allowed to perform on it: restarting a poll(2) that the kernel left
// un-restarted after signal delivery.
package frame

import (
	"golang.org/x/sys/unix"
)

// syscallInsnLen is the length of the syscall instruction on x86-64.
const syscallInsnLen = 2

// Context is the saved execution state of a thread at the moment a sampling
// signal interrupted it. A nil or zero Context means the delivery path could
// not capture register state; handlers must tolerate that.
type Context struct {
	PC        uintptr // saved instruction pointer
	SP        uintptr // saved stack pointer
	Retval    uintptr // return-value register as left by the kernel
	SyscallNR uintptr // syscall-number register at entry
}

// eintrRetval is -EINTR as the kernel leaves it in the return-value register.
const eintrRetval = ^uintptr(unix.EINTR) + 1

// InterruptedPoll reports whether the context shows a poll(2) that returned
// EINTR instead of being transparently restarted.
func (c *Context) InterruptedPoll() bool {
	return c.SyscallNR == unix.SYS_POLL && c.Retval == eintrRetval
}

// RestartSyscall rewrites the saved state so the interrupted call is issued
// again when the handler returns: the instruction pointer is rewound over
// the syscall instruction and the syscall number is reloaded into the
// return-value register.
func (c *Context) RestartSyscall() {
	c.PC -= syscallInsnLen
	c.Retval = c.SyscallNR
}
