package sys

import (
	log "github.com/rs/zerolog"
)

type ProcessOptions struct {
	pid    int
	logger log.Logger
}

type ProcessOpt func(*Process)

// WithPid targets the process with the given id instead of the current one.
func WithPid(pid int) ProcessOpt {
	return func(p *Process) {
		p.pid = pid
	}
}

func WithLogger(logger log.Logger) ProcessOpt {
	return func(p *Process) {
		p.logger = logger
	}
}
