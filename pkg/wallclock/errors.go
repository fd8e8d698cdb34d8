package wallclock

import "github.com/pkg/errors"

var (
	ErrIntervalNegative = errors.New("interval must be positive")
	ErrAlreadyRunning   = errors.New("sampler is already running")
	ErrNoOS             = errors.New("no OS collaborator specified")
	ErrNoRecorder       = errors.New("no sample recorder specified")
)
