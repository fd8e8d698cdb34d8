package start

import (
	"time"

	"github.com/maxgio92/wallprof/pkg/cmd/options"
)

type Options struct {
	pid      int
	interval time.Duration
	event    string
	threads  []int
	duration time.Duration

	configPath string

	detach bool
	report bool
	status bool

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = new(options.CommonOptions)

	for _, f := range opts {
		f(o)
	}

	return o
}

func WithCommonOptions(common *options.CommonOptions) Option {
	return func(o *Options) {
		o.CommonOptions = common
	}
}
