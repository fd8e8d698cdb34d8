package start

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the optional TOML configuration of a sampling session. It covers
// the same knobs as the command-line flags plus the signal numbers, which
// must be reconfigurable when the defaults collide with signals the profiled
// application relies on.
type Config struct {
	Interval duration      `toml:"interval"`
	Event    string        `toml:"event"`
	Threads  []int         `toml:"threads"`
	Signals  SignalsConfig `toml:"signals"`
}

// SignalsConfig overrides the sampling and wakeup signal numbers. A zero
// value keeps the default.
type SignalsConfig struct {
	Running int `toml:"running"`
	Idle    int `toml:"idle"`
	Wakeup  int `toml:"wakeup"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))

	return err
}

func ParseTOMLConfig(filepath string) (*Config, error) {
	var parsed Config

	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := toml.NewDecoder(file).Decode(&parsed); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config file %s", filepath)
	}

	return &parsed, nil
}
