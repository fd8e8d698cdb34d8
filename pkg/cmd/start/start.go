package start

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/wallprof/internal/output"
	"github.com/maxgio92/wallprof/internal/settings"
	"github.com/maxgio92/wallprof/pkg/cmd/common"
	"github.com/maxgio92/wallprof/pkg/cmd/options"
	"github.com/maxgio92/wallprof/pkg/filter"
	"github.com/maxgio92/wallprof/pkg/healthcheck"
	"github.com/maxgio92/wallprof/pkg/record"
	"github.com/maxgio92/wallprof/pkg/sys"
	"github.com/maxgio92/wallprof/pkg/wallclock"
)

const (
	CmdName = "start"

	statusRefreshRate = time.Second
)

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := NewOptions(WithCommonOptions(opts))

	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Start sampling the threads of a process",
		Long: fmt.Sprintf(`
%s periodically enumerates the live threads of the target process and interrupts a bounded number of
them per tick with a sampling signal. The target process must have handlers installed for the sampling
signals; without a target, the current process samples itself.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}

	cmd.Flags().IntVarP(&o.pid, "pid", "p", -1, "Process to sample (defaults to the current process)")
	cmd.Flags().DurationVarP(&o.interval, "interval", "i", 0, fmt.Sprintf("Sampling interval (0 means the default %s)", wallclock.DefaultInterval))
	cmd.Flags().StringVarP(&o.event, "event", "e", wallclock.EventWall, fmt.Sprintf("Profiling event (%q samples idle threads too, anything else samples running threads only)", wallclock.EventWall))
	cmd.Flags().IntSliceVarP(&o.threads, "threads", "t", nil, "Thread ids to sample (empty means all threads)")
	cmd.Flags().DurationVar(&o.duration, "duration", 0, "Stop sampling after this long (0 means until interrupted)")
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "Path to a TOML configuration file")
	cmd.Flags().BoolVarP(&o.detach, "detach", "d", false, fmt.Sprintf("Run %s as daemon", settings.CmdName))
	cmd.Flags().BoolVar(&o.report, "report", true, fmt.Sprintf("Generate report (as %s)", record.ReportFileName))
	cmd.Flags().BoolVar(&o.status, "status", true, "Periodically print a status of the sampling session")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if o.detach {
		return o.daemonize()
	}

	logLevel, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		o.Logger.Fatal().Err(err).Msg("invalid log level")
	}
	o.Logger = o.Logger.Level(logLevel)

	// Store PID file. Sampling works without it, only daemon management does
	// not, so a failed write is reported but not fatal.
	if err := os.WriteFile(settings.PidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		o.Logger.Warn().Err(err).Msg("failed to write PID file")
	}
	defer os.Remove(settings.PidFile)

	cfg := wallclock.Config{Interval: o.interval, Event: o.event}
	threads := o.threads
	cpuSig, idleSig, wakeSig := wallclock.DefaultCPUSignal, wallclock.DefaultIdleSignal, wallclock.DefaultWakeupSignal

	if o.configPath != "" {
		fileCfg, err := ParseTOMLConfig(o.configPath)
		if err != nil {
			return errors.Wrapf(err, "failed to parse config file %s", o.configPath)
		}
		if fileCfg.Interval.Duration != 0 && o.interval == 0 {
			cfg.Interval = fileCfg.Interval.Duration
		}
		if fileCfg.Event != "" && !cmd.Flags().Changed("event") {
			cfg.Event = fileCfg.Event
		}
		threads = append(threads, fileCfg.Threads...)
		if fileCfg.Signals.Running != 0 {
			cpuSig = syscall.Signal(fileCfg.Signals.Running)
		}
		if fileCfg.Signals.Idle != 0 {
			idleSig = syscall.Signal(fileCfg.Signals.Idle)
		}
		if fileCfg.Signals.Wakeup != 0 {
			wakeSig = syscall.Signal(fileCfg.Signals.Wakeup)
		}
	}

	procOpts := []sys.ProcessOpt{sys.WithLogger(o.Logger)}
	if o.pid > 0 {
		procOpts = append(procOpts, sys.WithPid(o.pid))
	}
	proc := sys.NewProcess(procOpts...)
	defer proc.Close()

	threadFilter := filter.NewThreadFilter()
	threadFilter.Init(len(threads) > 0)
	for _, tid := range threads {
		threadFilter.Add(tid)
	}

	collector := record.NewCollector()

	sampler, err := wallclock.New(
		wallclock.WithOS(proc),
		wallclock.WithRecorder(collector),
		wallclock.WithThreadFilter(threadFilter),
		wallclock.WithSignals(cpuSig, idleSig, wakeSig),
		wallclock.WithLogger(o.Logger),
	)
	if err != nil {
		return errors.Wrap(err, "failed to build sampler")
	}

	if err := sampler.Start(cfg); err != nil {
		return errors.Wrap(err, "failed to start sampler")
	}
	o.Logger.Info().Int("pid", proc.Pid()).Str("event", cfg.Event).Msg("sampling started")

	health := healthcheck.NewServer(settings.SockFile, o.Logger)
	if err := health.Listen(o.Ctx); err != nil {
		o.Logger.Warn().Err(err).Msg("readiness socket unavailable")
	} else {
		health.NotifyReadiness()
		defer health.Shutdown()
	}

	ctx := o.Ctx
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(o.Ctx, o.duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	if o.status {
		g.Go(func() error {
			var last uint64
			output.StatusBar(gctx, statusRefreshRate, func() {
				samples := sampler.Stats()
				total := collector.Samples()
				rate := float64(total-last) / statusRefreshRate.Seconds()
				last = total
				output.PrintRight(output.PrettySampleStatus(total, rate, samples.Running, samples.Idle))
			})

			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sampler.Stop()

		return nil
	})
	err = g.Wait()

	if o.status {
		fmt.Println()
	}
	if err != nil {
		return errors.Wrap(err, "sampling session failed")
	}

	if o.report {
		if err := o.writeReport(sampler, collector, cfg.Event); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
	}

	return nil
}

func (o *Options) writeReport(sampler *wallclock.WallClock, collector *record.Collector, event string) error {
	stats := sampler.Stats()
	report := record.NewReport(
		record.WithReportEvent(event),
		record.WithReportInterval(sampler.Interval()),
		record.WithReportSamples(collector.Samples()),
		record.WithReportSignals(stats.Running, stats.Idle),
		record.WithReportWallTime(collector.WallTime()),
	)

	f, err := os.Create(record.ReportFileName)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := report.WriteReport(f); err != nil {
		return err
	}
	o.Logger.Info().Str("path", record.ReportFileName).Msg("report written")

	return nil
}

func (o *Options) daemonize() error {
	// Check if already running.
	if common.IsDaemonRunning() {
		fmt.Println("Daemon already running")
		return nil
	}

	// Start the daemon process.
	args := []string{CmdName}
	args = append(args, fmt.Sprintf("--pid=%d", o.pid))
	args = append(args, fmt.Sprintf("--interval=%s", o.interval))
	args = append(args, fmt.Sprintf("--event=%s", o.event))
	args = append(args, fmt.Sprintf("--duration=%s", o.duration))
	for _, tid := range o.threads {
		args = append(args, fmt.Sprintf("--threads=%d", tid))
	}
	if o.configPath != "" {
		args = append(args, fmt.Sprintf("--config=%s", o.configPath))
	}
	args = append(args, fmt.Sprintf("--report=%s", strconv.FormatBool(o.report)))
	args = append(args, "--status=false")

	daemon := exec.Command(os.Args[0], args...)
	daemon.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// Redirect output to log file.
	if settings.LogFile != "" {
		f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			o.Logger.Error().Err(err).Msg("failed to open log file")
			return err
		}
		daemon.Stdout = f
		daemon.Stderr = f
	}

	if err := daemon.Start(); err != nil {
		o.Logger.Error().Err(err).Msgf("failed to start %s", settings.CmdName)
		return err
	}

	// Store PID file.
	if err := os.WriteFile(settings.PidFile, []byte(strconv.Itoa(daemon.Process.Pid)), 0644); err != nil {
		o.Logger.Error().Err(err).Msg("failed to write PID file")
		return err
	}

	return nil
}
