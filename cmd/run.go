package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ansel1/htmlreport/config"
	"github.com/ansel1/htmlreport/engine"
	"github.com/ansel1/htmlreport/logging"
	"github.com/ansel1/htmlreport/output"
	"github.com/ansel1/htmlreport/report"
	"github.com/ansel1/htmlreport/results"
	"github.com/ansel1/htmlreport/tui"
)

// options holds the root command flags.
type options struct {
	infile     string
	outfile    string
	jsonfile   string
	notty      bool
	replay     bool
	rate       float64
	configPath string
	home       string
	logLevel   string
	debug      bool
}

func (o options) validate() error {
	if o.replay && o.infile == "" {
		return errors.New("--replay requires -f <filename>")
	}
	if o.rate < 0 {
		return errors.New("--rate must be >= 0")
	}
	if _, err := o.diagnosticLevel(); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

// diagnosticLevel is the stderr log level: debug with --debug, otherwise
// --log-level, warn when neither is set.
func (o options) diagnosticLevel() (logging.LogLevel, error) {
	switch {
	case o.debug:
		return logging.LevelDebug, nil
	case o.logLevel == "":
		return logging.LevelWarn, nil
	}
	return logging.ParseLevel(o.logLevel)
}

// skipTUI is true with --notty, or when reading a file without replaying it.
func (o options) skipTUI() bool {
	return o.notty || (o.infile != "" && !o.replay)
}

// settings loads the configuration and applies the flag overrides.
func (o options) settings() (report.Settings, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return report.Settings{}, err
	}
	if o.home != "" {
		cfg.Home = o.home
	}
	return cfg.Settings()
}

// run ingests the input into a report session while a UI follows the registry.
func run(ctx context.Context, o options, stdin io.Reader, stdout io.Writer) error {
	if err := o.validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	level, _ := o.diagnosticLevel()
	logging.InitForCLI(level, os.Stderr)

	settings, err := o.settings()
	if err != nil {
		return err
	}

	input := stdin
	if o.infile != "" {
		f, err := os.Open(o.infile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		input = f

		if o.replay {
			replayReader, err := engine.NewReplayReader(f, o.rate)
			if err != nil {
				return fmt.Errorf("failed to create replay reader: %w", err)
			}
			input = replayReader
		}
	}

	var engineOpts []engine.Option
	if o.outfile != "" {
		f, err := os.Create(o.outfile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		engineOpts = append(engineOpts, engine.WithRawOutput(f))
	}
	if o.jsonfile != "" {
		f, err := os.Create(o.jsonfile)
		if err != nil {
			return fmt.Errorf("failed to create JSON file: %w", err)
		}
		defer f.Close()
		engineOpts = append(engineOpts, engine.WithJSONOutput(f))
	}

	registry := results.NewRegistry()
	updates := registry.Subscribe()
	session := report.NewSession(settings, report.WithRegistry(registry))
	logging.Debug("CLI", "writing report to %s", settings.Home)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream := engine.NewEngine(engineOpts...).Stream(input)

	var failed bool
	if o.skipTUI() {
		failed, err = runSimple(ctx, stream, session, updates, stdout)
	} else {
		failed, err = runTUI(ctx, o, stream, session, updates)
	}
	if err != nil {
		return err
	}
	if failed || session.Summary().Failed > 0 {
		return ErrTestsFailed
	}
	return nil
}

// runSimple prints plain progress while the input is ingested.
func runSimple(ctx context.Context, stream <-chan engine.Event, session *report.Session, updates <-chan results.Event, stdout io.Writer) (bool, error) {
	simple := output.NewSimpleOutput(stdout, session.Registry(), session)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer session.Registry().Close()
		return engine.Ingest(ctx, stream, session, simple.WriteRaw)
	})
	g.Go(func() error {
		return simple.ProcessEvents(updates)
	})

	err := g.Wait()
	return simple.HasFailures(), err
}

// runTUI shows the bubbletea progress view while the input is ingested. The
// run is finished early when the user quits.
func runTUI(ctx context.Context, o options, stream <-chan engine.Event, session *report.Session, updates <-chan results.Event) (bool, error) {
	m := tui.NewModel(o.replay, o.rate, session.Registry(), session)
	p := tea.NewProgram(m)

	ingestCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ingestCtx)
	g.Go(func() error {
		defer session.Registry().Close()
		return engine.Ingest(gctx, stream, session, func(line []byte) {
			// Printed above the TUI without mixing with the class lines
			p.Println(string(line))
		})
	})
	g.Go(func() error {
		for evt := range updates {
			p.Send(tui.ResultsEventMsg(evt))
		}
		p.Send(tui.EOFMsg{})
		return nil
	})

	finalModel, runErr := p.Run()
	// Finishes the session if the user quit before the input ended.
	cancel()
	err := g.Wait()
	if ctx.Err() == nil {
		err = withoutCanceled(err)
	}
	if runErr != nil {
		return false, fmt.Errorf("failed to run program: %w", runErr)
	}

	model, ok := finalModel.(*tui.Model)
	if !ok {
		return false, err
	}
	model.DisplaySummary()
	return model.HasFailures(), err
}

// withoutCanceled drops the cancellation that follows a quit from the TUI and
// keeps every other error.
func withoutCanceled(err error) error {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	var result *multierror.Error
	for _, e := range merr.Errors {
		if !errors.Is(e, context.Canceled) {
			result = multierror.Append(result, e)
		}
	}
	return result.ErrorOrNil()
}
