package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"synapse/driver"
	"synapse/neuralnet"
	"synapse/session"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config")
	csvPath := flag.String("csv", "", "Training data CSV, first record is the header")
	hidden := flag.String("hidden", "", "Hidden layer sizes, comma separated (e.g. 4,4)")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	learningRate := flag.Float64("lr", 0, "Learning rate in (0, 1]")
	activation := flag.String("activation", "", "Activation: relu, sigmoid, tanh or linear")
	seed := flag.Int64("seed", 0, "PRNG seed, 0 picks one from the clock")
	interval := flag.Duration("interval", 0, "Delay between ticks")
	history := flag.String("history", "", "Write per-epoch loss and accuracy to this CSV")
	verbose := flag.Bool("v", false, "Log every training step")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *cfgPath, session.Overrides{
		CSV:          *csvPath,
		Epochs:       *epochs,
		LearningRate: *learningRate,
		Activation:   *activation,
		Seed:         *seed,
		TickInterval: *interval,
		HistoryOut:   *history,
	}, *hidden, *verbose); err != nil {
		logger.Error("training failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfgPath string, overrides session.Overrides, hidden string, verbose bool) error {
	cfg := session.DefaultConfig()
	if cfgPath != "" {
		loaded, err := session.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if hidden != "" {
		counts, err := parseHidden(hidden)
		if err != nil {
			return err
		}
		overrides.HiddenLayers = counts
	}
	cfg.ApplyOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := session.New(
		session.WithLogger(logger),
		session.WithRand(rand.New(rand.NewSource(seed))),
	)

	if verbose {
		s.RegisterObserver(neuralnet.LogObserver{Logger: logger})
	}
	events := neuralnet.NewChannelObserver(256)
	s.RegisterObserver(events)

	if err := loadTable(s, cfg.CSV); err != nil {
		return err
	}
	if err := cfg.Apply(s); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	reportCtx, cancelReport := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reportProgress(reportCtx, events.Events, logger)
	}()

	toggles, stopToggles := pauseSignals()
	defer stopToggles()
	commands := make(chan driver.Command)
	wg.Add(1)
	go func() {
		defer wg.Done()
		forwardToggles(reportCtx, toggles, commands, logger)
	}()

	res, runErr := driver.Run(ctx, s, driver.RunConfig{
		Interval: cfg.TickInterval,
		LogEvery: cfg.LogEvery,
		Logger:   logger,
		Commands: commands,
	})
	cancelReport()
	wg.Wait()

	m := s.Model()
	if cfg.HistoryOut != "" && m != nil {
		if err := saveHistory(cfg.HistoryOut, m.LossHistory(), m.AccuracyHistory()); err != nil {
			return err
		}
		logger.Info("history written", "path", cfg.HistoryOut, "epochs", len(m.LossHistory()))
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Info("interrupted", "steps", res.Steps, "epochs", res.Epochs)
			return nil
		}
		return runErr
	}
	return nil
}

// reportProgress logs every time training crosses another tenth of the run.
func reportProgress(ctx context.Context, events <-chan neuralnet.Event, logger *slog.Logger) {
	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if !ev.Progress.TrainingInProgress {
				continue
			}
			decile := int(ev.Progress.ProgressPercentage) / 10
			if decile == last {
				continue
			}
			last = decile
			logger.Info("progress",
				"model", ev.ModelID.String(),
				"percent", decile*10,
				"epoch", ev.Progress.CurrentEpoch+1,
				"epochs_completed", ev.Epochs,
			)
		}
	}
}

// forwardToggles turns every signal on toggles into alternating pause and
// resume commands, starting with pause.
func forwardToggles(ctx context.Context, toggles <-chan os.Signal, commands chan<- driver.Command, logger *slog.Logger) {
	paused := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-toggles:
		}
		cmd := driver.CommandPause
		if paused {
			cmd = driver.CommandResume
		}
		select {
		case <-ctx.Done():
			return
		case commands <- cmd:
		}
		paused = !paused
		logger.Info("pause toggled", "paused", paused)
	}
}

func parseHidden(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	counts := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "hidden layer size %q", part)
		}
		counts = append(counts, n)
	}
	return counts, nil
}
