// Package driver runs a trainer one tick at a time from a single goroutine,
// either on a fixed interval or as fast as possible.
package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"synapse/neuralnet"
)

// Trainer is the step-wise training surface the loop drives. Both
// *session.Session and *neuralnet.Model satisfy it.
type Trainer interface {
	Tick() (neuralnet.TickStatus, error)
	PauseTraining()
	ResumeTraining()
}

// Command is an instruction delivered to a running loop. Commands are applied
// between ticks on the loop's goroutine.
type Command int

const (
	CommandPause Command = iota
	CommandResume
)

// RunConfig captures the knobs of the tick loop.
type RunConfig struct {
	// Interval between ticks. Zero ticks back to back.
	Interval time.Duration
	// LogEvery logs a stats line every N completed epochs.
	LogEvery int
	Logger   *slog.Logger
	// Commands is optional.
	Commands <-chan Command
}

// Result summarizes a finished run.
type Result struct {
	Steps        int
	Epochs       int
	LastLoss     float64
	LastAccuracy float64
}

// Run ticks t until it reports Completed, ctx is cancelled or a tick fails.
// Paused ticks are counted neither as steps nor towards the stats.
func Run(ctx context.Context, t Trainer, cfg RunConfig) (Result, error) {
	if t == nil {
		return Result{}, errors.New("driver: trainer is nil")
	}
	if cfg.Interval < 0 {
		return Result{}, errors.Errorf("driver: interval must not be negative (got %s)", cfg.Interval)
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// A closed channel is always ready, so a zero interval ticks back to back.
	fast := cfg.Interval == 0
	var wait <-chan time.Time
	if fast {
		ready := make(chan time.Time)
		close(ready)
		wait = ready
	} else {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		wait = ticker.C
	}

	var (
		result Result
		window Window
	)
	commands := cfg.Commands
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
			} else {
				apply(t, cmd)
			}
			continue
		case <-wait:
		}

		start := time.Now()
		status, err := t.Tick()
		if err != nil {
			return result, errors.Wrapf(err, "tick %d", result.Steps+1)
		}
		if status.Completed {
			logger.Info("training complete",
				"steps", result.Steps,
				"epochs", result.Epochs,
				"loss", result.LastLoss,
				"accuracy", result.LastAccuracy,
			)
			return result, nil
		}
		if status.Paused {
			if fast {
				if err := waitForResume(ctx, t, &commands); err != nil {
					return result, err
				}
			}
			continue
		}

		window.Record(time.Since(start), status)
		result.Steps++
		if status.Phase != neuralnet.PhaseEpochComplete {
			continue
		}
		result.Epochs++
		result.LastLoss = status.Loss
		result.LastAccuracy = status.Accuracy
		if result.Epochs%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			logger.Info("epoch",
				"epoch", status.Epoch+1,
				"loss", snap.LastLoss,
				"accuracy", snap.LastAccuracy,
				"steps_per_sec", snap.StepsPerSec,
				"avg_step_ms", snap.AvgStepMS,
			)
		}
	}
}

func apply(t Trainer, cmd Command) {
	switch cmd {
	case CommandPause:
		t.PauseTraining()
	case CommandResume:
		t.ResumeTraining()
	}
}

// waitForResume blocks until a command arrives or ctx is done. A paused loop
// with no command channel can only end through ctx.
func waitForResume(ctx context.Context, t Trainer, commands *<-chan Command) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case cmd, ok := <-*commands:
		if !ok {
			*commands = nil
			<-ctx.Done()
			return ctx.Err()
		}
		apply(t, cmd)
		return nil
	}
}
