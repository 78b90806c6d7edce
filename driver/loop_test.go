package driver

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse/neuralnet"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func xorModel(t *testing.T, epochs int) *neuralnet.Model {
	t.Helper()
	m, err := neuralnet.NewModel(neuralnet.Config{
		Layers: neuralnet.ZeroBiases(3, 1),
		Data: [][]float64{
			{0, 0, 0},
			{0, 1, 1},
			{1, 0, 1},
			{1, 1, 0},
		},
		TotalEpochs:   epochs,
		LearningRate:  0.5,
		Activation:    neuralnet.ActivationSigmoid,
		InputColumns:  []int{0, 1},
		OutputColumns: []int{2},
	},
		neuralnet.WithRand(rand.New(rand.NewSource(1))),
		neuralnet.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	return m
}

func TestRunToCompletion(t *testing.T) {
	m := xorModel(t, 3)

	res, err := Run(context.Background(), m, RunConfig{Logger: quietLogger()})
	require.NoError(t, err)
	// 4 samples, 2 layers forward and 2 backward per sample.
	assert.Equal(t, 3*4*4, res.Steps)
	assert.Equal(t, 3, res.Epochs)
	history := m.LossHistory()
	require.Len(t, history, 3)
	assert.Equal(t, history[2], res.LastLoss)
	assert.Equal(t, m.AccuracyHistory()[2], res.LastAccuracy)
	assert.False(t, m.IsTrainingInProgress())
}

func TestRunWithInterval(t *testing.T) {
	m := xorModel(t, 1)

	res, err := Run(context.Background(), m, RunConfig{
		Interval: time.Microsecond,
		LogEvery: 5,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Epochs)
}

func TestRunCancelled(t *testing.T) {
	m := xorModel(t, 1000)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := Run(ctx, m, RunConfig{Interval: time.Millisecond, Logger: quietLogger()})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, res.Epochs, 1000)
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := Run(context.Background(), nil, RunConfig{})
	assert.Error(t, err)

	_, err = Run(context.Background(), xorModel(t, 1), RunConfig{Interval: -time.Second})
	assert.Error(t, err)
}

func TestRunTickError(t *testing.T) {
	m, err := neuralnet.NewModel(neuralnet.Config{Layers: neuralnet.ZeroBiases(1)},
		neuralnet.WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = Run(context.Background(), m, RunConfig{Logger: quietLogger()})
	assert.True(t, errors.Is(err, neuralnet.ErrNoTrainingData))
}

// scripted pauses itself after a fixed number of ticks and completes after
// another fixed number once resumed.
type scripted struct {
	ticks     int
	pauseAt   int
	doneAt    int
	paused    bool
	pausedHit chan struct{}
}

func (s *scripted) Tick() (neuralnet.TickStatus, error) {
	if s.paused {
		select {
		case s.pausedHit <- struct{}{}:
		default:
		}
		return neuralnet.TickStatus{Paused: true}, nil
	}
	s.ticks++
	if s.ticks == s.pauseAt {
		s.paused = true
	}
	if s.ticks > s.doneAt {
		return neuralnet.TickStatus{Completed: true}, nil
	}
	return neuralnet.TickStatus{Phase: neuralnet.PhaseForward}, nil
}

func (s *scripted) PauseTraining()  { s.paused = true }
func (s *scripted) ResumeTraining() { s.paused = false }

func TestRunPauseAndResume(t *testing.T) {
	trainer := &scripted{pauseAt: 3, doneAt: 6, pausedHit: make(chan struct{}, 1)}
	commands := make(chan Command)
	done := make(chan Result)

	go func() {
		res, err := Run(context.Background(), trainer, RunConfig{Commands: commands, Logger: quietLogger()})
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case <-trainer.pausedHit:
	case <-time.After(time.Second):
		t.Fatal("loop never reached the paused state")
	}
	commands <- CommandResume

	select {
	case res := <-done:
		assert.Equal(t, 6, res.Steps, "paused ticks are not counted")
	case <-time.After(time.Second):
		t.Fatal("loop did not finish after resume")
	}
}

func TestRunPauseCommand(t *testing.T) {
	m := xorModel(t, 1000)
	commands := make(chan Command, 1)
	commands <- CommandPause
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := Run(ctx, m, RunConfig{Interval: time.Millisecond, Commands: commands, Logger: quietLogger()})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, m.IsTrainingPaused())
	assert.Less(t, res.Steps, 1000*4*4)
}
