package neuralnet

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse/dataset"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(t *testing.T, cfg Config, opts ...Option) *Model {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(42))), WithLogger(quietLogger())}, opts...)
	m, err := NewModel(cfg, opts...)
	require.NoError(t, err)
	return m
}

// xorConfig is a 2-3-1 network over the XOR table.
func xorConfig(epochs int) Config {
	return Config{
		Layers: ZeroBiases(3, 1),
		Data: [][]float64{
			{0, 0, 0},
			{0, 1, 1},
			{1, 0, 1},
			{1, 1, 0},
		},
		TotalEpochs:   epochs,
		LearningRate:  0.1,
		Activation:    ActivationSigmoid,
		InputColumns:  []int{0, 1},
		OutputColumns: []int{2},
	}
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t, Config{
		Layers:        ZeroBiases(1),
		Data:          [][]float64{{1, 2}},
		InputColumns:  []int{0},
		OutputColumns: []int{1},
	})
	assert.Equal(t, DefaultTotalEpochs, m.TotalEpochs())
	assert.Equal(t, DefaultLearningRate, m.LearningRate())
	assert.Equal(t, DefaultActivation, m.Activation())
	assert.Equal(t, 1, m.NumInputFeatures())
	assert.Equal(t, 1, m.NumOutputFeatures())
	assert.Equal(t, 1, m.TrainingSetSize())
	assert.False(t, m.IsTrainingInProgress())
	assert.False(t, m.IsTrainingPaused())
}

func TestNewModelErrors(t *testing.T) {
	tests := []struct {
		description string
		cfg         Config
		want        error
	}{
		{"empty layer configuration", Config{}, ErrEmptyConfig},
		{"unsupported activation", Config{Layers: ZeroBiases(1), Activation: "softplus"}, ErrUnsupportedActivation},
		{"input column out of range", Config{
			Layers: ZeroBiases(1), Data: [][]float64{{1, 2}}, InputColumns: []int{5}, OutputColumns: []int{1},
		}, dataset.ErrColumnOutOfRange},
		{"output column out of range", Config{
			Layers: ZeroBiases(1), Data: [][]float64{{1, 2}}, InputColumns: []int{0}, OutputColumns: []int{2},
		}, dataset.ErrColumnOutOfRange},
		{"negative epochs", Config{Layers: ZeroBiases(1), TotalEpochs: -1}, ErrInvalidHyperparameter},
		{"negative learning rate", Config{Layers: ZeroBiases(1), LearningRate: -0.1}, ErrInvalidHyperparameter},
		{"learning rate above one", Config{Layers: ZeroBiases(1), LearningRate: 1.5}, ErrInvalidHyperparameter},
		{"learning rate NaN", Config{Layers: ZeroBiases(1), LearningRate: math.NaN()}, ErrInvalidHyperparameter},
		{"targets do not match output layer", Config{
			Layers: ZeroBiases(2, 1), Data: [][]float64{{1, 2, 3}}, InputColumns: []int{0}, OutputColumns: []int{1, 2},
		}, dataset.ErrFeatureMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := NewModel(tt.cfg, WithLogger(quietLogger()))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestNewModelWarnsOnEmptyInputColumns(t *testing.T) {
	var logs bytes.Buffer
	m, err := NewModel(Config{
		Layers:        ZeroBiases(1),
		Data:          [][]float64{{1, 2}, {3, 4}},
		OutputColumns: []int{1},
	}, WithLogger(bufferLogger(&logs)))
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "input column list is empty")
	assert.Contains(t, logs.String(), "training data not processed")
	assert.Zero(t, m.NumInputFeatures())
	assert.Zero(t, m.TrainingSetSize())

	_, err = m.Tick()
	assert.True(t, errors.Is(err, ErrNoTrainingData))
}

func TestNewModelWarnsOnOutputSizeMismatch(t *testing.T) {
	var logs bytes.Buffer
	m, err := NewModel(Config{
		Layers:        ZeroBiases(2, 1),
		InputColumns:  []int{0},
		OutputColumns: []int{1, 2},
	}, WithLogger(bufferLogger(&logs)))
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "network output size differs from number of target columns")
	assert.Contains(t, logs.String(), "outputs=1")
	assert.Contains(t, logs.String(), "target_columns=2")
	assert.Equal(t, 1, m.NumOutputFeatures())
	assert.Zero(t, m.TrainingSetSize())
}

func TestNewModelNoWarningsWhenConsistent(t *testing.T) {
	var logs bytes.Buffer
	_, err := NewModel(xorConfig(1), WithLogger(bufferLogger(&logs)))
	require.NoError(t, err)
	assert.Empty(t, logs.String())
}

func TestNewModelZeroesNeuronState(t *testing.T) {
	m := newTestModel(t, xorConfig(1))
	for _, layer := range m.Snapshot() {
		for _, neuron := range layer.Neurons {
			assert.Empty(t, neuron.Inputs)
			assert.Zero(t, neuron.Z)
			assert.Zero(t, neuron.Output)
			assert.Zero(t, neuron.Delta)
		}
	}
}

func TestTickWithoutTrainingData(t *testing.T) {
	m := newTestModel(t, Config{Layers: ZeroBiases(2, 1)})
	assert.Equal(t, 0, m.TrainingSetSize())
	_, err := m.Tick()
	assert.True(t, errors.Is(err, ErrNoTrainingData))
}

func TestTickStepGranularity(t *testing.T) {
	const epochs = 3
	m := newTestModel(t, xorConfig(epochs))
	steps := epochs * 4 * 2 * 2

	for i := 0; i < steps; i++ {
		status, err := m.Tick()
		require.NoError(t, err)
		require.False(t, status.Completed, "completed early at tick %d", i)
	}
	status, err := m.Tick()
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.Equal(t, PhaseEpochComplete, status.Phase)
	assert.False(t, m.IsTrainingInProgress())
	assert.Equal(t, epochs, m.EpochsCompleted())
}

func TestTickSequence(t *testing.T) {
	cfg := xorConfig(1)
	cfg.Data = cfg.Data[:2]
	m := newTestModel(t, cfg)

	want := []struct {
		phase  Phase
		sample int
		layer  int
	}{
		{PhaseForward, 0, 0},
		{PhaseForward, 0, 1},
		{PhaseBackward, 0, 1},
		{PhaseBackward, 0, 0},
		{PhaseForward, 1, 0},
		{PhaseForward, 1, 1},
		{PhaseBackward, 1, 1},
		{PhaseEpochComplete, 1, 0},
	}
	for i, w := range want {
		status, err := m.Tick()
		require.NoError(t, err)
		assert.Equal(t, w.phase, status.Phase, "tick %d", i)
		assert.Equal(t, w.sample, status.Sample, "tick %d", i)
		assert.Equal(t, w.layer, status.Layer, "tick %d", i)
		assert.Equal(t, 0, status.Epoch, "tick %d", i)
	}
	assert.Len(t, m.LossHistory(), 1)
}

func TestTickForwardThenBackwardState(t *testing.T) {
	m := newTestModel(t, xorConfig(1))
	_, err := m.Tick()
	require.NoError(t, err)

	p := m.Progress()
	assert.Equal(t, PhaseForward, p.Phase)
	assert.Equal(t, 1, p.CurrentLayer)
	for _, neuron := range m.Network().Layers[0].Neurons {
		assert.Len(t, neuron.Inputs, len(neuron.Weights()))
	}
	assert.Empty(t, m.Network().Layers[1].Neurons[0].Inputs)

	_, err = m.Tick()
	require.NoError(t, err)
	p = m.Progress()
	assert.Equal(t, PhaseBackward, p.Phase)
	assert.Equal(t, 1, p.CurrentLayer)
}

func TestPauseIsIdempotent(t *testing.T) {
	m := newTestModel(t, xorConfig(2))
	for i := 0; i < 5; i++ {
		_, err := m.Tick()
		require.NoError(t, err)
	}
	m.PauseTraining()
	assert.True(t, m.IsTrainingPaused())
	before := m.Snapshot()
	progress := m.Progress()

	for i := 0; i < 10; i++ {
		status, err := m.Tick()
		require.NoError(t, err)
		assert.True(t, status.Paused)
		assert.False(t, status.Completed)
	}
	assert.Equal(t, before, m.Snapshot())
	assert.Equal(t, progress, m.Progress())

	m.ResumeTraining()
	status, err := m.Tick()
	require.NoError(t, err)
	assert.False(t, status.Paused)
	assert.NotEqual(t, progress, m.Progress())
}

func TestHistoryBookkeeping(t *testing.T) {
	m := newTestModel(t, xorConfig(4))
	for {
		status, err := m.Tick()
		require.NoError(t, err)
		assert.Len(t, m.LossHistory(), m.EpochsCompleted())
		assert.Len(t, m.AccuracyHistory(), m.EpochsCompleted())
		if status.Phase == PhaseEpochComplete && !status.Completed {
			history := m.LossHistory()
			assert.Equal(t, history[len(history)-1], status.Loss)
			accuracy := m.AccuracyHistory()
			assert.Equal(t, accuracy[len(accuracy)-1], status.Accuracy)
			assert.Equal(t, len(history)-1, status.Epoch)
		}
		if status.Completed {
			break
		}
	}
	assert.Equal(t, 4, m.EpochsCompleted())
	for _, acc := range m.AccuracyHistory() {
		assert.GreaterOrEqual(t, acc, 0.0)
		assert.LessOrEqual(t, acc, 1.0)
	}
}

func TestWeightUpdateReducesLoss(t *testing.T) {
	m := newTestModel(t, Config{
		Layers:        [][]float64{{0}},
		Data:          [][]float64{{1.0, 1.0}},
		TotalEpochs:   1,
		LearningRate:  0.1,
		Activation:    ActivationLinear,
		InputColumns:  []int{0},
		OutputColumns: []int{1},
	})
	require.NoError(t, m.Network().Layers[0].Neurons[0].SetWeights([]float64{0.5}))

	status, err := m.Tick()
	require.NoError(t, err)
	assert.Equal(t, PhaseForward, status.Phase)
	assert.InDelta(t, 0.5, m.Network().Output()[0], 1e-12)

	status, err = m.Tick()
	require.NoError(t, err)
	assert.Equal(t, PhaseEpochComplete, status.Phase)
	assert.InDelta(t, 0.125, status.Loss, 1e-12)

	neuron := m.Network().Layers[0].Neurons[0]
	assert.InDelta(t, 0.55, neuron.Weights()[0], 1e-12)
	assert.InDelta(t, 0.05, neuron.Bias, 1e-12)

	out, err := m.ForwardPass([]float64{1.0})
	require.NoError(t, err)
	assert.Less(t, 1.0-out[0], 0.5)
	assert.InDelta(t, 0.6, out[0], 1e-12)
}

func TestEndToEndSingleSample(t *testing.T) {
	m := newTestModel(t, Config{
		Layers:        [][]float64{{0}, {0}},
		Data:          [][]float64{{1.0, 1.0}},
		TotalEpochs:   1,
		LearningRate:  0.1,
		Activation:    ActivationLinear,
		InputColumns:  []int{0},
		OutputColumns: []int{1},
	})

	var status TickStatus
	var err error
	for i := 0; i < 2; i++ {
		status, err = m.Tick()
		require.NoError(t, err)
	}
	prediction := m.Network().Output()[0]
	wantLoss := (prediction - 1.0) * (prediction - 1.0) / 2

	for status.Phase != PhaseEpochComplete {
		status, err = m.Tick()
		require.NoError(t, err)
	}
	require.Len(t, m.LossHistory(), 1)
	assert.InDelta(t, wantLoss, m.LossHistory()[0], 1e-12)
	assert.InDelta(t, wantLoss, status.Loss, 1e-12)

	status, err = m.Tick()
	require.NoError(t, err)
	assert.True(t, status.Completed)
}

func TestIdenticalSeedsGiveIdenticalTrajectories(t *testing.T) {
	a := newTestModel(t, xorConfig(3))
	b := newTestModel(t, xorConfig(3))
	require.Equal(t, a.Snapshot(), b.Snapshot())
	for i := 0; i < 30; i++ {
		sa, err := a.Tick()
		require.NoError(t, err)
		sb, err := b.Tick()
		require.NoError(t, err)
		require.Equal(t, sa, sb)
		require.Equal(t, a.Snapshot(), b.Snapshot())
	}
}

func TestResetRestoresShapeAndClearsHistory(t *testing.T) {
	m := newTestModel(t, xorConfig(3))
	network := m.Network()
	shape := network.Shape()
	for {
		status, err := m.Tick()
		require.NoError(t, err)
		if status.Completed {
			break
		}
	}
	require.Equal(t, 3, m.EpochsCompleted())
	m.PauseTraining()
	before := m.Snapshot()

	m.Reset()
	assert.Empty(t, m.LossHistory())
	assert.Empty(t, m.AccuracyHistory())
	assert.Equal(t, 0, m.EpochsCompleted())
	assert.False(t, m.IsTrainingPaused())
	assert.False(t, m.IsTrainingInProgress())
	assert.Same(t, network, m.Network())
	assert.Equal(t, shape, m.Network().Shape())
	assert.NotEqual(t, before[0].Neurons[0].Weights, m.Snapshot()[0].Neurons[0].Weights)

	p := m.Progress()
	assert.Equal(t, 0, p.CurrentEpoch)
	assert.Equal(t, 0, p.CurrentSample)
	assert.Equal(t, 0, p.CurrentLayer)
	assert.Equal(t, PhaseForward, p.Phase)
}

func TestProgress(t *testing.T) {
	m := newTestModel(t, xorConfig(2))
	p := m.Progress()
	assert.Equal(t, 2*4*2*2, p.TotalSteps)
	assert.Equal(t, 0, p.CurrentStep)
	assert.Zero(t, p.ProgressPercentage)

	for i := 0; i < 6; i++ {
		_, err := m.Tick()
		require.NoError(t, err)
	}
	p = m.Progress()
	assert.Equal(t, 6, p.CurrentStep)
	assert.InDelta(t, 6.0/32*100, p.ProgressPercentage, 1e-9)
	assert.True(t, p.TrainingInProgress)

	for {
		status, err := m.Tick()
		require.NoError(t, err)
		if status.Completed {
			break
		}
	}
	assert.InDelta(t, 100, m.Progress().ProgressPercentage, 1e-9)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := newTestModel(t, xorConfig(1))
	_, err := m.Tick()
	require.NoError(t, err)

	snap := m.Snapshot()
	original := m.Network().Layers[0].Neurons[0].Weights()[0]
	snap[0].Neurons[0].Weights[0] = 123
	snap[0].Neurons[0].Inputs[0] = 456
	assert.Equal(t, original, m.Network().Layers[0].Neurons[0].Weights()[0])
	assert.NotEqual(t, 456.0, m.Network().Layers[0].Neurons[0].Inputs[0])
	assert.Equal(t, 1, snap[1].LayerIndex)
}

func TestForwardPassInputLength(t *testing.T) {
	m := newTestModel(t, xorConfig(1))
	_, err := m.ForwardPass([]float64{1})
	assert.True(t, errors.Is(err, ErrInputLength))

	out, err := m.ForwardPass([]float64{1, 0})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestTickStartsNewRunAfterCompletion(t *testing.T) {
	m := newTestModel(t, xorConfig(1))
	for {
		status, err := m.Tick()
		require.NoError(t, err)
		if status.Completed {
			break
		}
	}
	status, err := m.Tick()
	require.NoError(t, err)
	assert.False(t, status.Completed)
	assert.Equal(t, PhaseForward, status.Phase)
	assert.Equal(t, 0, status.Epoch)
	assert.Equal(t, 1, m.EpochsCompleted())
}

func TestXORTrainingImproves(t *testing.T) {
	cfg := xorConfig(2000)
	cfg.Layers = ZeroBiases(4, 1)
	cfg.LearningRate = 0.5
	m := newTestModel(t, cfg)
	for {
		status, err := m.Tick()
		require.NoError(t, err)
		if status.Completed {
			break
		}
	}
	history := m.LossHistory()
	assert.Less(t, history[len(history)-1], history[0])
}
