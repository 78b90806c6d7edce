package neuralnet

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"synapse/dataset"
)

const (
	DefaultTotalEpochs  = 100
	DefaultLearningRate = 0.01
	DefaultActivation   = ActivationReLU
)

// Config carries everything a Model is built from.
type Config struct {
	// Layers[l][k] is the initial bias of neuron k in layer l.
	Layers [][]float64
	// Data is a row-major table; InputColumns and OutputColumns index into each row.
	Data          [][]float64
	TotalEpochs   int
	LearningRate  float64
	Activation    string
	InputColumns  []int
	OutputColumns []int
}

type Option func(*Model)

// WithObservers registers observers in the given order.
func WithObservers(observers ...Observer) Option {
	return func(m *Model) {
		m.observers = append(m.observers, observers...)
	}
}

// WithRand sets the random source used for weight initialization and shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(m *Model) {
		m.rng = rng
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// Model owns a Network and its training set and trains it one layer step at
// a time. It is not safe for concurrent use; callers must serialize calls.
type Model struct {
	id           uuid.UUID
	network      *Network
	layersConfig [][]float64
	observers    []Observer
	rng          *rand.Rand
	logger       *slog.Logger
	loss         LossFunction
	optimizer    Optimizer

	totalEpochs    int
	learningRate   float64
	activationName string
	activation     ActivationFunction

	numInputFeatures  int
	numOutputFeatures int
	trainingData      []dataset.Sample

	lossHistory     []float64
	accuracyHistory []float64
	epochs          int

	// step cursor
	trainingInProgress   bool
	trainingPaused       bool
	currentTrainingEpoch int
	currentSampleIndex   int
	currentTrainingPhase Phase
	onLayer              int
	previousLayerResults []float64
	epochPredictions     [][]float64
	epochTargets         [][]float64
	cumulativeEpochLoss  float64
	shuffledTrainingData []dataset.Sample
}

// NewModel builds the network described by cfg.Layers with one input feature
// per input column, projects cfg.Data into training samples and notifies the
// observers once. Zero TotalEpochs, LearningRate and Activation take the
// package defaults; negative epochs and rates outside [0, 1] are rejected.
func NewModel(cfg Config, opts ...Option) (*Model, error) {
	m := &Model{
		id:        uuid.New(),
		loss:      MeanSquaredError{},
		optimizer: SGD{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.logger = m.logger.With("model", m.id.String())

	if len(cfg.Layers) == 0 {
		return nil, ErrEmptyConfig
	}
	if cfg.TotalEpochs < 0 {
		return nil, errors.Wrapf(ErrInvalidHyperparameter, "total epochs %d", cfg.TotalEpochs)
	}
	if cfg.LearningRate < 0 || cfg.LearningRate > 1 || math.IsNaN(cfg.LearningRate) {
		return nil, errors.Wrapf(ErrInvalidHyperparameter, "learning rate %v outside [0, 1]", cfg.LearningRate)
	}
	m.totalEpochs = cfg.TotalEpochs
	if m.totalEpochs == 0 {
		m.totalEpochs = DefaultTotalEpochs
	}
	m.learningRate = cfg.LearningRate
	if m.learningRate == 0 {
		m.learningRate = DefaultLearningRate
	}
	m.activationName = cfg.Activation
	if m.activationName == "" {
		m.activationName = DefaultActivation
	}
	activation, err := ParseActivation(m.activationName)
	if err != nil {
		return nil, err
	}
	m.activation = activation

	m.layersConfig = make([][]float64, len(cfg.Layers))
	for i, biases := range cfg.Layers {
		m.layersConfig[i] = append([]float64{}, biases...)
	}
	m.numInputFeatures = len(cfg.InputColumns)
	m.numOutputFeatures = len(cfg.Layers[len(cfg.Layers)-1])

	if len(cfg.InputColumns) == 0 && len(cfg.Data) > 0 && len(cfg.Data[0]) > 0 {
		m.logger.Warn("input column list is empty, the network will have no input features")
	}
	if len(cfg.OutputColumns) > 0 && len(cfg.OutputColumns) != m.numOutputFeatures {
		m.logger.Warn("network output size differs from number of target columns",
			"outputs", m.numOutputFeatures,
			"target_columns", len(cfg.OutputColumns),
		)
	}

	m.network = newNetwork(m.layersConfig, m.numInputFeatures, m.rng)

	if len(cfg.Data) > 0 && len(cfg.InputColumns) > 0 && len(cfg.OutputColumns) > 0 {
		samples, err := dataset.Project(cfg.Data, cfg.InputColumns, cfg.OutputColumns, m.numOutputFeatures)
		if err != nil {
			return nil, errors.Wrap(err, "project training data")
		}
		m.trainingData = samples
	} else {
		m.logger.Warn("training data not processed, raw data or column indices are empty")
	}

	m.resetStepExecutionState()
	m.network.ResetState()
	m.notify()
	return m, nil
}

func (m *Model) notify() {
	for _, o := range m.observers {
		o.OnUpdate(m)
	}
}

// ID identifies the model in logs and events.
func (m *Model) ID() uuid.UUID {
	return m.id
}

// Network returns the live network. It changes under every Tick and must
// not be modified by the caller; use Snapshot for a private copy.
func (m *Model) Network() *Network {
	return m.network
}

// LossHistory returns the mean loss of every completed epoch.
func (m *Model) LossHistory() []float64 {
	return append([]float64{}, m.lossHistory...)
}

// AccuracyHistory returns the accuracy of every completed epoch.
func (m *Model) AccuracyHistory() []float64 {
	return append([]float64{}, m.accuracyHistory...)
}

func (m *Model) EpochsCompleted() int {
	return m.epochs
}

func (m *Model) TotalEpochs() int {
	return m.totalEpochs
}

func (m *Model) LearningRate() float64 {
	return m.learningRate
}

func (m *Model) Activation() string {
	return m.activationName
}

func (m *Model) NumInputFeatures() int {
	return m.numInputFeatures
}

func (m *Model) NumOutputFeatures() int {
	return m.numOutputFeatures
}

// TrainingSetSize is the number of projected samples.
func (m *Model) TrainingSetSize() int {
	return len(m.trainingData)
}

func (m *Model) IsTrainingPaused() bool {
	return m.trainingPaused
}

func (m *Model) IsTrainingInProgress() bool {
	return m.trainingInProgress
}

// PauseTraining makes every following Tick a no-op until ResumeTraining.
func (m *Model) PauseTraining() {
	m.trainingPaused = true
}

func (m *Model) ResumeTraining() {
	m.trainingPaused = false
}

// ForwardPass runs inputs through every layer and returns the output layer's
// values. It overwrites the transient state of all neurons.
func (m *Model) ForwardPass(inputs []float64) ([]float64, error) {
	if len(inputs) != m.numInputFeatures {
		return nil, errors.Wrapf(ErrInputLength, "network expects %d inputs, got %d", m.numInputFeatures, len(inputs))
	}
	return m.network.FeedForward(inputs, m.activation)
}

// Reset draws fresh weights from the original layer configuration, clears
// the history and the step cursor and notifies the observers. The *Network
// returned by Network stays valid.
func (m *Model) Reset() {
	*m.network = *newNetwork(m.layersConfig, m.numInputFeatures, m.rng)
	m.lossHistory = nil
	m.accuracyHistory = nil
	m.epochs = 0
	m.resetStepExecutionState()
	m.network.ResetState()
	m.notify()
}

func (m *Model) resetStepExecutionState() {
	m.trainingInProgress = false
	m.trainingPaused = false
	m.currentTrainingEpoch = 0
	m.currentSampleIndex = 0
	m.currentTrainingPhase = PhaseForward
	m.onLayer = 0
	m.previousLayerResults = nil
	m.epochPredictions = nil
	m.epochTargets = nil
	m.cumulativeEpochLoss = 0
	m.shuffledTrainingData = nil
}
