package neuralnet

import "github.com/pkg/errors"

var (
	// ErrEmptyConfig is returned when a network is built from an empty layer configuration.
	ErrEmptyConfig = errors.New("layer configuration cannot be empty")
	// ErrWeightsLength is returned when a weight vector of the wrong length is assigned to a neuron.
	ErrWeightsLength = errors.New("weights length mismatch")
	// ErrInputLength is returned when an input vector does not match the expected feature count.
	ErrInputLength = errors.New("input size mismatch")
	// ErrUnsupportedActivation is returned for activation names outside relu|sigmoid|tanh|linear.
	ErrUnsupportedActivation = errors.New("unsupported activation function")
	// ErrInvalidHyperparameter is returned for a negative epoch count or a learning rate outside [0, 1].
	ErrInvalidHyperparameter = errors.New("invalid hyperparameter")
	// ErrNoTrainingData is returned by Tick when the training set is empty.
	ErrNoTrainingData = errors.New("no training data available")
	// ErrInvalidState means the step cursor holds a phase the state machine cannot handle.
	ErrInvalidState = errors.New("invalid training state")
)
