package neuralnet

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Neuron holds the trainable parameters of a single unit together with the
// transient values of the last forward and backward pass.
type Neuron struct {
	Bias    float64
	weights []float64

	// Inputs is the exact vector that produced Z.
	Inputs []float64
	Z      float64
	Output float64
	Delta  float64
}

func NewNeuron(bias float64, weights []float64) *Neuron {
	return &Neuron{
		Bias:    bias,
		weights: weights,
	}
}

// Weights returns the live weight vector. Values may be changed in place, the
// length may not.
func (n *Neuron) Weights() []float64 {
	return n.weights
}

// SetWeights replaces the weight vector. The new vector must have the same length.
func (n *Neuron) SetWeights(weights []float64) error {
	if len(weights) != len(n.weights) {
		return errors.Wrapf(ErrWeightsLength, "expected %d, got %d", len(n.weights), len(weights))
	}
	n.weights = weights
	return nil
}

// Activate runs the neuron on inputs: captures them, computes z = bias + w·x
// and stores the activated output.
func (n *Neuron) Activate(inputs []float64, activation ActivationFunction) (float64, error) {
	if len(inputs) != len(n.weights) {
		return 0, errors.Wrapf(ErrInputLength, "neuron expects %d inputs, got %d", len(n.weights), len(inputs))
	}
	n.Inputs = append(n.Inputs[:0], inputs...)
	n.Z = n.Bias + floats.Dot(n.weights, inputs)
	n.Output = activation.Activate(n.Z)
	return n.Output, nil
}

func (n *Neuron) resetState() {
	n.Inputs = n.Inputs[:0]
	n.Z = 0
	n.Output = 0
	n.Delta = 0
}
