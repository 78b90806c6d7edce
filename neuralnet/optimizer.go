package neuralnet

import "github.com/pkg/errors"

// Optimizer applies a layer's freshly computed deltas to its weights and bias.
type Optimizer interface {
	Apply(layer *Layer, learningRate float64) error
}

// SGD is plain per-sample gradient descent without momentum.
type SGD struct{}

// Apply performs w_i -= lr * delta * input_i and bias -= lr * delta on every
// neuron of layer, using the inputs captured by the last forward pass.
func (o SGD) Apply(layer *Layer, learningRate float64) error {
	for k, neuron := range layer.Neurons {
		weights := neuron.Weights()
		if len(neuron.Inputs) != len(weights) {
			return errors.Wrapf(ErrInputLength, "neuron %d has %d captured inputs for %d weights", k, len(neuron.Inputs), len(weights))
		}
		for i := range weights {
			weights[i] -= learningRate * neuron.Delta * neuron.Inputs[i]
		}
		neuron.Bias -= learningRate * neuron.Delta
	}
	return nil
}
