package neuralnet

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Layer is an ordered group of neurons at the same depth.
type Layer struct {
	Neurons []*Neuron
}

// Network is an ordered sequence of layers. Layer 0 consumes the raw input
// features and the last layer is the output layer. Its shape is fixed at
// construction; only weights and biases change afterwards.
type Network struct {
	Layers []*Layer
}

// NewNetwork builds a network from layersConfig, where layersConfig[l][k] is
// the initial bias of neuron k in layer l, so len(layersConfig[l]) is the
// neuron count of that layer. Every weight is drawn uniformly from [-1, 1].
func NewNetwork(layersConfig [][]float64, numInputFeatures int, rng *rand.Rand) (*Network, error) {
	if len(layersConfig) == 0 {
		return nil, ErrEmptyConfig
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return newNetwork(layersConfig, numInputFeatures, rng), nil
}

func newNetwork(layersConfig [][]float64, numInputFeatures int, rng *rand.Rand) *Network {
	nn := &Network{
		Layers: make([]*Layer, len(layersConfig)),
	}
	for l, biases := range layersConfig {
		fanIn := numInputFeatures
		if l > 0 {
			fanIn = len(layersConfig[l-1])
		}
		layer := &Layer{
			Neurons: make([]*Neuron, len(biases)),
		}
		for k, bias := range biases {
			weights := make([]float64, fanIn)
			for w := range weights {
				weights[w] = rng.Float64()*2 - 1
			}
			layer.Neurons[k] = NewNeuron(bias, weights)
		}
		nn.Layers[l] = layer
	}
	return nn
}

// ZeroBiases returns a layer configuration for NewNetwork with the given
// neuron counts and every initial bias set to 0.
func ZeroBiases(neuronCounts ...int) [][]float64 {
	config := make([][]float64, len(neuronCounts))
	for i, n := range neuronCounts {
		config[i] = make([]float64, n)
	}
	return config
}

// Shape returns the neuron count of every layer.
func (nn *Network) Shape() []int {
	shape := make([]int, len(nn.Layers))
	for i, layer := range nn.Layers {
		shape[i] = len(layer.Neurons)
	}
	return shape
}

// InputSize is the number of input features consumed by layer 0.
func (nn *Network) InputSize() int {
	if len(nn.Layers) == 0 || len(nn.Layers[0].Neurons) == 0 {
		return 0
	}
	return len(nn.Layers[0].Neurons[0].Weights())
}

// LayerPass runs every neuron of layer l on inputs and returns their outputs.
func (nn *Network) LayerPass(l int, inputs []float64, activation ActivationFunction) ([]float64, error) {
	layer := nn.Layers[l]
	outputs := make([]float64, len(layer.Neurons))
	for k, neuron := range layer.Neurons {
		out, err := neuron.Activate(inputs, activation)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d neuron %d", l, k)
		}
		outputs[k] = out
	}
	return outputs, nil
}

// FeedForward runs all layers in order and returns the output layer's values.
func (nn *Network) FeedForward(inputs []float64, activation ActivationFunction) ([]float64, error) {
	current := inputs
	for l := range nn.Layers {
		out, err := nn.LayerPass(l, current, activation)
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}

// Output returns a copy of the output layer's activated values.
func (nn *Network) Output() []float64 {
	outputLayer := nn.Layers[len(nn.Layers)-1].Neurons
	output := make([]float64, len(outputLayer))
	for i, neuron := range outputLayer {
		output[i] = neuron.Output
	}
	return output
}

// OutputDeltas sets delta = ∂L/∂output · f'(z) on every output neuron.
func (nn *Network) OutputDeltas(targets []float64, loss LossFunction, activation ActivationFunction) {
	outputLayer := nn.Layers[len(nn.Layers)-1]
	errs := loss.Gradient(nn.Output(), targets)
	for i, neuron := range outputLayer.Neurons {
		neuron.Delta = errs[i] * activation.Derivative(neuron.Z)
	}
}

// HiddenDeltas sets the deltas of hidden layer l from the deltas of layer l+1:
// delta_i = f'(z_i) · Σ_j next[j].delta · next[j].weights[i].
func (nn *Network) HiddenDeltas(l int, activation ActivationFunction) {
	layer := nn.Layers[l]
	nextLayer := nn.Layers[l+1]
	m := len(layer.Neurons)
	n := len(nextLayer.Neurons)
	if m == 0 {
		return
	}
	if n == 0 {
		for _, neuron := range layer.Neurons {
			neuron.Delta = 0
		}
		return
	}

	// [M * N] x [N * 1] => [M * 1]
	var errs mat.VecDense
	errs.MulVec(convertWeightsDense(nextLayer.Neurons, m).T(), convertDeltasDense(nextLayer.Neurons))
	for i, neuron := range layer.Neurons {
		neuron.Delta = errs.AtVec(i) * activation.Derivative(neuron.Z)
	}
}

// ResetState zeroes inputs, z, output and delta on every neuron.
func (nn *Network) ResetState() {
	for _, layer := range nn.Layers {
		for _, neuron := range layer.Neurons {
			neuron.resetState()
		}
	}
}

// N neurons of the next layer over M neurons of the previous one, so N * M.
func convertWeightsDense(neurons []*Neuron, m int) *mat.Dense {
	n := len(neurons)
	weights := make([]float64, n*m)
	for i, neuron := range neurons {
		copy(weights[i*m:(i+1)*m], neuron.Weights())
	}
	return mat.NewDense(n, m, weights)
}

func convertDeltasDense(neurons []*Neuron) *mat.VecDense {
	dense := mat.NewVecDense(len(neurons), nil)
	for i, neuron := range neurons {
		dense.SetVec(i, neuron.Delta)
	}
	return dense
}

// Debug
func (l *Layer) String() string {
	var sb strings.Builder
	for i, neuron := range l.Neurons {
		sb.WriteString(fmt.Sprintf("Neuron %d: bias=%.4f weights=%.4f z=%.4f output=%.4f delta=%.4f\n",
			i, neuron.Bias, neuron.Weights(), neuron.Z, neuron.Output, neuron.Delta))
	}
	return sb.String()
}

func (nn *Network) String() string {
	var sb strings.Builder
	for i, layer := range nn.Layers {
		sb.WriteString(fmt.Sprintf("Layer %d:\n%s\n", i, layer.String()))
	}
	return sb.String()
}
