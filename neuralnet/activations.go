package neuralnet

import (
	"math"

	"github.com/pkg/errors"
)

// ActivationFunction is applied to a neuron's weighted sum. Derivative is taken
// with respect to that pre-activation value z, not the activated output.
type ActivationFunction interface {
	Activate(z float64) float64
	Derivative(z float64) float64
}

const (
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationTanh    = "tanh"
	ActivationLinear  = "linear"
)

// ActivationNames lists the accepted activation names.
var ActivationNames = []string{ActivationReLU, ActivationSigmoid, ActivationTanh, ActivationLinear}

// ParseActivation resolves an activation by name.
func ParseActivation(name string) (ActivationFunction, error) {
	switch name {
	case ActivationReLU:
		return ReLU{}, nil
	case ActivationSigmoid:
		return Sigmoid{}, nil
	case ActivationTanh:
		return Tanh{}, nil
	case ActivationLinear:
		return Linear{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedActivation, "%q", name)
	}
}

type ReLU struct{}

func (r ReLU) Activate(z float64) float64 {
	return math.Max(z, 0)
}

func (r ReLU) Derivative(z float64) float64 {
	if z > 0 {
		return 1
	}
	return 0
}

type Sigmoid struct{}

func (s Sigmoid) Activate(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func (s Sigmoid) Derivative(z float64) float64 {
	sigmoid := s.Activate(z)
	return sigmoid * (1 - sigmoid)
}

type Tanh struct{}

func (t Tanh) Activate(z float64) float64 {
	return math.Tanh(z)
}

func (t Tanh) Derivative(z float64) float64 {
	tanh := t.Activate(z)
	return 1 - tanh*tanh
}

type Linear struct{}

func (l Linear) Activate(z float64) float64 {
	return z
}

func (l Linear) Derivative(z float64) float64 {
	return 1
}
