package neuralnet

// LossFunction defines the interface for computing loss and its gradient.
type LossFunction interface {
	// Compute returns the loss value of output against target.
	Compute(output []float64, target []float64) float64
	// Gradient returns the gradient ∂L/∂output for each output neuron.
	Gradient(output []float64, target []float64) []float64
}

// MeanSquaredError is Σ(output-target)² / 2n. The factor of two cancels in the
// gradient, which is just output - target.
type MeanSquaredError struct{}

func (mse MeanSquaredError) Compute(output []float64, target []float64) float64 {
	if len(output) == 0 {
		return 0
	}
	var sum float64
	for i := range output {
		diff := output[i] - target[i]
		sum += diff * diff
	}
	return sum / float64(2*len(output))
}

func (mse MeanSquaredError) Gradient(output []float64, target []float64) []float64 {
	grad := make([]float64, len(output))
	for i := range output {
		grad[i] = output[i] - target[i]
	}
	return grad
}

// AccuracyThreshold binarizes predictions and targets for accuracy.
const AccuracyThreshold = 0.5

// SampleCorrect reports whether every output dimension lands on the same side
// of AccuracyThreshold as its target.
func SampleCorrect(output []float64, target []float64) bool {
	for i := range output {
		if (output[i] > AccuracyThreshold) != (target[i] > AccuracyThreshold) {
			return false
		}
	}
	return true
}

// Accuracy is the fraction of samples counted correct by SampleCorrect.
func Accuracy(outputs [][]float64, targets [][]float64) float64 {
	if len(outputs) == 0 {
		return 0
	}
	correct := 0
	for i := range outputs {
		if SampleCorrect(outputs[i], targets[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(outputs))
}
