package neuralnet

// Phase names the step the training state machine will run next, or the one
// it just completed in a TickStatus.
type Phase string

const (
	PhaseForward       Phase = "forward"
	PhaseBackward      Phase = "backward"
	PhaseEpochComplete Phase = "epoch_complete"
)

// TickStatus describes the work done by one call to Model.Tick.
//
// Loss and Accuracy are set only when Phase is PhaseEpochComplete and
// Completed is false; they hold the metrics of the epoch that just finished.
type TickStatus struct {
	Completed bool
	Paused    bool
	Epoch     int
	Sample    int
	Layer     int
	Phase     Phase
	Loss      float64
	Accuracy  float64
}

// NeuronState is a copy of a neuron's parameters and last pass values.
type NeuronState struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Inputs  []float64 `json:"inputs"`
	Z       float64   `json:"z"`
	Output  float64   `json:"output"`
	Delta   float64   `json:"delta"`
}

// LayerState is a copy of one layer.
type LayerState struct {
	LayerIndex int           `json:"layer_index"`
	Neurons    []NeuronState `json:"neurons"`
}

// Progress locates the step cursor within the whole run.
type Progress struct {
	TrainingInProgress bool    `json:"training_in_progress"`
	CurrentEpoch       int     `json:"current_epoch"`
	CurrentSample      int     `json:"current_sample"`
	CurrentLayer       int     `json:"current_layer"`
	TotalEpochs        int     `json:"total_epochs"`
	TotalSamples       int     `json:"total_samples"`
	TotalLayers        int     `json:"total_layers"`
	Phase              Phase   `json:"phase"`
	CurrentStep        int     `json:"current_step"`
	TotalSteps         int     `json:"total_steps"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// Snapshot returns a deep copy of every neuron in the network. Unlike
// Network, the result is safe to keep and modify.
func (m *Model) Snapshot() []LayerState {
	layers := make([]LayerState, len(m.network.Layers))
	for l, layer := range m.network.Layers {
		neurons := make([]NeuronState, len(layer.Neurons))
		for k, neuron := range layer.Neurons {
			neurons[k] = NeuronState{
				Weights: append([]float64{}, neuron.Weights()...),
				Bias:    neuron.Bias,
				Inputs:  append([]float64{}, neuron.Inputs...),
				Z:       neuron.Z,
				Output:  neuron.Output,
				Delta:   neuron.Delta,
			}
		}
		layers[l] = LayerState{LayerIndex: l, Neurons: neurons}
	}
	return layers
}

// Progress reports the cursor position and the share of the total
// total_epochs * samples * layers * 2 steps already taken.
func (m *Model) Progress() Progress {
	totalSamples := len(m.shuffledTrainingData)
	if totalSamples == 0 {
		totalSamples = len(m.trainingData)
	}
	totalLayers := len(m.network.Layers)
	perSample := totalLayers * 2

	totalSteps := m.totalEpochs * totalSamples * perSample
	currentStep := m.currentTrainingEpoch*totalSamples*perSample + m.currentSampleIndex*perSample
	if m.currentTrainingPhase == PhaseForward {
		currentStep += m.onLayer
	} else {
		currentStep += totalLayers + (totalLayers - 1 - m.onLayer)
	}

	var pct float64
	if totalSteps > 0 {
		pct = float64(currentStep) / float64(totalSteps) * 100
		if pct > 100 {
			pct = 100
		}
	}

	return Progress{
		TrainingInProgress: m.trainingInProgress,
		CurrentEpoch:       m.currentTrainingEpoch,
		CurrentSample:      m.currentSampleIndex,
		CurrentLayer:       m.onLayer,
		TotalEpochs:        m.totalEpochs,
		TotalSamples:       totalSamples,
		TotalLayers:        totalLayers,
		Phase:              m.currentTrainingPhase,
		CurrentStep:        currentStep,
		TotalSteps:         totalSteps,
		ProgressPercentage: pct,
	}
}
