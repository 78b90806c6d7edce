package neuralnet

import (
	"github.com/pkg/errors"

	"synapse/dataset"
)

// Tick advances training by exactly one layer step: either the forward pass of
// one layer for the current sample, or the backward pass of one layer followed
// by its weight update. The cycle per sample is forward(0..L-1) then
// backward(L-1..0); after the last sample of an epoch the epoch's loss and
// accuracy are appended to the history and the set is reshuffled.
//
// A paused model returns Paused without touching any state. Once every epoch
// has run, Tick returns Completed; a further call starts a new run.
func (m *Model) Tick() (TickStatus, error) {
	if m.trainingPaused {
		return TickStatus{
			Paused: true,
			Epoch:  m.currentTrainingEpoch,
			Sample: m.currentSampleIndex,
			Layer:  m.onLayer,
			Phase:  m.currentTrainingPhase,
		}, nil
	}

	if !m.trainingInProgress {
		if len(m.trainingData) == 0 {
			return TickStatus{}, ErrNoTrainingData
		}
		m.startTraining()
	}

	if m.currentTrainingEpoch >= m.totalEpochs {
		m.trainingInProgress = false
		return TickStatus{
			Completed: true,
			Epoch:     m.currentTrainingEpoch,
			Sample:    m.currentSampleIndex,
			Layer:     m.onLayer,
			Phase:     PhaseEpochComplete,
		}, nil
	}

	switch m.currentTrainingPhase {
	case PhaseForward:
		return m.forwardStep()
	case PhaseBackward:
		return m.backwardStep()
	default:
		return TickStatus{}, errors.Wrapf(ErrInvalidState, "phase %q", m.currentTrainingPhase)
	}
}

func (m *Model) startTraining() {
	m.trainingInProgress = true
	m.trainingPaused = false
	m.currentTrainingEpoch = 0
	m.currentSampleIndex = 0
	m.currentTrainingPhase = PhaseForward
	m.onLayer = 0
	m.epochPredictions = nil
	m.epochTargets = nil
	m.cumulativeEpochLoss = 0
	m.shuffledTrainingData = dataset.Shuffle(m.trainingData, m.rng)
}

func (m *Model) forwardStep() (TickStatus, error) {
	sample := m.shuffledTrainingData[m.currentSampleIndex]
	if m.onLayer == 0 {
		m.previousLayerResults = sample.Inputs
	}

	layer := m.onLayer
	outputs, err := m.network.LayerPass(layer, m.previousLayerResults, m.activation)
	if err != nil {
		return TickStatus{}, err
	}
	m.onLayer++
	m.previousLayerResults = outputs
	m.notify()

	if m.onLayer >= len(m.network.Layers) {
		m.epochPredictions = append(m.epochPredictions, outputs)
		m.epochTargets = append(m.epochTargets, sample.Targets)
		m.cumulativeEpochLoss += m.loss.Compute(outputs, sample.Targets)

		m.currentTrainingPhase = PhaseBackward
		m.onLayer = len(m.network.Layers) - 1
	}

	return TickStatus{
		Epoch:  m.currentTrainingEpoch,
		Sample: m.currentSampleIndex,
		Layer:  layer,
		Phase:  PhaseForward,
	}, nil
}

func (m *Model) backwardStep() (TickStatus, error) {
	sample := m.shuffledTrainingData[m.currentSampleIndex]
	layer := m.onLayer

	if layer == len(m.network.Layers)-1 {
		m.network.OutputDeltas(sample.Targets, m.loss, m.activation)
	} else {
		m.network.HiddenDeltas(layer, m.activation)
	}
	if err := m.optimizer.Apply(m.network.Layers[layer], m.learningRate); err != nil {
		return TickStatus{}, errors.Wrapf(err, "update layer %d", layer)
	}

	m.onLayer--
	m.notify()

	status := TickStatus{
		Epoch:  m.currentTrainingEpoch,
		Sample: m.currentSampleIndex,
		Layer:  layer,
		Phase:  PhaseBackward,
	}
	if m.onLayer >= 0 {
		return status, nil
	}

	m.network.ResetState()
	m.currentSampleIndex++
	m.onLayer = 0
	m.currentTrainingPhase = PhaseForward
	if m.currentSampleIndex < len(m.shuffledTrainingData) {
		return status, nil
	}
	return m.completeEpoch(status), nil
}

func (m *Model) completeEpoch(status TickStatus) TickStatus {
	epochLoss := m.cumulativeEpochLoss / float64(len(m.shuffledTrainingData))
	epochAccuracy := Accuracy(m.epochPredictions, m.epochTargets)

	m.lossHistory = append(m.lossHistory, epochLoss)
	m.accuracyHistory = append(m.accuracyHistory, epochAccuracy)
	m.epochs++

	m.currentSampleIndex = 0
	m.currentTrainingEpoch++
	m.epochPredictions = nil
	m.epochTargets = nil
	m.cumulativeEpochLoss = 0
	if m.currentTrainingEpoch < m.totalEpochs {
		m.shuffledTrainingData = dataset.Shuffle(m.trainingData, m.rng)
	}

	m.logger.Debug("epoch complete",
		"epoch", status.Epoch,
		"loss", epochLoss,
		"accuracy", epochAccuracy,
	)
	m.notify()

	status.Phase = PhaseEpochComplete
	status.Loss = epochLoss
	status.Accuracy = epochAccuracy
	return status
}
