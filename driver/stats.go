package driver

import (
	"time"

	"synapse/neuralnet"
)

// Window accumulates tick timings between two log lines.
type Window struct {
	steps        int
	epochs       int
	elapsed      time.Duration
	lastLoss     float64
	lastAccuracy float64
}

// Record adds one tick to the window.
func (w *Window) Record(elapsed time.Duration, status neuralnet.TickStatus) {
	w.steps++
	w.elapsed += elapsed
	if status.Phase == neuralnet.PhaseEpochComplete {
		w.epochs++
		w.lastLoss = status.Loss
		w.lastAccuracy = status.Accuracy
	}
}

// Snapshot returns aggregated metrics and resets the window. The last loss
// and accuracy carry over into the next window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{
		Steps:        w.steps,
		Epochs:       w.epochs,
		LastLoss:     w.lastLoss,
		LastAccuracy: w.lastAccuracy,
	}
	if w.elapsed > 0 {
		snap.StepsPerSec = float64(w.steps) / w.elapsed.Seconds()
	}
	if w.steps > 0 {
		snap.AvgStepMS = (w.elapsed.Seconds() * 1000) / float64(w.steps)
	}

	w.steps = 0
	w.epochs = 0
	w.elapsed = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps        int
	Epochs       int
	StepsPerSec  float64
	AvgStepMS    float64
	LastLoss     float64
	LastAccuracy float64
}
