package neuralnet

import (
	"log/slog"

	"github.com/google/uuid"
)

// Observer is notified synchronously, in registration order, after every
// state-changing operation of a Model: construction, each Tick step and Reset.
// It runs once per layer step, so it must be cheap.
type Observer interface {
	OnUpdate(m *Model)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(m *Model)

func (f ObserverFunc) OnUpdate(m *Model) {
	f(m)
}

// Event is what ChannelObserver publishes.
type Event struct {
	ModelID  uuid.UUID
	Epochs   int
	Progress Progress
}

// ChannelObserver sends an Event per update to a buffered channel.
type ChannelObserver struct {
	Events chan Event
}

func NewChannelObserver(bufferSize int) *ChannelObserver {
	return &ChannelObserver{
		Events: make(chan Event, bufferSize),
	}
}

func (o *ChannelObserver) OnUpdate(m *Model) {
	select {
	case o.Events <- Event{ModelID: m.ID(), Epochs: m.EpochsCompleted(), Progress: m.Progress()}:
	default:
		// Channel full, drop event to avoid blocking the tick
	}
}

// LogObserver writes the cursor position of every update at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OnUpdate(m *Model) {
	p := m.Progress()
	o.Logger.Debug("model update",
		"model", m.ID().String(),
		"epoch", p.CurrentEpoch,
		"sample", p.CurrentSample,
		"layer", p.CurrentLayer,
		"phase", p.Phase,
		"progress", p.ProgressPercentage,
	)
}
