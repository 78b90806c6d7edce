// Package session holds everything a training front end configures: the
// loaded table, the role of each column and the hyperparameters. Every change
// rebuilds the model, so a model never sees a setting change mid-run.
package session

import (
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"synapse/dataset"
	"synapse/neuralnet"
)

// Role says how a table column feeds the model.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
	RoleIgnore Role = "ignore"
)

// Column is a named table column and its role.
type Column struct {
	Name string
	Role Role
}

var (
	ErrNoModel        = errors.New("no model loaded")
	ErrInvalidSetting = errors.New("invalid setting")
)

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithRand sets the random source handed to every model the session builds.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		s.rng = rng
	}
}

// Session is the context object a driver or UI works through. It is not safe
// for concurrent use.
type Session struct {
	logger *slog.Logger
	rng    *rand.Rand

	table   *dataset.Table
	columns []Column

	hiddenLayers []int
	learningRate float64
	activation   string
	totalEpochs  int

	observers      []neuralnet.Observer
	tableObservers []func(*dataset.Table)
	model          *neuralnet.Model
}

func New(opts ...Option) *Session {
	s := &Session{
		logger:       slog.Default(),
		hiddenLayers: []int{4, 4},
		learningRate: neuralnet.DefaultLearningRate,
		activation:   neuralnet.DefaultActivation,
		totalEpochs:  neuralnet.DefaultTotalEpochs,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// LoadCSV replaces the table with the CSV document in r. The first column
// becomes the input, every other column an output.
func (s *Session) LoadCSV(r io.Reader) error {
	table, err := dataset.ReadCSV(r)
	if err != nil {
		return err
	}
	return s.SetTable(table)
}

// SetTable replaces the table and resets column roles to the LoadCSV default.
func (s *Session) SetTable(table *dataset.Table) error {
	s.table = table
	s.columns = make([]Column, len(table.Header))
	for i, name := range table.Header {
		role := RoleOutput
		if i == 0 {
			role = RoleInput
		}
		s.columns[i] = Column{Name: name, Role: role}
	}
	for _, fn := range s.tableObservers {
		fn(table)
	}
	return s.Reload()
}

func (s *Session) Table() *dataset.Table {
	return s.table
}

func (s *Session) IsDataLoaded() bool {
	return s.table != nil && s.table.Len() > 0
}

func (s *Session) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// SetColumns assigns roles by column name. Columns not named keep their role.
func (s *Session) SetColumns(roles map[string]Role) error {
	if s.table == nil {
		return errors.Wrap(ErrInvalidSetting, "no table loaded")
	}
	next := append([]Column(nil), s.columns...)
	for name, role := range roles {
		switch role {
		case RoleInput, RoleOutput, RoleIgnore:
		default:
			return errors.Wrapf(ErrInvalidSetting, "role %q for column %q", role, name)
		}
		i, ok := s.table.ColumnIndex(name)
		if !ok {
			return errors.Wrapf(ErrInvalidSetting, "unknown column %q", name)
		}
		next[i].Role = role
	}
	s.columns = next
	return s.Reload()
}

// SetLearningRate accepts rates in (0, 1].
func (s *Session) SetLearningRate(rate float64) error {
	if rate <= 0 || rate > 1 {
		return errors.Wrapf(ErrInvalidSetting, "learning rate must be in (0, 1], got %v", rate)
	}
	s.learningRate = rate
	return s.Reload()
}

func (s *Session) LearningRate() float64 {
	return s.learningRate
}

func (s *Session) SetActivation(name string) error {
	if _, err := neuralnet.ParseActivation(name); err != nil {
		return err
	}
	s.activation = name
	return s.Reload()
}

func (s *Session) Activation() string {
	return s.activation
}

func (s *Session) SetTotalEpochs(epochs int) error {
	if epochs <= 0 {
		return errors.Wrapf(ErrInvalidSetting, "total epochs must be positive, got %d", epochs)
	}
	s.totalEpochs = epochs
	return s.Reload()
}

func (s *Session) TotalEpochs() int {
	return s.totalEpochs
}

// SetHiddenLayers sets the neuron count of every hidden layer.
func (s *Session) SetHiddenLayers(neuronCounts []int) error {
	for i, n := range neuronCounts {
		if n <= 0 {
			return errors.Wrapf(ErrInvalidSetting, "hidden layer %d must have at least one neuron, got %d", i, n)
		}
	}
	s.hiddenLayers = append([]int(nil), neuronCounts...)
	return s.Reload()
}

func (s *Session) HiddenLayers() []int {
	return append([]int(nil), s.hiddenLayers...)
}

// RegisterObserver adds an observer to the current and every future model.
func (s *Session) RegisterObserver(o neuralnet.Observer) {
	s.observers = append(s.observers, o)
}

// RegisterTableObserver is called with every newly loaded table.
func (s *Session) RegisterTableObserver(fn func(*dataset.Table)) {
	s.tableObservers = append(s.tableObservers, fn)
}

// Model returns the current model, nil until data is loaded.
func (s *Session) Model() *neuralnet.Model {
	return s.model
}

// Reload rebuilds the model from the current table and settings. It is a
// no-op while no data is loaded.
func (s *Session) Reload() error {
	if !s.IsDataLoaded() {
		return nil
	}
	var inputs, outputs []int
	for i, col := range s.columns {
		switch col.Role {
		case RoleInput:
			inputs = append(inputs, i)
		case RoleOutput:
			outputs = append(outputs, i)
		}
	}

	counts := append([]int{len(inputs)}, s.hiddenLayers...)
	counts = append(counts, len(outputs))
	model, err := neuralnet.NewModel(neuralnet.Config{
		Layers:        neuralnet.ZeroBiases(counts...),
		Data:          s.table.Rows(),
		TotalEpochs:   s.totalEpochs,
		LearningRate:  s.learningRate,
		Activation:    s.activation,
		InputColumns:  inputs,
		OutputColumns: outputs,
	},
		neuralnet.WithObservers(neuralnet.ObserverFunc(s.notify)),
		neuralnet.WithRand(s.rng),
		neuralnet.WithLogger(s.logger),
	)
	if err != nil {
		return errors.Wrap(err, "reload model")
	}
	s.model = model
	s.logger.Info("model loaded",
		"model", model.ID().String(),
		"shape", model.Network().Shape(),
		"samples", model.TrainingSetSize(),
		"activation", s.activation,
		"learning_rate", s.learningRate,
		"epochs", s.totalEpochs,
	)
	return nil
}

func (s *Session) notify(m *neuralnet.Model) {
	for _, o := range s.observers {
		o.OnUpdate(m)
	}
}

// Tick advances the model by one step.
func (s *Session) Tick() (neuralnet.TickStatus, error) {
	if s.model == nil {
		return neuralnet.TickStatus{}, ErrNoModel
	}
	return s.model.Tick()
}

// Train advances the model by one step and reports whether training is done.
func (s *Session) Train() (bool, error) {
	status, err := s.Tick()
	if err != nil {
		return false, err
	}
	return status.Completed, nil
}

func (s *Session) PauseTraining() {
	if s.model != nil {
		s.model.PauseTraining()
	}
}

func (s *Session) ResumeTraining() {
	if s.model != nil {
		s.model.ResumeTraining()
	}
}

func (s *Session) IsTrainingPaused() bool {
	return s.model != nil && s.model.IsTrainingPaused()
}

func (s *Session) IsTrainingInProgress() bool {
	return s.model != nil && s.model.IsTrainingInProgress()
}

// Reset redraws the model's weights and clears its history.
func (s *Session) Reset() error {
	if s.model == nil {
		return ErrNoModel
	}
	s.model.Reset()
	return nil
}
