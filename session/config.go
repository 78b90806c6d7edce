package session

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"synapse/neuralnet"
)

// Config captures the knobs of a training run.
type Config struct {
	CSV          string        `yaml:"csv"`
	HiddenLayers []int         `yaml:"hidden_layers"`
	Epochs       int           `yaml:"epochs"`
	LearningRate float64       `yaml:"learning_rate"`
	Activation   string        `yaml:"activation"`
	Inputs       []string      `yaml:"inputs"`
	Outputs      []string      `yaml:"outputs"`
	Seed         int64         `yaml:"seed"`
	TickInterval time.Duration `yaml:"tick_interval"`
	LogEvery     int           `yaml:"log_every"`
	HistoryOut   string        `yaml:"history_out"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	CSV          string
	HiddenLayers []int
	Epochs       int
	LearningRate float64
	Activation   string
	Seed         int64
	TickInterval time.Duration
	HistoryOut   string
}

func DefaultConfig() *Config {
	return &Config{
		HiddenLayers: []int{4, 4},
		Epochs:       neuralnet.DefaultTotalEpochs,
		LearningRate: neuralnet.DefaultLearningRate,
		Activation:   neuralnet.DefaultActivation,
		TickInterval: 10 * time.Millisecond,
		LogEvery:     1,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.CSV != "" {
		c.CSV = o.CSV
	}
	if len(o.HiddenLayers) > 0 {
		c.HiddenLayers = o.HiddenLayers
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Activation != "" {
		c.Activation = o.Activation
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.TickInterval > 0 {
		c.TickInterval = o.TickInterval
	}
	if o.HistoryOut != "" {
		c.HistoryOut = o.HistoryOut
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.CSV == "" {
		return errors.New("csv path must be set")
	}
	return c.validateTraining()
}

func (c *Config) validateTraining() error {
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return errors.Errorf("learning_rate must be in (0, 1] (got %v)", c.LearningRate)
	}
	if _, err := neuralnet.ParseActivation(c.Activation); err != nil {
		return err
	}
	for i, n := range c.HiddenLayers {
		if n <= 0 {
			return errors.Errorf("hidden_layers[%d] must be > 0 (got %d)", i, n)
		}
	}
	if c.TickInterval < 0 {
		return errors.Errorf("tick_interval must not be negative (got %s)", c.TickInterval)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 1
	}
	return nil
}

// Apply pushes the hyperparameters and column roles of c into s and rebuilds
// the model once. A table must already be loaded for column names to resolve.
func (c *Config) Apply(s *Session) error {
	if err := c.validateTraining(); err != nil {
		return err
	}
	columns := append([]Column(nil), s.columns...)
	if len(c.Inputs) > 0 || len(c.Outputs) > 0 {
		if s.table == nil {
			return errors.Wrap(ErrInvalidSetting, "column roles need a loaded table")
		}
		inputs, err := s.table.ColumnIndices(c.Inputs)
		if err != nil {
			return errors.Wrapf(ErrInvalidSetting, "inputs: %v", err)
		}
		outputs, err := s.table.ColumnIndices(c.Outputs)
		if err != nil {
			return errors.Wrapf(ErrInvalidSetting, "outputs: %v", err)
		}
		for i := range columns {
			columns[i].Role = RoleIgnore
		}
		for _, i := range inputs {
			columns[i].Role = RoleInput
		}
		for _, i := range outputs {
			columns[i].Role = RoleOutput
		}
	}

	s.columns = columns
	s.hiddenLayers = append([]int(nil), c.HiddenLayers...)
	s.totalEpochs = c.Epochs
	s.learningRate = c.LearningRate
	s.activation = c.Activation
	return s.Reload()
}
