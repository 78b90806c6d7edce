package dataset

import (
	"math/rand"

	"github.com/pkg/errors"
)

var (
	// ErrColumnOutOfRange is returned when a column index does not exist in a data row.
	ErrColumnOutOfRange = errors.New("column index out of bounds")
	// ErrUnknownColumn is returned when a column name is not in the table header.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrFeatureMismatch is returned when a projected vector has the wrong length.
	ErrFeatureMismatch = errors.New("feature count mismatch")
)

// Sample is one training example. It is not modified after Project builds it.
type Sample struct {
	Inputs  []float64
	Targets []float64
}

// Project selects inputColumns and outputColumns from every row. numOutputs is
// the expected target length, normally the output layer's neuron count.
func Project(rows [][]float64, inputColumns, outputColumns []int, numOutputs int) ([]Sample, error) {
	samples := make([]Sample, len(rows))
	for r, row := range rows {
		inputs, err := pick(row, inputColumns)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d input", r)
		}
		targets, err := pick(row, outputColumns)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d output", r)
		}
		if len(inputs) != len(inputColumns) {
			return nil, errors.Wrapf(ErrFeatureMismatch, "row %d: expected %d inputs, got %d", r, len(inputColumns), len(inputs))
		}
		if len(targets) != numOutputs {
			return nil, errors.Wrapf(ErrFeatureMismatch, "row %d: expected %d targets, got %d; check output columns and the final layer size", r, numOutputs, len(targets))
		}
		samples[r] = Sample{Inputs: inputs, Targets: targets}
	}
	return samples, nil
}

func pick(row []float64, columns []int) ([]float64, error) {
	values := make([]float64, len(columns))
	for i, c := range columns {
		if c < 0 || c >= len(row) {
			return nil, errors.Wrapf(ErrColumnOutOfRange, "index %d for row of %d values", c, len(row))
		}
		values[i] = row[c]
	}
	return values, nil
}

// Shuffle returns a Fisher-Yates shuffled copy of samples.
func Shuffle(samples []Sample, rng *rand.Rand) []Sample {
	shuffled := append([]Sample(nil), samples...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
