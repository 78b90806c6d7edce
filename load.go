package main

import (
	"os"

	"github.com/pkg/errors"

	"synapse/dataset"
	"synapse/session"
)

// loadTable reads the CSV at path into s.
func loadTable(s *session.Session, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open csv")
	}
	defer file.Close()

	if err := s.LoadCSV(file); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}

// historyTable lays out the per-epoch loss and accuracy as one row per epoch.
func historyTable(loss, accuracy []float64) (*dataset.Table, error) {
	if len(loss) != len(accuracy) {
		return nil, errors.Errorf("history length mismatch: %d losses, %d accuracies", len(loss), len(accuracy))
	}
	rows := make([][]float64, len(loss))
	for i := range loss {
		rows[i] = []float64{float64(i + 1), loss[i], accuracy[i]}
	}
	return dataset.NewTable([]string{"epoch", "loss", "accuracy"}, rows)
}

func saveHistory(path string, loss, accuracy []float64) error {
	table, err := historyTable(loss, accuracy)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create history file")
	}
	if err := table.WriteCSV(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
