package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/nrsolve/internal/newton"
	"github.com/san-kum/nrsolve/internal/storage"
)

type IterationData struct {
	Iteration int       `json:"iter"`
	Error     float64   `json:"error"`
	Residual  float64   `json:"residual"`
	X         []float64 `json:"x"`
}

type RunData struct {
	Run        storage.RunMetadata `json:"run"`
	Iterations []IterationData     `json:"iterations"`
}

func NewRunData(meta storage.RunMetadata, history []newton.IterationRecord) RunData {
	data := RunData{
		Run:        meta,
		Iterations: make([]IterationData, len(history)),
	}
	for i, rec := range history {
		data.Iterations[i] = IterationData{
			Iteration: rec.Iteration,
			Error:     rec.Error,
			Residual:  rec.Residual,
			X:         rec.X,
		}
	}
	return data
}

func WriteJSON(w io.Writer, meta storage.RunMetadata, history []newton.IterationRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewRunData(meta, history))
}

func ExportJSON(path string, meta storage.RunMetadata, history []newton.IterationRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, meta, history)
}

// WriteCSV writes the iteration table in the same layout as the run store.
func WriteCSV(w io.Writer, dim int, history []newton.IterationRecord) error {
	cw := csv.NewWriter(w)
	if err := storage.WriteHistoryCSV(cw, dim, history); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
