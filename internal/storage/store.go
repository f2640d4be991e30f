package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/nrsolve/internal/newton"
)

const (
	metadataFile   = "metadata.json"
	iterationsFile = "iterations.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID             string    `json:"id"`
	System         string    `json:"system"`
	Timestamp      time.Time `json:"timestamp"`
	Tolerance      float64   `json:"tolerance"`
	MaxIterations  int       `json:"max_iterations"`
	ConditionLimit float64   `json:"condition_limit,omitempty"`
	InitialGuess   []float64 `json:"initial_guess"`
	Status         string    `json:"status"`
	Iterations     int       `json:"iterations"`
	// FinalError is nil when no step completed.
	FinalError *float64  `json:"final_error"`
	Solution   []float64 `json:"solution"`
	Message    string    `json:"message,omitempty"`
}

// Save writes a run directory for res and returns its id. solveErr, if set, is
// recorded as the run message.
func (s *Store) Save(system string, cfg newton.Config, x0 newton.Vector, res *newton.Result, solveErr error) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", system, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:             runID,
		System:         system,
		Timestamp:      now,
		Tolerance:      cfg.Tolerance,
		MaxIterations:  cfg.MaxIterations,
		ConditionLimit: cfg.ConditionLimit,
		InitialGuess:   x0,
		Status:         res.Status.String(),
		Iterations:     res.Iterations,
		Solution:       res.X,
	}
	if !math.IsInf(res.Error, 0) && !math.IsNaN(res.Error) {
		e := res.Error
		meta.FinalError = &e
	}
	if solveErr != nil {
		meta.Message = solveErr.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, iterationsFile), len(x0), res.History); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeHistory(path string, dim int, history []newton.IterationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := WriteHistoryCSV(w, dim, history); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// WriteHistoryCSV writes a header and one row per record. Floats are written
// with the shortest representation that parses back to the same value.
func WriteHistoryCSV(w *csv.Writer, dim int, history []newton.IterationRecord) error {
	header := []string{"iter", "error", "residual"}
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, rec := range history {
		row := []string{
			strconv.Itoa(rec.Iteration),
			strconv.FormatFloat(rec.Error, 'g', -1, 64),
			strconv.FormatFloat(rec.Residual, 'g', -1, 64),
		}
		for _, v := range rec.X {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns all readable runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadHistory(runID string) ([]newton.IterationRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, iterationsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []newton.IterationRecord{}, nil
	}

	history := make([]newton.IterationRecord, 0, len(records)-1)
	for i, record := range records[1:] {
		rec, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
		}
		history = append(history, rec)
	}
	return history, nil
}

func parseRow(record []string) (newton.IterationRecord, error) {
	if len(record) < 3 {
		return newton.IterationRecord{}, fmt.Errorf("expected at least 3 fields, got %d", len(record))
	}

	iter, err := strconv.Atoi(record[0])
	if err != nil {
		return newton.IterationRecord{}, err
	}
	values := make([]float64, len(record)-1)
	for j, field := range record[1:] {
		values[j], err = strconv.ParseFloat(field, 64)
		if err != nil {
			return newton.IterationRecord{}, err
		}
	}

	return newton.IterationRecord{
		Iteration: iter,
		Error:     values[0],
		Residual:  values[1],
		X:         newton.Vector(values[2:]),
	}, nil
}
