package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/san-kum/odestep/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// Store keeps one directory per run below baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type EventMetadata struct {
	Time       float64 `json:"time"`
	Handler    int     `json:"handler"`
	Increasing bool    `json:"increasing"`
	Action     string  `json:"action"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Problem     string             `json:"problem"`
	Stepper     string             `json:"stepper"`
	Timestamp   time.Time          `json:"timestamp"`
	Step        float64            `json:"step"`
	SampleStep  float64            `json:"sample_step"`
	T0          float64            `json:"t0"`
	T1          float64            `json:"t1"`
	FinalTime   float64            `json:"final_time"`
	Stopped     bool               `json:"stopped"`
	Steps       int                `json:"steps"`
	Evaluations int                `json:"evaluations"`
	Dimension   int                `json:"dimension"`
	Events      []EventMetadata    `json:"events"`
	Params      map[string]float64 `json:"params,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes the metadata and the sampled trajectory of out into a new
// run directory and returns the run ID.
func (s *Store) Save(out *experiment.Outcome) (string, error) {
	runID := uuid.New().String()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	res := out.Result
	meta := RunMetadata{
		ID:          runID,
		Problem:     out.Problem.Name,
		Stepper:     out.Config.Stepper,
		Timestamp:   time.Now().UTC(),
		Step:        out.Config.Step,
		SampleStep:  out.Config.SampleStep,
		T0:          out.Problem.T0,
		T1:          out.Problem.T1,
		FinalTime:   res.FinalTime,
		Stopped:     res.Stopped,
		Steps:       res.Steps,
		Evaluations: res.Evaluations,
		Dimension:   out.Problem.Equation.Dimension(),
		Events:      make([]EventMetadata, 0, len(res.Events)),
		Params:      out.Config.Params,
		Metrics:     out.Metrics,
	}
	for _, ev := range res.Events {
		meta.Events = append(meta.Events, EventMetadata{
			Time:       ev.Time,
			Handler:    ev.Handler,
			Increasing: ev.Increasing,
			Action:     ev.Action.String(),
		})
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), out.Samples.Times, out.Samples.States); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(data, '\n'), 0644)
}

func writeStates[S ~[]float64](path string, times []float64, states []S) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending states file: %w", err)
	}
	defer pending.Cleanup()

	w := csv.NewWriter(pending)
	if len(states) > 0 {
		header := []string{"time"}
		for i := range states[0] {
			header = append(header, fmt.Sprintf("y%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for i, y := range states {
		row := make([]string, 0, len(y)+1)
		row = append(row, strconv.FormatFloat(times[i], 'g', -1, 64))
		for _, v := range y {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

// path resolves a file of a run. Only run IDs are accepted, so a name
// cannot escape baseDir.
func (s *Store) path(runID, name string) (string, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return filepath.Join(s.baseDir, runID, name), nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	path, err := s.path(runID, metadataFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	path, err := s.path(runID, statesFile)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)
	for line, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s: line %d: %w", runID, line+2, err)
			}
			values[j] = v
		}
		times = append(times, values[0])
		states = append(states, values[1:])
	}
	return states, times, nil
}

// ExportData is a stored run in a single JSON document.
type ExportData struct {
	RunMetadata
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

// ExportJSON writes the metadata and states of a run to w.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{RunMetadata: *meta, Times: times, States: states})
}

// ExportCSV copies the sampled states of a run to w.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	path, err := s.path(runID, statesFile)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}
