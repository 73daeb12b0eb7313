package batch

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/wavenc/internal/encoder"
	"github.com/tphakala/wavenc/internal/errors"
)

// Summary describes a finished run
type Summary struct {
	RunID       string         `yaml:"run_id"`
	StartedAt   time.Time      `yaml:"started_at"`
	Duration    time.Duration  `yaml:"-"`
	Submitted   int            `yaml:"submitted"`
	Rejected    int            `yaml:"rejected"`
	Skipped     int            `yaml:"skipped"`
	Succeeded   int            `yaml:"succeeded"`
	Failed      map[string]int `yaml:"failed,omitempty"`
	Cancelled   int            `yaml:"cancelled"`
	Abandoned   int            `yaml:"abandoned"`
	Interrupted bool           `yaml:"interrupted"`
	Tasks       []TaskReport   `yaml:"tasks,omitempty"`
	Rejections  []Rejection    `yaml:"rejections,omitempty"`
	Skips       []Skipped      `yaml:"skips,omitempty"`
}

// TaskReport is the per-task line of a summary
type TaskReport struct {
	ID           int    `yaml:"id"`
	Source       string `yaml:"source"`
	Destination  string `yaml:"destination"`
	Phase        string `yaml:"phase"`
	Result       string `yaml:"result,omitempty"`
	Message      string `yaml:"message,omitempty"`
	BytesWritten int64  `yaml:"bytes_written"`
	Elapsed      string `yaml:"elapsed,omitempty"`
}

// FailedCount returns the number of tasks that finished with an error result
func (s *Summary) FailedCount() int {
	n := 0
	for _, c := range s.Failed {
		n += c
	}
	return n
}

// OK reports whether every source was accepted and encoded without interruption
func (s *Summary) OK() bool {
	return s.Rejected == 0 && s.FailedCount() == 0 && !s.Interrupted && s.Abandoned == 0
}

func (o *Orchestrator) summary(runID string, interrupted bool) *Summary {
	s := &Summary{
		RunID:       runID,
		StartedAt:   o.started,
		Duration:    time.Since(o.started),
		Submitted:   len(o.all),
		Rejected:    len(o.rejected),
		Skipped:     len(o.skipped),
		Succeeded:   o.results[encoder.ResultSuccess],
		Interrupted: interrupted,
		Rejections:  o.rejected,
		Skips:       o.skipped,
	}
	if interrupted {
		s.Abandoned = len(o.pool.Abandoned())
	}

	for result, count := range o.results {
		if result == encoder.ResultSuccess || count == 0 {
			continue
		}
		if s.Failed == nil {
			s.Failed = make(map[string]int)
		}
		s.Failed[result.String()] = count
	}

	for _, t := range o.all {
		r := TaskReport{
			ID:          t.ID,
			Source:      t.SourcePath,
			Destination: t.DestinationPath,
			Phase:       t.Phase().String(),
		}
		if t.Phase() == encoder.PhaseFinished {
			r.Result = t.Result().String()
			r.Message = t.Message()
			r.BytesWritten = t.BytesWritten()
			r.Elapsed = t.Elapsed().Round(time.Millisecond).String()
			if t.Cancelled() {
				s.Cancelled++
			}
		}
		s.Tasks = append(s.Tasks, r)
	}
	return s
}

// reportDocument adds the human-readable duration yaml.v3 would otherwise
// write as nanoseconds
type reportDocument struct {
	Summary `yaml:",inline"`
	Took    string `yaml:"duration"`
}

// WriteReport stores the summary as YAML at path
func WriteReport(path string, s *Summary) error {
	data, err := yaml.Marshal(reportDocument{Summary: *s, Took: s.Duration.Round(time.Millisecond).String()})
	if err != nil {
		return errors.New(err).
			Component("batch").
			Category(errors.CategoryGeneric).
			Context("operation", "marshal report").
			Build()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return reportError(err, path)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return reportError(err, path)
	}
	return nil
}

// ReadReport loads a report written by WriteReport
func ReadReport(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, reportError(err, path)
	}
	var doc reportDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, reportError(err, path)
	}
	if d, err := time.ParseDuration(doc.Took); err == nil {
		doc.Duration = d
	}
	return &doc.Summary, nil
}

func reportError(err error, path string) error {
	return errors.New(err).
		Component("batch").
		Category(errors.CategoryFileIO).
		Context("report", path).
		Build()
}
