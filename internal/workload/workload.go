// Package workload defines replayable SQL workloads: an ordered list of
// statements, bucket switches, and transaction blocks loaded from a YAML
// file and executed against an instrumented database handle.
package workload

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Workload is a named, ordered sequence of steps plus optional setup
// statements that run before recording starts.
type Workload struct {
	Name  string   `yaml:"name"`
	Setup []string `yaml:"setup,omitempty"`
	Steps []Step   `yaml:"steps"`
}

// Step is one workload action. Exactly one of Query, Bucket, or Txn must be
// set: a statement to execute, a bucket label to switch the recorder to, or
// a transaction block of statement steps.
type Step struct {
	Query  string   `yaml:"query,omitempty"`
	Params []string `yaml:"params,omitempty"`
	Think  Duration `yaml:"think,omitempty"` // pause after the statement

	Bucket string `yaml:"bucket,omitempty"`

	Txn      []Step `yaml:"txn,omitempty"`
	Rollback bool   `yaml:"rollback,omitempty"` // roll the block back instead of committing
}

// Duration wraps time.Duration so steps can spell pauses as "5ms" or "1.5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and validates a workload file.
func Load(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates workload YAML.
func Parse(data []byte) (*Workload, error) {
	var w Workload
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode workload: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Validate checks the workload's structural rules.
func (w *Workload) Validate() error {
	if len(w.Steps) == 0 {
		return fmt.Errorf("workload %q has no steps", w.Name)
	}
	for i, s := range w.Steps {
		if err := s.validate(false); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Step) validate(inTxn bool) error {
	set := 0
	if s.Query != "" {
		set++
	}
	if s.Bucket != "" {
		set++
	}
	if len(s.Txn) > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of query, bucket, or txn must be set")
	}
	if len(s.Txn) > 0 {
		if inTxn {
			return fmt.Errorf("transactions do not nest")
		}
		if s.Query != "" {
			return fmt.Errorf("txn block cannot carry its own query")
		}
		for i, inner := range s.Txn {
			if err := inner.validate(true); err != nil {
				return fmt.Errorf("txn step %d: %w", i+1, err)
			}
		}
	}
	if s.Rollback && len(s.Txn) == 0 {
		return fmt.Errorf("rollback is only valid on a txn block")
	}
	return nil
}
