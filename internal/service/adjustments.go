package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Adjustment is one stored moderation MMR change. Adjustments are recorded
// durably so a full leaderboard rebuild can replay them after reprocessing
// every match.
type Adjustment struct {
	Player    string  `yaml:"player"`
	Value     float64 `yaml:"value"`
	Scope     string  `yaml:"scope"` // crew, imp or total
	Moderator string  `yaml:"moderator"`
	Reason    string  `yaml:"reason,omitempty"`
}

// AdjustmentLog is the YAML-backed record of moderation MMR changes.
type AdjustmentLog struct {
	path string
}

func NewAdjustmentLog(path string) *AdjustmentLog {
	return &AdjustmentLog{path: path}
}

// All returns every stored adjustment in recorded order. A missing file is
// an empty log.
func (l *AdjustmentLog) All() ([]Adjustment, error) {
	if l.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading adjustments file: %w", err)
	}
	var out []Adjustment
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing adjustments file: %w", err)
	}
	return out, nil
}

// Append records an adjustment at the end of the log.
func (l *AdjustmentLog) Append(adj Adjustment) error {
	if l.path == "" {
		return fmt.Errorf("no adjustments file configured")
	}
	existing, err := l.All()
	if err != nil {
		return err
	}
	existing = append(existing, adj)
	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing adjustments file: %w", err)
	}
	return nil
}
