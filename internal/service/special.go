package service

import (
	"fmt"
	"os"

	"amongus-ranked/internal/constants"

	"gopkg.in/yaml.v3"
)

// SpecialMatches maps match IDs to session multipliers. Matches listed here
// are rated at a doubled or tripled K factor.
type SpecialMatches struct {
	multipliers map[int]string
}

// LoadSpecialMatches reads the multiplier table from a YAML file. An empty
// path yields an empty table.
func LoadSpecialMatches(path string) (*SpecialMatches, error) {
	s := &SpecialMatches{multipliers: map[int]string{}}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading special matches file: %w", err)
	}

	var entries []struct {
		MatchID    int    `yaml:"match_id"`
		Multiplier string `yaml:"multiplier"`
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return s, fmt.Errorf("parsing special matches file: %w", err)
	}
	for _, e := range entries {
		s.multipliers[e.MatchID] = e.Multiplier
	}
	return s, nil
}

// KFor returns the K factor for a match: tripled or doubled when listed,
// the default otherwise.
func (s *SpecialMatches) KFor(matchID int) float64 {
	switch s.multipliers[matchID] {
	case "double":
		return constants.KDouble
	case "triple":
		return constants.KTriple
	default:
		return constants.KDefault
	}
}

// Multiplier returns the listed multiplier name, empty for normal matches.
func (s *SpecialMatches) Multiplier(matchID int) string {
	return s.multipliers[matchID]
}
