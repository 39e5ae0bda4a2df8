package rating

import (
	"os"
	"testing"

	"amongus-ranked/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratedMatch(result domain.MatchResult) *domain.Match {
	m := &domain.Match{
		ID:     1,
		Result: result,
		K:      32,
	}
	for i := 0; i < 8; i++ {
		p := domain.NewPlayerInMatch("crew"+string(rune('a'+i)), domain.TeamCrewmate)
		p.CrewmateCurrentMMR = 1000
		p.ImpostorCurrentMMR = 1000
		p.Won = result.CrewWin()
		m.Players = append(m.Players, p)
		m.CrewmatesCount++
	}
	for i := 0; i < 2; i++ {
		p := domain.NewPlayerInMatch("imp"+string(rune('a'+i)), domain.TeamImpostor)
		p.CrewmateCurrentMMR = 1000
		p.ImpostorCurrentMMR = 1000
		p.Won = result.ImpWin()
		m.Players = append(m.Players, p)
		m.ImpostorsCount++
	}
	return m
}

func TestCrewWinProbabilityEqualTeams(t *testing.T) {
	model := NewModel(Default())
	prob := model.CrewWinProbability(1000, 1000)
	// f(0) is slightly below zero, so equal teams sit just under the base rate.
	assert.InDelta(t, Default().CrewBaseWinPercentage, prob, 0.01)
}

func TestCrewWinProbabilityMonotonicAndClamped(t *testing.T) {
	model := NewModel(Default())

	low := model.CrewWinProbability(800, 1200)
	mid := model.CrewWinProbability(1000, 1000)
	high := model.CrewWinProbability(1200, 800)
	assert.Less(t, low, mid)
	assert.Less(t, mid, high)

	assert.GreaterOrEqual(t, model.CrewWinProbability(0, 100000), Default().MinWinProbability)
	assert.LessOrEqual(t, model.CrewWinProbability(100000, 0), Default().MaxWinProbability)
}

func TestApplySignOfP(t *testing.T) {
	model := NewModel(Default())
	m := ratedMatch(domain.ResultCrewmatesWin)
	model.Apply(m)

	for _, p := range m.Players {
		if p.Won {
			assert.Positive(t, p.P, p.Name)
		} else {
			assert.Negative(t, p.P, p.Name)
		}
	}
}

func TestApplyRoleDeltaOnly(t *testing.T) {
	model := NewModel(Default())
	m := ratedMatch(domain.ResultCrewmatesWin)
	model.Apply(m)

	for _, p := range m.Players {
		switch p.Team {
		case domain.TeamCrewmate:
			assert.NotZero(t, p.CrewmateMMRGain, p.Name)
			assert.Zero(t, p.ImpostorMMRGain, p.Name)
		case domain.TeamImpostor:
			assert.NotZero(t, p.ImpostorMMRGain, p.Name)
			assert.Zero(t, p.CrewmateMMRGain, p.Name)
		}
		assert.InDelta(t, (p.CrewmateMMRGain+p.ImpostorMMRGain)/2, p.MMRGain, 1e-9)
	}
}

func TestApplyDiedFirstOverrides(t *testing.T) {
	cfg := Default()
	model := NewModel(cfg)

	m := ratedMatch(domain.ResultCrewmatesWin)
	winner := m.Players[0]
	winner.DiedFirstRound = true
	winner.CorrectVotes = 3 // would otherwise inflate performance
	loserImp := m.Players[8]
	loserImp.DiedFirstRound = true
	model.Apply(m)

	assert.InDelta(t, cfg.DiedFirstWinPerformance, winner.Performance, 1e-9)
	assert.InDelta(t, cfg.MaxLossPerformance, loserImp.Performance, 1e-9)
	// A softened loss still loses less than a full-performance one.
	other := m.Players[9]
	assert.Greater(t, loserImp.P, other.P)
}

func TestApplyPerformanceFloor(t *testing.T) {
	cfg := Default()
	model := NewModel(cfg)

	m := ratedMatch(domain.ResultImpostorsWin)
	crew := m.Players[0]
	crew.IncorrectVotes = 10
	crew.VotedWrongOnCrit = true
	crew.RoundsSurvived = 10
	model.Apply(m)

	assert.InDelta(t, cfg.MinPerformance, crew.Performance, 1e-9)
}

func TestApplyRounding(t *testing.T) {
	model := NewModel(Default())
	m := ratedMatch(domain.ResultCrewmatesWin)
	model.Apply(m)

	for _, p := range m.Players {
		assert.InDelta(t, p.P, round(p.P, 4), 1e-9, p.Name)
		assert.InDelta(t, p.CrewmateMMRGain, round(p.CrewmateMMRGain, 2), 1e-9, p.Name)
		assert.InDelta(t, p.ImpostorMMRGain, round(p.ImpostorMMRGain, 2), 1e-9, p.Name)
	}
}

func TestApplySkipsUnratedResults(t *testing.T) {
	model := NewModel(Default())
	for _, result := range []domain.MatchResult{domain.ResultCanceled, domain.ResultUnknown} {
		m := ratedMatch(result)
		model.Apply(m)
		for _, p := range m.Players {
			assert.Zero(t, p.MMRGain)
			assert.Zero(t, p.CrewmateMMRGain)
			assert.Zero(t, p.ImpostorMMRGain)
		}
	}
}

func TestApplyKFactorScalesDeltas(t *testing.T) {
	model := NewModel(Default())

	normal := ratedMatch(domain.ResultCrewmatesWin)
	model.Apply(normal)
	double := ratedMatch(domain.ResultCrewmatesWin)
	double.K = 64
	model.Apply(double)

	n := normal.Players[0]
	d := double.Players[0]
	require.NotZero(t, n.CrewmateMMRGain)
	assert.InDelta(t, 2*n.CrewmateMMRGain, d.CrewmateMMRGain, 0.02)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := t.TempDir() + "/rating.yaml"
	err := os.WriteFile(path, []byte("k_factor: 48\ncrew_base_win_percentage: 0.6\n"), 0o644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 48.0, cfg.KFactor)
	assert.Equal(t, 0.6, cfg.CrewBaseWinPercentage)
	assert.Equal(t, Default().MinPerformance, cfg.MinPerformance)
}
