// Package rating converts replayed match outcomes into MMR deltas through a
// win-probability model and per-player performance multipliers.
package rating

import (
	"math"

	"amongus-ranked/internal/domain"
)

// Model computes win probabilities and MMR deltas for a match. It reads the
// match and player records and writes only the rating output fields.
type Model struct {
	cfg Config
}

func NewModel(cfg Config) *Model {
	return &Model{cfg: cfg}
}

func (m *Model) Config() Config {
	return m.cfg
}

// Apply rates a fully replayed match in place: average team MMRs, win
// probabilities, per-player performance and role deltas. Canceled and
// Unknown matches are left untouched.
func (m *Model) Apply(match *domain.Match) {
	if !match.Result.Rated() {
		return
	}
	m.averageTeamMMR(match)
	m.winProbabilities(match)
	for _, p := range match.Players {
		m.scorePlayer(match, p)
	}
}

func (m *Model) averageTeamMMR(match *domain.Match) {
	if match.CrewmatesCount == 0 || match.ImpostorsCount == 0 {
		return
	}
	var crew, imp float64
	for _, p := range match.Players {
		switch p.Team {
		case domain.TeamCrewmate:
			crew += p.CrewmateCurrentMMR
		case domain.TeamImpostor:
			imp += p.ImpostorCurrentMMR
		}
	}
	match.AvgCrewmateMMR = crew / float64(match.CrewmatesCount)
	match.AvgImpostorMMR = imp / float64(match.ImpostorsCount)
}

// CrewWinProbability maps the team rating difference onto a bounded
// logistic curve around the configured base rate.
func (m *Model) CrewWinProbability(avgCrew, avgImp float64) float64 {
	f := func(x float64) float64 {
		return m.cfg.WinProbA*math.Log(m.cfg.WinProbB*x+m.cfg.WinProbC) + m.cfg.WinProbD
	}
	diff := avgCrew - avgImp
	if diff < 0 {
		prob := m.cfg.CrewBaseWinPercentage - f(-diff)
		return math.Max(prob, m.cfg.MinWinProbability)
	}
	prob := m.cfg.CrewBaseWinPercentage + f(diff)
	return math.Min(prob, m.cfg.MaxWinProbability)
}

func (m *Model) winProbabilities(match *domain.Match) {
	match.CrewWinPct = m.CrewWinProbability(match.AvgCrewmateMMR, match.AvgImpostorMMR)
	match.ImpWinPct = 1 - match.CrewWinPct
	for _, p := range match.Players {
		switch p.Team {
		case domain.TeamCrewmate:
			p.PctOfWinning = match.CrewWinPct
		case domain.TeamImpostor:
			p.PctOfWinning = match.ImpWinPct
		}
	}
}

func (m *Model) scorePlayer(match *domain.Match, p *domain.PlayerInMatch) {
	cfg := m.cfg
	switch p.Team {
	case domain.TeamCrewmate:
		if p.CorrectVotes > 0 {
			p.Performance *= 1 + float64(p.CorrectVotes)*cfg.CrewCorrectVoteBonus
		}
		if p.IncorrectVotes > 0 {
			p.Performance /= 1 + float64(p.IncorrectVotes)*cfg.CrewIncorrectVotePenalty
		}
		if len(p.GotCrewVoted) > 0 {
			p.Performance /= 1 + cfg.CrewGotVotedPenalty*float64(len(p.GotCrewVoted))
		}
		if p.TasksComplete > 0 {
			p.Performance *= 1 + float64(p.TasksComplete)*cfg.CrewTaskBonus
		}
		if p.VotedWrongOnCrit {
			p.Performance /= 1 + cfg.CrewWrongCritPenalty
		}
		if len(p.CorrectVoteOnEject) > 0 {
			var bonus float64
			for _, credit := range p.CorrectVoteOnEject {
				bonus += float64(credit.PlayersAlive) * cfg.CrewCorrectEjectBonus
			}
			p.Performance *= 1 + bonus
		}
		if p.RightVoteOnCritLost {
			p.Performance *= 1 + cfg.CrewRightCritLossBonus
		}
		if p.Won {
			p.Performance *= 1 + float64(p.RoundsSurvived)*cfg.CrewWinSurvivalBonus
		} else {
			p.Performance /= 1 + float64(p.RoundsSurvived)*cfg.CrewLossSurvivalPenalty
			if match.SoloImpGame {
				p.Performance /= 1 + float64(p.RoundsSurvived)*cfg.CrewSoloImpSurvivalPenalty
			}
		}

	case domain.TeamImpostor:
		if p.EjectedEarlyAsImp {
			p.Performance /= 1 + cfg.ImpEarlyEjectPenalty
		}
		if p.SoloImp {
			p.Performance *= 1 + cfg.ImpSoloBonus
		}
		if len(p.GotCrewVoted) > 0 {
			p.Performance *= 1 + cfg.ImpGotVotedBonus*float64(len(p.GotCrewVoted))
		}
		if p.KillsAsSoloImp > 0 {
			p.Performance *= 1 + cfg.ImpSoloKillBonus*float64(p.KillsAsSoloImp)
		}
		if p.WonAsSoloImp {
			p.Performance *= 1 + cfg.ImpSoloWinBonus
		}
		if p.NumberOfKills > 0 {
			p.Performance *= 1 + float64(p.NumberOfKills)*cfg.ImpKillBonus
		}
	}

	if p.Performance < cfg.MinPerformance {
		p.Performance = cfg.MinPerformance
	}

	if p.Won {
		if p.DiedFirstRound {
			p.Performance = cfg.DiedFirstWinPerformance
		}
		p.P = (1 - p.PctOfWinning) * p.Performance
	} else {
		if p.DiedFirstRound {
			p.Performance = cfg.MaxLossPerformance
		}
		p.P = -(p.PctOfWinning / p.Performance)
	}
	p.P = round(p.P, 4)

	switch p.Team {
	case domain.TeamImpostor:
		p.ImpostorMMRGain = round(p.P*match.K, 2)
	case domain.TeamCrewmate:
		p.CrewmateMMRGain = round(p.P*match.K, 2)
	}
	p.MMRGain = (p.ImpostorMMRGain + p.CrewmateMMRGain) / 2
}

func round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
