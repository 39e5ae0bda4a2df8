package domain

import (
	"time"
)

// Team is a player's role within a single match.
type Team string

const (
	TeamCrewmate Team = "crewmate"
	TeamImpostor Team = "impostor"
)

// EjectCredit is one accumulated voting credit: how many players were alive
// when the ejection happened and the weight of the credit. Credits append,
// they never overwrite.
type EjectCredit struct {
	PlayersAlive int `json:"players_alive"`
	Weight       int `json:"weight"`
}

// Match is one game instance rebuilt from its event log.
type Match struct {
	ID             int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	Result         MatchResult
	MatchFileName  string
	EventFileName  string
	Players        []*PlayerInMatch
	CrewmatesCount int
	ImpostorsCount int
	Rounds         int
	SoloImpGame    bool
	AlivePlayers   int
	AliveImpostors int

	AvgCrewmateMMR float64
	AvgImpostorMMR float64
	CrewWinPct     float64
	ImpWinPct      float64
	K              float64
}

// PlayersByTeam returns the players on the given team, in roster order.
func (m *Match) PlayersByTeam(team Team) []*PlayerInMatch {
	var out []*PlayerInMatch
	for _, p := range m.Players {
		if p.Team == team {
			out = append(out, p)
		}
	}
	return out
}

// PlayerInMatch is one player's record within one match. It is populated by a
// single replay pass and read-only afterwards.
type PlayerInMatch struct {
	MatchID   int
	Name      string
	Team      Team
	Won       bool
	Connected bool

	CurrentMMR         float64
	CrewmateCurrentMMR float64
	ImpostorCurrentMMR float64
	DiscordID          int64

	MMRGain         float64
	CrewmateMMRGain float64
	ImpostorMMRGain float64
	PctOfWinning    float64
	P               float64
	Performance     float64

	Alive          bool
	TimeOfDeath    *time.Time
	AliveTime      time.Duration
	MatchTime      time.Duration
	RoundsSurvived int
	TotalRounds    int

	EjectedInMeeting bool
	PlacedVotes      int
	CorrectVotes     int
	IncorrectVotes   int
	SkipVotes        int
	LastVoted        string
	VotingAccuracy   float64
	GotCrewVoted     []EjectCredit

	DiedFirstRound      bool
	FinishedTasksAlive  bool
	FinishedTasksDead   bool
	TasksComplete       int
	VotedWrongOnCrit    bool
	CorrectVoteOnEject  []EjectCredit
	RightVoteOnCritLost bool

	NumberOfKills     int
	EjectedEarlyAsImp bool
	SoloImp           bool
	KillsAsSoloImp    int
	WonAsSoloImp      bool
}

// NewPlayerInMatch returns a fresh record ready for a replay pass.
func NewPlayerInMatch(name string, team Team) *PlayerInMatch {
	return &PlayerInMatch{
		Name:        name,
		Team:        team,
		Alive:       true,
		Connected:   true,
		Performance: 1.0,
		P:           1.0,
	}
}

// CorrectVote records a vote that landed on an impostor. Vote counters only
// move for crewmates; impostor votes carry no rating weight.
func (p *PlayerInMatch) CorrectVote() {
	if p.Team == TeamCrewmate {
		p.CorrectVotes++
		p.PlacedVotes++
	}
}

func (p *PlayerInMatch) IncorrectVote() {
	if p.Team == TeamCrewmate {
		p.IncorrectVotes++
		p.PlacedVotes++
	}
}

func (p *PlayerInMatch) SkippedVote() {
	if p.Team == TeamCrewmate {
		p.SkipVotes++
		p.PlacedVotes++
	}
}

func (p *PlayerInMatch) FinishedTask() {
	if p.Team == TeamCrewmate {
		p.TasksComplete++
	}
}

func (p *PlayerInMatch) GotAKill() {
	if p.Team == TeamImpostor {
		p.NumberOfKills++
	}
}
