package domain

import "time"

// LeaderboardRow is one player's current standing. Aggregate columns are
// recomputed wholesale from the ledger; only the MMR columns move per match.
type LeaderboardRow struct {
	ID         int64
	Rank       int
	PlayerName string
	DiscordID  int64

	MMR         float64
	CrewmateMMR float64
	ImpostorMMR float64

	VotingAccuracy          float64
	TotalGamesPlayed        int
	ImpostorGamesPlayed     int
	CrewmateGamesPlayed     int
	ImpostorGamesWon        int
	CrewmateGamesWon        int
	GamesWon                int
	GamesDiedFirst          int
	VotedWrongOnCrit        int
	VotedRightOnCritButLost int
	CrewmateWinStreak       int
	BestCrewmateWinStreak   int
	ImpostorWinStreak       int
	BestImpostorWinStreak   int
	SurvivabilityCrewmate   float64
	SurvivabilityImpostor   float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerRow is the append-only per-(match, player) snapshot. It is the only
// source used for aggregate recomputation and for reversing a match.
type LedgerRow struct {
	ID         int64
	MatchID    int
	PlayerName string

	MatchResult MatchResult
	PlayerTeam  Team

	MMR         float64
	CrewmateMMR float64
	ImpostorMMR float64

	MMRGain         float64
	CrewmateMMRGain float64
	ImpostorMMRGain float64
	PctOfWinning    float64

	Won   bool
	Alive bool

	AliveTime      time.Duration
	MatchTime      time.Duration
	MatchStartTime time.Time
	RoundsSurvived int
	TotalRounds    int

	EjectedInMeeting bool
	PlacedVotes      int
	CorrectVotes     int
	IncorrectVotes   int
	SkipVotes        int
	VotingAccuracy   float64

	DiedFirstRound     bool
	FinishedTasksAlive bool
	FinishedTasksDead  bool
	TasksComplete      int

	CorrectVoteOnEject      []EjectCredit
	VotedWrongOnCrit        bool
	VotedRightOnCritButLost bool

	NumberOfKills     int
	EjectedEarlyAsImp bool
	GotCrewVoted      []EjectCredit
	SoloImp           bool
	KillsAsSoloImp    int
	WonAsSoloImp      bool

	CreatedAt time.Time
}

// LedgerRowFromPlayer flattens a replayed, rated player record into its
// ledger snapshot.
func LedgerRowFromPlayer(m *Match, p *PlayerInMatch) LedgerRow {
	return LedgerRow{
		MatchID:                 m.ID,
		PlayerName:              p.Name,
		MatchResult:             m.Result,
		PlayerTeam:              p.Team,
		MMR:                     p.CurrentMMR,
		CrewmateMMR:             p.CrewmateCurrentMMR,
		ImpostorMMR:             p.ImpostorCurrentMMR,
		MMRGain:                 p.MMRGain,
		CrewmateMMRGain:         p.CrewmateMMRGain,
		ImpostorMMRGain:         p.ImpostorMMRGain,
		PctOfWinning:            p.PctOfWinning,
		Won:                     p.Won,
		Alive:                   p.Alive,
		AliveTime:               p.AliveTime,
		MatchTime:               p.MatchTime,
		MatchStartTime:          m.StartTime,
		RoundsSurvived:          p.RoundsSurvived,
		TotalRounds:             p.TotalRounds,
		EjectedInMeeting:        p.EjectedInMeeting,
		PlacedVotes:             p.PlacedVotes,
		CorrectVotes:            p.CorrectVotes,
		IncorrectVotes:          p.IncorrectVotes,
		SkipVotes:               p.SkipVotes,
		VotingAccuracy:          p.VotingAccuracy,
		DiedFirstRound:          p.DiedFirstRound,
		FinishedTasksAlive:      p.FinishedTasksAlive,
		FinishedTasksDead:       p.FinishedTasksDead,
		TasksComplete:           p.TasksComplete,
		CorrectVoteOnEject:      p.CorrectVoteOnEject,
		VotedWrongOnCrit:        p.VotedWrongOnCrit,
		VotedRightOnCritButLost: p.RightVoteOnCritLost,
		NumberOfKills:           p.NumberOfKills,
		EjectedEarlyAsImp:       p.EjectedEarlyAsImp,
		GotCrewVoted:            p.GotCrewVoted,
		SoloImp:                 p.SoloImp,
		KillsAsSoloImp:          p.KillsAsSoloImp,
		WonAsSoloImp:            p.WonAsSoloImp,
	}
}
