package repository

import (
	"sort"
	"time"

	"amongus-ranked/internal/domain"
	"amongus-ranked/internal/names"
)

// Aggregates holds one player's season stats recomputed from ledger rows.
type Aggregates struct {
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
}

type playerAccum struct {
	agg Aggregates

	crewGames []bool
	impGames  []bool

	crewAlive time.Duration
	crewMatch time.Duration
	impAlive  time.Duration
	impMatch  time.Duration

	correctVotes int
	placedVotes  int
	skipVotes    int
}

// AggregateLedger recomputes every aggregate from valid ledger rows, keyed by
// normalized player name. Callers must pass rows already filtered of Canceled
// and Unknown matches.
//
// Voting accuracy covers crewmate games only, excluding games where the
// player died first: correct / (placed - skips). Survivability is total
// alive seconds over total match seconds per role. Streaks run in match ID
// order per role; the current streak resets to zero on a trailing loss.
func AggregateLedger(rows []domain.LedgerRow) map[string]Aggregates {
	ordered := make([]domain.LedgerRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MatchID < ordered[j].MatchID
	})

	accums := make(map[string]*playerAccum)
	for _, row := range ordered {
		key := names.Normalize(row.PlayerName)
		acc := accums[key]
		if acc == nil {
			acc = &playerAccum{}
			accums[key] = acc
		}

		acc.agg.TotalGamesPlayed++
		if row.Won {
			acc.agg.GamesWon++
		}
		if row.DiedFirstRound {
			acc.agg.GamesDiedFirst++
		}
		if row.VotedWrongOnCrit {
			acc.agg.VotedWrongOnCrit++
		}
		if row.VotedRightOnCritButLost {
			acc.agg.VotedRightOnCritButLost++
		}

		switch row.PlayerTeam {
		case domain.TeamImpostor:
			acc.agg.ImpostorGamesPlayed++
			if row.Won {
				acc.agg.ImpostorGamesWon++
			}
			acc.impGames = append(acc.impGames, row.Won)
			acc.impAlive += row.AliveTime
			acc.impMatch += row.MatchTime
		default:
			acc.agg.CrewmateGamesPlayed++
			if row.Won {
				acc.agg.CrewmateGamesWon++
			}
			acc.crewGames = append(acc.crewGames, row.Won)
			acc.crewAlive += row.AliveTime
			acc.crewMatch += row.MatchTime
			if !row.DiedFirstRound {
				acc.correctVotes += row.CorrectVotes
				acc.placedVotes += row.PlacedVotes
				acc.skipVotes += row.SkipVotes
			}
		}
	}

	out := make(map[string]Aggregates, len(accums))
	for key, acc := range accums {
		acc.agg.CrewmateWinStreak, acc.agg.BestCrewmateWinStreak = streaks(acc.crewGames)
		acc.agg.ImpostorWinStreak, acc.agg.BestImpostorWinStreak = streaks(acc.impGames)
		acc.agg.SurvivabilityCrewmate = survivability(acc.crewAlive, acc.crewMatch)
		acc.agg.SurvivabilityImpostor = survivability(acc.impAlive, acc.impMatch)

		if counted := acc.placedVotes - acc.skipVotes; counted > 0 {
			acc.agg.VotingAccuracy = round3(float64(acc.correctVotes) / float64(counted))
		}
		out[key] = acc.agg
	}
	return out
}

func streaks(wins []bool) (current, best int) {
	streak := 0
	for _, won := range wins {
		if won {
			streak++
		} else {
			streak = 0
		}
		if streak > best {
			best = streak
		}
	}
	if len(wins) > 0 && wins[len(wins)-1] {
		current = streak
	}
	return current, best
}

func survivability(alive, match time.Duration) float64 {
	if match <= 0 {
		return 0
	}
	return round3(alive.Seconds() / match.Seconds())
}
