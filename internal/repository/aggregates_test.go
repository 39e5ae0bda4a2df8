package repository

import (
	"testing"
	"time"

	"amongus-ranked/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerRow(matchID int, name string, team domain.Team, won bool) domain.LedgerRow {
	return domain.LedgerRow{
		MatchID:     matchID,
		PlayerName:  name,
		MatchResult: domain.ResultCrewmatesWin,
		PlayerTeam:  team,
		Won:         won,
		AliveTime:   5 * time.Minute,
		MatchTime:   10 * time.Minute,
	}
}

func TestAggregateLedgerCountsAndStreaks(t *testing.T) {
	rows := []domain.LedgerRow{
		ledgerRow(1, "alice", domain.TeamCrewmate, true),
		ledgerRow(2, "alice", domain.TeamCrewmate, true),
		ledgerRow(3, "alice", domain.TeamCrewmate, false),
		ledgerRow(4, "alice", domain.TeamCrewmate, true),
		ledgerRow(5, "alice", domain.TeamImpostor, true),
	}

	stats := AggregateLedger(rows)
	agg, ok := stats["alice"]
	require.True(t, ok)

	assert.Equal(t, 5, agg.TotalGamesPlayed)
	assert.Equal(t, 4, agg.GamesWon)
	assert.Equal(t, 4, agg.CrewmateGamesPlayed)
	assert.Equal(t, 3, agg.CrewmateGamesWon)
	assert.Equal(t, 1, agg.ImpostorGamesPlayed)
	assert.Equal(t, 1, agg.ImpostorGamesWon)

	assert.Equal(t, 1, agg.CrewmateWinStreak)
	assert.Equal(t, 2, agg.BestCrewmateWinStreak)
	assert.Equal(t, 1, agg.ImpostorWinStreak)
	assert.Equal(t, 1, agg.BestImpostorWinStreak)
}

func TestAggregateLedgerStreakResetsOnTrailingLoss(t *testing.T) {
	rows := []domain.LedgerRow{
		ledgerRow(1, "bob", domain.TeamCrewmate, true),
		ledgerRow(2, "bob", domain.TeamCrewmate, true),
		ledgerRow(3, "bob", domain.TeamCrewmate, false),
	}

	agg := AggregateLedger(rows)["bob"]
	assert.Equal(t, 0, agg.CrewmateWinStreak)
	assert.Equal(t, 2, agg.BestCrewmateWinStreak)
}

func TestAggregateLedgerStreakOrderedByMatchID(t *testing.T) {
	// Rows arrive out of order; streaks follow match ID order.
	rows := []domain.LedgerRow{
		ledgerRow(3, "carol", domain.TeamCrewmate, true),
		ledgerRow(1, "carol", domain.TeamCrewmate, true),
		ledgerRow(2, "carol", domain.TeamCrewmate, false),
	}

	agg := AggregateLedger(rows)["carol"]
	assert.Equal(t, 1, agg.CrewmateWinStreak)
	assert.Equal(t, 1, agg.BestCrewmateWinStreak)
}

func TestAggregateLedgerSurvivability(t *testing.T) {
	crewRow := ledgerRow(1, "dave", domain.TeamCrewmate, true)
	crewRow.AliveTime = 3 * time.Minute
	crewRow.MatchTime = 12 * time.Minute
	impRow := ledgerRow(2, "dave", domain.TeamImpostor, false)
	impRow.AliveTime = 8 * time.Minute
	impRow.MatchTime = 8 * time.Minute

	agg := AggregateLedger([]domain.LedgerRow{crewRow, impRow})["dave"]
	assert.InDelta(t, 0.25, agg.SurvivabilityCrewmate, 1e-9)
	assert.InDelta(t, 1.0, agg.SurvivabilityImpostor, 1e-9)
}

func TestAggregateLedgerVotingAccuracyExcludesDiedFirst(t *testing.T) {
	good := ledgerRow(1, "erin", domain.TeamCrewmate, true)
	good.CorrectVotes = 2
	good.PlacedVotes = 3
	good.SkipVotes = 1

	diedFirst := ledgerRow(2, "erin", domain.TeamCrewmate, false)
	diedFirst.DiedFirstRound = true
	diedFirst.CorrectVotes = 0
	diedFirst.PlacedVotes = 4

	impGame := ledgerRow(3, "erin", domain.TeamImpostor, true)
	impGame.CorrectVotes = 1
	impGame.PlacedVotes = 1

	agg := AggregateLedger([]domain.LedgerRow{good, diedFirst, impGame})["erin"]
	// Only the first row counts: 2 correct out of (3 placed - 1 skip).
	assert.InDelta(t, 1.0, agg.VotingAccuracy, 1e-9)
	assert.Equal(t, 1, agg.GamesDiedFirst)
}

func TestAggregateLedgerNormalizesNames(t *testing.T) {
	rows := []domain.LedgerRow{
		ledgerRow(1, "Jane Doe", domain.TeamCrewmate, true),
		ledgerRow(2, "jane doe", domain.TeamCrewmate, true),
	}

	stats := AggregateLedger(rows)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats["janedoe"].TotalGamesPlayed)
}

func TestAggregateLedgerCritCounters(t *testing.T) {
	a := ledgerRow(1, "frank", domain.TeamCrewmate, false)
	a.VotedWrongOnCrit = true
	b := ledgerRow(2, "frank", domain.TeamCrewmate, false)
	b.VotedRightOnCritButLost = true

	agg := AggregateLedger([]domain.LedgerRow{a, b})["frank"]
	assert.Equal(t, 1, agg.VotedWrongOnCrit)
	assert.Equal(t, 1, agg.VotedRightOnCritButLost)
}
