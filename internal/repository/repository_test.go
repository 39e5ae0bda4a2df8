package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"amongus-ranked/internal/config"
	"amongus-ranked/internal/database"
	"amongus-ranked/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(&config.Config{DBPath: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRepos(t *testing.T) (*LeaderboardRepository, *LedgerRepository) {
	t.Helper()
	db := testDB(t)
	return NewLeaderboardRepository(db, zerolog.Nop()), NewLedgerRepository(db, zerolog.Nop())
}

func TestNewPlayerAndGet(t *testing.T) {
	lb, _ := testRepos(t)
	ctx := context.Background()

	row, err := lb.NewPlayer(ctx, "Jane Doe", 1000, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", row.PlayerName)
	assert.Equal(t, 1000.0, row.MMR)
	assert.Equal(t, 0, row.Rank)

	// Lookup folds case and whitespace.
	got, err := lb.Get(ctx, "  jane doe ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, row.ID, got.ID)

	missing, err := lb.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestApplyMatchDeltaAndReversal(t *testing.T) {
	lb, _ := testRepos(t)
	ctx := context.Background()

	_, err := lb.NewPlayer(ctx, "alice", 1000, 1000, 1000)
	require.NoError(t, err)

	require.NoError(t, lb.ApplyMatchDelta(ctx, "alice", 12.34, -5.67))

	row, err := lb.Get(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 1012.34, row.CrewmateMMR, 1e-9)
	assert.InDelta(t, 994.33, row.ImpostorMMR, 1e-9)
	assert.InDelta(t, 1003.335, row.MMR, 1e-9)

	// The same deltas negated restore the row exactly.
	require.NoError(t, lb.ApplyMatchDelta(ctx, "alice", -12.34, 5.67))
	row, err = lb.Get(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, row.CrewmateMMR, 1e-9)
	assert.InDelta(t, 1000.0, row.ImpostorMMR, 1e-9)
	assert.InDelta(t, 1000.0, row.MMR, 1e-9)
}

func TestRerankStableTieBreak(t *testing.T) {
	lb, _ := testRepos(t)
	ctx := context.Background()

	first, err := lb.NewPlayer(ctx, "first", 1000, 1000, 1000)
	require.NoError(t, err)
	second, err := lb.NewPlayer(ctx, "second", 1000, 1000, 1000)
	require.NoError(t, err)
	_, err = lb.NewPlayer(ctx, "third", 1100, 1100, 1100)
	require.NoError(t, err)

	rows, err := lb.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "third", rows[0].PlayerName)
	assert.Equal(t, 0, rows[0].Rank)
	// Equal MMR: earlier insertion wins the tie, on every recompute.
	assert.Equal(t, "first", rows[1].PlayerName)
	assert.Equal(t, 1, rows[1].Rank)
	assert.Equal(t, "second", rows[2].PlayerName)
	assert.Equal(t, 2, rows[2].Rank)

	require.NoError(t, lb.Rerank(ctx))
	rows, err = lb.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", rows[1].PlayerName)
	assert.Equal(t, first.ID, rows[1].ID)
	assert.Equal(t, second.ID, rows[2].ID)
}

func TestTopByRoleMMR(t *testing.T) {
	lb, _ := testRepos(t)
	ctx := context.Background()

	_, err := lb.NewPlayer(ctx, "crewish", 1000, 1200, 900)
	require.NoError(t, err)
	_, err = lb.NewPlayer(ctx, "impish", 1000, 900, 1200)
	require.NoError(t, err)

	best, err := lb.BestCrewmate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "crewish", best.PlayerName)

	best, err = lb.BestImpostor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "impish", best.PlayerName)

	_, err = lb.Top(ctx, "mmr; DROP TABLE leaderboard", 5)
	assert.Error(t, err)
}

func TestDiscordLinking(t *testing.T) {
	lb, _ := testRepos(t)
	ctx := context.Background()

	_, err := lb.NewPlayer(ctx, "alice", 1000, 1000, 1000)
	require.NoError(t, err)

	require.NoError(t, lb.SetDiscordID(ctx, "alice", 12345))
	row, err := lb.GetByDiscordID(ctx, 12345)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "alice", row.PlayerName)

	require.NoError(t, lb.ClearDiscordID(ctx, "alice"))
	row, err = lb.GetByDiscordID(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.Error(t, lb.SetDiscordID(ctx, "nobody", 1))
}

func TestRename(t *testing.T) {
	lb, _ := testRepos(t)
	ctx := context.Background()

	_, err := lb.NewPlayer(ctx, "Old Name", 1000, 1000, 1000)
	require.NoError(t, err)

	require.NoError(t, lb.Rename(ctx, "old name", "New Name"))

	row, err := lb.Get(ctx, "new name")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "New Name", row.PlayerName)

	old, err := lb.Get(ctx, "old name")
	require.NoError(t, err)
	assert.Nil(t, old)
}

func sampleLedgerRow(matchID int, name string) domain.LedgerRow {
	return domain.LedgerRow{
		MatchID:         matchID,
		PlayerName:      name,
		MatchResult:     domain.ResultCrewmatesWin,
		PlayerTeam:      domain.TeamCrewmate,
		MMR:             1000,
		CrewmateMMR:     1000,
		ImpostorMMR:     1000,
		CrewmateMMRGain: 10.5,
		MMRGain:         5.25,
		PctOfWinning:    0.58,
		Won:             true,
		Alive:           true,
		AliveTime:       4 * time.Minute,
		MatchTime:       9 * time.Minute,
		MatchStartTime:  time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC),
		RoundsSurvived:  3,
		TotalRounds:     3,
		PlacedVotes:     2,
		CorrectVotes:    1,
		CorrectVoteOnEject: []domain.EjectCredit{
			{PlayersAlive: 8, Weight: 1},
		},
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	_, led := testRepos(t)
	ctx := context.Background()

	require.NoError(t, led.InsertMatchRows(ctx, []domain.LedgerRow{
		sampleLedgerRow(1, "alice"),
		sampleLedgerRow(1, "bob"),
	}))

	exists, err := led.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = led.Exists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, exists)

	rows, err := led.RowsForMatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got := rows[0]
	assert.Equal(t, "alice", got.PlayerName)
	assert.Equal(t, domain.ResultCrewmatesWin, got.MatchResult)
	assert.Equal(t, domain.TeamCrewmate, got.PlayerTeam)
	assert.InDelta(t, 10.5, got.CrewmateMMRGain, 1e-9)
	assert.Equal(t, 4*time.Minute, got.AliveTime)
	assert.Equal(t, 9*time.Minute, got.MatchTime)
	require.Len(t, got.CorrectVoteOnEject, 1)
	assert.Equal(t, domain.EjectCredit{PlayersAlive: 8, Weight: 1}, got.CorrectVoteOnEject[0])
	assert.Empty(t, got.GotCrewVoted)
}

func TestLedgerUniquePerMatchPlayer(t *testing.T) {
	_, led := testRepos(t)
	ctx := context.Background()

	require.NoError(t, led.InsertMatchRows(ctx, []domain.LedgerRow{sampleLedgerRow(1, "alice")}))
	err := led.InsertMatchRows(ctx, []domain.LedgerRow{sampleLedgerRow(1, "alice")})
	assert.Error(t, err)
}

func TestLedgerDeleteAndProcessedIDs(t *testing.T) {
	_, led := testRepos(t)
	ctx := context.Background()

	require.NoError(t, led.InsertMatchRows(ctx, []domain.LedgerRow{
		sampleLedgerRow(1, "alice"),
		sampleLedgerRow(2, "alice"),
	}))

	ids, err := led.ProcessedMatchIDs(ctx)
	require.NoError(t, err)
	assert.True(t, ids[1])
	assert.True(t, ids[2])

	n, err := led.DeleteMatch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ids, err = led.ProcessedMatchIDs(ctx)
	require.NoError(t, err)
	assert.False(t, ids[1])
	assert.True(t, ids[2])
}

func TestLedgerAllValidRowsExcludesUnrated(t *testing.T) {
	_, led := testRepos(t)
	ctx := context.Background()

	canceled := sampleLedgerRow(2, "alice")
	canceled.MatchResult = domain.ResultCanceled
	unknown := sampleLedgerRow(3, "alice")
	unknown.MatchResult = domain.ResultUnknown

	require.NoError(t, led.InsertMatchRows(ctx, []domain.LedgerRow{
		sampleLedgerRow(1, "alice"), canceled, unknown,
	}))

	rows, err := led.AllValidRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].MatchID)
}

func TestLedgerHistoryNewestFirst(t *testing.T) {
	_, led := testRepos(t)
	ctx := context.Background()

	require.NoError(t, led.InsertMatchRows(ctx, []domain.LedgerRow{
		sampleLedgerRow(1, "alice"),
		sampleLedgerRow(2, "alice"),
		sampleLedgerRow(3, "alice"),
		sampleLedgerRow(2, "bob"),
	}))

	rows, err := led.HistoryForPlayer(ctx, "Alice", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].MatchID)
	assert.Equal(t, 2, rows[1].MatchID)
}

func TestRebuildAggregatesWritesAndZeroes(t *testing.T) {
	db := testDB(t)
	lb := NewLeaderboardRepository(db, zerolog.Nop())
	ctx := context.Background()

	_, err := lb.NewPlayer(ctx, "alice", 1000, 1000, 1000)
	require.NoError(t, err)
	_, err = lb.NewPlayer(ctx, "ghost", 1000, 1000, 1000)
	require.NoError(t, err)

	rows := []domain.LedgerRow{
		ledgerRow(1, "alice", domain.TeamCrewmate, true),
		ledgerRow(2, "alice", domain.TeamCrewmate, true),
	}
	require.NoError(t, lb.RebuildAggregates(ctx, rows))

	alice, err := lb.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.TotalGamesPlayed)
	assert.Equal(t, 2, alice.CrewmateWinStreak)
	assert.InDelta(t, 0.5, alice.SurvivabilityCrewmate, 1e-9)

	ghost, err := lb.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Zero(t, ghost.TotalGamesPlayed)

	// Rebuilding from an empty ledger zeroes everyone.
	require.NoError(t, lb.RebuildAggregates(ctx, nil))
	alice, err = lb.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, alice.TotalGamesPlayed)
	assert.Zero(t, alice.CrewmateWinStreak)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	db := testDB(t)
	lb := NewLeaderboardRepository(db, zerolog.Nop())
	ctx := context.Background()

	err := Atomic(ctx, db, func(tx *sql.Tx) error {
		if _, err := lb.WithTx(tx).NewPlayer(ctx, "doomed", 1000, 1000, 1000); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	row, err := lb.Get(ctx, "doomed")
	require.NoError(t, err)
	assert.Nil(t, row)
}
