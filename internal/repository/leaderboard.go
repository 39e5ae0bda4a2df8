package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"amongus-ranked/internal/domain"
	"amongus-ranked/internal/names"

	"github.com/rs/zerolog"
)

const leaderboardColumns = `id, rank, player_name, discord_id, mmr, crewmate_mmr, impostor_mmr,
	voting_accuracy, total_games_played, impostor_games_played, crewmate_games_played,
	impostor_games_won, crewmate_games_won, games_won, games_died_first,
	voted_wrong_on_crit, voted_right_on_crit_but_lost,
	crewmate_win_streak, best_crewmate_win_streak, impostor_win_streak, best_impostor_win_streak,
	survivability_crewmate, survivability_impostor, created_at, updated_at`

// LeaderboardRepository is the durable rank-ordered player store. Rank is
// recomputed as a pure ordering over the rows after every MMR mutation.
type LeaderboardRepository struct {
	db     DBTX
	sqlDB  *sql.DB
	logger zerolog.Logger
}

func NewLeaderboardRepository(sqlDB *sql.DB, logger zerolog.Logger) *LeaderboardRepository {
	return &LeaderboardRepository{db: sqlDB, sqlDB: sqlDB, logger: logger}
}

// WithTx returns a copy of the repository that executes against tx.
func (r *LeaderboardRepository) WithTx(tx *sql.Tx) *LeaderboardRepository {
	return &LeaderboardRepository{db: tx, sqlDB: r.sqlDB, logger: r.logger}
}

// Get looks a player up by name, case- and whitespace-insensitively.
// Returns nil when absent.
func (r *LeaderboardRepository) Get(ctx context.Context, name string) (*domain.LeaderboardRow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leaderboardColumns+` FROM leaderboard WHERE player_key = ?`,
		names.Normalize(name))
	return scanLeaderboardRow(row)
}

// GetByDiscordID returns the row linked to the given external account, or
// nil when no player is linked to it.
func (r *LeaderboardRepository) GetByDiscordID(ctx context.Context, discordID int64) (*domain.LeaderboardRow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leaderboardColumns+` FROM leaderboard WHERE discord_id = ? AND discord_id != 0`,
		discordID)
	return scanLeaderboardRow(row)
}

// NewPlayer inserts a row at the starting MMR values and re-ranks.
func (r *LeaderboardRepository) NewPlayer(ctx context.Context, name string, mmr, crewMMR, impMMR float64) (*domain.LeaderboardRow, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leaderboard (player_name, player_key, mmr, crewmate_mmr, impostor_mmr, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, name, names.Normalize(name), mmr, crewMMR, impMMR, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert player %s: %w", name, err)
	}
	if err := r.Rerank(ctx); err != nil {
		return nil, err
	}
	r.logger.Info().Str("player", name).Float64("mmr", mmr).Msg("new player added to leaderboard")
	return r.Get(ctx, name)
}

// ApplyMatchDelta adds the per-role deltas to a player's MMR columns,
// recomputes the combined MMR as round((crew+imp)/2, 3) and re-ranks.
// Reversal is the same call with negated deltas.
func (r *LeaderboardRepository) ApplyMatchDelta(ctx context.Context, name string, crewDelta, impDelta float64) error {
	row, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("player %s not on leaderboard", name)
	}

	crew := round3(row.CrewmateMMR + crewDelta)
	imp := round3(row.ImpostorMMR + impDelta)
	combined := round3((crew + imp) / 2)

	_, err = r.db.ExecContext(ctx, `
		UPDATE leaderboard SET crewmate_mmr = ?, impostor_mmr = ?, mmr = ?, updated_at = ? WHERE id = ?
	`, crew, imp, combined, time.Now().UTC(), row.ID)
	if err != nil {
		return fmt.Errorf("failed to apply delta for %s: %w", name, err)
	}
	return r.Rerank(ctx)
}

// AdjustMMR applies a moderation adjustment to one or both role MMRs.
// Scope is "crew", "imp" or "total" (both roles).
func (r *LeaderboardRepository) AdjustMMR(ctx context.Context, name string, value float64, scope string) error {
	switch scope {
	case "crew":
		return r.ApplyMatchDelta(ctx, name, value, 0)
	case "imp":
		return r.ApplyMatchDelta(ctx, name, 0, value)
	case "total":
		return r.ApplyMatchDelta(ctx, name, value, value)
	default:
		return fmt.Errorf("unknown adjustment scope %q", scope)
	}
}

// Rerank recomputes the rank column: combined MMR descending, insertion
// order breaking ties. The ordering is stable across repeated calls.
func (r *LeaderboardRepository) Rerank(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE leaderboard SET rank = (
			SELECT new_rank FROM (
				SELECT id, ROW_NUMBER() OVER (ORDER BY mmr DESC, id ASC) - 1 AS new_rank
				FROM leaderboard
			) ranked WHERE ranked.id = leaderboard.id
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to recompute ranks: %w", err)
	}
	return nil
}

// Top returns the first n rows ordered by the given MMR column:
// "mmr", "crewmate_mmr" or "impostor_mmr".
func (r *LeaderboardRepository) Top(ctx context.Context, by string, n int) ([]domain.LeaderboardRow, error) {
	switch by {
	case "mmr", "crewmate_mmr", "impostor_mmr":
	default:
		return nil, fmt.Errorf("unknown leaderboard ordering %q", by)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+leaderboardColumns+` FROM leaderboard ORDER BY `+by+` DESC, id ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeaderboardRows(rows)
}

// All returns every row in rank order.
func (r *LeaderboardRepository) All(ctx context.Context) ([]domain.LeaderboardRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+leaderboardColumns+` FROM leaderboard ORDER BY rank ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeaderboardRows(rows)
}

// BestCrewmate returns the top row by crewmate MMR, nil on an empty board.
func (r *LeaderboardRepository) BestCrewmate(ctx context.Context) (*domain.LeaderboardRow, error) {
	top, err := r.Top(ctx, "crewmate_mmr", 1)
	if err != nil || len(top) == 0 {
		return nil, err
	}
	return &top[0], nil
}

// BestImpostor returns the top row by impostor MMR, nil on an empty board.
func (r *LeaderboardRepository) BestImpostor(ctx context.Context) (*domain.LeaderboardRow, error) {
	top, err := r.Top(ctx, "impostor_mmr", 1)
	if err != nil || len(top) == 0 {
		return nil, err
	}
	return &top[0], nil
}

// SetDiscordID links an external account to a player.
func (r *LeaderboardRepository) SetDiscordID(ctx context.Context, name string, discordID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leaderboard SET discord_id = ?, updated_at = ? WHERE player_key = ?`,
		discordID, time.Now().UTC(), names.Normalize(name))
	if err != nil {
		return err
	}
	return requireRow(res, name)
}

// ClearDiscordID unlinks a player's external account.
func (r *LeaderboardRepository) ClearDiscordID(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leaderboard SET discord_id = 0, updated_at = ? WHERE player_key = ?`,
		time.Now().UTC(), names.Normalize(name))
	if err != nil {
		return err
	}
	return requireRow(res, name)
}

// Rename changes a player's display name and lookup key.
func (r *LeaderboardRepository) Rename(ctx context.Context, oldName, newName string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leaderboard SET player_name = ?, player_key = ?, updated_at = ? WHERE player_key = ?`,
		newName, names.Normalize(newName), time.Now().UTC(), names.Normalize(oldName))
	if err != nil {
		return fmt.Errorf("failed to rename %s: %w", oldName, err)
	}
	return requireRow(res, oldName)
}

// RebuildAggregates replaces every season-aggregate column with values
// recomputed from the ledger rows. MMR columns are untouched; rows for
// players absent from the ledger are zeroed.
func (r *LeaderboardRepository) RebuildAggregates(ctx context.Context, ledgerRows []domain.LedgerRow) error {
	stats := AggregateLedger(ledgerRows)

	_, err := r.db.ExecContext(ctx, `
		UPDATE leaderboard SET
			voting_accuracy = 0, total_games_played = 0, impostor_games_played = 0,
			crewmate_games_played = 0, impostor_games_won = 0, crewmate_games_won = 0,
			games_won = 0, games_died_first = 0, voted_wrong_on_crit = 0,
			voted_right_on_crit_but_lost = 0, crewmate_win_streak = 0,
			best_crewmate_win_streak = 0, impostor_win_streak = 0,
			best_impostor_win_streak = 0, survivability_crewmate = 0, survivability_impostor = 0
	`)
	if err != nil {
		return fmt.Errorf("failed to reset aggregates: %w", err)
	}

	now := time.Now().UTC()
	for key, agg := range stats {
		_, err := r.db.ExecContext(ctx, `
			UPDATE leaderboard SET
				voting_accuracy = ?, total_games_played = ?, impostor_games_played = ?,
				crewmate_games_played = ?, impostor_games_won = ?, crewmate_games_won = ?,
				games_won = ?, games_died_first = ?, voted_wrong_on_crit = ?,
				voted_right_on_crit_but_lost = ?, crewmate_win_streak = ?,
				best_crewmate_win_streak = ?, impostor_win_streak = ?,
				best_impostor_win_streak = ?, survivability_crewmate = ?,
				survivability_impostor = ?, updated_at = ?
			WHERE player_key = ?
		`,
			agg.VotingAccuracy, agg.TotalGamesPlayed, agg.ImpostorGamesPlayed,
			agg.CrewmateGamesPlayed, agg.ImpostorGamesWon, agg.CrewmateGamesWon,
			agg.GamesWon, agg.GamesDiedFirst, agg.VotedWrongOnCrit,
			agg.VotedRightOnCritButLost, agg.CrewmateWinStreak,
			agg.BestCrewmateWinStreak, agg.ImpostorWinStreak,
			agg.BestImpostorWinStreak, agg.SurvivabilityCrewmate,
			agg.SurvivabilityImpostor, now, key)
		if err != nil {
			return fmt.Errorf("failed to write aggregates for %s: %w", key, err)
		}
	}
	return nil
}

func requireRow(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("player %s not on leaderboard", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLeaderboardRow(row *sql.Row) (*domain.LeaderboardRow, error) {
	out, err := scanLeaderboard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return out, err
}

func scanLeaderboard(s rowScanner) (*domain.LeaderboardRow, error) {
	var row domain.LeaderboardRow
	err := s.Scan(
		&row.ID, &row.Rank, &row.PlayerName, &row.DiscordID,
		&row.MMR, &row.CrewmateMMR, &row.ImpostorMMR,
		&row.VotingAccuracy, &row.TotalGamesPlayed, &row.ImpostorGamesPlayed,
		&row.CrewmateGamesPlayed, &row.ImpostorGamesWon, &row.CrewmateGamesWon,
		&row.GamesWon, &row.GamesDiedFirst, &row.VotedWrongOnCrit,
		&row.VotedRightOnCritButLost, &row.CrewmateWinStreak, &row.BestCrewmateWinStreak,
		&row.ImpostorWinStreak, &row.BestImpostorWinStreak,
		&row.SurvivabilityCrewmate, &row.SurvivabilityImpostor,
		&row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func collectLeaderboardRows(rows *sql.Rows) ([]domain.LeaderboardRow, error) {
	var out []domain.LeaderboardRow
	for rows.Next() {
		row, err := scanLeaderboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}
