package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"amongus-ranked/internal/domain"

	"github.com/rs/zerolog"
)

const ledgerColumns = `id, match_id, player_name, match_result, player_team,
	mmr, crewmate_mmr, impostor_mmr, mmr_gain, crewmate_mmr_gain, impostor_mmr_gain,
	percentage_of_winning, won, alive, alive_time_seconds, match_time_seconds,
	match_start_time, rounds_survived, total_rounds, ejected_in_meeting,
	placed_votes, correct_votes, incorrect_votes, skip_votes, voting_accuracy,
	died_first_round, finished_tasks_alive, finished_tasks_dead, tasks_complete,
	correct_vote_on_eject, voted_wrong_on_crit, voted_right_on_crit_but_lost,
	number_of_kills, ejected_early_as_imp, got_crew_voted, solo_imp,
	kills_as_solo_imp, won_as_solo_imp, created_at`

// LedgerRepository owns the append-only per-(match, player) history. A match
// counts as processed exactly when it has rows here.
type LedgerRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewLedgerRepository(sqlDB *sql.DB, logger zerolog.Logger) *LedgerRepository {
	return &LedgerRepository{db: sqlDB, logger: logger}
}

// WithTx returns a copy of the repository that executes against tx.
func (r *LedgerRepository) WithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{db: tx, logger: r.logger}
}

// Exists reports whether any rows are recorded for the match.
func (r *LedgerRepository) Exists(ctx context.Context, matchID int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger WHERE match_id = ?`, matchID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ProcessedMatchIDs returns the set of match IDs that already have ledger rows.
func (r *LedgerRepository) ProcessedMatchIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT match_id FROM ledger`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// InsertMatchRows appends one row per player for a match.
func (r *LedgerRepository) InsertMatchRows(ctx context.Context, ledgerRows []domain.LedgerRow) error {
	now := time.Now().UTC()
	for _, row := range ledgerRows {
		correctEject, err := json.Marshal(credits(row.CorrectVoteOnEject))
		if err != nil {
			return fmt.Errorf("failed to encode eject credits: %w", err)
		}
		gotVoted, err := json.Marshal(credits(row.GotCrewVoted))
		if err != nil {
			return fmt.Errorf("failed to encode crew-voted credits: %w", err)
		}

		_, err = r.db.ExecContext(ctx, `
			INSERT INTO ledger (
				match_id, player_name, match_result, player_team,
				mmr, crewmate_mmr, impostor_mmr, mmr_gain, crewmate_mmr_gain, impostor_mmr_gain,
				percentage_of_winning, won, alive, alive_time_seconds, match_time_seconds,
				match_start_time, rounds_survived, total_rounds, ejected_in_meeting,
				placed_votes, correct_votes, incorrect_votes, skip_votes, voting_accuracy,
				died_first_round, finished_tasks_alive, finished_tasks_dead, tasks_complete,
				correct_vote_on_eject, voted_wrong_on_crit, voted_right_on_crit_but_lost,
				number_of_kills, ejected_early_as_imp, got_crew_voted, solo_imp,
				kills_as_solo_imp, won_as_solo_imp, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			row.MatchID, row.PlayerName, string(row.MatchResult), string(row.PlayerTeam),
			row.MMR, row.CrewmateMMR, row.ImpostorMMR,
			row.MMRGain, row.CrewmateMMRGain, row.ImpostorMMRGain,
			row.PctOfWinning, row.Won, row.Alive,
			row.AliveTime.Seconds(), row.MatchTime.Seconds(),
			row.MatchStartTime, row.RoundsSurvived, row.TotalRounds, row.EjectedInMeeting,
			row.PlacedVotes, row.CorrectVotes, row.IncorrectVotes, row.SkipVotes, row.VotingAccuracy,
			row.DiedFirstRound, row.FinishedTasksAlive, row.FinishedTasksDead, row.TasksComplete,
			string(correctEject), row.VotedWrongOnCrit, row.VotedRightOnCritButLost,
			row.NumberOfKills, row.EjectedEarlyAsImp, string(gotVoted), row.SoloImp,
			row.KillsAsSoloImp, row.WonAsSoloImp, now)
		if err != nil {
			return fmt.Errorf("failed to insert ledger row for match %d player %s: %w",
				row.MatchID, row.PlayerName, err)
		}
	}
	return nil
}

// RowsForMatch returns the recorded rows for one match, in insertion order.
func (r *LedgerRepository) RowsForMatch(ctx context.Context, matchID int) ([]domain.LedgerRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger WHERE match_id = ? ORDER BY id ASC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgerRows(rows)
}

// DeleteMatch removes all rows for a match and returns how many were removed.
func (r *LedgerRepository) DeleteMatch(ctx context.Context, matchID int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger WHERE match_id = ?`, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ledger rows for match %d: %w", matchID, err)
	}
	return res.RowsAffected()
}

// AllValidRows returns every row whose match still counts for aggregates,
// ordered by match then insertion. Canceled and Unknown rows are excluded.
func (r *LedgerRepository) AllValidRows(ctx context.Context) ([]domain.LedgerRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger
		 WHERE match_result NOT IN (?, ?)
		 ORDER BY match_id ASC, id ASC`,
		string(domain.ResultCanceled), string(domain.ResultUnknown))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgerRows(rows)
}

// HistoryForPlayer returns a player's rows newest-first, limited to n when
// n > 0.
func (r *LedgerRepository) HistoryForPlayer(ctx context.Context, name string, n int) ([]domain.LedgerRow, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger
		WHERE player_name = ? COLLATE NOCASE ORDER BY match_id DESC, id DESC`
	args := []any{name}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgerRows(rows)
}

// credits never marshals to JSON null, so the stored column default and the
// encoded empty value agree.
func credits(c []domain.EjectCredit) []domain.EjectCredit {
	if c == nil {
		return []domain.EjectCredit{}
	}
	return c
}

func collectLedgerRows(rows *sql.Rows) ([]domain.LedgerRow, error) {
	var out []domain.LedgerRow
	for rows.Next() {
		var (
			row          domain.LedgerRow
			result, team string
			aliveSecs    float64
			matchSecs    float64
			correctEject string
			gotVoted     string
			startTime    sql.NullTime
		)
		err := rows.Scan(
			&row.ID, &row.MatchID, &row.PlayerName, &result, &team,
			&row.MMR, &row.CrewmateMMR, &row.ImpostorMMR,
			&row.MMRGain, &row.CrewmateMMRGain, &row.ImpostorMMRGain,
			&row.PctOfWinning, &row.Won, &row.Alive, &aliveSecs, &matchSecs,
			&startTime, &row.RoundsSurvived, &row.TotalRounds, &row.EjectedInMeeting,
			&row.PlacedVotes, &row.CorrectVotes, &row.IncorrectVotes, &row.SkipVotes, &row.VotingAccuracy,
			&row.DiedFirstRound, &row.FinishedTasksAlive, &row.FinishedTasksDead, &row.TasksComplete,
			&correctEject, &row.VotedWrongOnCrit, &row.VotedRightOnCritButLost,
			&row.NumberOfKills, &row.EjectedEarlyAsImp, &gotVoted, &row.SoloImp,
			&row.KillsAsSoloImp, &row.WonAsSoloImp, &row.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		row.MatchResult = domain.MatchResult(result)
		row.PlayerTeam = domain.Team(team)
		row.AliveTime = time.Duration(aliveSecs * float64(time.Second))
		row.MatchTime = time.Duration(matchSecs * float64(time.Second))
		if startTime.Valid {
			row.MatchStartTime = startTime.Time
		}
		if err := json.Unmarshal([]byte(correctEject), &row.CorrectVoteOnEject); err != nil {
			return nil, fmt.Errorf("failed to decode eject credits: %w", err)
		}
		if err := json.Unmarshal([]byte(gotVoted), &row.GotCrewVoted); err != nil {
			return nil, fmt.Errorf("failed to decode crew-voted credits: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
