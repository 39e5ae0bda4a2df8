package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"amongus-ranked/internal/constants"
	"amongus-ranked/internal/domain"
	"amongus-ranked/internal/matchstore"
	"amongus-ranked/internal/rating"
	"amongus-ranked/internal/replay"
	"amongus-ranked/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ProcessorService drives match processing end to end: replay, rating,
// ledger append and leaderboard update. Each match lands in one transaction;
// a match counts as processed exactly when its ledger rows exist.
type ProcessorService struct {
	db          *sql.DB
	store       *matchstore.Store
	engine      *replay.Engine
	model       *rating.Model
	leaderboard *repository.LeaderboardRepository
	ledger      *repository.LedgerRepository
	special     *SpecialMatches
	adjustments *AdjustmentLog
	logger      zerolog.Logger
}

func NewProcessorService(
	db *sql.DB,
	store *matchstore.Store,
	engine *replay.Engine,
	model *rating.Model,
	leaderboard *repository.LeaderboardRepository,
	ledger *repository.LedgerRepository,
	special *SpecialMatches,
	adjustments *AdjustmentLog,
	logger zerolog.Logger,
) *ProcessorService {
	return &ProcessorService{
		db:          db,
		store:       store,
		engine:      engine,
		model:       model,
		leaderboard: leaderboard,
		ledger:      ledger,
		special:     special,
		adjustments: adjustments,
		logger:      logger,
	}
}

// BatchSummary reports the outcome of one batch run.
type BatchSummary struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// ProcessMatchByID replays, rates and records a single match. Unlike batch
// processing, single-match processing rates lobbies of any size.
func (s *ProcessorService) ProcessMatchByID(ctx context.Context, matchID int) (*domain.Match, error) {
	fileName, err := s.store.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchstore.ErrNotFound) {
			return nil, fmt.Errorf("match %d: %w", matchID, ErrMatchNotFound)
		}
		return nil, err
	}

	exists, err := s.ledger.Exists(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("match %d: %w", matchID, ErrAlreadyProcessed)
	}

	match, err := s.processFile(ctx, fileName, false)
	if err != nil {
		return nil, err
	}
	if err := s.RebuildAggregates(ctx); err != nil {
		return nil, err
	}
	s.logger.Info().Int("match_id", matchID).Str("result", string(match.Result)).Msg("match processed")
	return match, nil
}

// ProcessUnprocessedMatches walks every match file in start-time order and
// records the ones the ledger has not seen. On a fresh build (empty ledger)
// the stored moderation adjustments replay afterwards.
func (s *ProcessorService) ProcessUnprocessedMatches(ctx context.Context) (BatchSummary, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return BatchSummary{}, err
	}
	summary := BatchSummary{RunID: runID}
	log := s.logger.With().Str("run_id", runID).Logger()

	processed, err := s.ledger.ProcessedMatchIDs(ctx)
	if err != nil {
		return summary, err
	}
	fresh := len(processed) == 0
	if fresh {
		log.Info().Msg("ledger is empty, stored adjustments will replay after processing")
	}

	files, err := s.store.ListSorted(ctx)
	if err != nil {
		return summary, err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		info, err := s.store.Info(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("skipping unreadable match file")
			summary.Failed++
			continue
		}
		if processed[info.MatchID] {
			summary.Skipped++
			continue
		}

		match, err := s.processFile(ctx, file, true)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("failed to process match")
			summary.Failed++
			continue
		}
		processed[info.MatchID] = true
		summary.Processed++
		log.Info().Int("match_id", match.ID).Str("result", string(match.Result)).Msg("match processed")
	}

	if err := s.RebuildAggregates(ctx); err != nil {
		return summary, err
	}
	if fresh {
		if err := s.applyStoredAdjustments(ctx, log); err != nil {
			return summary, err
		}
	}
	log.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("batch run complete")
	return summary, nil
}

// ChangeMatchResult corrects a recorded match outcome: the recorded gains
// reverse exactly, the ledger rows drop, the match file rewrites and the
// match reprocesses under the new result.
func (s *ProcessorService) ChangeMatchResult(ctx context.Context, matchID int, newResult string) (*domain.Match, error) {
	result, ok := normalizeResult(newResult)
	if !ok {
		return nil, fmt.Errorf("result %q: %w", newResult, ErrMalformedInput)
	}

	fileName, err := s.store.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, matchstore.ErrNotFound) {
			return nil, fmt.Errorf("match %d: %w", matchID, ErrMatchNotFound)
		}
		return nil, err
	}
	info, err := s.store.Info(fileName)
	if err != nil {
		return nil, err
	}
	if domain.ParseResult(info.Result) == result {
		return nil, fmt.Errorf("match %d is already %s: %w", matchID, result, ErrSameResult)
	}

	s.logger.Info().Int("match_id", matchID).Str("new_result", string(result)).Msg("changing match result")

	err = repository.Atomic(ctx, s.db, func(tx *sql.Tx) error {
		lb := s.leaderboard.WithTx(tx)
		led := s.ledger.WithTx(tx)

		rows, err := led.RowsForMatch(ctx, matchID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.CrewmateMMRGain == 0 && row.ImpostorMMRGain == 0 {
				continue
			}
			existing, err := lb.Get(ctx, row.PlayerName)
			if err != nil {
				return err
			}
			if existing == nil {
				s.logger.Warn().Str("player", row.PlayerName).Msg("player missing from leaderboard, skipping reversal")
				continue
			}
			if err := lb.ApplyMatchDelta(ctx, row.PlayerName, -row.CrewmateMMRGain, -row.ImpostorMMRGain); err != nil {
				return err
			}
		}
		_, err = led.DeleteMatch(ctx, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateResult(fileName, string(result)); err != nil {
		return nil, err
	}

	match, err := s.processFile(ctx, fileName, false)
	if err != nil {
		return nil, err
	}
	if err := s.RebuildAggregates(ctx); err != nil {
		return nil, err
	}
	return match, nil
}

// RebuildAggregates recomputes every aggregate column from the valid ledger
// rows and re-ranks.
func (s *ProcessorService) RebuildAggregates(ctx context.Context) error {
	rows, err := s.ledger.AllValidRows(ctx)
	if err != nil {
		return err
	}
	return repository.Atomic(ctx, s.db, func(tx *sql.Tx) error {
		lb := s.leaderboard.WithTx(tx)
		if err := lb.RebuildAggregates(ctx, rows); err != nil {
			return err
		}
		return lb.Rerank(ctx)
	})
}

// AdjustMMR records a moderation adjustment durably and applies it now.
func (s *ProcessorService) AdjustMMR(ctx context.Context, adj Adjustment) error {
	row, err := s.leaderboard.Get(ctx, adj.Player)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("player %s: %w", adj.Player, ErrPlayerNotFound)
	}
	if err := s.adjustments.Append(adj); err != nil {
		return err
	}
	if err := s.leaderboard.AdjustMMR(ctx, adj.Player, adj.Value, scopeOf(adj.Scope)); err != nil {
		return err
	}
	s.logger.Info().
		Str("player", adj.Player).
		Float64("value", adj.Value).
		Str("scope", adj.Scope).
		Str("moderator", adj.Moderator).
		Msg("moderation adjustment applied")
	return nil
}

// RenamePlayer updates a player's name on the leaderboard, in the ledger and
// across every match file.
func (s *ProcessorService) RenamePlayer(ctx context.Context, oldName, newName string) error {
	row, err := s.leaderboard.Get(ctx, oldName)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("player %s: %w", oldName, ErrPlayerNotFound)
	}

	err = repository.Atomic(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.leaderboard.WithTx(tx).Rename(ctx, oldName, newName); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE ledger SET player_name = ? WHERE player_name = ?`, newName, row.PlayerName)
		return err
	})
	if err != nil {
		return err
	}

	changed, err := s.store.RenamePlayer(oldName, newName)
	if err != nil {
		return err
	}
	s.logger.Info().
		Str("old_name", oldName).
		Str("new_name", newName).
		Int("files_changed", changed).
		Msg("player renamed")
	return nil
}

// processFile replays, rates and records one match inside a transaction.
// enforceRoster restricts rating to full lobbies; the ledger rows land
// either way, which is what marks the match processed.
func (s *ProcessorService) processFile(ctx context.Context, fileName string, enforceRoster bool) (*domain.Match, error) {
	info, evs, err := s.store.Load(fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedInput, err)
	}

	k := s.special.KFor(info.MatchID)
	if mult := s.special.Multiplier(info.MatchID); mult != "" {
		s.logger.Info().Int("match_id", info.MatchID).Str("multiplier", mult).Float64("k", k).Msg("special match")
	}

	match, warnings, err := s.engine.Replay(info, evs, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedInput, err)
	}
	match.MatchFileName = fileName
	for _, w := range warnings {
		s.logger.Warn().Int("match_id", w.MatchID).Str("event", w.Event).Str("player", w.Player).Msg(w.Reason)
	}

	rate := match.Result.Rated() && (!enforceRoster || len(match.Players) == constants.FullRosterSize)
	if match.Result.Rated() && !rate {
		s.logger.Info().Int("match_id", match.ID).Int("players", len(match.Players)).Msg("lobby not full, recording without rating")
	}

	err = repository.Atomic(ctx, s.db, func(tx *sql.Tx) error {
		lb := s.leaderboard.WithTx(tx)
		led := s.ledger.WithTx(tx)

		if match.Result.Rated() {
			if err := s.loadPlayerRatings(ctx, lb, match, rate); err != nil {
				return err
			}
			s.model.Apply(match)
		}

		rows := make([]domain.LedgerRow, 0, len(match.Players))
		for _, p := range match.Players {
			rows = append(rows, domain.LedgerRowFromPlayer(match, p))
		}
		if err := led.InsertMatchRows(ctx, rows); err != nil {
			return err
		}

		if rate {
			for _, p := range match.Players {
				if err := lb.ApplyMatchDelta(ctx, p.Name, p.CrewmateMMRGain, p.ImpostorMMRGain); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// loadPlayerRatings fills each player's current MMR snapshot from the
// leaderboard. Unknown players are created only when the match will move
// ratings; otherwise they snapshot at the starting values.
func (s *ProcessorService) loadPlayerRatings(ctx context.Context, lb *repository.LeaderboardRepository, match *domain.Match, createMissing bool) error {
	cfg := s.model.Config()
	for _, p := range match.Players {
		row, err := lb.Get(ctx, p.Name)
		if err != nil {
			return err
		}
		if row == nil {
			if !createMissing {
				p.CurrentMMR = cfg.StartingMMR
				p.CrewmateCurrentMMR = cfg.StartingCrewmateMMR
				p.ImpostorCurrentMMR = cfg.StartingImpostorMMR
				continue
			}
			row, err = lb.NewPlayer(ctx, p.Name, cfg.StartingMMR, cfg.StartingCrewmateMMR, cfg.StartingImpostorMMR)
			if err != nil {
				return err
			}
		}
		p.CurrentMMR = row.MMR
		p.CrewmateCurrentMMR = row.CrewmateMMR
		p.ImpostorCurrentMMR = row.ImpostorMMR
		p.DiscordID = row.DiscordID
	}
	return nil
}

func (s *ProcessorService) applyStoredAdjustments(ctx context.Context, log zerolog.Logger) error {
	adjs, err := s.adjustments.All()
	if err != nil {
		return err
	}
	if len(adjs) == 0 {
		return nil
	}
	log.Info().Int("count", len(adjs)).Msg("replaying stored adjustments")
	for _, adj := range adjs {
		row, err := s.leaderboard.Get(ctx, adj.Player)
		if err != nil {
			return err
		}
		if row == nil {
			log.Warn().Str("player", adj.Player).Msg("player missing from leaderboard, skipping stored adjustment")
			continue
		}
		if err := s.leaderboard.AdjustMMR(ctx, adj.Player, adj.Value, scopeOf(adj.Scope)); err != nil {
			return err
		}
	}
	return nil
}

func normalizeResult(raw string) (domain.MatchResult, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(lower, "crew"):
		return domain.ResultCrewmatesWin, true
	case strings.HasPrefix(lower, "imp"):
		return domain.ResultImpostorsWin, true
	case strings.HasPrefix(lower, "canc"):
		return domain.ResultCanceled, true
	default:
		return "", false
	}
}

func scopeOf(raw string) string {
	switch strings.ToLower(raw) {
	case "crew":
		return "crew"
	case "imp":
		return "imp"
	default:
		return "total"
	}
}
