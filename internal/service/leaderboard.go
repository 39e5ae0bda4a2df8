package service

import (
	"context"
	"fmt"

	"amongus-ranked/internal/domain"
	"amongus-ranked/internal/repository"

	"github.com/rs/zerolog"
)

// LeaderboardService is the read side: standings, player detail and match
// history queries.
type LeaderboardService struct {
	leaderboard *repository.LeaderboardRepository
	ledger      *repository.LedgerRepository
	logger      zerolog.Logger
}

func NewLeaderboardService(
	leaderboard *repository.LeaderboardRepository,
	ledger *repository.LedgerRepository,
	logger zerolog.Logger,
) *LeaderboardService {
	return &LeaderboardService{leaderboard: leaderboard, ledger: ledger, logger: logger}
}

// Top returns the first n rows ordered by combined, crewmate or impostor
// MMR. by accepts "mmr", "crew" or "imp"; empty means combined.
func (s *LeaderboardService) Top(ctx context.Context, by string, n int) ([]domain.LeaderboardRow, error) {
	column := "mmr"
	switch by {
	case "", "mmr":
	case "crew":
		column = "crewmate_mmr"
	case "imp":
		column = "impostor_mmr"
	default:
		return nil, fmt.Errorf("ordering %q: %w", by, ErrMalformedInput)
	}
	return s.leaderboard.Top(ctx, column, n)
}

// Player returns one player's standing.
func (s *LeaderboardService) Player(ctx context.Context, name string) (*domain.LeaderboardRow, error) {
	row, err := s.leaderboard.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("player %s: %w", name, ErrPlayerNotFound)
	}
	return row, nil
}

// PlayerByDiscordID returns the standing of the player linked to the given
// external account.
func (s *LeaderboardService) PlayerByDiscordID(ctx context.Context, discordID int64) (*domain.LeaderboardRow, error) {
	row, err := s.leaderboard.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("discord id %d: %w", discordID, ErrPlayerNotFound)
	}
	return row, nil
}

// History returns a player's ledger rows newest-first, limited to n when
// n > 0.
func (s *LeaderboardService) History(ctx context.Context, name string, n int) ([]domain.LedgerRow, error) {
	row, err := s.Player(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.ledger.HistoryForPlayer(ctx, row.PlayerName, n)
}

// MMRChanges returns a player's per-match gains in match order: combined,
// crewmate and impostor.
func (s *LeaderboardService) MMRChanges(ctx context.Context, name string) (combined, crew, imp []float64, err error) {
	rows, err := s.History(ctx, name, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	// History is newest-first; changes read oldest-first.
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].MatchResult.Rated() {
			continue
		}
		combined = append(combined, rows[i].MMRGain)
		crew = append(crew, rows[i].CrewmateMMRGain)
		imp = append(imp, rows[i].ImpostorMMRGain)
	}
	return combined, crew, imp, nil
}

// BestCrewmate returns the top player by crewmate MMR.
func (s *LeaderboardService) BestCrewmate(ctx context.Context) (*domain.LeaderboardRow, error) {
	row, err := s.leaderboard.BestCrewmate(ctx)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrPlayerNotFound
	}
	return row, nil
}

// BestImpostor returns the top player by impostor MMR.
func (s *LeaderboardService) BestImpostor(ctx context.Context) (*domain.LeaderboardRow, error) {
	row, err := s.leaderboard.BestImpostor(ctx)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrPlayerNotFound
	}
	return row, nil
}

// LinkDiscord associates an external account with a player.
func (s *LeaderboardService) LinkDiscord(ctx context.Context, name string, discordID int64) error {
	if _, err := s.Player(ctx, name); err != nil {
		return err
	}
	return s.leaderboard.SetDiscordID(ctx, name, discordID)
}

// UnlinkDiscord removes a player's external account association.
func (s *LeaderboardService) UnlinkDiscord(ctx context.Context, name string) error {
	if _, err := s.Player(ctx, name); err != nil {
		return err
	}
	return s.leaderboard.ClearDiscordID(ctx, name)
}
