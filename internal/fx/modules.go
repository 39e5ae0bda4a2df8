package fx

import (
	"amongus-ranked/internal/config"
	"amongus-ranked/internal/constants"
	"amongus-ranked/internal/database"
	"amongus-ranked/internal/logger"
	"amongus-ranked/internal/matchstore"
	"amongus-ranked/internal/names"
	"amongus-ranked/internal/rating"
	"amongus-ranked/internal/replay"
	"amongus-ranked/internal/repository"
	"amongus-ranked/internal/server"
	"amongus-ranked/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideMatchStore(cfg *config.Config, log zerolog.Logger) *matchstore.Store {
	return matchstore.New(cfg.MatchesDir, log)
}

func ProvideReplayEngine() *replay.Engine {
	matcher := names.NewMatcher(names.LevenshteinScorer, constants.NameMatchThreshold)
	return replay.NewEngine(matcher)
}

func ProvideRatingModel(cfg *config.Config, log zerolog.Logger) *rating.Model {
	rc := rating.Default()
	if cfg.RatingConfigPath != "" {
		loaded, err := rating.LoadConfig(cfg.RatingConfigPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.RatingConfigPath).Msg("falling back to default rating config")
		} else {
			rc = loaded
		}
	}
	return rating.NewModel(rc)
}

func ProvideSpecialMatches(cfg *config.Config, log zerolog.Logger) *service.SpecialMatches {
	special, err := service.LoadSpecialMatches(cfg.SpecialMatchesPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.SpecialMatchesPath).Msg("special matches unavailable, using default K")
	}
	return special
}

func ProvideAdjustmentLog(cfg *config.Config) *service.AdjustmentLog {
	return service.NewAdjustmentLog(cfg.AdjustmentsPath)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewLeaderboardRepository),
	fx.Provide(repository.NewLedgerRepository),
	// processing core
	fx.Provide(ProvideMatchStore),
	fx.Provide(ProvideReplayEngine),
	fx.Provide(ProvideRatingModel),
	fx.Provide(ProvideSpecialMatches),
	fx.Provide(ProvideAdjustmentLog),
	// svc
	fx.Provide(service.NewProcessorService),
	fx.Provide(service.NewLeaderboardService),
	// server
	fx.Provide(server.New),
)
