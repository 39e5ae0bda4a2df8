// Package server exposes the processing core over JSON HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"amongus-ranked/internal/constants"
	"amongus-ranked/internal/domain"
	"amongus-ranked/internal/service"

	"github.com/rs/zerolog"
)

type Server struct {
	processor   *service.ProcessorService
	leaderboard *service.LeaderboardService
	logger      zerolog.Logger
}

func New(
	processor *service.ProcessorService,
	leaderboard *service.LeaderboardService,
	logger zerolog.Logger,
) *Server {
	return &Server{processor: processor, leaderboard: leaderboard, logger: logger}
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/matches/{id}/process", s.handleProcessMatch)
	mux.HandleFunc("POST /v1/matches/{id}/result", s.handleChangeResult)
	mux.HandleFunc("POST /v1/process-all", s.handleProcessAll)
	mux.HandleFunc("GET /v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /v1/leaderboard/best-crewmate", s.handleBestCrewmate)
	mux.HandleFunc("GET /v1/leaderboard/best-impostor", s.handleBestImpostor)
	mux.HandleFunc("GET /v1/players/{name}", s.handlePlayer)
	mux.HandleFunc("GET /v1/players/{name}/history", s.handlePlayerHistory)
	mux.HandleFunc("POST /v1/players/{name}/rename", s.handleRenamePlayer)
	mux.HandleFunc("POST /v1/players/{name}/adjust", s.handleAdjustMMR)
	mux.HandleFunc("POST /v1/players/{name}/discord", s.handleLinkDiscord)
	mux.HandleFunc("DELETE /v1/players/{name}/discord", s.handleUnlinkDiscord)
}

type matchResponse struct {
	MatchID  int                `json:"match_id"`
	Result   string             `json:"result"`
	Rounds   int                `json:"rounds"`
	Duration float64            `json:"duration_seconds"`
	SoloImp  bool               `json:"solo_imp_game"`
	CrewWin  float64            `json:"crew_win_probability"`
	Players  []playerInMatchDTO `json:"players"`
}

type playerInMatchDTO struct {
	Name            string  `json:"name"`
	Team            string  `json:"team"`
	Won             bool    `json:"won"`
	MMRGain         float64 `json:"mmr_gain"`
	CrewmateMMRGain float64 `json:"crewmate_mmr_gain"`
	ImpostorMMRGain float64 `json:"impostor_mmr_gain"`
	Performance     float64 `json:"performance"`
	RoundsSurvived  int     `json:"rounds_survived"`
}

func toMatchResponse(m *domain.Match) matchResponse {
	out := matchResponse{
		MatchID:  m.ID,
		Result:   string(m.Result),
		Rounds:   m.Rounds,
		Duration: m.Duration.Seconds(),
		SoloImp:  m.SoloImpGame,
		CrewWin:  m.CrewWinPct,
	}
	for _, p := range m.Players {
		out.Players = append(out.Players, playerInMatchDTO{
			Name:            p.Name,
			Team:            string(p.Team),
			Won:             p.Won,
			MMRGain:         p.MMRGain,
			CrewmateMMRGain: p.CrewmateMMRGain,
			ImpostorMMRGain: p.ImpostorMMRGain,
			Performance:     p.Performance,
			RoundsSurvived:  p.RoundsSurvived,
		})
	}
	return out
}

func (s *Server) handleProcessMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	match, err := s.processor.ProcessMatchByID(r.Context(), matchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMatchResponse(match))
}

func (s *Server) handleChangeResult(w http.ResponseWriter, r *http.Request) {
	matchID, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, service.ErrMalformedInput)
		return
	}
	match, err := s.processor.ChangeMatchResult(r.Context(), matchID, body.Result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMatchResponse(match))
}

func (s *Server) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	summary, err := s.processor.ProcessUnprocessedMatches(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	top := constants.DefaultLeaderboardSize
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, service.ErrMalformedInput)
			return
		}
		top = n
	}
	rows, err := s.leaderboard.Top(r.Context(), by, top)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"players": toRowDTOs(rows)})
}

func (s *Server) handleBestCrewmate(w http.ResponseWriter, r *http.Request) {
	row, err := s.leaderboard.BestCrewmate(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRowDTO(*row))
}

func (s *Server) handleBestImpostor(w http.ResponseWriter, r *http.Request) {
	row, err := s.leaderboard.BestImpostor(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRowDTO(*row))
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	row, err := s.leaderboard.Player(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRowDTO(*row))
}

func (s *Server) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, service.ErrMalformedInput)
			return
		}
		limit = n
	}
	rows, err := s.leaderboard.History(r.Context(), r.PathValue("name"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]historyDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toHistoryDTO(row))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"matches": out})
}

func (s *Server) handleRenamePlayer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.NewName) == "" {
		s.writeError(w, r, service.ErrMalformedInput)
		return
	}
	if err := s.processor.RenamePlayer(r.Context(), r.PathValue("name"), strings.TrimSpace(body.NewName)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleAdjustMMR(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value     float64 `json:"value"`
		Scope     string  `json:"scope"`
		Moderator string  `json:"moderator"`
		Reason    string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == 0 {
		s.writeError(w, r, service.ErrMalformedInput)
		return
	}
	adj := service.Adjustment{
		Player:    r.PathValue("name"),
		Value:     body.Value,
		Scope:     body.Scope,
		Moderator: body.Moderator,
		Reason:    body.Reason,
	}
	if err := s.processor.AdjustMMR(r.Context(), adj); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "adjusted"})
}

func (s *Server) handleLinkDiscord(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DiscordID int64 `json:"discord_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DiscordID == 0 {
		s.writeError(w, r, service.ErrMalformedInput)
		return
	}
	if err := s.leaderboard.LinkDiscord(r.Context(), r.PathValue("name"), body.DiscordID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

func (s *Server) handleUnlinkDiscord(w http.ResponseWriter, r *http.Request) {
	if err := s.leaderboard.UnlinkDiscord(r.Context(), r.PathValue("name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

type rowDTO struct {
	Rank                    int     `json:"rank"`
	PlayerName              string  `json:"player_name"`
	MMR                     float64 `json:"mmr"`
	CrewmateMMR             float64 `json:"crewmate_mmr"`
	ImpostorMMR             float64 `json:"impostor_mmr"`
	VotingAccuracy          float64 `json:"voting_accuracy"`
	TotalGamesPlayed        int     `json:"total_games_played"`
	GamesWon                int     `json:"games_won"`
	CrewmateGamesPlayed     int     `json:"crewmate_games_played"`
	CrewmateGamesWon        int     `json:"crewmate_games_won"`
	ImpostorGamesPlayed     int     `json:"impostor_games_played"`
	ImpostorGamesWon        int     `json:"impostor_games_won"`
	GamesDiedFirst          int     `json:"games_died_first"`
	CrewmateWinStreak       int     `json:"crewmate_win_streak"`
	BestCrewmateWinStreak   int     `json:"best_crewmate_win_streak"`
	ImpostorWinStreak       int     `json:"impostor_win_streak"`
	BestImpostorWinStreak   int     `json:"best_impostor_win_streak"`
	SurvivabilityCrewmate   float64 `json:"survivability_crewmate"`
	SurvivabilityImpostor   float64 `json:"survivability_impostor"`
	VotedWrongOnCrit        int     `json:"voted_wrong_on_crit"`
	VotedRightOnCritButLost int     `json:"voted_right_on_crit_but_lost"`
}

func toRowDTO(row domain.LeaderboardRow) rowDTO {
	return rowDTO{
		Rank:                    row.Rank,
		PlayerName:              row.PlayerName,
		MMR:                     row.MMR,
		CrewmateMMR:             row.CrewmateMMR,
		ImpostorMMR:             row.ImpostorMMR,
		VotingAccuracy:          row.VotingAccuracy,
		TotalGamesPlayed:        row.TotalGamesPlayed,
		GamesWon:                row.GamesWon,
		CrewmateGamesPlayed:     row.CrewmateGamesPlayed,
		CrewmateGamesWon:        row.CrewmateGamesWon,
		ImpostorGamesPlayed:     row.ImpostorGamesPlayed,
		ImpostorGamesWon:        row.ImpostorGamesWon,
		GamesDiedFirst:          row.GamesDiedFirst,
		CrewmateWinStreak:       row.CrewmateWinStreak,
		BestCrewmateWinStreak:   row.BestCrewmateWinStreak,
		ImpostorWinStreak:       row.ImpostorWinStreak,
		BestImpostorWinStreak:   row.BestImpostorWinStreak,
		SurvivabilityCrewmate:   row.SurvivabilityCrewmate,
		SurvivabilityImpostor:   row.SurvivabilityImpostor,
		VotedWrongOnCrit:        row.VotedWrongOnCrit,
		VotedRightOnCritButLost: row.VotedRightOnCritButLost,
	}
}

func toRowDTOs(rows []domain.LeaderboardRow) []rowDTO {
	out := make([]rowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRowDTO(row))
	}
	return out
}

type historyDTO struct {
	MatchID         int     `json:"match_id"`
	Result          string  `json:"result"`
	Team            string  `json:"team"`
	Won             bool    `json:"won"`
	MMRGain         float64 `json:"mmr_gain"`
	CrewmateMMRGain float64 `json:"crewmate_mmr_gain"`
	ImpostorMMRGain float64 `json:"impostor_mmr_gain"`
	RoundsSurvived  int     `json:"rounds_survived"`
	TotalRounds     int     `json:"total_rounds"`
	VotingAccuracy  float64 `json:"voting_accuracy"`
}

func toHistoryDTO(row domain.LedgerRow) historyDTO {
	return historyDTO{
		MatchID:         row.MatchID,
		Result:          string(row.MatchResult),
		Team:            string(row.PlayerTeam),
		Won:             row.Won,
		MMRGain:         row.MMRGain,
		CrewmateMMRGain: row.CrewmateMMRGain,
		ImpostorMMRGain: row.ImpostorMMRGain,
		RoundsSurvived:  row.RoundsSurvived,
		TotalRounds:     row.TotalRounds,
		VotingAccuracy:  row.VotingAccuracy,
	}
}

func (s *Server) pathInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	v, err := strconv.Atoi(r.PathValue(key))
	if err != nil {
		s.writeError(w, r, service.ErrMalformedInput)
		return 0, false
	}
	return v, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrMatchNotFound), errors.Is(err, service.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyProcessed), errors.Is(err, service.ErrSameResult):
		status = http.StatusConflict
	case errors.Is(err, service.ErrMalformedInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
