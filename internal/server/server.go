// Package server exposes the tracker over a JSON HTTP API. Handlers read
// from the engine's cached aggregates; mutating endpoints go through the
// service so remote state, local state, and the persisted blob stay together.
package server

import (
	"encoding/json"
	"io"
	"net/http"

	"battle-tracker/internal/engine"
	"battle-tracker/internal/middleware"
	"battle-tracker/internal/service"
	"battle-tracker/internal/stats"

	"github.com/rs/zerolog"
)

type TrackerServer struct {
	engine  *engine.Engine
	tracker *service.TrackerService
	logger  zerolog.Logger
}

func NewTrackerServer(eng *engine.Engine, tracker *service.TrackerService, logger zerolog.Logger) *TrackerServer {
	return &TrackerServer{engine: eng, tracker: tracker, logger: logger}
}

func (s *TrackerServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/battles", s.getBattles)
	mux.HandleFunc("DELETE /api/battles/{arenaID}", s.deleteBattle)
	mux.HandleFunc("GET /api/battles/current", s.getCurrentBattle)
	mux.HandleFunc("GET /api/totals/team", s.getTeamTotals)
	mux.HandleFunc("GET /api/totals/players/{playerID}", s.getPlayerTotals)
	mux.HandleFunc("GET /api/totals/battles/{arenaID}", s.getBattleTotals)
	mux.HandleFunc("GET /api/best-worst", s.getBestWorst)
	mux.HandleFunc("GET /api/summary/players", s.getPlayerSummaries)
	mux.HandleFunc("GET /api/summary/vehicles", s.getVehicleSummaries)
	mux.HandleFunc("GET /api/export", s.exportData)
	mux.HandleFunc("POST /api/import", s.importData)
	mux.HandleFunc("POST /api/refresh", s.refresh)
	mux.HandleFunc("POST /api/reset", s.reset)
}

func (s *TrackerServer) getBattles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := stats.Filters{
		Map:     q.Get("map"),
		Vehicle: q.Get("vehicle"),
		Result:  q.Get("result"),
		Date:    q.Get("date"),
		Player:  q.Get("player"),
	}
	writeJSON(w, http.StatusOK, s.engine.ApplyFilters(filters))
}

func (s *TrackerServer) deleteBattle(w http.ResponseWriter, r *http.Request) {
	arenaID := r.PathValue("arenaID")
	if err := s.tracker.DeleteBattle(r.Context(), arenaID); err != nil {
		s.logger.Error().Err(err).
			Str("arena_id", arenaID).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("delete battle failed")
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *TrackerServer) getCurrentBattle(w http.ResponseWriter, r *http.Request) {
	arenaID := s.engine.CurrentBattleID()
	writeJSON(w, http.StatusOK, map[string]string{"arenaId": arenaID})
}

func (s *TrackerServer) getTeamTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.TeamTotals())
}

func (s *TrackerServer) getPlayerTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.PlayerTotals(r.PathValue("playerID")))
}

func (s *TrackerServer) getBattleTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.BattleTotals(r.PathValue("arenaID")))
}

func (s *TrackerServer) getBestWorst(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.BestWorst())
}

func (s *TrackerServer) getPlayerSummaries(w http.ResponseWriter, r *http.Request) {
	rows := stats.PlayerSummaries(s.engine.Battles())
	if column := r.URL.Query().Get("sort"); column != "" {
		stats.SortPlayers(rows, column, r.URL.Query().Get("order") == "desc")
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *TrackerServer) getVehicleSummaries(w http.ResponseWriter, r *http.Request) {
	rows := stats.VehicleSummaries(s.engine.Battles())
	if column := r.URL.Query().Get("sort"); column != "" {
		stats.SortVehicles(rows, column, r.URL.Query().Get("order") == "desc")
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *TrackerServer) exportData(w http.ResponseWriter, r *http.Request) {
	blob, err := s.engine.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="battle-history.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

func (s *TrackerServer) importData(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.Import(raw); err != nil {
		s.logger.Warn().Err(err).Msg("import rejected")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *TrackerServer) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.RefreshLocalData(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("refresh failed")
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *TrackerServer) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.ClearServerData(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("reset failed")
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"success": false, "message": err.Error()})
}
