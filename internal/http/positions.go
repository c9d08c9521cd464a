package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/stats"
)

var errBadRequest = errors.New("bad request")

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	key, err := playerKey(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h, err := s.positions.Get(r.Context(), key)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if h == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no position history for player"})
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleRecomputePlayer(w http.ResponseWriter, r *http.Request) {
	key, err := playerKey(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h, err := s.positions.Compute(r.Context(), key)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleListTeam(w http.ResponseWriter, r *http.Request) {
	teamID, season, err := teamSeason(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items, err := s.positions.ListTeam(r.Context(), teamID, season)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": items})
}

func (s *Server) handleRecomputeTeam(w http.ResponseWriter, r *http.Request) {
	teamID, season, err := teamSeason(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items, err := s.positions.ComputeForTeam(r.Context(), teamID, season)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": items})
}

func playerKey(r *http.Request) (stats.Key, error) {
	teamID, season, err := teamSeason(r)
	if err != nil {
		return stats.Key{}, err
	}
	playerID, err := uuidParam(r, "playerID")
	if err != nil {
		return stats.Key{}, err
	}
	return stats.Key{PlayerID: playerID, TeamID: teamID, Season: season}, nil
}

func teamSeason(r *http.Request) (uuid.UUID, string, error) {
	teamID, err := uuidParam(r, "teamID")
	if err != nil {
		return uuid.Nil, "", err
	}
	season := strings.TrimSpace(chi.URLParam(r, "season"))
	if season == "" {
		return uuid.Nil, "", fmt.Errorf("%w: season is required", errBadRequest)
	}
	return teamID, season, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}
