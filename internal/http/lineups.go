package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/events"
)

type lineupRequest struct {
	Innings []lineups.Inning `json:"innings"`
}

type lineupResponse struct {
	Lineup          *lineups.Lineup `json:"lineup,omitempty"`
	AffectedPlayers []uuid.UUID     `json:"affectedPlayers"`
}

// handlePutLineup stores a lineup and recomputes every player found in
// either the replaced or the new lineup.
func (s *Server) handlePutLineup(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuidParam(r, "teamID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gameID, err := uuidParam(r, "gameID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var payload lineupRequest
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	game, err := s.lineups.GetGame(r.Context(), teamID, gameID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	now := s.now().UTC()
	lineup := lineups.Lineup{ID: uuid.New(), GameID: gameID, Innings: payload.Innings, CreatedAt: now, UpdatedAt: now}
	if lineup.Innings == nil {
		lineup.Innings = []lineups.Inning{}
	}
	previous, err := s.lineups.PutLineup(r.Context(), teamID, gameID, lineup)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if previous != nil {
		lineup.ID = previous.ID
		lineup.CreatedAt = previous.CreatedAt
	}

	name := events.LineupCreated
	if previous != nil {
		name = events.LineupUpdated
	}
	affected := lineups.UnionPlayerIDs(previous, &lineup)
	if err := s.publish(r, name, game, affected); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lineupResponse{Lineup: &lineup, AffectedPlayers: affected})
}

func (s *Server) handleDeleteLineup(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuidParam(r, "teamID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gameID, err := uuidParam(r, "gameID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	game, err := s.lineups.GetGame(r.Context(), teamID, gameID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	previous, err := s.lineups.DeleteLineup(r.Context(), teamID, gameID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	affected := lineups.UnionPlayerIDs(previous)
	if err := s.publish(r, events.LineupDeleted, game, affected); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lineupResponse{AffectedPlayers: affected})
}

// publish triggers the recompute. A write that touched no player has nothing
// to recompute; an empty PlayerIDs would mean the whole team.
func (s *Server) publish(r *http.Request, name string, game lineups.Game, players []uuid.UUID) error {
	if len(players) == 0 {
		return nil
	}
	return s.bus.Publish(r.Context(), events.Event{Name: name, Payload: events.LineupMutation{
		TeamID:    game.TeamID,
		Season:    game.Season,
		GameID:    game.ID,
		PlayerIDs: players,
	}})
}
