package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/samalo0/Ceremony/internal/combat"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, map[string]any{
		"status": "ok",
		"tick":   snap.Tick,
		"mode":   snap.Mode,
	})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleGetCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Players())
}

func (h *routerHandlers) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := characterParam(w, r)
	if !ok {
		return
	}
	snap := h.engine.Snapshot()
	for _, c := range snap.Characters {
		if c.ID == id {
			writeJSON(w, c)
			return
		}
	}
	writeError(w, "character not found", http.StatusNotFound)
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	writeJSON(w, h.engine.Leaderboard(limit))
}

func (h *routerHandlers) handleEventStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.EventLog().Stats())
}

func (h *routerHandlers) handleRestartRound(w http.ResponseWriter, r *http.Request) {
	if !h.engine.RestartRound() {
		writeError(w, "engine busy", http.StatusServiceUnavailable)
		return
	}
	h.log.Info().Str("ip", GetClientIP(r)).Msg("Round restart requested")
	writeJSON(w, map[string]bool{"queued": true})
}

func (h *routerHandlers) handleRemoveCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := characterParam(w, r)
	if !ok {
		return
	}
	if !h.engine.Leave(id) {
		writeError(w, "character not found", http.StatusNotFound)
		return
	}
	if h.sessions != nil {
		h.sessions.CloseSession(id)
	}
	h.log.Info().Uint32("character", uint32(id)).Str("ip", GetClientIP(r)).Msg("Character removed by admin")
	writeJSON(w, map[string]bool{"removed": true})
}

func characterParam(w http.ResponseWriter, r *http.Request) (combat.CharacterID, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || n == 0 {
		writeError(w, "invalid character id", http.StatusBadRequest)
		return 0, false
	}
	return combat.CharacterID(n), true
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
