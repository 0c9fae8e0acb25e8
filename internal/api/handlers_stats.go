package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleSpeechStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "speech stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"default_voice": s.cfg.Voice,
		"stats":         s.stats.Snapshot(),
	})
}
