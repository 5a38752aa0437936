package api

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type StatusResponse struct {
	Status     string          `json:"status"`
	Version    string          `json:"version"`
	Database   bool            `json:"database"`
	Providers  map[string]bool `json:"providers"`
	Storage    string          `json:"storage"`
	Dispatcher string          `json:"dispatcher"`
}

// HandleAPIStatus reports which collaborators are configured and whether the
// database answers. An unreachable database makes the answer a 503.
func (s *Server) HandleAPIStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:  "ok",
		Version: s.cfg.ServiceVersion,
		Providers: map[string]bool{
			"openai":    s.cfg.OpenAIKey != "",
			"groq":      s.cfg.GroqKey != "",
			"cerebras":  s.cfg.CerebrasKey != "",
			"stability": s.cfg.StabilityKey != "",
		},
		Storage:    s.cfg.Storage.Backend,
		Dispatcher: s.cfg.Dispatcher.Mode,
	}

	status := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Database = s.db.Ping(ctx) == nil
	}
	if !resp.Database {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
