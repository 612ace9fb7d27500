package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ollamageek/gateway/pkg/models"
)

// errorEnvelope is the structured JSON error body (spec §7: "structured
// JSON {error: {message, status, timestamp, path, method}}").
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
}

// writeError renders err as the standard error envelope, masking internal
// 500s in production mode (spec §7).
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := models.KindOf(err)
	status := kind.Status()

	message := err.Error()
	if status >= 500 && s.cfg.Production {
		message = "Internal Server Error"
	}

	s.logger.Warn("request failed", "path", r.URL.Path, "method", r.Method, "status", status, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{
		Message:   message,
		Status:    status,
		Timestamp: time.Now(),
		Path:      r.URL.Path,
		Method:    r.Method,
	}})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Debug("failed to encode response body", "error", err)
	}
}
