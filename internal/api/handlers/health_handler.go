package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/discordin/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the site can serve requests.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthResponse struct {
	Status   string                `json:"status"`
	Database string                `json:"database"`
	Host     *monitoring.HostStats `json:"host,omitempty"`
}

// Check pings the database and reports host statistics.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		log.Error().Err(err).Msg("Health check: database unreachable")
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	stats, err := monitoring.Snapshot(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Health check: failed to read host statistics")
	} else {
		resp.Host = &stats
	}

	writeJSON(w, status, resp)
}
