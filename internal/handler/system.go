package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// SystemHandler serves health and readiness probes.
type SystemHandler struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger Logger
	start  time.Time
}

func NewSystemHandler(db *sqlx.DB, rdb *redis.Client, log Logger) *SystemHandler {
	return &SystemHandler{db: db, redis: rdb, logger: log, start: time.Now()}
}

// Health reports service liveness along with dependency status.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			checks["database"] = "down"
			healthy = false
		} else {
			checks["database"] = "up"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			checks["redis"] = "down"
			healthy = false
		} else {
			checks["redis"] = "up"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  state,
		"uptime":  time.Since(h.start).String(),
		"checks":  checks,
		"service": "payreq",
	})
}
