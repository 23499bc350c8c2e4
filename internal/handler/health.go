package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"database/sql"
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
	"github.com/redis/go-redis/v9"
)

// pongBody is the fixed liveness response.
const pongBody = "<h1>Pong</h1>"

// Ping is the liveness endpoint.  It ignores the request entirely and always
// answers 200 with a fixed HTML body.
func Ping(c echo.Context) error {
	return c.HTML(http.StatusOK, pongBody)
}

// HealthHandler reports whether the optional backing services are reachable.
// Nil dependencies are not configured and are skipped.
type HealthHandler struct {
	Redis *redis.Client
	DB    *sql.DB
}

func NewHealthHandler(rdb *redis.Client, db *sql.DB) *HealthHandler {
	return &HealthHandler{Redis: rdb, DB: db}
}

// Health answers "ok" when every configured dependency responds, otherwise
// 503 with the names of the failing ones.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	failing := []string{}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			c.Logger().Warnf("health: redis: %v", err)
			failing = append(failing, "redis")
		}
	}
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			c.Logger().Warnf("health: db: %v", err)
			failing = append(failing, "db")
		}
	}
	if len(failing) > 0 {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "failing": failing})
	}
	return c.String(http.StatusOK, "ok")
}
