package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is a snapshot of connection pool health.
type PoolStats struct {
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	MaxConns      int32  `json:"max_conns"`
	AcquireCount  int64  `json:"acquire_count"`
	AcquireTime   string `json:"acquire_time"`
	Healthy       bool   `json:"healthy"`
}

func Stats(pool *pgxpool.Pool) *PoolStats {
	st := pool.Stat()
	return &PoolStats{
		TotalConns:    st.TotalConns(),
		IdleConns:     st.IdleConns(),
		AcquiredConns: st.AcquiredConns(),
		MaxConns:      st.MaxConns(),
		AcquireCount:  st.AcquireCount(),
		AcquireTime:   st.AcquireDuration().String(),
		Healthy:       st.TotalConns() > 0,
	}
}

// HealthHandler pings the database with a short deadline and reports pool
// statistics.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := Stats(pool)
		if err := pool.Ping(ctx); err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
