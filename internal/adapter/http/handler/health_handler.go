package handler

import (
	"context"
	"net/http"
	"time"

	"governance-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// healthPingTimeout bounds each dependency ping.
const healthPingTimeout = 2 * time.Second

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Dependencies are pinged in parallel and
// any failure reports the service as degraded with a 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := make([]dependencyStatus, len(checkers))
		var g errgroup.Group
		for i, hc := range checkers {
			i, hc := i, hc
			g.Go(func() error {
				results[i] = pingDependency(c.Request.Context(), hc)
				return nil
			})
		}
		_ = g.Wait()

		code, overall := http.StatusOK, "healthy"
		deps := make(map[string]dependencyStatus, len(checkers))
		for i, hc := range checkers {
			deps[hc.Name()] = results[i]
			if results[i].Status != "healthy" {
				code, overall = http.StatusServiceUnavailable, "degraded"
			}
		}
		c.JSON(code, gin.H{"status": overall, "dependencies": deps})
	}
}

func pingDependency(ctx context.Context, hc ports.HealthChecker) dependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	start := time.Now()
	err := hc.Ping(ctx)
	st := dependencyStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		st.Status, st.Error = "unhealthy", err.Error()
	}
	return st
}
