package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kioskworks/kiosk-admin-api/internal/config"
	"github.com/kioskworks/kiosk-admin-api/internal/utils"
)

// HealthProbe checks one backing dependency of the service.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse reports service identity plus per-dependency status.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck reports liveness and, when probes are wired, the state of the
// log store and session store. A failing probe degrades the response instead
// of hiding behind a bare 200.
func HealthCheck(cfg config.Config, probes ...HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(probes) > 0 {
			payload.Dependencies = make(map[string]string, len(probes))
			for _, probe := range probes {
				ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
				err := probe.Check(ctx)
				cancel()
				if err != nil {
					payload.Dependencies[probe.Name] = "down"
					payload.Status = "degraded"
					continue
				}
				payload.Dependencies[probe.Name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return utils.SendSuccessWithStatus(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
