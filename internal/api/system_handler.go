package api

import (
	"strconv"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/metrics"

	"github.com/labstack/echo/v4"
)

const defaultUsageDays = 7

type systemHandler struct {
	metrics      *metrics.Store
	databasePath string
}

func (h *systemHandler) Health(c echo.Context) error {
	return Success(c, map[string]interface{}{
		"status": "ok",
		"system": metrics.GetSysHealth(h.databasePath),
	})
}

// Usage reports token usage per day, newest first.
func (h *systemHandler) Usage(c echo.Context) error {
	days := defaultUsageDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			return Error(c, apperrors.Validation("days must be a number between 1 and 365", err))
		}
		days = n
	}

	usage, err := h.metrics.GetDailyUsage(days)
	if err != nil {
		return Error(c, apperrors.Internal("failed to load usage", err))
	}
	return Success(c, usage)
}
