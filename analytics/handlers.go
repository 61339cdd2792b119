package analytics

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves aggregated view statistics.
type Handler struct {
	store *Store
	now   func() time.Time
}

// NewHandler creates a new analytics handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// StatsResponse is the JSON body of the stats endpoint.
type StatsResponse struct {
	Period string `json:"period"`
	Stats  *Stats `json:"stats"`
}

// Stats returns statistics for the ?period= window as JSON.
func (h *Handler) Stats(c echo.Context) error {
	period, days := parsePeriod(c.QueryParam("period"))
	from, to := calcTimeRange(h.now().UTC(), days)

	stats, err := h.store.GetStats(c.Request().Context(), from, to)
	if err != nil {
		c.Logger().Errorf("Failed to get stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, StatsResponse{Period: period, Stats: stats})
}

// parsePeriod maps the period query parameter to a day count. Unknown
// values fall back to "week".
func parsePeriod(period string) (string, int) {
	switch period {
	case "today":
		return period, 1
	case "month":
		return period, 30
	case "year":
		return period, 365
	default:
		return "week", 7
	}
}

// calcTimeRange returns whole UTC days ending with today.
func calcTimeRange(now time.Time, days int) (time.Time, time.Time) {
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	return to.AddDate(0, 0, -days), to
}
