package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
// Parameters are bound positionally, in order, from query string values.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"-"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
// Revenue counts only non-cancelled appointments with a recorded price.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "revenue-by-doctor",
		Name:        "Revenue by Doctor",
		Description: "Appointment count and revenue per doctor over a date range, excluding cancelled appointments",
		SQL: `SELECT doctor_id, COUNT(*) AS appointments, COALESCE(SUM(price), 0) AS revenue
			FROM appointment
			WHERE status <> 'cancelled' AND start_time >= $1 AND start_time < $2
			GROUP BY doctor_id ORDER BY revenue DESC`,
		Parameters: []string{"from", "to"},
	},
	{
		ID:          "revenue-total",
		Name:        "Total Revenue",
		Description: "Total revenue and appointment count over a date range, excluding cancelled appointments",
		SQL: `SELECT COUNT(*) AS appointments, COALESCE(SUM(price), 0) AS revenue
			FROM appointment
			WHERE status <> 'cancelled' AND start_time >= $1 AND start_time < $2`,
		Parameters: []string{"from", "to"},
	},
	{
		ID:          "appointment-volume-by-status",
		Name:        "Appointment Volume by Status",
		Description: "Number of appointments grouped by status",
		SQL:         `SELECT status, COUNT(*) AS total FROM appointment GROUP BY status ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "slot-utilization",
		Name:        "Slot Utilization",
		Description: "Booked versus free slots per doctor",
		SQL: `SELECT doctor_id, COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN booked THEN 1 ELSE 0 END), 0) AS booked
			FROM time_slot GROUP BY doctor_id ORDER BY total DESC`,
		Parameters: []string{},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole("admin"))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	var args []interface{}
	for _, p := range measure.Parameters {
		v := c.QueryParam(p)
		if v == "" {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("missing parameter: %s", p))
		}
		// Measure parameters are date bounds; reject malformed input here
		// instead of surfacing a query error.
		ts, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("parameter %s must be a date in YYYY-MM-DD form", p))
		}
		params[p] = v
		args = append(args, ts)
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, args...)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	report := MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	}

	return c.JSON(http.StatusOK, report)
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
