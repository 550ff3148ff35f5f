package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

// PositionHandler handles server-authoritative position reports.
type PositionHandler struct {
	service ports.EvaluationService
}

func NewPositionHandler(service ports.EvaluationService) *PositionHandler {
	return &PositionHandler{service: service}
}

// Report handles POST /v1/positions: evaluates one position and returns the
// transitions it caused.
//
// @Summary      Report a position
// @Description  Evaluates the position against the namespace's enabled regions under the entity's lock and returns enter/exit events.
// @Tags         positions
// @Accept       json
// @Produce      json
// @Param        body  body      positionRequest  true  "Position report"
// @Success      200   {object}  positionResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/positions [post]
func (h *PositionHandler) Report(c echo.Context) error {
	var req positionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	events, err := h.service.Evaluate(c.Request().Context(), toPositionInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fromEvents(events))
}

func toPositionInput(r positionRequest) ports.PositionInput {
	in := ports.PositionInput{
		Namespace:      r.Namespace,
		EntityID:       r.EntityID,
		Position:       domain.LatLng{Lat: *r.Lat, Lng: *r.Lng},
		AccuracyMeters: r.AccuracyMeters,
		Speed:          r.Speed,
		Heading:        r.Heading,
	}
	if r.TimestampMs > 0 {
		in.Timestamp = time.UnixMilli(r.TimestampMs).UTC()
	}
	return in
}
