package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

type StateHandler struct {
	service ports.EvaluationService
}

func NewStateHandler(service ports.EvaluationService) *StateHandler {
	return &StateHandler{service: service}
}

// Get handles GET /v1/entities/:namespace/:entityId/state. Namespace access
// is enforced by the route's NamespaceParam middleware.
//
// @Summary      Get an entity's region membership
// @Tags         entities
// @Produce      json
// @Security     BearerAuth
// @Param        namespace  path      string  true  "Namespace"
// @Param        entityId   path      string  true  "Entity id"
// @Success      200        {object}  stateResponse
// @Failure      401        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/entities/{namespace}/{entityId}/state [get]
func (h *StateHandler) Get(c echo.Context) error {
	key := domain.TrackingKey{Namespace: c.Param("namespace"), EntityID: c.Param("entityId")}

	st, err := h.service.State(c.Request().Context(), key)
	if err != nil {
		return err
	}

	active := st.ActiveRegionIDs
	if active == nil {
		active = []string{}
	}
	return c.JSON(http.StatusOK, stateResponse{
		Namespace:       st.Key.Namespace,
		EntityID:        st.Key.EntityID,
		ActiveRegionIDs: active,
		LastPosition:    latLngOut{Lat: st.LastPosition.Lat, Lng: st.LastPosition.Lng},
		LastReportedAt:  st.LastReportedAt.UTC().Format(time.RFC3339Nano),
	})
}
