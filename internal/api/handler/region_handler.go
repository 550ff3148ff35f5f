package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/geofence-system/internal/core/ports"
)

// RegionHandler serves the public region feed and the admin mutations.
type RegionHandler struct {
	service ports.RegionService
}

func NewRegionHandler(service ports.RegionService) *RegionHandler {
	return &RegionHandler{service: service}
}

// List handles GET /v1/regions: enabled regions of a namespace.
//
// @Summary      List enabled regions
// @Tags         regions
// @Produce      json
// @Param        namespace  query     string  true  "Namespace"
// @Success      200        {object}  regionListResponse
// @Failure      400        {object}  errorResponse
// @Failure      503        {object}  errorResponse
// @Router       /v1/regions [get]
func (h *RegionHandler) List(c echo.Context) error {
	namespace := c.QueryParam("namespace")
	if namespace == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "namespace is required")
	}

	regions, err := h.service.ListEnabled(c.Request().Context(), namespace)
	if err != nil {
		return err
	}

	resp := regionListResponse{Regions: make([]regionDTO, 0, len(regions))}
	for _, r := range regions {
		resp.Regions = append(resp.Regions, fromRegion(r))
	}
	return c.JSON(http.StatusOK, resp)
}

// Upsert handles PUT /v1/admin/regions/:id.
//
// @Summary      Create or replace a region
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Region id"
// @Param        body  body      upsertRegionRequest  true  "Region definition"
// @Success      200   {object}  regionDTO
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/admin/regions/{id} [put]
func (h *RegionHandler) Upsert(c echo.Context) error {
	var req upsertRegionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err := authorizeNamespace(c, req.Namespace); err != nil {
		return err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	region, err := h.service.Upsert(c.Request().Context(), ports.UpsertRegionInput{
		Namespace: req.Namespace,
		ID:        c.Param("id"),
		Name:      req.Name,
		Boundary:  req.Boundary.toDomain(),
		Enabled:   enabled,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fromRegion(*region))
}

// Delete handles DELETE /v1/admin/regions/:id?namespace=.
//
// @Summary      Delete a region
// @Tags         admin
// @Security     BearerAuth
// @Param        id         path   string  true  "Region id"
// @Param        namespace  query  string  true  "Namespace"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/regions/{id} [delete]
func (h *RegionHandler) Delete(c echo.Context) error {
	namespace := c.QueryParam("namespace")
	if namespace == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "namespace is required")
	}
	if err := authorizeNamespace(c, namespace); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), namespace, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Invalidate handles POST /v1/admin/cache/invalidate.
//
// @Summary      Drop cached regions
// @Description  Drops the namespace's cached regions, or every namespace when empty (admin only).
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      invalidateRequest  false  "Namespace to invalidate"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/admin/cache/invalidate [post]
func (h *RegionHandler) Invalidate(c echo.Context) error {
	var req invalidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := authorizeNamespace(c, req.Namespace); err != nil {
		return err
	}

	h.service.Invalidate(req.Namespace)
	msg := "cache invalidated for " + req.Namespace
	if req.Namespace == "" {
		msg = "cache invalidated for all namespaces"
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}
