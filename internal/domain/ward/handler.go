package ward

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperror"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "reception", "nurse"))
	readGroup.GET("/wards", h.ListWards)
	readGroup.GET("/wards/:id", h.GetWard)
	readGroup.GET("/wards/:id/beds", h.GetWardBeds)
	readGroup.GET("/beds", h.ListBeds)
	readGroup.GET("/beds/available", h.GetAvailableBeds)
	readGroup.GET("/beds/:id", h.GetBed)

	writeGroup := api.Group("", auth.RequireRole("admin", "reception"))
	writeGroup.POST("/beds", h.CreateBed)
	writeGroup.PUT("/beds/:id/status", h.UpdateBedStatus)
	writeGroup.DELETE("/beds/:id", h.DeleteBed)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/wards", h.CreateWard)
	adminGroup.PUT("/wards/:id", h.UpdateWard)
	adminGroup.DELETE("/wards/:id", h.DeleteWard)
	adminGroup.POST("/wards/:id/recount", h.RecountWard)
}

// -- Ward handlers --

func (h *Handler) CreateWard(c echo.Context) error {
	var w Ward
	if err := c.Bind(&w); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if err := h.svc.CreateWard(c.Request().Context(), &w); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	w, err := h.svc.GetWard(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWards(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListWards(c.Request().Context(), c.QueryParam("type"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var w Ward
	if err := c.Bind(&w); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	w.ID = id
	if err := h.svc.UpdateWard(c.Request().Context(), &w); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	if err := h.svc.DeleteWard(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetWardBeds(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	beds, err := h.svc.GetWardBeds(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) RecountWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	w, err := h.svc.RecountWard(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// -- Bed handlers --

func (h *Handler) CreateBed(c echo.Context) error {
	var b Bed
	if err := c.Bind(&b); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if err := h.svc.CreateBed(c.Request().Context(), &b); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	b, err := h.svc.GetBed(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBeds(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAvailableBeds(c echo.Context) error {
	var wardID *uuid.UUID
	if raw := c.QueryParam("ward_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.InvalidArgument("invalid ward_id")
		}
		wardID = &id
	}
	beds, err := h.svc.GetAvailable(c.Request().Context(), wardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

type bedStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateBedStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var req bedStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	b, err := h.svc.UpdateBedStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	if err := h.svc.DeleteBed(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
