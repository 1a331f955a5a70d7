package icu

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
	g := api.Group("/icu", auth.RequireRole("admin", "reception", "nurse"))
	g.GET("/patients", h.List)
	g.GET("/patients/:id", h.Get)
	g.GET("/patients/:id/vitals", h.VitalsHistory)
	g.GET("/beds", h.ListBeds)

	nurse := api.Group("/icu", auth.RequireRole("admin", "nurse"))
	nurse.PUT("/patients/:id/vitals", h.UpdateVitals)

	writeGroup := api.Group("/icu", auth.RequireRole("admin", "reception"))
	writeGroup.POST("/patients", h.Admit)
	writeGroup.POST("/beds", h.CreateBed)
	writeGroup.PUT("/patients/:id/discharge", h.Discharge)
}

func (h *Handler) Admit(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
		p.CreatedBy = &user
	}
	if err := h.svc.Admit(c.Request().Context(), &p); err != nil {
		return err
	}
	full, err := h.svc.Get(c.Request().Context(), p.ID)
	if err != nil {
		return c.JSON(http.StatusCreated, p)
	}
	return c.JSON(http.StatusCreated, full)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListBeds(c echo.Context) error {
	beds, err := h.svc.ListBeds(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) CreateBed(c echo.Context) error {
	var b ICUBed
	if err := c.Bind(&b); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if err := h.svc.CreateBed(c.Request().Context(), &b); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var v Vitals
	if err := c.Bind(&v); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	entry, err := h.svc.UpdateVitals(c.Request().Context(), id, v, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) VitalsHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.VitalsHistory(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var req DischargeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	p, err := h.svc.Discharge(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
