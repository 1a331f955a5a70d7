package admission

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
	g := api.Group("/ipd", auth.RequireRole("admin", "reception"))
	g.POST("/admissions", h.Admit)
	g.GET("/admissions", h.List)
	g.GET("/admissions/:id", h.Get)
	g.GET("/active", h.GetActive)
	g.GET("/available-beds", h.GetAvailableBeds)
	g.PUT("/admissions/:id/transfer", h.BedTransfer)
	g.PUT("/admissions/:id/discharge", h.Discharge)
}

func (h *Handler) Admit(c echo.Context) error {
	var a Admission
	if err := c.Bind(&a); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
		a.CreatedBy = &user
	}
	if err := h.svc.Admit(c.Request().Context(), &a); err != nil {
		return err
	}
	full, err := h.svc.Get(c.Request().Context(), a.ID)
	if err != nil {
		return c.JSON(http.StatusCreated, a)
	}
	return c.JSON(http.StatusCreated, full)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	var patientID *uuid.UUID
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.InvalidArgument("invalid patient_id")
		}
		patientID = &id
	}
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetActive(c echo.Context) error {
	items, err := h.svc.GetActive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
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
	beds, err := h.svc.GetAvailableBeds(c.Request().Context(), wardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) BedTransfer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if req.NewBedID == uuid.Nil {
		return apperror.InvalidArgument("new_bed_id is required")
	}
	a, err := h.svc.BedTransfer(c.Request().Context(), id, req.NewBedID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
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
	a, err := h.svc.Discharge(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}
