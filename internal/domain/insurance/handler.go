package insurance

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
	g := api.Group("/insurance", auth.RequireRole("admin", "billing"))
	g.POST("/providers", h.CreateProvider)
	g.GET("/providers", h.ListProviders)
	g.GET("/providers/:id", h.GetProvider)
	g.PUT("/providers/:id", h.UpdateProvider)
	g.DELETE("/providers/:id", h.DeleteProvider)
	g.POST("/claims", h.CreateClaim)
	g.GET("/claims", h.ListClaims)
	g.GET("/claims/:id", h.GetClaim)

	// Claim resolution moves money; admins only.
	admin := api.Group("/insurance", auth.RequireRole("admin"))
	admin.PUT("/claims/:id/status", h.UpdateClaimStatus)
}

func (h *Handler) CreateProvider(c echo.Context) error {
	var p Provider
	if err := c.Bind(&p); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if err := h.svc.CreateProvider(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	p, err := h.svc.GetProvider(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var p Provider
	if err := c.Bind(&p); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	p.ID = id
	if err := h.svc.UpdateProvider(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	if err := h.svc.DeleteProvider(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	items, total, err := h.svc.ListProviders(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateClaim(c echo.Context) error {
	var cl Claim
	if err := c.Bind(&cl); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if cl.BillID == uuid.Nil {
		return apperror.InvalidArgument("bill_id is required")
	}
	if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
		cl.CreatedBy = &user
	}
	if err := h.svc.CreateClaim(c.Request().Context(), &cl); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	cl, err := h.svc.GetClaim(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClaims(c echo.Context) error {
	pg := pagination.FromContext(c)
	var patientID, providerID *uuid.UUID
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.InvalidArgument("invalid patient_id")
		}
		patientID = &id
	}
	if raw := c.QueryParam("provider_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.InvalidArgument("invalid provider_id")
		}
		providerID = &id
	}
	items, total, err := h.svc.ListClaims(c.Request().Context(), patientID, providerID,
		c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateClaimStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	var resolvedBy *string
	if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
		resolvedBy = &user
	}
	cl, err := h.svc.UpdateClaimStatus(c.Request().Context(), id, &req, resolvedBy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}
