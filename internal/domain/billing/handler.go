package billing

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
	g := api.Group("/billing", auth.RequireRole("admin", "billing"))
	g.POST("/bills", h.CreateBill)
	g.GET("/bills", h.ListBills)
	g.GET("/bills/:id", h.GetBill)
	g.POST("/bills/:id/items", h.AddItem)
	g.PUT("/bills/:id/finalize", h.Finalize)
	g.PUT("/bills/:id/cancel", h.Cancel)
	g.POST("/payments", h.RecordPayment)
	g.GET("/payments", h.ListPayments)
}

func (h *Handler) CreateBill(c echo.Context) error {
	var b Bill
	if err := c.Bind(&b); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
		b.CreatedBy = &user
	}
	if err := h.svc.CreateBill(c.Request().Context(), &b); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	b, err := h.svc.GetBill(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)
	var patientID *uuid.UUID
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.InvalidArgument("invalid patient_id")
		}
		patientID = &id
	}
	items, total, err := h.svc.ListBills(c.Request().Context(), patientID,
		c.QueryParam("payment_status"), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AddItem(c echo.Context) error {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	var item BillItem
	if err := c.Bind(&item); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	item.BillID = billID
	b, err := h.svc.AddItem(c.Request().Context(), &item)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	b, err := h.svc.Finalize(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.InvalidArgument("invalid id")
	}
	b, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) RecordPayment(c echo.Context) error {
	var p Payment
	if err := c.Bind(&p); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if p.BillID == uuid.Nil {
		return apperror.InvalidArgument("bill_id is required")
	}
	if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
		p.CreatedBy = &user
	}
	b, err := h.svc.RecordPayment(c.Request().Context(), &p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListPayments(c echo.Context) error {
	pg := pagination.FromContext(c)
	var billID, patientID *uuid.UUID
	if raw := c.QueryParam("bill_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.InvalidArgument("invalid bill_id")
		}
		billID = &id
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.InvalidArgument("invalid patient_id")
		}
		patientID = &id
	}
	items, total, err := h.svc.ListPayments(c.Request().Context(), billID, patientID,
		c.QueryParam("method"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
