package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"paybridge/internal/models"
	"paybridge/internal/provider"
)

type PaymentHandler struct {
	db       *gorm.DB
	provider *provider.Provider
}

func NewPaymentHandler(db *gorm.DB, p *provider.Provider) *PaymentHandler {
	return &PaymentHandler{db: db, provider: p}
}

// InitPayment prepares a payment intent for an order and returns the
// client-side bootstrap data.
func (h *PaymentHandler) InitPayment(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.OrderID == 0 || req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id and a positive amount are required")
	}

	opts := provider.InitOptions{
		Customer:              req.customerData(),
		CashierID:             cashierID(c),
		PaymentMethodID:       req.PaymentMethodID,
		SavedPaymentMethodPid: req.SavedPaymentMethodPid,
		SavedPaymentMethodID:  req.SavedPaymentMethodID,
	}

	resp := h.provider.Init(c.Request().Context(), &req, req.AmountOverride, opts, nil)
	return c.JSON(statusFor(resp.Success), resp)
}

// ChargeTransaction confirms a payment the client claims has completed. The
// claim is verified against the gateway before anything is recorded.
func (h *PaymentHandler) ChargeTransaction(c echo.Context) error {
	txn, err := h.lookupTransaction(c)
	if err != nil {
		return err
	}

	var req chargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	opts := provider.ChargeOptions{SavePaymentMethod: req.SavePaymentMethod}

	var resp *provider.PaymentResponse
	if cid := cashierID(c); cid != nil {
		resp, err = h.provider.CashierCharge(c.Request().Context(), *cid, txn, opts)
	} else {
		resp, err = h.provider.Charge(c.Request().Context(), txn, opts)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to confirm payment")
	}
	return c.JSON(statusFor(resp.Success), resp)
}

// RefundTransaction issues a refund against a recorded payment.
func (h *PaymentHandler) RefundTransaction(c echo.Context) error {
	txn, err := h.lookupTransaction(c)
	if err != nil {
		return err
	}

	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	cid := ""
	if v := cashierID(c); v != nil {
		cid = *v
	}

	resp := h.provider.Refund(c.Request().Context(), cid, txn, req.Amount, req.Description)
	return c.JSON(statusFor(resp.Success), resp)
}

// SyncTransaction re-pulls authoritative gateway state for a transaction.
func (h *PaymentHandler) SyncTransaction(c echo.Context) error {
	txn, err := h.lookupTransaction(c)
	if err != nil {
		return err
	}

	resp := h.provider.SyncTransaction(c.Request().Context(), txn)
	return c.JSON(statusFor(resp.Success), resp)
}

func (h *PaymentHandler) lookupTransaction(c echo.Context) (*models.Transaction, error) {
	pid := c.Param("pid")
	if pid == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Transaction pid is required")
	}

	var txn models.Transaction
	err := h.db.Where("pid = ?", pid).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Transaction not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load transaction")
	}
	return &txn, nil
}

// cashierID reads the acting cashier from the request, if any.
func cashierID(c echo.Context) *string {
	if v := c.Request().Header.Get("X-Cashier-ID"); v != "" {
		return &v
	}
	return nil
}

// statusFor maps an operation result onto an HTTP status: failed domain
// operations are unprocessable rather than server errors.
func statusFor(success bool) int {
	if success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
