package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"paybridge/internal/models"
	"paybridge/internal/provider"
)

type PaymentMethodHandler struct {
	db       *gorm.DB
	provider *provider.Provider
}

func NewPaymentMethodHandler(db *gorm.DB, p *provider.Provider) *PaymentMethodHandler {
	return &PaymentMethodHandler{db: db, provider: p}
}

// SavePaymentMethod attaches a gateway instrument to the identity's customer
// and records it.
func (h *PaymentMethodHandler) SavePaymentMethod(c echo.Context) error {
	var req savePaymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.PaymentMethodID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_method_id is required")
	}

	resp := h.provider.PaymentMethod(req.customerData()).Save(c.Request().Context(), req.PaymentMethodID)
	return c.JSON(statusFor(resp.Success), resp)
}

// RemovePaymentMethod detaches a saved instrument and deletes the local row.
func (h *PaymentMethodHandler) RemovePaymentMethod(c echo.Context) error {
	pid := c.Param("pid")
	if pid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Payment method pid is required")
	}

	var pm models.ProviderPaymentMethod
	err := h.db.Where("pid = ?", pid).First(&pm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Payment method not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load payment method")
	}

	resp := h.provider.PaymentMethod(provider.CustomerData{}).Remove(c.Request().Context(), &pm)
	return c.JSON(statusFor(resp.Success), resp)
}

// SyncPaymentMethods reconciles the identity's saved instruments against the
// gateway and returns the resulting list.
func (h *PaymentMethodHandler) SyncPaymentMethods(c echo.Context) error {
	var req identityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	resp := h.provider.PaymentMethod(req.customerData()).SyncAll(c.Request().Context())
	if !resp.Success {
		return c.JSON(statusFor(false), resp)
	}

	var methods []models.ProviderPaymentMethod
	err := h.db.
		Joins("JOIN provider_customers ON provider_customers.id = provider_payment_methods.customer_id").
		Where("provider_customers.payment_provider = ?", h.provider.Tag()).
		Where("provider_customers.user_type = ? AND provider_customers.user_id = ?", req.UserType, req.UserID).
		Find(&methods).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list payment methods")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":         true,
		"payment_methods": methods,
	})
}
