package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"paybridge/internal/provider"
)

// ProviderHandler exposes the adapter's lifecycle operations. These are
// operator endpoints, not part of the payment flow.
type ProviderHandler struct {
	provider *provider.Provider
}

func NewProviderHandler(p *provider.Provider) *ProviderHandler {
	return &ProviderHandler{provider: p}
}

// Up registers the webhook endpoint at the gateway.
func (h *ProviderHandler) Up(c echo.Context) error {
	resp := h.provider.Up(c.Request().Context())
	return c.JSON(statusFor(resp.Success), resp)
}

// Down removes the webhook endpoint.
func (h *ProviderHandler) Down(c echo.Context) error {
	resp := h.provider.Down(c.Request().Context())
	return c.JSON(statusFor(resp.Success), resp)
}

// Ping verifies the gateway credentials with a light authenticated call.
func (h *ProviderHandler) Ping(c echo.Context) error {
	resp := h.provider.Ping(c.Request().Context())
	return c.JSON(statusFor(resp.Success), resp)
}

// CreateCustomer resolves (or creates) the gateway customer for an identity.
func (h *ProviderHandler) CreateCustomer(c echo.Context) error {
	var req identityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	resp := h.provider.Customer().Create(c.Request().Context(), req.customerData())
	return c.JSON(statusFor(resp.Success), resp)
}
