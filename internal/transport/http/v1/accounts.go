package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// RegisterClient creates a client account.
// POST /v1/clients
func (h *Handler) RegisterClient(c echo.Context) error {
	var req domain.ClientRegistration
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	client, err := h.service.RegisterClient(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, client)
}

// RegisterFreelancer creates a freelancer account.
// POST /v1/freelancers
func (h *Handler) RegisterFreelancer(c echo.Context) error {
	var req domain.FreelancerRegistration
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	freelancer, err := h.service.RegisterFreelancer(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, freelancer)
}

// ListFreelancers returns the freelancer cards.
// GET /v1/freelancers
func (h *Handler) ListFreelancers(c echo.Context) error {
	cards, err := h.service.ListFreelancerCards(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cards)
}

// CheckUsername reports whether a username is free for the role.
func (h *Handler) CheckUsername(role domain.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		available, err := h.service.UsernameAvailable(c.Request().Context(), role, c.QueryParam("username"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]bool{"available": available})
	}
}

// CheckEmail reports whether an email is registered for the role.
func (h *Handler) CheckEmail(role domain.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		exists, err := h.service.EmailExists(c.Request().Context(), role, c.QueryParam("email"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]bool{"exists": exists})
	}
}

// Me returns the viewer's role and account.
// GET /v1/me
func (h *Handler) Me(c echo.Context) error {
	viewer := viewerFrom(c)
	account, err := h.service.Profile(c.Request().Context(), viewer)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"role":    viewer.Role,
		"id":      viewer.ID,
		"account": account,
	})
}

// DeleteMe deletes the viewer's account.
// DELETE /v1/me
func (h *Handler) DeleteMe(c echo.Context) error {
	if err := h.service.DeleteAccount(c.Request().Context(), viewerFrom(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}
