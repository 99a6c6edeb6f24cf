package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// Identity headers are set by the gateway in front of the service.
const (
	HeaderViewerID   = "X-Viewer-ID"
	HeaderViewerRole = "X-Viewer-Role"

	viewerContextKey = "viewer"
)

// RequireViewer resolves the acting account and rejects unknown viewers.
func (h *Handler) RequireViewer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		role := domain.Role(strings.ToLower(strings.TrimSpace(req.Header.Get(HeaderViewerRole))))
		id, err := strconv.ParseInt(strings.TrimSpace(req.Header.Get(HeaderViewerID)), 10, 64)
		if err != nil || id <= 0 || !role.Valid() {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "viewer identity required"})
		}

		viewer := domain.Viewer{Role: role, ID: id}
		exists, err := h.service.ViewerExists(req.Context(), viewer)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if !exists {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unknown viewer"})
		}

		c.Set(viewerContextKey, viewer)
		return next(c)
	}
}

func viewerFrom(c echo.Context) domain.Viewer {
	v, _ := c.Get(viewerContextKey).(domain.Viewer)
	return v
}
