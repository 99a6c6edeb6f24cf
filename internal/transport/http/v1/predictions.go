package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// PredictRolesRequest accepts JSON or form bodies.
type PredictRolesRequest struct {
	NeedStatement string `json:"need_statement" form:"need_statement"`
	TopN          int    `json:"top_n" form:"top_n"`
}

// PredictRoles proxies a need statement to the prediction model.
// POST /v1/roles/predict
func (h *Handler) PredictRoles(c echo.Context) error {
	var req PredictRolesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.PredictRoles(c.Request().Context(), viewerFrom(c), domain.PredictionRequest{
		NeedStatement: req.NeedStatement,
		TopN:          req.TopN,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DrainRoles returns the recorded predictions and clears them.
// GET /v1/roles
func (h *Handler) DrainRoles(c echo.Context) error {
	entries, err := h.service.DrainPredictions(c.Request().Context(), viewerFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
