package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// StartConversation opens or reuses the conversation with a freelancer.
// POST /v1/conversations/start/:freelancer_id
func (h *Handler) StartConversation(c echo.Context) error {
	freelancerID, err := pathID(c, "freelancer_id")
	if err != nil {
		return writeError(c, err)
	}

	conversationID, err := h.service.StartOrGetConversation(c.Request().Context(), viewerFrom(c), freelancerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"conversation_id": conversationID})
}

// ListConversations lists every conversation as seen by the viewer.
// GET /v1/conversations?active=
func (h *Handler) ListConversations(c echo.Context) error {
	conversations, err := h.service.ListConversations(c.Request().Context(), viewerFrom(c))
	if err != nil {
		return writeError(c, err)
	}

	var activeID int64
	if len(conversations) > 0 {
		activeID = conversations[0].ID
	}
	if a := c.QueryParam("active"); a != "" {
		if val, err := strconv.ParseInt(a, 10, 64); err == nil {
			activeID = val
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"active_id":     activeID,
	})
}

// GetConversation returns one conversation with its transcript.
// GET /v1/conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	conversationID, err := pathID(c, "conversation_id")
	if err != nil {
		return writeError(c, err)
	}

	detail, err := h.service.GetConversation(c.Request().Context(), viewerFrom(c), conversationID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}
