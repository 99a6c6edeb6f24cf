package v1

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

// participantID accepts an id sent either as a JSON string or a number.
type participantID string

func (p *participantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = participantID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = participantID(n.String())
	return nil
}

// SendMessageRequest is the body of a message send.
type SendMessageRequest struct {
	ReceiverID participantID `json:"receiver_id"`
	Text       string        `json:"text"`
}

// SendMessage appends a message from the viewer.
// POST /v1/conversations/:conversation_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	conversationID, err := pathID(c, "conversation_id")
	if err != nil {
		return writeError(c, err)
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	msg, err := h.service.AppendMessage(c.Request().Context(), viewerFrom(c), conversationID, string(req.ReceiverID), req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"message": msg,
	})
}

// AutoReply appends the canned server reply.
// POST /v1/conversations/:conversation_id/auto_reply
func (h *Handler) AutoReply(c echo.Context) error {
	conversationID, err := pathID(c, "conversation_id")
	if err != nil {
		return writeError(c, err)
	}

	msg, err := h.service.AutoReply(c.Request().Context(), viewerFrom(c), conversationID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"message": msg,
	})
}
