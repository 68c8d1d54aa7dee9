package handler

import (
	"io"
	"net/http"

	"contactbook/backend/internal/auth"
	"contactbook/backend/internal/hub"

	"github.com/gin-gonic/gin"
)

const clientBuffer = 16

// StreamEvents godoc
// @Summary      Stream contact events
// @Description  Opens a server-sent event stream carrying contact.requested and contact.accepted events that involve the authenticated user.
// @Tags         contacts
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {string}  string  "event stream"
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /users/me/events [get]
func (h *Handler) StreamEvents(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event stream is disabled"})
		return
	}

	viewerID, _ := auth.UserID(c)
	client := make(hub.Client, clientBuffer)
	h.hub.Subscribe(viewerID, client)
	defer h.hub.Unsubscribe(viewerID, client)

	h.log.WithField("user_id", viewerID).Debug("Event stream opened")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// send the headers now so clients see the stream open before any event
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		}
	})

	h.log.WithField("user_id", viewerID).Debug("Event stream closed")
}
