package handler

import (
	"net/http"
	"strconv"

	"contactbook/backend/internal/auth"
	"contactbook/backend/internal/contacts"

	"github.com/gin-gonic/gin"
)

// GetContacts godoc
// @Summary      Get confirmed contacts
// @Description  Lists the confirmed contacts of a user. The policy decides what confirms a contact: "accepted" (an accepted request in either direction), "mutual" (requests in both directions, both accepted) or "bidirectional" (requests in both directions, acceptance ignored).
// @Tags         contacts
// @Produce      json
// @Param        id      path      int     true   "User ID"
// @Param        policy  query     string  false  "Confirmation policy (accepted, mutual, bidirectional)"
// @Success      200     {array}   ContactResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /users/{id}/contacts [get]
func (h *Handler) GetContacts(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.writeContacts(c, userID)
}

// GetMyContacts godoc
// @Summary      Get my confirmed contacts
// @Description  Lists the confirmed contacts of the authenticated user.
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Param        policy  query     string  false  "Confirmation policy (accepted, mutual, bidirectional)"
// @Success      200     {array}   ContactResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /users/me/contacts [get]
func (h *Handler) GetMyContacts(c *gin.Context) {
	viewerID, _ := auth.UserID(c)
	h.writeContacts(c, viewerID)
}

func (h *Handler) writeContacts(c *gin.Context, userID uint) {
	var policy contacts.Policy
	if raw := c.Query("policy"); raw != "" {
		var err error
		if policy, err = contacts.ParsePolicy(raw); err != nil {
			h.respondError(c, err)
			return
		}
	}

	users, err := h.contacts.ConfirmedContacts(c.Request.Context(), userID, policy)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newContactResponses(users))
}

// GetConnections godoc
// @Summary      Get contact requests of a user
// @Description  Lists the raw contact requests of a user, optionally filtered by direction and acceptance.
// @Tags         contacts
// @Produce      json
// @Param        id        path      int     true   "User ID"
// @Param        direction query     string  false  "Filter by direction (incoming, outgoing)"
// @Param        accepted  query     bool    false  "Filter by acceptance"
// @Success      200       {array}   ConnectionResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{id}/connections [get]
func (h *Handler) GetConnections(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	direction, err := contacts.ParseDirection(c.Query("direction"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var accepted *bool
	if raw := c.Query("accepted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'accepted' filter"})
			return
		}
		accepted = &v
	}

	conns, err := h.contacts.Connections(c.Request.Context(), userID, direction, accepted)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]ConnectionResponse, 0, len(conns))
	for _, conn := range conns {
		res := newConnectionResponse(conn)
		res.ContactID = conn.Other(userID)
		response = append(response, res)
	}
	c.JSON(http.StatusOK, response)
}

// SendRequest godoc
// @Summary      Send contact request
// @Description  Sends a contact request from the authenticated user to another user.
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  ConnectionResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      409  {object}  ErrorResponse "Request already exists"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/request [post]
func (h *Handler) SendRequest(c *gin.Context) {
	viewerID, _ := auth.UserID(c)
	targetID, ok := parseID(c, "id")
	if !ok {
		return
	}

	conn, err := h.contacts.RequestContact(c.Request.Context(), viewerID, targetID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newRequestResponse(*conn))
}

// AcceptRequest godoc
// @Summary      Accept contact request
// @Description  Accepts the contact request another user sent to the authenticated user. The authenticated user's own request in the other direction, if any, is not changed.
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  ConnectionResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func (h *Handler) AcceptRequest(c *gin.Context) {
	viewerID, _ := auth.UserID(c)
	requesterID, ok := parseID(c, "id")
	if !ok {
		return
	}

	conn, err := h.contacts.AcceptRequest(c.Request.Context(), requesterID, viewerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newRequestResponse(*conn))
}
