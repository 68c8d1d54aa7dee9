package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"contactbook/backend/internal/contacts"
	"contactbook/backend/internal/hub"
	"contactbook/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler serves the HTTP API on top of the contacts service.
type Handler struct {
	contacts *contacts.Service
	hub      *hub.Hub
	log      *logrus.Logger
}

func New(svc *contacts.Service, h *hub.Hub, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{contacts: svc, hub: h, log: log}
}

// region --- DTOs ---

// RequestStatus is the display state of a contact request.
type RequestStatus string

const (
	// StatusPending means a contact request has been sent but not yet accepted.
	StatusPending RequestStatus = "pending"
	// StatusAccepted means the target accepted the request.
	StatusAccepted RequestStatus = "accepted"
)

func statusOf(conn models.Connection) RequestStatus {
	if conn.Accepted {
		return StatusAccepted
	}
	return StatusPending
}

// ContactResponse is the public shape of a user in contact lists.
type ContactResponse struct {
	ID   uint   `json:"id" example:"2"`
	Name string `json:"name" example:"Ben"`
}

func newContactResponse(u models.User) ContactResponse {
	return ContactResponse{ID: u.ID, Name: u.Name}
}

func newContactResponses(users []models.User) []ContactResponse {
	res := make([]ContactResponse, 0, len(users))
	for _, u := range users {
		res = append(res, newContactResponse(u))
	}
	return res
}

// UserResponse is a user profile. The request fields are only set when the
// caller is authenticated and a request exists in that direction.
type UserResponse struct {
	ID          uint           `json:"id" example:"1"`
	Name        string         `json:"name" example:"Bob"`
	CreatedAt   time.Time      `json:"created_at"`
	RequestToMe *RequestStatus `json:"request_to_me,omitempty"`
	MyRequest   *RequestStatus `json:"my_request,omitempty"`
}

// ConnectionResponse is one directed contact request. ContactID is the user
// on the other end when the request is listed for a given user.
type ConnectionResponse struct {
	Requester ContactResponse `json:"requester"`
	Target    ContactResponse `json:"target"`
	ContactID uint            `json:"contact_id,omitempty" example:"2"`
	Accepted  bool            `json:"accepted"`
	Status    RequestStatus   `json:"status" example:"pending"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newConnectionResponse(conn models.Connection) ConnectionResponse {
	return ConnectionResponse{
		Requester: newContactResponse(conn.Requester),
		Target:    newContactResponse(conn.Target),
		Accepted:  conn.Accepted,
		Status:    statusOf(conn),
		CreatedAt: conn.CreatedAt,
		UpdatedAt: conn.UpdatedAt,
	}
}

// newRequestResponse renders a connection whose users were not loaded.
func newRequestResponse(conn models.Connection) ConnectionResponse {
	return ConnectionResponse{
		Requester: ContactResponse{ID: conn.RequesterID},
		Target:    ContactResponse{ID: conn.TargetID},
		Accepted:  conn.Accepted,
		Status:    statusOf(conn),
		CreatedAt: conn.CreatedAt,
		UpdatedAt: conn.UpdatedAt,
	}
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// endregion

// region --- Helpers ---

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return uint(id), true
}

// respondError maps service errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, contacts.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, contacts.ErrConnectionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact request not found"})
	case errors.Is(err, contacts.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Contact request already exists"})
	case errors.Is(err, contacts.ErrSelfRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send request to yourself"})
	case errors.Is(err, contacts.ErrInvalidPolicy), errors.Is(err, contacts.ErrInvalidDirection),
		errors.Is(err, contacts.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// endregion
