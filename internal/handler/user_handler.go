package handler

import (
	"errors"
	"net/http"

	"contactbook/backend/internal/auth"
	"contactbook/backend/internal/contacts"
	"contactbook/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// CreateUserInput defines the structure for user creation.
type CreateUserInput struct {
	Name string `json:"name" binding:"required" example:"Bob"`
}

// CreateUserResponse returns the new user together with a bearer token for it.
type CreateUserResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Creates a new user and returns it with an authentication token.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body CreateUserInput true "User Info"
// @Success      201  {object}  CreateUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// a user nobody can get a token for is useless, so check before writing
	if err := jwt.Ready(); err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.contacts.CreateUser(c.Request.Context(), input.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateUserResponse{
		User:  UserResponse{ID: user.ID, Name: user.Name, CreatedAt: user.CreatedAt},
		Token: token,
	})
}

// ListUsers godoc
// @Summary      List users
// @Description  Lists users ordered by ID with pagination.
// @Tags         users
// @Produce      json
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[ContactResponse]
// @Failure      500   {object}  ErrorResponse
// @Router       /users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)

	users, total, err := h.contacts.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(newContactResponses(users), total, page, limit))
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves a user. With a bearer token the response also carries the state of the requests between the caller and the user.
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  UserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *Handler) GetUserByID(c *gin.Context) {
	targetID, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.contacts.GetUser(ctx, targetID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := UserResponse{ID: user.ID, Name: user.Name, CreatedAt: user.CreatedAt}

	if viewerID, ok := auth.UserID(c); ok && viewerID != targetID {
		if response.RequestToMe, err = h.requestStatus(c, targetID, viewerID); err != nil {
			h.respondError(c, err)
			return
		}
		if response.MyRequest, err = h.requestStatus(c, viewerID, targetID); err != nil {
			h.respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) requestStatus(c *gin.Context, from, to uint) (*RequestStatus, error) {
	conn, err := h.contacts.Request(c.Request.Context(), from, to)
	if errors.Is(err, contacts.ErrConnectionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	status := statusOf(*conn)
	return &status, nil
}
