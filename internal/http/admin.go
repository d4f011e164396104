package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moi-note/internal/domain"
	"moi-note/internal/service"
)

const maxPhotoSize = 5 << 20

type createUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	IsFirstLogin    bool   `json:"is_first_login"`
	InitialPassword string `json:"initial_password,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type EventResponse struct {
	Name        string  `json:"name"`
	Date        string  `json:"date"`
	HostName    string  `json:"host_name"`
	PhotoURL    string  `json:"photo_url,omitempty"`
	LastUpdated *string `json:"last_updated,omitempty"`
}

func userToResponse(user domain.UserRecord) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		IsFirstLogin:    user.IsFirstLogin,
		InitialPassword: user.InitialPassword,
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
	}
}

func eventToResponse(event domain.EventMetadata) EventResponse {
	resp := EventResponse{
		Name:     event.Name,
		Date:     event.Date,
		HostName: event.HostName,
	}
	if event.HostPhoto != "" {
		resp.PhotoURL = "/api/event/photo"
	}
	if event.LastUpdated != nil {
		v := event.LastUpdated.Format(time.RFC3339)
		resp.LastUpdated = &v
	}
	return resp
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.users.CreateUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":     userToResponse(created.Record),
		"password": created.Password,
	})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) resetUser(c *gin.Context) {
	id := c.Param("id")
	password, err := h.users.ResetPassword(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "password": password})
}

func (h *Handler) getEvent(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eventToResponse(*event))
}

func (h *Handler) eventPhoto(c *gin.Context) {
	url, err := h.events.PhotoURL(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// updateEvent accepts a multipart form with name, date, host_name and an optional photo.
func (h *Handler) updateEvent(c *gin.Context) {
	input := domain.EventInput{
		Name:     c.PostForm("name"),
		Date:     c.PostForm("date"),
		HostName: c.PostForm("host_name"),
	}

	var photo *service.PhotoUpload
	header, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		if header.Size > maxPhotoSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("photo exceeds %d bytes", maxPhotoSize)})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer file.Close()
		photo = &service.PhotoUpload{Body: file, ContentType: header.Header.Get("Content-Type")}
	}

	event, err := h.events.Update(c.Request.Context(), input, photo)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eventToResponse(*event))
}
