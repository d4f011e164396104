package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"moi-note/internal/access"
	"moi-note/internal/domain"
	"moi-note/internal/identity"
	"moi-note/internal/service"
)

// Services groups the domain services exposed over HTTP.
type Services struct {
	Auth    *service.AuthService
	Entries *service.EntryService
	Events  *service.EventService
	Users   *service.UserService

	// ReportLocation is the time zone of report dates; nil means UTC.
	ReportLocation *time.Location
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	provider identity.Provider
	guard    access.Guard
	auth     *service.AuthService
	entries  *service.EntryService
	events   *service.EventService
	users    *service.UserService
	reportTZ *time.Location
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewHandler(provider identity.Provider, guard access.Guard, services Services, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		provider: provider,
		guard:    guard,
		auth:     services.Auth,
		entries:  services.Entries,
		events:   services.Events,
		users:    services.Users,
		reportTZ: services.ReportLocation,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger))

	api := router.Group("/api", h.sessionMiddleware())
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.GET("/event", h.getEvent)
		api.GET("/event/photo", h.eventPhoto)
		api.GET("/route", h.route)

		api.POST("/session", h.signIn)
		api.DELETE("/session", h.signOut)
		api.GET("/session", h.requireSession(), h.currentSession)
		api.POST("/session/password", h.requireSession(), h.changePassword)
	}

	entry := api.Group("", h.requirePage(access.PathEntry))
	{
		entry.GET("/entries", h.listEntries)
		entry.POST("/entries", h.createEntry)
		entry.GET("/entries/summary", h.entrySummary)
		entry.GET("/entries/stream", h.streamEntries)
		entry.GET("/report", h.downloadReport)
	}

	records := api.Group("", h.requirePage(access.PathRecords))
	{
		records.GET("/entries/:id", h.getEntry)
		records.POST("/entries/:id/verify", h.verifyEntryEdit)
		records.PUT("/entries/:id", h.updateEntry)
		records.DELETE("/entries/:id", h.deleteEntry)
	}

	admin := api.Group("/admin", h.requirePage(access.PathAdmin))
	{
		admin.GET("/users", h.listUsers)
		admin.POST("/users", h.createUser)
		admin.DELETE("/users/:id", h.deleteUser)
		admin.POST("/users/:id/reset", h.resetUser)
		admin.PUT("/event", h.updateEvent)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrPasswordMismatch),
		errors.Is(err, domain.ErrInvalidEntry),
		errors.Is(err, domain.ErrInvalidEvent),
		errors.Is(err, domain.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrResetNotPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request error")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
