package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"moi-note/internal/access"
	"moi-note/internal/domain"
	"moi-note/internal/identity"
)

const gateKey = "gate"

// sessionMiddleware gives every request its own Gate, restored from the bearer
// token when one is presented. An invalid token leaves the request anonymous.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		gate := identity.NewGate(h.provider, h.logger)
		defer gate.Close()

		if token := bearerToken(c); token != "" {
			if _, err := gate.Restore(c.Request.Context(), token); err != nil {
				h.logger.WithError(err).Debug("ignoring session token")
			}
		}
		c.Set(gateKey, gate)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter used by websocket clients.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

func gateOf(c *gin.Context) *identity.Gate {
	return c.MustGet(gateKey).(*identity.Gate)
}

func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if gateOf(c).Current() == nil {
			h.writeError(c, domain.ErrNotAuthenticated)
			return
		}
		c.Next()
	}
}

// requirePage runs the route guard for the page an endpoint belongs to.
func (h *Handler) requirePage(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, _, err := h.decide(c, page)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if h.admit(c, decision) {
			c.Next()
		}
	}
}

func (h *Handler) decide(c *gin.Context, page string) (access.Decision, domain.LoginState, error) {
	session := gateOf(c).Current()
	state := domain.LoginStateNormal
	if session != nil {
		var err error
		if state, err = h.auth.LoginState(c.Request.Context(), session); err != nil {
			return access.Decision{}, "", err
		}
	}
	return h.guard.Decide(session, state, page), state, nil
}

// admit writes the response for a non-allowing decision and reports whether the
// request may continue.
func (h *Handler) admit(c *gin.Context, d access.Decision) bool {
	switch d.Outcome {
	case access.Allow:
		return true
	case access.ForcePasswordChange:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "password change required",
			"view":  string(access.ForcePasswordChange),
		})
	default:
		if d.Target == access.PathLogin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    domain.ErrNotAuthenticated.Error(),
				"redirect": d.Target,
			})
			return false
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":    domain.ErrForbidden.Error(),
			"redirect": d.Target,
		})
	}
	return false
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	Password     string `json:"password" binding:"required"`
	Confirmation string `json:"confirm_password"`
}

type SessionResponse struct {
	Token     string            `json:"token,omitempty"`
	Email     string            `json:"email"`
	Role      domain.Role       `json:"role"`
	State     domain.LoginState `json:"state"`
	Redirect  string            `json:"redirect,omitempty"`
	View      string            `json:"view,omitempty"`
	ExpiresAt string            `json:"expires_at"`
}

func (h *Handler) sessionResponse(session *domain.Session, state domain.LoginState) SessionResponse {
	resp := SessionResponse{
		Email:     session.Email,
		Role:      h.guard.Role(session),
		State:     state,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	}
	if state == domain.LoginStatePendingReset {
		resp.View = string(access.ForcePasswordChange)
	} else {
		resp.Redirect = access.HomeOf(resp.Role)
	}
	return resp
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.auth.SignIn(c.Request.Context(), gateOf(c), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := h.sessionResponse(res.Session, res.State)
	resp.Token = res.Session.Token
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) signOut(c *gin.Context) {
	gateOf(c).SignOut(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *Handler) currentSession(c *gin.Context) {
	session := gateOf(c).Current()
	state, err := h.auth.LoginState(c.Request.Context(), session)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session, state))
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gate := gateOf(c)
	if err := h.auth.CompletePasswordReset(c.Request.Context(), gate, req.Password, req.Confirmation); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(gate.Current(), domain.LoginStateNormal))
}

// route exposes the guard decision for a client-side navigation.
func (h *Handler) route(c *gin.Context) {
	decision, _, err := h.decide(c, c.DefaultQuery("path", access.PathLogin))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}
