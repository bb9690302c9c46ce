package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"webstarter/internal/auth"
	"webstarter/internal/domain"
	"webstarter/internal/service"
)

const (
	msgInternal           = "Internal server error"
	msgInvalidBody        = "Invalid request body"
	msgDuplicateEmail     = "User with this email already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User not found"
)

// Authenticator resolves an Authorization header to a caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*auth.Identity, error)
}

// HealthCheck reports whether a backing store is reachable.
type HealthCheck func(ctx context.Context) error

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth   service.AuthService
	users  service.UserService
	guard  Authenticator
	checks map[string]HealthCheck
	logger logrus.FieldLogger
}

func NewHandler(authSvc service.AuthService, users service.UserService, guard Authenticator, checks map[string]HealthCheck, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		auth:   authSvc,
		users:  users,
		guard:  guard,
		checks: checks,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger))

	api := router.Group("/api")
	{
		api.GET("/health", h.health)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.requireAuth(), h.refresh)
		authGroup.POST("/logout", h.requireAuth(), h.logout)
		authGroup.GET("/sessions", h.requireAuth(), h.sessions)

		api.GET("/users", h.listUsers)
		api.POST("/users", h.createUser)
		api.GET("/users/profile", h.requireAuth(), h.profile)
	}
}

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Message: msgInvalidBody})
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: "User registered successfully",
		Data:    res,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Message: msgInvalidBody})
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Login successful",
		Data:    res,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	id := mustIdentity(c)
	res, err := h.auth.Refresh(c.Request.Context(), id.UserID, id.SessionID)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}

	c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Token refreshed successfully",
		Data:    res,
	})
}

// sessionView marks which audit record belongs to the calling token.
type sessionView struct {
	domain.Session
	Current bool `json:"current"`
}

func (h *Handler) sessions(c *gin.Context) {
	id := mustIdentity(c)
	sessions, err := h.auth.Sessions(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, "list sessions", err)
		return
	}

	views := make([]sessionView, len(sessions))
	for i, session := range sessions {
		views[i] = sessionView{Session: session, Current: session.ID == id.SessionID}
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: views})
}

func (h *Handler) logout(c *gin.Context) {
	id := mustIdentity(c)
	if err := h.auth.Logout(c.Request.Context(), id.SessionID); err != nil {
		h.fail(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) listUsers(c *gin.Context) {
	page := queryInt(c, "page", service.DefaultPage)
	limit := queryInt(c, "limit", service.DefaultLimit)

	listing, err := h.users.List(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: listing})
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Message: msgInvalidBody})
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		h.fail(c, "create user", err)
		return
	}
	c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: "User created successfully",
		Data:    user,
	})
}

func (h *Handler) profile(c *gin.Context) {
	id := mustIdentity(c)
	user, err := h.users.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, "profile", err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: user})
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WithError(err).WithField("check", name).Warn("health check failed")
			report[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "ok"
	}
	c.JSON(status, envelope{Success: status == http.StatusOK, Data: report})
}

// fail converts a service error to the response envelope. Anything not
// recognised is logged and reported as an internal error.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, envelope{Message: verr.Message})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, envelope{Message: msgDuplicateEmail})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, envelope{Message: msgInvalidCredentials})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, envelope{Message: auth.MessageInvalidSession})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, envelope{Message: msgUserNotFound})
	default:
		h.logger.WithError(err).WithField("op", op).Error("request failed")
		c.JSON(http.StatusInternalServerError, envelope{Message: msgInternal})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
