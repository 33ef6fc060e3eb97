package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/controlwise/account-service/internal/core/domain"
	"github.com/controlwise/account-service/internal/logger"
	logicv1 "github.com/controlwise/account-service/internal/logic/v1"
	"github.com/controlwise/account-service/middleware"
)

// Handler groups HTTP handlers for the account API v1.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	auth *logicv1.AuthService
}

// NewHandler creates a new Handler with the given AuthService.
func NewHandler(auth *logicv1.AuthService) *Handler {
	return &Handler{auth: auth}
}

// RegisterRoutes registers all account API v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/register", h.Register)

	authed := rg.Group("", h.RequireAuth())
	authed.GET("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.GetMe)
	authed.GET("/users/:id", h.GetUser)
	authed.PUT("/users/:id", h.UpdatePassword)
	authed.DELETE("/users/:id", h.DeleteUser)
}

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Login(ctx, req)
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Msg("Login failed")

		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Int("user_id", response.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, response)
}

// Register handles HTTP request for user registration.
// No authentication is required; new accounts always get role "user".
func (h *Handler) Register(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	user, err := h.auth.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Str("username", req.Username).Msg("Registration failed")

		switch {
		case errors.Is(err, logicv1.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password"})
		case errors.Is(err, logicv1.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Int("user_id", user.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Logout handles HTTP request to end the current session.
// GET /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	token, ok := currentToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.auth.Logout(ctx, token); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	log.Info().Msg("Logout successful")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetMe handles HTTP request to get the current authenticated user.
// GET /api/v1/auth/me
func (h *Handler) GetMe(c *gin.Context) {
	_, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), actor, actor.ID)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetUser handles HTTP request to read one account.
// GET /api/v1/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	actor, targetID, ok := actorAndTarget(c)
	if !ok {
		return
	}

	user, err := h.auth.GetUser(ctx, actor, targetID)
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Int("target_id", targetID).Msg("Get user failed")
		writeUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": user.Username, "role": user.Role})
}

// UpdatePassword handles HTTP request to change an account's password.
// PUT /api/v1/users/:id
func (h *Handler) UpdatePassword(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	actor, targetID, ok := actorAndTarget(c)
	if !ok {
		return
	}

	var req domain.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required"})
		return
	}

	if err := h.auth.UpdatePassword(ctx, actor, targetID, req.Password); err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Int("target_id", targetID).Msg("Password update failed")
		writeUserError(c, err)
		return
	}

	log.Info().Int("target_id", targetID).Msg("Password updated")
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// DeleteUser handles HTTP request to delete an account.
// DELETE /api/v1/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	actor, targetID, ok := actorAndTarget(c)
	if !ok {
		return
	}

	if err := h.auth.DeleteUser(ctx, actor, targetID); err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Int("target_id", targetID).Msg("Delete user failed")
		writeUserError(c, err)
		return
	}

	log.Info().Int("target_id", targetID).Msg("User deleted")
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// actorAndTarget pulls the authenticated actor and the :id path parameter.
// It writes the error response itself when either is missing.
func actorAndTarget(c *gin.Context) (logicv1.Actor, int, bool) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return logicv1.Actor{}, 0, false
	}

	targetID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return logicv1.Actor{}, 0, false
	}

	return actor, targetID, true
}

// writeUserError maps business-logic errors from the per-user CRUD
// operations onto HTTP responses. Forbidden responses carry the denial
// reason; server errors never expose internals.
func writeUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, logicv1.ErrForbiddenRole):
		c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted for your role"})
	case errors.Is(err, logicv1.ErrForbiddenSelf):
		c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted on your own account"})
	case errors.Is(err, logicv1.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, logicv1.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
