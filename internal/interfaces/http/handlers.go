package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finvera/expense-approval/internal/application/service"
	"github.com/finvera/expense-approval/internal/domain/entity"
	"github.com/finvera/expense-approval/pkg/utils"
)

const contextUserIDKey = "auth_user_id"

// Handlers contains all HTTP request handlers
type Handlers struct {
	authService     service.AuthService
	expenseService  service.ExpenseService
	approvalService service.ApprovalService
	userService     service.UserService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	authService service.AuthService,
	expenseService service.ExpenseService,
	approvalService service.ApprovalService,
	userService service.UserService,
	logger Logger,
) *Handlers {
	return &Handlers{
		authService:     authService,
		expenseService:  expenseService,
		approvalService: approvalService,
		userService:     userService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// AuthRequired returns middleware that verifies the bearer token and
// stores the authenticated user ID on the request context
func (h *Handlers) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		claims, err := h.authService.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid or expired token",
			})
			return
		}

		c.Set(contextUserIDKey, claims.UserID)
		c.Next()
	}
}

// currentUserID returns the authenticated user ID set by AuthRequired
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(contextUserIDKey)
}

// pathID parses the numeric :id path parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid id",
		})
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// SignupRequest carries company registration fields
type SignupRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	CompanyName     string `json:"company_name" binding:"required"`
	DefaultCurrency string `json:"default_currency"`
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries a signed token and the authenticated user
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Signup handles POST /api/auth/signup
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	if req.DefaultCurrency != "" {
		if err := utils.ValidateCurrency(req.DefaultCurrency); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
	}

	result, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Username:        utils.SanitizeString(req.Username),
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       utils.SanitizeString(req.FirstName),
		LastName:        utils.SanitizeString(req.LastName),
		CompanyName:     utils.SanitizeString(req.CompanyName),
		DefaultCurrency: req.DefaultCurrency,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toAuthResponse(result)})
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		// Uniform 401 so login probing cannot distinguish causes
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toAuthResponse(result)})
}

func toAuthResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		User:      result.User,
	}
}
