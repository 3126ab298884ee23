package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gw-currency-rates/internal/api/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials учетные данные администратора
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// AuthHandler обработчик для аутентификации
type AuthHandler struct {
	admin         AdminCredentials
	jwtMiddleware *middleware.JWTMiddleware
	logger        *logrus.Logger
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(admin AdminCredentials, jwtMiddleware *middleware.JWTMiddleware, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		admin:         admin,
		jwtMiddleware: jwtMiddleware,
		logger:        logger,
	}
}

// LoginRequest запрос на авторизацию
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login выдает JWT администратору
// @Summary Admin login
// @Description Authenticate the administrator and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid request: " + err.Error()})
		return
	}

	if h.admin.PasswordHash == "" || req.Username != h.admin.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password)) != nil {
		h.logger.Warnf("Failed admin login attempt for %q", req.Username)
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Invalid username or password"})
		return
	}

	token, err := h.jwtMiddleware.GenerateToken(req.Username)
	if err != nil {
		h.logger.Errorf("Failed to generate token: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
