package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"star-auth/internal/netinfo"
	"star-auth/internal/repository"
	"star-auth/internal/service"
)

const refreshCookieName = "refreshToken"

// CredentialHandler mantiene dependencias para los endpoints de
// credenciales.
type CredentialHandler struct {
	logger        *zap.Logger
	credServ      *service.CredentialService
	extractor     *netinfo.Extractor
	secureCookies bool
	cookieMaxAge  int
}

// NewCredentialHandler crea el handler. cookieMaxAge va en segundos y
// aplica solo a la cookie del refresh token.
func NewCredentialHandler(logger *zap.Logger, credServ *service.CredentialService, extractor *netinfo.Extractor, secureCookies bool, cookieMaxAge int) *CredentialHandler {
	return &CredentialHandler{
		logger:        logger,
		credServ:      credServ,
		extractor:     extractor,
		secureCookies: secureCookies,
		cookieMaxAge:  cookieMaxAge,
	}
}

// Register maneja POST /user-creds/register.
func (h *CredentialHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required"`
		AccountType string `json:"acc_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.credServ.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		AccountType: req.AccountType,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		if errors.Is(err, service.ErrInvalidEmail) || errors.Is(err, service.ErrMissingInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GenerateOTP maneja POST /user-creds/generate-otp.
func (h *CredentialHandler) GenerateOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.credServ.GenerateOTP(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
		case errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("generate otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate otp"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyOTP maneja POST /user-creds/verify.
func (h *CredentialHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		OTP      string `json:"otp" binding:"required"`
		OTPToken string `json:"otpToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid otp verify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.credServ.VerifyOTP(c.Request.Context(), req.Email, req.OTP, req.OTPToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrTokenInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		case errors.Is(err, service.ErrTokenMismatch),
			errors.Is(err, service.ErrOTPMismatch),
			errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrMissingInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("verify otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify otp"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Login maneja POST /user-creds/login. El refresh token viaja solo en la
// cookie HttpOnly SameSite-Strict, nunca en el cuerpo.
func (h *CredentialHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	netCtx := h.extractor.FromRequest(c.Request)
	result, err := h.credServ.Login(c.Request.Context(), req.Email, req.Password, netCtx)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, service.ErrNotVerified):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "email not verified. please verify your email before logging in"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		}
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusOK, result)
}

// Refresh maneja POST /user-creds/refresh usando la cookie.
func (h *CredentialHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token provided"})
		return
	}

	result, err := h.credServ.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid),
			errors.Is(err, service.ErrUserNotFound),
			errors.Is(err, service.ErrNotVerified):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not refresh token"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Logout maneja POST /user-creds/logout y limpia la cookie.
func (h *CredentialHandler) Logout(c *gin.Context) {
	var req struct {
		SessionID int64 `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required for logout"})
		return
	}

	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token found"})
		return
	}

	netCtx := h.extractor.FromRequest(c.Request)
	result, err := h.credServ.Logout(c.Request.Context(), req.SessionID, refreshToken, netCtx)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session found"})
		case errors.Is(err, service.ErrTokenInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		default:
			h.logger.Error("logout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
		}
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, result)
}

// DeleteUser maneja DELETE /user-creds/delete-user. Corre detras del
// AuthMiddleware.
func (h *CredentialHandler) DeleteUser(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid delete user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.credServ.DeleteUser(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("delete user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete user"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CredentialHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, h.cookieMaxAge, "/", "", h.secureCookies, true)
}

func (h *CredentialHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", h.secureCookies, true)
}
