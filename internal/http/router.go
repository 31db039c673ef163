package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"star-auth/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, credH *CredentialHandler, tokens *service.TokenService) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	creds := r.Group("/api/v1/data/user-creds")
	creds.POST("/register", credH.Register)
	creds.POST("/login", credH.Login)
	creds.POST("/refresh", credH.Refresh)
	creds.POST("/logout", credH.Logout)
	creds.POST("/generate-otp", credH.GenerateOTP)
	creds.POST("/verify", credH.VerifyOTP)
	creds.DELETE("/delete-user", AuthMiddleware(tokens), credH.DeleteUser)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
