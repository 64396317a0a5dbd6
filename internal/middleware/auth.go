package middleware

import (
	"english_bot_backend/internal/config"
	"english_bot_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 管理接口的 JWT 鉴权
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
