package middleware

import (
	"net/http"
	"strings"

	"github.com/TKim713/bee-smart-backend-sub000/internal/config"
	jwtutil "github.com/TKim713/bee-smart-backend-sub000/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Auth JWT 인증 미들웨어
// WebSocket 연결을 위해 token 쿼리 파라미터도 허용
func Auth(cfg *config.Config) gin.HandlerFunc {
	jwtManager := jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization required",
			})
			c.Abort()
			return
		}

		// 토큰 검증
		claims, err := jwtManager.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		// 검증 성공 - 사용자 정보를 context에 저장
		c.Set("userId", claims.UserID)
		c.Set("username", claims.Username)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		// "Bearer <token>" 형식 파싱
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	// 브라우저 WebSocket API는 헤더를 지정할 수 없음
	return c.Query("token")
}
