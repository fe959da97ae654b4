package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireCronSecret защищает триггер фоновых задач статическим bearer-секретом.
// Несовпадение даёт 401 без каких-либо побочных эффектов.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			// Секрет не сконфигурирован - триггер полностью закрыт
			log.Printf("[CronMiddleware] Cron secret is not configured, rejecting request from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		// Сравнение за постоянное время, чтобы не утекала длина совпадения
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			log.Printf("[CronMiddleware] Invalid cron secret from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
