package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupCronRouter(secret string) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)

	calls := 0
	router := gin.New()
	router.POST("/cron/leaderboard", RequireCronSecret(secret), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router, &calls
}

func doCronRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cron/leaderboard", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireCronSecret_ValidSecret(t *testing.T) {
	router, calls := setupCronRouter("s3cret")

	w := doCronRequest(router, "Bearer s3cret")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *calls)
}

func TestRequireCronSecret_WrongSecret(t *testing.T) {
	router, calls := setupCronRouter("s3cret")

	w := doCronRequest(router, "Bearer wrong")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, *calls, "Обработчик не должен вызываться при неверном секрете")
}

func TestRequireCronSecret_MissingHeader(t *testing.T) {
	router, calls := setupCronRouter("s3cret")

	w := doCronRequest(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, *calls)
}

func TestRequireCronSecret_MalformedHeader(t *testing.T) {
	router, calls := setupCronRouter("s3cret")

	w := doCronRequest(router, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, *calls)
}

func TestRequireCronSecret_UnconfiguredSecretClosesEndpoint(t *testing.T) {
	router, calls := setupCronRouter("")

	w := doCronRequest(router, "Bearer anything")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, *calls)
}
