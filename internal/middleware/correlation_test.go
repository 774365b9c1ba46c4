package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCorrelationReusesInboundHeader(t *testing.T) {
	r := gin.New()
	r.Use(Correlation())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = CorrelationID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "corr-in")
	r.ServeHTTP(w, req)

	assert.Equal(t, "corr-in", got)
	assert.Equal(t, "corr-in", w.Header().Get(HeaderCorrelationID))
}

func TestCorrelationGeneratesWhenMissing(t *testing.T) {
	r := gin.New()
	r.Use(Correlation())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/", nil))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))

	id1 := w1.Header().Get(HeaderCorrelationID)
	id2 := w2.Header().Get(HeaderCorrelationID)
	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
}

func TestCorrelationIDMissingContextKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, CorrelationID(c))
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	// 不同 key 互不影响
	assert.True(t, rl.Allow("5.6.7.8"))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(Correlation())
	r.Use(RateLimit(NewRateLimiter(1, time.Minute), 30))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.Equal(t, "30", w2.Header().Get("Retry-After"))
	assert.Contains(t, w2.Body.String(), "Too many requests")
}

func TestActorWithoutToken(t *testing.T) {
	r := gin.New()
	r.Use(Actor("test-secret"))
	var actorID string
	r.GET("/", func(c *gin.Context) {
		actorID = GetUserID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	r.ServeHTTP(w, req)

	// 解析失败不拦截，仅无操作者信息
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, actorID)
}
