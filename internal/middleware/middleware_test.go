package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guru-chat/internal/infrastructure/auth"
	"guru-chat/internal/infrastructure/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newEngine(a *auth.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(RecoveryMiddleware(), LoggingMiddleware())
	r.GET("/me", AuthMiddleware(a), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	a := auth.NewAuthenticator("secret", "guru-chat", time.Hour)
	r := newEngine(a)
	tok, err := a.GenerateToken("5", "")
	require.NoError(t, err)

	t.Run("header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Body.String())
	})

	t.Run("query", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	r := newEngine(auth.NewAuthenticator("secret", "", time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("5"))
	assert.True(t, rl.Allow("5"))
	assert.False(t, rl.Allow("5"), "burst spent")
	assert.True(t, rl.Allow("9"), "keys are independent")

	clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("5"), "one token per second refills")

	clock = clock.Add(10 * time.Minute)
	rl.Allow("9")
	assert.NotContains(t, rl.entries, "5", "idle buckets are swept")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/send", func(c *gin.Context) { SetUserID(c, "5") }, RateLimitMiddleware(NewRateLimiter(1, 1)), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/send", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/send", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.org"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.org")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, OriginAllowed(nil, "https://any.example.com"))
	assert.True(t, OriginAllowed([]string{"*"}, "https://any.example.com"))

	list := []string{"https://app.example.org"}
	assert.True(t, OriginAllowed(list, "https://APP.example.org"))
	assert.False(t, OriginAllowed(list, "https://app.example.org.evil.com"))
	assert.False(t, OriginAllowed(list, "http://app.example.org"))
}
