package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpr-service/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStationToken(t *testing.T) {
	r := gin.New()
	r.GET("/", StationToken("s3cret"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, perform(r, "s3cret").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "s3cret2").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer s3cret").Code)
}

func TestStationToken_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	r := gin.New()
	r.GET("/", StationToken(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
}

func TestAuth(t *testing.T) {
	parser := auth.NewParser("secret")
	token, err := parser.Sign(auth.Claims{
		UserID:           "u-1",
		Role:             "operator",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	require.NoError(t, err)

	var seen *auth.Claims
	r := gin.New()
	r.GET("/", Auth(parser), func(c *gin.Context) {
		seen, _ = MustClaims(c)
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, perform(r, "Bearer "+token).Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u-1", seen.UserID)

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, token).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer nope").Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	var deadline time.Time
	var ok bool
	r.GET("/", Timeout(time.Second), func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})

	perform(r, "")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}
