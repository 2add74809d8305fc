package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/utils"
)

const testSecret = "unit-test-secret"

// runJWTAuth pushes a request through JWTAuth followed by an optional
// RequireRole and reports the recorded status plus the user id claim
// the handler observed.
func runJWTAuth(t *testing.T, prepare func(*http.Request), roles ...string) (int, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/my/events", nil)
	if prepare != nil {
		prepare(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenUser string
	var next echo.HandlerFunc = func(c echo.Context) error {
		seenUser, _ = c.Get("user_id").(string)
		return c.NoContent(http.StatusOK)
	}
	if len(roles) > 0 {
		next = RequireRole(roles...)(next)
	}
	require.NoError(t, JWTAuth(testSecret)(next)(c))
	return rec.Code, seenUser
}

func TestJWTAuthAcceptsBearerToken(t *testing.T) {
	token, err := utils.NewAccessToken(testSecret, "user-1", "u@example.com", "ORGANIZER", time.Hour)
	require.NoError(t, err)

	code, user := runJWTAuth(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user-1", user)
}

func TestJWTAuthAcceptsCookieToken(t *testing.T) {
	token, err := utils.NewAccessToken(testSecret, "user-2", "u@example.com", "CUSTOMER", time.Hour)
	require.NoError(t, err)

	code, user := runJWTAuth(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user-2", user)
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	code, _ := runJWTAuth(t, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	token, err := utils.NewAccessToken(testSecret, "user-1", "u@example.com", "ORGANIZER", -time.Minute)
	require.NoError(t, err)

	code, _ := runJWTAuth(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	token, err := utils.NewAccessToken("some-other-secret", "user-1", "u@example.com", "ORGANIZER", time.Hour)
	require.NoError(t, err)

	code, _ := runJWTAuth(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	token, err := utils.NewAccessToken(testSecret, "user-1", "u@example.com", "CUSTOMER", time.Hour)
	require.NoError(t, err)

	code, _ := runJWTAuth(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}, "ORGANIZER")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	token, err := utils.NewAccessToken(testSecret, "user-1", "u@example.com", "ORGANIZER", time.Hour)
	require.NoError(t, err)

	code, user := runJWTAuth(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}, "ORGANIZER")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user-1", user)
}
