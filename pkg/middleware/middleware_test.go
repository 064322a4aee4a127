package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/recipient"
)

var signingKey = []byte("middleware-test-key")

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	enforcer, err := NewEnforcer()
	require.NoError(t, err)

	e := echo.New()
	SetupMiddleware(e, []string{"http://localhost:5173"}, zap.NewNop())
	api := e.Group("/api", JWTMiddleware(signingKey), CasbinMiddleware(enforcer, zap.NewNop()))

	ok := func(c echo.Context) error {
		id, _ := auth.IdentityFrom(c)
		return c.String(http.StatusOK, id.UserID)
	}
	api.GET("/notifications/my", ok)
	api.POST("/notifications/send", ok)
	api.GET("/notifications/stats", ok)
	api.DELETE("/notifications/:id", ok)
	api.GET("/audit-logs", ok)
	return e
}

func bearer(t *testing.T, role recipient.Role) string {
	t.Helper()
	token, err := auth.GenerateJWT(signingKey, auth.Identity{UserID: "user-" + string(role), Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(e *echo.Echo, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestJWTMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/notifications/my", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeError(t, rec).Code)

	rec = do(e, http.MethodGet, "/api/notifications/my", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/api/notifications/my", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACMatrix(t *testing.T) {
	e := newTestServer(t)
	cases := []struct {
		role   recipient.Role
		method string
		path   string
		want   int
	}{
		{recipient.RoleStudent, http.MethodGet, "/api/notifications/my", http.StatusOK},
		{recipient.RoleStudent, http.MethodDelete, "/api/notifications/65f000000000000000000001", http.StatusOK},
		{recipient.RoleStudent, http.MethodPost, "/api/notifications/send", http.StatusForbidden},
		{recipient.RoleStudent, http.MethodGet, "/api/notifications/stats", http.StatusForbidden},
		{recipient.RoleStaff, http.MethodPost, "/api/notifications/send", http.StatusOK},
		{recipient.RoleFaculty, http.MethodPost, "/api/notifications/send", http.StatusOK},
		{recipient.RoleFaculty, http.MethodGet, "/api/audit-logs", http.StatusForbidden},
		{recipient.RoleAdmin, http.MethodPost, "/api/notifications/send", http.StatusOK},
		{recipient.RoleAdmin, http.MethodGet, "/api/notifications/stats", http.StatusOK},
		{recipient.RoleAdmin, http.MethodGet, "/api/audit-logs", http.StatusOK},
		{recipient.RoleAdmin, http.MethodGet, "/api/notifications/my", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s %s %s", tc.role, tc.method, tc.path), func(t *testing.T) {
			rec := do(e, tc.method, tc.path, bearer(t, tc.role))
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusForbidden {
				assert.Equal(t, "forbidden", decodeError(t, rec).Code)
			}
		})
	}
}

func TestUnknownAPIPathIsNotFound(t *testing.T) {
	e := newTestServer(t)

	for _, role := range []recipient.Role{recipient.RoleStudent, recipient.RoleAdmin} {
		rec := do(e, http.MethodGet, "/api/nope", bearer(t, role))
		assert.Equal(t, http.StatusNotFound, rec.Code, role)
		assert.Equal(t, "not_found", decodeError(t, rec).Code)
	}

	rec := do(e, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e, nil, zap.NewNop())
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := do(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Code)
}

func TestRenderMapsErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
		{fmt.Errorf("%w: none", apperr.ErrNoRecipientsFound), http.StatusBadRequest, "no_recipients_found"},
		{apperr.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: disk full", apperr.ErrPersistence), http.StatusInternalServerError, "persistence_failure"},
		{errors.New("surprise"), http.StatusInternalServerError, "internal_error"},
		{echo.NewHTTPError(http.StatusBadRequest, "bad json"), http.StatusBadRequest, "validation_error"},
		{echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed"},
	}
	for _, tc := range cases {
		status, body := render(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, body.Code, tc.err.Error())
	}

	status, body := render(&apperr.ValidationError{Field: "title", Message: "failed on 'required' validation"})
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "title", body.Details[0].Field)

	_, body = render(fmt.Errorf("%w: mongo: connection refused on 10.0.0.4", apperr.ErrPersistence))
	assert.NotContains(t, body.Message, "10.0.0.4")
}
