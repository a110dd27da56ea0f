package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-storefront/internal/users"
)

func TestIssueParse(t *testing.T) {
	m := NewManager("s3cret", time.Hour)

	token, err := m.Issue("u1", "a@example.com", "Aina", users.RoleAdmin)
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}

func TestParse_Rejects(t *testing.T) {
	m := NewManager("s3cret", time.Hour)
	token, err := m.Issue("u1", "", "", users.RoleCustomer)
	require.NoError(t, err)

	_, err = NewManager("other", time.Hour).Parse(token)
	assert.Error(t, err, "wrong secret")

	expired := NewManager("s3cret", time.Hour)
	expired.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.Error(t, err, "expired")

	noSubject, err := m.Issue("", "", "", "")
	require.NoError(t, err)
	_, err = m.Parse(noSubject)
	assert.Error(t, err, "missing subject")

	_, err = m.Parse("not-a-token")
	assert.Error(t, err)
}

func newRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := func(c *gin.Context) {
		claims, ok := FromContext(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.UserID())
	}
	r.GET("/optional", m.Optional(), handler)
	r.GET("/user", m.Require(), handler)
	r.GET("/admin", m.RequireAdmin(), handler)
	return r
}

func do(r http.Handler, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	m := NewManager("s3cret", time.Hour)
	r := newRouter(m)
	customer, err := m.Issue("u1", "", "", users.RoleCustomer)
	require.NoError(t, err)
	admin, err := m.Issue("a1", "", "", users.RoleAdmin)
	require.NoError(t, err)

	bearer := func(tok string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
	}
	cookie := func(tok string) func(*http.Request) {
		return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: tok}) }
	}

	cases := []struct {
		name   string
		path   string
		mutate func(*http.Request)
		code   int
		body   string
	}{
		{"optional anonymous", "/optional", nil, http.StatusOK, "anonymous"},
		{"optional garbage", "/optional", bearer("junk"), http.StatusOK, "anonymous"},
		{"optional bearer", "/optional", bearer(customer), http.StatusOK, "u1"},
		{"user missing", "/user", nil, http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"user cookie", "/user", cookie(customer), http.StatusOK, "u1"},
		{"admin as customer", "/admin", bearer(customer), http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"admin", "/admin", cookie(admin), http.StatusOK, "a1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.path, tc.mutate)
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		})
	}
}
