package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func userEcho() (*gin.Engine, *string) {
	r := newEngine()
	var got string
	r.Use(RequireUser())
	r.GET("/whoami", func(c *gin.Context) {
		got = UserIDFrom(c)
		c.String(http.StatusOK, got)
	})
	return r, &got
}

func TestRequireUserMissingHeader(t *testing.T) {
	r, _ := userEcho()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unauthorized") {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestRequireUserValid(t *testing.T) {
	r, got := userEcho()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderUserID, "user-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if *got != "user-123" {
		t.Fatalf("UserIDFrom = %q", *got)
	}
}

func TestRequireUserInvalid(t *testing.T) {
	cases := []string{
		"has space",
		"semi;colon",
		strings.Repeat("a", maxUserIDLen+1),
	}
	for _, uid := range cases {
		r, _ := userEcho()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(HeaderUserID, uid)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("uid %q: status = %d, want 400", uid, w.Code)
		}
	}
}

func TestUserIDFromWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := UserIDFrom(c); got != "" {
		t.Fatalf("UserIDFrom = %q, want empty", got)
	}
}
