package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type idemProbe struct {
	key    string
	hasKey bool
	replay bool
	bypass bool
}

func idemEngine(lookup IdempotencyLookup) (*gin.Engine, *idemProbe) {
	r := newEngine()
	probe := &idemProbe{}
	r.Use(RequireUser())
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/identify", func(c *gin.Context) {
		probe.key, probe.hasKey = GetIdempotencyKey(c)
		probe.replay = IsReplay(c)
		probe.bypass = IsRateBypass(c)
		c.Status(http.StatusOK)
	})
	return r, probe
}

func postIdentify(r *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/identify", nil)
	req.Header.Set(HeaderUserID, "user-1")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyNoHeaderIsNoop(t *testing.T) {
	r, probe := idemEngine(nil)
	w := postIdentify(r, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if probe.hasKey || probe.replay || probe.bypass {
		t.Fatalf("probe = %+v, want all unset", probe)
	}
}

func TestIdempotencyValidKeyStashed(t *testing.T) {
	r, probe := idemEngine(nil)
	w := postIdentify(r, "retry-abc.123")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !probe.hasKey || probe.key != "retry-abc.123" {
		t.Fatalf("key = %q (has=%v)", probe.key, probe.hasKey)
	}
	if probe.replay {
		t.Fatal("replay should be false without a lookup hit")
	}
}

func TestIdempotencyInvalidKeyRejected(t *testing.T) {
	cases := []string{
		"bad key with spaces",
		"emoji-🔥",
		strings.Repeat("k", 201),
	}
	for _, key := range cases {
		r, _ := idemEngine(nil)
		w := postIdentify(r, key)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status = %d, want 400", key, w.Code)
		}
	}
}

func TestIdempotencyReplayDetected(t *testing.T) {
	var gotUser, gotKey string
	lookup := func(_ context.Context, userID, key string, _ time.Time) (bool, error) {
		gotUser, gotKey = userID, key
		return true, nil
	}
	r, probe := idemEngine(lookup)
	w := postIdentify(r, "retry-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotUser != "user-1" || gotKey != "retry-1" {
		t.Fatalf("lookup saw (%q, %q)", gotUser, gotKey)
	}
	if !probe.replay || !probe.bypass {
		t.Fatalf("probe = %+v, want replay and bypass set", probe)
	}
}

func TestIdempotencyLookupErrorDoesNotBlock(t *testing.T) {
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		return false, context.DeadlineExceeded
	}
	r, probe := idemEngine(lookup)
	w := postIdentify(r, "retry-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, lookup failures must not block", w.Code)
	}
	if probe.replay {
		t.Fatal("failed lookup must not mark a replay")
	}
}
