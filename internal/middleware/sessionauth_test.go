package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticResolver map[string]string

func (r staticResolver) Resolve(token string) (string, bool) {
	user, ok := r[token]
	return user, ok
}

func protected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seenUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return SessionAuth(staticResolver{"tok-1": "alice"})(inner), &seenUser
}

func TestSessionAuth_Cookie(t *testing.T) {
	h, seenUser := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if *seenUser != "alice" {
		t.Errorf("user in context = %q; want alice", *seenUser)
	}
}

func TestSessionAuth_BearerHeader(t *testing.T) {
	h, seenUser := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if *seenUser != "alice" {
		t.Errorf("user in context = %q; want alice", *seenUser)
	}
}

func TestSessionAuth_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"no token", func(*http.Request) {}},
		{"unknown token", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
		}},
		{"non-bearer header", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic abc")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := protected(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d; want 401", rec.Code)
			}
		})
	}
}

func TestSessionAuth_CookieBeatsHeader(t *testing.T) {
	h, seenUser := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-1"})
	req.Header.Set("Authorization", "Bearer other")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || *seenUser != "alice" {
		t.Errorf("status=%d user=%q; cookie should take precedence", rec.Code, *seenUser)
	}
}

func TestGetUserFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserFromContext(req.Context()); got != "" {
		t.Errorf("GetUserFromContext = %q; want empty", got)
	}
}
