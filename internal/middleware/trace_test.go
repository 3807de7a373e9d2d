package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTraceGeneratesID(t *testing.T) {
	var seen string
	handler := Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))

	if seen == "" {
		t.Fatal("trace id missing from context")
	}
	if got := rec.Header().Get(TraceIDHeader); got != seen {
		t.Errorf("header trace id %q does not match context %q", got, seen)
	}
}

func TestTracePropagatesIncomingID(t *testing.T) {
	var seen string
	handler := Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.Header.Set(TraceIDHeader, "abc123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "abc123" {
		t.Errorf("trace id = %q, want abc123", seen)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mk("outer"), mk("inner"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStatusWriterRecords(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newStatusWriter(rec)
	w.WriteHeader(http.StatusServiceUnavailable)
	if _, err := w.Write([]byte("nope")); err != nil {
		t.Fatal(err)
	}

	if w.status != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.status)
	}
	if w.bytes != 4 {
		t.Errorf("bytes = %d, want 4", w.bytes)
	}
}
