package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kidsafe/alphatutor/internal/curriculum"
	"github.com/kidsafe/alphatutor/internal/memory"
)

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var res result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

func TestHealthz_AlwaysOK(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if res := decodeResult(t, rec); res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
}

func TestReadyz_AllChecksPass(t *testing.T) {
	h := New(
		Checker{Name: "a", Check: func(context.Context) error { return nil }},
		Checker{Name: "b", Check: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	res := decodeResult(t, rec)
	if res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
	if res.Checks["a"] != "ok" || res.Checks["b"] != "ok" {
		t.Errorf("checks = %v, want all ok", res.Checks)
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	h := New(
		Checker{Name: "good", Check: func(context.Context) error { return nil }},
		Checker{Name: "bad", Check: func(context.Context) error { return errors.New("boom") }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	res := decodeResult(t, rec)
	if res.Status != "fail" {
		t.Errorf("body status = %q, want fail", res.Status)
	}
	if !strings.HasPrefix(res.Checks["bad"], "fail: ") {
		t.Errorf("bad check = %q, want fail prefix", res.Checks["bad"])
	}
	if res.Checks["good"] != "ok" {
		t.Errorf("good check = %q, want ok", res.Checks["good"])
	}
}

func TestCurriculumChecker(t *testing.T) {
	// The fallback table always has at least one letter.
	store := curriculum.New("")
	if err := CurriculumChecker(store).Check(context.Background()); err != nil {
		t.Errorf("check on loaded store = %v, want nil", err)
	}
}

func TestSessionChecker(t *testing.T) {
	store := memory.New(3)
	store.GetOrCreate("s1")
	store.GetOrCreate("s2")

	if err := SessionChecker(store, 0).Check(context.Background()); err != nil {
		t.Errorf("uncapped check = %v, want nil", err)
	}
	if err := SessionChecker(store, 10).Check(context.Background()); err != nil {
		t.Errorf("under-cap check = %v, want nil", err)
	}
	if err := SessionChecker(store, 2).Check(context.Background()); err == nil {
		t.Error("at-cap check = nil, want error")
	}
}
