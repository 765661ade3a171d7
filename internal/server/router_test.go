package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/loykin/converge/internal/controller"
	"github.com/loykin/converge/internal/deplink"
	"github.com/loykin/converge/internal/store"
)

func setupRouter(t *testing.T, base string) (http.Handler, *deplink.MemChannel) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ch := deplink.NewMemChannel()
	link := deplink.NewDatabase(deplink.Config{Name: "database", Mandatory: true}, ch)
	links := []deplink.Link{link}

	ctrl := controller.New(controller.Config{
		Instance: "converge-0",
		Store:    store.NewMemoryStore(),
		Links:    links,
	})
	feeder := &chanFeeder{channels: map[string]*deplink.MemChannel{"database": ch}}
	r := NewRouter(ctrl, links, feeder, base)
	return r.Handler(), ch
}

type chanFeeder struct {
	channels map[string]*deplink.MemChannel
}

func (f *chanFeeder) Feed(name string, values map[string]string) error {
	ch, ok := f.channels[name]
	if !ok {
		return errors.New("unknown dependency " + name)
	}
	ch.Set(deplink.ScopeRemoteApp, values)
	return nil
}

func doReq(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReconcileEndpoint(t *testing.T) {
	h, _ := setupRouter(t, "/abc")

	rec := doReq(t, h, http.MethodPost, "/abc/reconcile?trigger=install")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		State        string `json:"state"`
		Message      string `json:"message"`
		Bootstrapped bool   `json:"bootstrapped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "blocked" || !strings.Contains(resp.Message, "integration missing: database") {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Bootstrapped {
		t.Fatal("bootstrapped before dependencies ready")
	}
}

func TestReconcileBecomesActive(t *testing.T) {
	h, ch := setupRouter(t, "")
	ch.Set(deplink.ScopeRemoteApp, map[string]string{
		"endpoints": "db.local:3306",
		"username":  "app",
		"password":  "secret",
	})

	rec := doReq(t, h, http.MethodPost, "/reconcile")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"state":"active"`) {
		t.Fatalf("expected active state: %s", rec.Body.String())
	}

	rec = doReq(t, h, http.MethodGet, "/status")
	if !strings.Contains(rec.Body.String(), `"bootstrapped":true`) {
		t.Fatalf("expected bootstrapped status: %s", rec.Body.String())
	}
}

func TestReconcileRejectsBadTrigger(t *testing.T) {
	h, _ := setupRouter(t, "")
	rec := doReq(t, h, http.MethodPost, "/reconcile?trigger=a%20b")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusBeforeAnyPass(t *testing.T) {
	h, _ := setupRouter(t, "")
	rec := doReq(t, h, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no status set yet") {
		t.Fatalf("unexpected initial status: %s", rec.Body.String())
	}
}

func TestSummaryAndDeps(t *testing.T) {
	h, _ := setupRouter(t, "")

	rec := doReq(t, h, http.MethodGet, "/summary")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "run") {
		t.Fatalf("unexpected summary: %d %s", rec.Code, rec.Body.String())
	}

	rec = doReq(t, h, http.MethodGet, "/deps")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var deps []struct {
		Name  string `json:"name"`
		Ready bool   `json:"ready"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &deps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(deps) != 1 || deps[0].Name != "database" || deps[0].Ready {
		t.Fatalf("unexpected deps %+v", deps)
	}
}

func TestFeedDep(t *testing.T) {
	h, _ := setupRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/deps/database",
		strings.NewReader(`{"endpoints":"db.local:3306","username":"app","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doReq(t, h, http.MethodPost, "/reconcile?trigger=database-changed")
	if !strings.Contains(rec.Body.String(), `"state":"active"`) {
		t.Fatalf("expected active after feed: %s", rec.Body.String())
	}

	rec = doReq(t, h, http.MethodPost, "/deps/ghost")
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Fatalf("expected error for unknown dependency, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h, _ := setupRouter(t, "/api")
	rec := doReq(t, h, http.MethodGet, "/api/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
