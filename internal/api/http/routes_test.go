package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-screen/internal/common"
	"github.com/i474232898/forecast-screen/internal/prefs"
	"github.com/i474232898/forecast-screen/internal/session"
	"github.com/i474232898/forecast-screen/internal/weather"
)

type stubClient struct {
	mu      sync.Mutex
	cities  []string
	queries []string
}

func (s *stubClient) Search(_ context.Context, query string) ([]weather.LocationSuggestion, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return []weather.LocationSuggestion{{ID: 42, Name: "Tokyo", Country: "Japan"}}, nil
}

func (s *stubClient) Forecast(_ context.Context, city string, _ int) (weather.ForecastSnapshot, error) {
	s.mu.Lock()
	s.cities = append(s.cities, city)
	s.mu.Unlock()
	return weather.ForecastSnapshot{
		LocationName: city,
		CountryName:  "Somewhere",
		Current:      &weather.CurrentConditions{TemperatureC: common.Float(21)},
	}, nil
}

type testServer struct {
	app   *fiber.App
	reg   *Registry
	store *prefs.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := prefs.NewMemoryStore()
	reg := NewRegistry(&stubClient{}, store, session.Config{Debounce: 10 * time.Millisecond})
	t.Cleanup(reg.Close)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, reg)
	return &testServer{app: app, reg: reg, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (s *testServer) create(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/v1/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		t.Fatalf("bad create response %s: %v", body, err)
	}
	return out.ID
}

func (s *testServer) wait(t *testing.T, id string) {
	t.Helper()
	ctrl, err := s.reg.Get(id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	ctrl.Wait()
}

type stateBody struct {
	Content     string                       `json:"content"`
	City        string                       `json:"city"`
	LastError   string                       `json:"lastError"`
	SearchOpen  bool                         `json:"searchOpen"`
	Suggestions []weather.LocationSuggestion `json:"suggestions"`
	Snapshot    weather.ForecastSnapshot     `json:"snapshot"`
}

func decodeState(t *testing.T, body []byte) stateBody {
	t.Helper()
	var st stateBody
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode state %s: %v", body, err)
	}
	return st
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/sessions/nope"},
		{http.MethodPost, "/api/v1/sessions/nope/search/open"},
		{http.MethodDelete, "/api/v1/sessions/nope"},
	} {
		resp, body := srv.do(t, tc.method, tc.path, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, resp.StatusCode)
		}
		var e struct {
			Error   bool   `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &e); err != nil || !e.Error || e.Message != "session not found" {
			t.Fatalf("unexpected error body %s", body)
		}
	}
}

func TestCreateLoadsDefaultCity(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t)
	srv.wait(t, id)

	resp, body := srv.do(t, http.MethodGet, "/api/v1/sessions/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	st := decodeState(t, body)
	if st.Content != "displaying" || st.City != "Manila" || st.Snapshot.LocationName != "Manila" {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.LastError != "none" {
		t.Fatalf("expected no error, got %q", st.LastError)
	}
}

func TestSearchAndSelect(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t)
	srv.wait(t, id)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/search/toggle", "")
	if resp.StatusCode != http.StatusOK || !decodeState(t, body).SearchOpen {
		t.Fatalf("expected panel open, got %d %s", resp.StatusCode, body)
	}

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/search/query", `{"query":"tok"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, body = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id, "")
		if len(decodeState(t, body).Suggestions) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("suggestions never arrived: %s", body)
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, body = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/select", `{"id":42,"name":"Tokyo","country":"Japan"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if st := decodeState(t, body); st.SearchOpen || len(st.Suggestions) != 0 {
		t.Fatalf("selection should close the panel, got %+v", st)
	}
	srv.wait(t, id)

	_, body = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id, "")
	if st := decodeState(t, body); st.City != "Tokyo" || st.Snapshot.LocationName != "Tokyo" {
		t.Fatalf("expected Tokyo displayed, got %+v", st)
	}
	if city, err := srv.store.Get(context.Background(), prefs.LastCityKey); err != nil || city != "Tokyo" {
		t.Fatalf("expected Tokyo persisted, got %q (%v)", city, err)
	}
}

func TestQueryValidation(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t)

	long := `{"query":"` + strings.Repeat("a", 101) + `"}`
	resp, _ := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/search/query", long)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/select", `{"name":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t)

	resp, _ := srv.do(t, http.MethodDelete, "/api/v1/sessions/"+id, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if srv.reg.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", srv.reg.Len())
	}

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestSweepClosesIdleSessions(t *testing.T) {
	srv := newTestServer(t)

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	srv.reg.now = func() time.Time { return now }

	stale := srv.create(t)
	now = now.Add(20 * time.Minute)
	fresh := srv.create(t)
	now = now.Add(15 * time.Minute)

	if n := srv.reg.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected one idle session closed, got %d", n)
	}
	if _, err := srv.reg.Get(stale); err != ErrSessionNotFound {
		t.Fatalf("expected stale session gone, got %v", err)
	}
	if _, err := srv.reg.Get(fresh); err != nil {
		t.Fatalf("expected fresh session kept, got %v", err)
	}
}
