package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ferro-labs/faceslots"
	"github.com/ferro-labs/faceslots/chooser"
	"github.com/ferro-labs/faceslots/internal/ratelimit"
	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/slots"
)

type fakeCoordinator struct {
	mu       sync.Mutex
	snap     faceslots.Snapshot
	err      error
	selected []slots.Location
}

func (f *fakeCoordinator) Snapshot(context.Context) (faceslots.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.err
}

func (f *fakeCoordinator) Select(_ context.Context, loc slots.Location) (chooser.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if loc == slots.Background {
		return "", fmt.Errorf("%w: %s", faceslots.ErrSlotUnsupported, loc)
	}
	f.selected = append(f.selected, loc)
	return chooser.Token(fmt.Sprintf("tok-%d", len(f.selected))), nil
}

type fakeSessions struct {
	completed map[chooser.Token]*providers.Info
}

func (f *fakeSessions) Complete(token chooser.Token, provider *providers.Info) error {
	if token != "known" {
		return fmt.Errorf("%w: %s", chooser.ErrUnknownSession, token)
	}
	f.completed[token] = provider
	return nil
}

func setupTestRouter(token string) (*Handlers, *fakeCoordinator, *fakeSessions, http.Handler) {
	coord := &fakeCoordinator{snap: faceslots.Snapshot{
		WatchFace: "face",
		Slots: []faceslots.SlotStatus{
			{Location: slots.Left, ID: 0, State: faceslots.StateBound, Provider: &providers.Info{Name: "battery", Component: "c/.Battery"}},
			{Location: slots.Right, ID: 1, State: faceslots.StateUnknown},
		},
	}}
	sessions := &fakeSessions{completed: map[chooser.Token]*providers.Info{}}
	h := &Handlers{
		Coordinator: coord,
		Sessions:    sessions,
		Providers:   providers.NewCatalog(providers.Info{Name: "battery", Component: "c/.Battery"}),
		Token:       token,
	}
	return h, coord, sessions, NewRouter(h)
}

func do(t *testing.T, r http.Handler, method, url, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestListSlots(t *testing.T) {
	_, _, _, r := setupTestRouter("")
	w := do(t, r, http.MethodGet, "/v1/slots", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var snap faceslots.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Slots) != 2 || snap.Slots[0].Location != slots.Left || snap.Slots[0].State != faceslots.StateBound {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Slots[1].Provider != nil {
		t.Errorf("unknown slot should have no provider, got %v", snap.Slots[1].Provider)
	}
}

func TestListSlots_NotRunning(t *testing.T) {
	_, coord, _, r := setupTestRouter("")
	coord.err = faceslots.ErrNotRunning
	w := do(t, r, http.MethodGet, "/v1/slots", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestSelectSlot(t *testing.T) {
	_, coord, _, r := setupTestRouter("")
	w := do(t, r, http.MethodPost, "/v1/slots/LEFT/select", "", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp selectResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token != "tok-1" || resp.Location != slots.Left {
		t.Errorf("response = %+v", resp)
	}
	if len(coord.selected) != 1 || coord.selected[0] != slots.Left {
		t.Errorf("selected = %v", coord.selected)
	}
}

func TestSelectSlot_NotFound(t *testing.T) {
	_, _, _, r := setupTestRouter("")
	tests := []struct {
		path string
		code string
	}{
		{"/v1/slots/center/select", "slot_not_found"},
		{"/v1/slots/background/select", "slot_not_supported"},
	}
	for _, tt := range tests {
		w := do(t, r, http.MethodPost, tt.path, "", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", tt.path, w.Code)
			continue
		}
		if got := errorCode(t, w); got != tt.code {
			t.Errorf("%s: code = %q, want %q", tt.path, got, tt.code)
		}
	}
}

func TestSelectSlot_RateLimited(t *testing.T) {
	h, _, _, _ := setupTestRouter("")
	h.Limiter = ratelimit.NewStore(0.001, 1)
	r := NewRouter(h)

	if w := do(t, r, http.MethodPost, "/v1/slots/left/select", "", ""); w.Code != http.StatusAccepted {
		t.Fatalf("first select: expected 202, got %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/v1/slots/left/select", "", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second select: expected 429, got %d", w.Code)
	}
	// Reads are not limited.
	if w := do(t, r, http.MethodGet, "/v1/slots", "", ""); w.Code != http.StatusOK {
		t.Errorf("list slots: expected 200, got %d", w.Code)
	}
}

func TestCompleteSession(t *testing.T) {
	_, _, sessions, r := setupTestRouter("secret")

	// The callback is not behind the bearer token.
	w := do(t, r, http.MethodPost, "/v1/chooser/sessions/known", `{"provider":{"name":"weather","component":"c/.Weather"}}`, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if got := sessions.completed["known"]; got == nil || got.Name != "weather" {
		t.Errorf("completed provider = %v", got)
	}
}

func TestCompleteSession_Cancelled(t *testing.T) {
	_, _, sessions, r := setupTestRouter("")
	w := do(t, r, http.MethodPost, "/v1/chooser/sessions/known", `{"provider":null}`, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got, ok := sessions.completed["known"]; !ok || got != nil {
		t.Errorf("completed = %v (present=%v), want cancel", got, ok)
	}
}

func TestCompleteSession_Errors(t *testing.T) {
	_, _, _, r := setupTestRouter("")
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown token", "/v1/chooser/sessions/nope", `{"provider":null}`, http.StatusNotFound},
		{"bad json", "/v1/chooser/sessions/known", `{`, http.StatusBadRequest},
		{"incomplete provider", "/v1/chooser/sessions/known", `{"provider":{"name":"x"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.path, tt.body, "")
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestCompleteSession_LocalChooser(t *testing.T) {
	h, _, _, _ := setupTestRouter("")
	h.Sessions = nil
	w := do(t, NewRouter(h), http.MethodPost, "/v1/chooser/sessions/known", `{"provider":null}`, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListProviders(t *testing.T) {
	_, _, _, r := setupTestRouter("")
	w := do(t, r, http.MethodGet, "/v1/providers", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data []providers.Info `json:"data"`
	}
	_ = json.NewDecoder(w.Body).Decode(&body)
	if len(body.Data) != 1 || body.Data[0].Name != "battery" {
		t.Errorf("providers = %+v", body.Data)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, _, _, r := setupTestRouter("secret")

	if w := do(t, r, http.MethodGet, "/v1/slots", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	} else if got := errorCode(t, w); got != "missing_token" {
		t.Errorf("no token: code = %q", got)
	}
	if w := do(t, r, http.MethodGet, "/v1/slots", "", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/v1/slots", "", "secret"); w.Code != http.StatusOK {
		t.Errorf("right token: expected 200, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health must stay public, got %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	_, coord, _, r := setupTestRouter("")
	w := do(t, r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}

	coord.err = errors.New("stopped")
	w = do(t, r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the coordinator is down, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, _, r := setupTestRouter("")
	w := do(t, r, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "faceslots_") {
		t.Error("metrics output should include faceslots metrics")
	}
}
