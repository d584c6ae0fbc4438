package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-gather/internal/auth"
	"github.com/nerrad567/gray-logic-gather/internal/automation"
	"github.com/nerrad567/gray-logic-gather/internal/bridges/gather"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-gather/internal/settings"
)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

// mockBridge implements SpaceBridge and automation.Space.
type mockBridge struct {
	mu         sync.Mutex
	alone      bool
	present    bool
	connected  bool
	connectErr error
	connects   int
	changes    [][2]gather.Settings
}

func (b *mockBridge) Status() gather.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := "disconnected"
	if b.connected {
		state = "connected"
	}
	return gather.Status{State: state, Connected: b.connected, SpaceID: `abc\office`, Alone: b.alone, Present: b.present}
}

func (b *mockBridge) SettingsChanged(old, updated gather.Settings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, [2]gather.Settings{old, updated})
}

func (b *mockBridge) IsAlone() bool     { return b.alone }
func (b *mockBridge) IsPresent() bool   { return b.present }
func (b *mockBridge) IsConnected() bool { return b.connected }

func (b *mockBridge) Connect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = true
	return nil
}

func (b *mockBridge) Disconnect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

// mockSettings is an in-memory SettingsStore.
type mockSettings struct {
	mu           sync.Mutex
	values       settings.Values
	token        string
	noPassphrase bool
}

func (m *mockSettings) Values(context.Context) (settings.Values, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values, nil
}

func (m *mockSettings) Update(_ context.Context, v settings.Values) (old, updated gather.Settings, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old = gather.Settings{APIKey: m.token, SpaceID: m.values.SpaceID, AvatarName: m.values.AvatarName}
	m.values = v
	updated = gather.Settings{APIKey: m.token, SpaceID: v.SpaceID, AvatarName: v.AvatarName}
	return old, updated, nil
}

func (m *mockSettings) HasToken(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "", nil
}

func (m *mockSettings) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noPassphrase {
		return settings.ErrNoPassphrase
	}
	m.token = token
	return nil
}

func (m *mockSettings) Resolve(context.Context) (gather.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gather.Settings{APIKey: m.token, SpaceID: m.values.SpaceID, AvatarName: m.values.AvatarName}, nil
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// testServer creates a Server wired to mocks and a real card registry.
func testServer(t *testing.T) (*Server, *mockBridge, *mockSettings) {
	t.Helper()

	bridge := &mockBridge{present: true}
	store := &mockSettings{values: settings.Values{SpaceID: `abc\office`, AvatarName: "Ana"}}
	cards := automation.NewRegistry()
	automation.RegisterSpaceCards(cards, bridge)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 15},
		},
		Logger:   testLogger(),
		Bridge:   bridge,
		Cards:    cards,
		Settings: store,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, bridge, store
}

func tokenFor(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateAccessToken("test-"+string(role), role, testJWTSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

// do runs one request through the router. An empty role sends no token.
func do(t *testing.T, srv *Server, method, path, body string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, role))
	}
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without bridge should fail")
	}
}

// ─── Health & Middleware ───────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" || resp["version"] != "test" || resp["gather"] != "disconnected" {
		t.Errorf("health = %v", resp)
	}
}

func TestRequestID(t *testing.T) {
	srv, _, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/health", "", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/space", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q", got)
	}
}

func TestAuth(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nonsense", http.StatusUnauthorized},
		{"valid", "Bearer " + tokenFor(t, auth.RoleViewer), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/space", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.buildRouter().ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuth_QueryToken(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/space?access_token="+tokenFor(t, auth.RoleViewer), nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestPermissions(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		role   auth.Role
		want   int
	}{
		{http.MethodGet, "/api/v1/space", "", auth.RoleViewer, http.StatusOK},
		{http.MethodPost, "/api/v1/actions/disconnect", "", auth.RoleViewer, http.StatusForbidden},
		{http.MethodPost, "/api/v1/actions/disconnect", "", auth.RoleOperator, http.StatusOK},
		{http.MethodGet, "/api/v1/settings", "", auth.RoleOperator, http.StatusForbidden},
		{http.MethodGet, "/api/v1/settings", "", auth.RoleAdmin, http.StatusOK},
		{http.MethodGet, "/api/v1/pairing", "", auth.RoleViewer, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s as %s", tt.method, tt.path, tt.role), func(t *testing.T) {
			if w := do(t, srv, tt.method, tt.path, tt.body, tt.role); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

// ─── Space, Conditions & Actions ───────────────────────────────────

func TestGetSpace(t *testing.T) {
	srv, bridge, _ := testServer(t)
	bridge.connected = true
	bridge.alone = true

	w := do(t, srv, http.MethodGet, "/api/v1/space", "", auth.RoleViewer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	st := decode[gather.Status](t, w)
	if st.State != "connected" || !st.Connected || !st.Alone || !st.Present || st.SpaceID != `abc\office` {
		t.Errorf("status = %+v", st)
	}
}

func TestListCards(t *testing.T) {
	srv, _, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/cards", "", auth.RoleViewer)
	resp := decode[map[string][]automation.Card](t, w)
	if len(resp["triggers"]) != 4 || len(resp["conditions"]) != 3 || len(resp["actions"]) != 2 {
		t.Errorf("cards = %v", resp)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/conditions", "", auth.RoleViewer)
	list := decode[struct {
		Conditions []automation.Card `json:"conditions"`
		Count      int               `json:"count"`
	}](t, w)
	if list.Count != 3 || list.Conditions[0].Name != automation.ConditionAlone {
		t.Errorf("conditions = %+v", list)
	}
}

func TestEvaluateCondition(t *testing.T) {
	srv, bridge, _ := testServer(t)
	bridge.alone = true

	tests := []struct {
		name       string
		wantStatus int
		wantResult bool
	}{
		{automation.ConditionAlone, http.StatusOK, true},
		{automation.ConditionPresent, http.StatusOK, true},
		{automation.ConditionIsConnected, http.StatusOK, false},
		{"on-fire", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodGet, "/api/v1/conditions/"+tt.name, "", auth.RoleViewer)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Code != http.StatusOK {
				return
			}
			resp := decode[conditionResponse](t, w)
			if resp.Name != tt.name || resp.Result != tt.wantResult {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestRunAction(t *testing.T) {
	tests := []struct {
		name       string
		action     string
		body       string
		connectErr error
		wantStatus int
		wantCode   string
	}{
		{name: "connect", action: "connect", wantStatus: http.StatusOK},
		{name: "connect with params", action: "connect", body: `{"reason":"test"}`, wantStatus: http.StatusOK},
		{name: "disconnect", action: "disconnect", wantStatus: http.StatusOK},
		{name: "unknown", action: "teleport", wantStatus: http.StatusNotFound, wantCode: ErrCodeNotFound},
		{name: "bad body", action: "connect", body: "not json", wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{
			name:       "no api key",
			action:     "connect",
			connectErr: fmt.Errorf("%w: no API key found", gather.ErrConfiguration),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "realtime failure",
			action:     "connect",
			connectErr: fmt.Errorf("connecting to space: handshake refused"),
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, bridge, _ := testServer(t)
			bridge.connectErr = tt.connectErr

			w := do(t, srv, http.MethodPost, "/api/v1/actions/"+tt.action, tt.body, auth.RoleOperator)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if e := decode[Error](t, w); e.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
				}
				return
			}
			resp := decode[actionResponse](t, w)
			if resp.Action != tt.action || resp.Status != "accepted" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

// ─── Pairing & Settings ────────────────────────────────────────────

func TestPairing(t *testing.T) {
	srv, bridge, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/pairing", "", auth.RoleAdmin)
	if resp := decode[pairingResponse](t, w); resp.HasToken {
		t.Error("has_token = true before pairing")
	}

	w = do(t, srv, http.MethodPost, "/api/v1/pairing/token", `{"token":"  key-123 "}`, auth.RoleAdmin)
	if w.Code != http.StatusOK {
		t.Fatalf("save token status = %d (%s)", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "key-123") {
		t.Error("response echoes the token")
	}

	w = do(t, srv, http.MethodGet, "/api/v1/pairing", "", auth.RoleAdmin)
	if resp := decode[pairingResponse](t, w); !resp.HasToken {
		t.Error("has_token = false after pairing")
	}

	if len(bridge.changes) != 1 {
		t.Fatalf("SettingsChanged calls = %d, want 1", len(bridge.changes))
	}
	keys := gather.ChangedKeys(bridge.changes[0][0], bridge.changes[0][1])
	if len(keys) != 1 || keys[0] != "api_key" {
		t.Errorf("changed keys = %v", keys)
	}
	if bridge.changes[0][1].APIKey != "key-123" {
		t.Error("token was not trimmed")
	}
}

func TestSaveToken_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		noPassphrase bool
		want         int
	}{
		{"empty", `{"token":"  "}`, false, http.StatusUnprocessableEntity},
		{"bad json", `{`, false, http.StatusBadRequest},
		{"no passphrase", `{"token":"key"}`, true, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, bridge, store := testServer(t)
			store.noPassphrase = tt.noPassphrase

			w := do(t, srv, http.MethodPost, "/api/v1/pairing/token", tt.body, auth.RoleAdmin)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if len(bridge.changes) != 0 {
				t.Error("SettingsChanged called on failure")
			}
		})
	}
}

func TestSettings(t *testing.T) {
	srv, bridge, store := testServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/settings", "", auth.RoleAdmin)
	got := decode[settings.Values](t, w)
	if got.SpaceID != `abc\office` || got.AvatarName != "Ana" {
		t.Errorf("settings = %+v", got)
	}

	w = do(t, srv, http.MethodPut, "/api/v1/settings",
		`{"space_id":" https://app.gather.town/app/xyz/lab ","avatar_name":"Ana"}`, auth.RoleAdmin)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d (%s)", w.Code, w.Body.String())
	}
	resp := decode[settingsResponse](t, w)
	if len(resp.ChangedKeys) != 1 || resp.ChangedKeys[0] != "space_id" {
		t.Errorf("changed_keys = %v", resp.ChangedKeys)
	}
	if store.values.SpaceID != "https://app.gather.town/app/xyz/lab" {
		t.Errorf("stored space id = %q", store.values.SpaceID)
	}
	if len(bridge.changes) != 1 {
		t.Errorf("SettingsChanged calls = %d, want 1", len(bridge.changes))
	}

	w = do(t, srv, http.MethodPut, "/api/v1/settings", "not json", auth.RoleAdmin)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	srv, _, _ := testServer(t)
	if w := do(t, srv, http.MethodGet, "/api/v1/nonexistent", "", auth.RoleAdmin); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartClose(t *testing.T) {
	srv, _, _ := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck before Start should fail")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
