package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/metrics"
	"grocermate/backend/internal/service"
	"grocermate/backend/internal/store/sqlstore"
)

const (
	testSecret          = "0123456789abcdef0123456789abcdef"
	testManagerPassword = "manager-pass-1"
)

type testEnv struct {
	api     *API
	handler http.Handler
	repo    *sqlstore.Store
	auth    *AuthManager
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	m := metrics.New()
	svc := service.New(repo, service.Options{Metrics: m, RetryBackoff: -1})
	auth := NewAuthManager(testSecret, time.Hour, repo)
	if err := auth.BootstrapManager(context.Background(), "manager", testManagerPassword); err != nil {
		t.Fatalf("bootstrap manager: %v", err)
	}
	api := New(svc, auth, m, "http://127.0.0.1:3000")
	return &testEnv{api: api, handler: api.Handler(), repo: repo, auth: auth, metrics: m}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details map[string]any  `json:"details"`
}

func (e *testEnv) do(t *testing.T, method string, path string, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func (e *testEnv) login(t *testing.T, username string, password string) string {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s failed: %d %s", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken
}

func (e *testEnv) managerToken(t *testing.T) string {
	t.Helper()
	return e.login(t, "manager", testManagerPassword)
}

func (e *testEnv) employeeToken(t *testing.T) string {
	t.Helper()
	_, err := e.auth.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "till1",
		FullName: "Till One",
		Password: "till-pass-1",
		Role:     domain.RoleEmployee,
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return e.login(t, "till1", "till-pass-1")
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", string(env.Data), err)
	}
	return out
}
