package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	userstore "userrealm/contexts/identity-access/userstore-service"
)

const testPrefix = "/api/userstore/v1"

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(userstore.NewInMemoryModule(logger), logger, ":0")
}

func do(t *testing.T, server *Server, method string, path string, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-Id", actor)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func addUser(t *testing.T, server *Server, username string, password string, groups ...string) {
	t.Helper()
	rr := do(t, server, http.MethodPost, testPrefix+"/users", "admin", map[string]any{
		"username": username,
		"password": password,
		"groups":   groups,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add user %s: expected 201, got %d body=%s", username, rr.Code, rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer()
	rr := do(t, server, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestMutationsRequireActor(t *testing.T) {
	server := newTestServer()
	rr := do(t, server, http.MethodPost, testPrefix+"/users", "", map[string]any{
		"username": "alice",
		"password": "secret-1",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("actor_required")) {
		t.Fatalf("expected actor_required code, got %s", rr.Body.String())
	}
}

func TestAddAndGetUser(t *testing.T) {
	server := newTestServer()
	addUser(t, server, "alice", "secret-1")

	rr := do(t, server, http.MethodGet, testPrefix+"/users/alice", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var user struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Username != "alice" || user.UserID == "" {
		t.Fatalf("unexpected user %+v", user)
	}

	rr = do(t, server, http.MethodPost, testPrefix+"/users", "admin", map[string]any{
		"username": "alice",
		"password": "secret-2",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate user, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGetUnknownUserIsNotFound(t *testing.T) {
	server := newTestServer()
	rr := do(t, server, http.MethodGet, testPrefix+"/users/ghost", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestInvalidUsernameIsBadRequest(t *testing.T) {
	server := newTestServer()
	rr := do(t, server, http.MethodPost, testPrefix+"/users", "admin", map[string]any{
		"username": "a b",
		"password": "secret-1",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAuthenticateAndLockout(t *testing.T) {
	server := newTestServer()
	addUser(t, server, "bob", "secret-1")

	rr := do(t, server, http.MethodPost, testPrefix+"/authenticate", "", map[string]string{
		"username": "bob",
		"password": "secret-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	for i := 0; i < 5; i++ {
		rr = do(t, server, http.MethodPost, testPrefix+"/authenticate", "", map[string]string{
			"username": "bob",
			"password": "wrong-pass",
		})
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d body=%s", i+1, rr.Code, rr.Body.String())
		}
	}

	rr = do(t, server, http.MethodPost, testPrefix+"/authenticate", "", map[string]string{
		"username": "bob",
		"password": "secret-1",
	})
	if rr.Code != http.StatusLocked {
		t.Fatalf("expected 423 after lockout, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReservedPrincipalsAreForbidden(t *testing.T) {
	server := newTestServer()
	if err := server.userstore.Service.EnsureAdmin(t.Context(), "admin-pass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	rr := do(t, server, http.MethodDelete, testPrefix+"/users/admin", "root", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 deleting admin, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, server, http.MethodDelete, testPrefix+"/groups/Internal%2Feveryone", "root", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 deleting everyone group, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGroupLifecycle(t *testing.T) {
	server := newTestServer()
	addUser(t, server, "carol", "secret-1")
	addUser(t, server, "dave", "secret-1")

	rr := do(t, server, http.MethodPost, testPrefix+"/groups", "admin", map[string]any{
		"name":  "staff",
		"users": []string{"carol"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, server, http.MethodPatch, testPrefix+"/groups/staff/users", "admin", map[string]any{
		"added_users":   []string{"dave"},
		"deleted_users": []string{"carol"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, server, http.MethodPut, testPrefix+"/groups/staff/name", "admin", map[string]string{"new_name": "crew"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on rename, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, server, http.MethodGet, testPrefix+"/groups/crew/users", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var members struct {
		Users []string `json:"users"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &members); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(members.Users) != 1 || members.Users[0] != "dave" {
		t.Fatalf("expected [dave], got %v", members.Users)
	}

	rr = do(t, server, http.MethodGet, testPrefix+"/users/dave/groups", "", nil)
	if !bytes.Contains(rr.Body.Bytes(), []byte("Internal/everyone")) {
		t.Fatalf("expected implicit everyone group, got %s", rr.Body.String())
	}
}

func TestClaimsRoundTrip(t *testing.T) {
	server := newTestServer()
	addUser(t, server, "erin", "secret-1")

	rr := do(t, server, http.MethodPut, testPrefix+"/users/erin/claims", "admin", map[string]any{
		"claims": map[string]string{"http://wso2.org/claims/email": "erin@example.com"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, server, http.MethodDelete, testPrefix+"/users/erin/claims?claim=http%3A%2F%2Fwso2.org%2Fclaims%2Femail", "admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, server, http.MethodGet, testPrefix+"/users/erin/claims", "", nil)
	if bytes.Contains(rr.Body.Bytes(), []byte("erin@example.com")) {
		t.Fatalf("expected claim removed, got %s", rr.Body.String())
	}
}
