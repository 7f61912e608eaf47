package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/codetrail/tracker/internal/auth"
	"github.com/codetrail/tracker/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token manager: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(store, tokens, logger, "*")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON issues a request with an optional bearer token and JSON body, and
// decodes the response body into a generic map.
func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	var decoded map[string]any
	if len(raw) > 0 && json.Unmarshal(raw, &decoded) != nil {
		// Arrays decode to nil here; callers that need them use doJSONList
		decoded = nil
	}
	return resp.StatusCode, decoded
}

func doJSONList(t *testing.T, ts *httptest.Server, path, token string) (int, []map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode list response: %v", err)
	}
	return resp.StatusCode, decoded
}

func registerUser(t *testing.T, ts *httptest.Server, email, name string) string {
	t.Helper()

	status, body := doJSON(t, ts, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"name":     name,
		"password": "hunter22",
	})
	if status != http.StatusCreated {
		t.Fatalf("Register returned status %d, want 201", status)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("Register response missing token")
	}
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice",
		"password": "hunter22",
	})
	if status != http.StatusCreated {
		t.Errorf("Register returned status %d, want 201", status)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "alice@example.com" || user["name"] != "Alice" {
		t.Errorf("Register returned wrong user payload: %v", body["user"])
	}

	// Same email again conflicts
	status, body = doJSON(t, ts, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice Clone",
		"password": "other",
	})
	if status != http.StatusConflict {
		t.Errorf("Duplicate register returned status %d, want 409", status)
	}
	if body["message"] != "User already exists" {
		t.Errorf("Duplicate register message = %q, want %q", body["message"], "User already exists")
	}

	status, body = doJSON(t, ts, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if status != http.StatusOK {
		t.Errorf("Login returned status %d, want 200", status)
	}
	if token, _ := body["token"].(string); token == "" {
		t.Error("Login response missing token")
	}

	// Wrong password and unknown email produce the same response
	for _, creds := range []map[string]string{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "hunter22"},
	} {
		status, body = doJSON(t, ts, http.MethodPost, "/auth/login", "", creds)
		if status != http.StatusUnauthorized {
			t.Errorf("Bad login (%s) returned status %d, want 401", creds["email"], status)
		}
		if body["message"] != "Invalid credentials" {
			t.Errorf("Bad login message = %q, want %q", body["message"], "Invalid credentials")
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, ts, http.MethodGet, "/issues", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("Missing token returned status %d, want 401", status)
	}

	status, _ = doJSON(t, ts, http.MethodGet, "/issues", "not-a-jwt", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("Garbage token returned status %d, want 401", status)
	}
}

func TestIssueLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "bob@example.com", "Bob")

	status, label := doJSON(t, ts, http.MethodPost, "/labels", token, map[string]string{
		"name": "bug", "color": "#ff0000",
	})
	if status != http.StatusCreated {
		t.Fatalf("Create label returned status %d, want 201", status)
	}
	labelID, _ := label["id"].(string)

	status, body := doJSON(t, ts, http.MethodPost, "/issues", token, map[string]any{
		"title":       "Crash on save",
		"description": "App crashes when saving",
		"priority":    "high",
		"labelIds":    []string{labelID},
	})
	if status != http.StatusCreated {
		t.Fatalf("Create issue returned status %d, body %v", status, body)
	}
	issueID, _ := body["id"].(string)
	if issueID == "" {
		t.Fatal("Create issue response missing id")
	}

	status, issue := doJSON(t, ts, http.MethodGet, "/issues/"+issueID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Get issue returned status %d", status)
	}
	if issue["title"] != "Crash on save" || issue["status"] != "todo" || issue["priority"] != "high" {
		t.Errorf("Issue fields wrong: %v", issue)
	}
	creator, _ := issue["creator"].(map[string]any)
	if creator["name"] != "Bob" {
		t.Errorf("Issue creator = %v, want Bob", issue["creator"])
	}
	labels, _ := issue["labels"].([]any)
	if len(labels) != 1 {
		t.Errorf("Issue has %d labels, want 1", len(labels))
	}

	status, page := doJSON(t, ts, http.MethodGet, "/issues", token, nil)
	if status != http.StatusOK {
		t.Fatalf("List issues returned status %d", status)
	}
	data, _ := page["data"].([]any)
	meta, _ := page["meta"].(map[string]any)
	if len(data) != 1 {
		t.Errorf("List returned %d issues, want 1", len(data))
	}
	if meta["totalIssues"] != float64(1) || meta["page"] != float64(1) {
		t.Errorf("List meta wrong: %v", meta)
	}

	status, _ = doJSON(t, ts, http.MethodPut, "/issues/"+issueID, token, map[string]any{
		"status": "done",
	})
	if status != http.StatusOK {
		t.Fatalf("Update issue returned status %d", status)
	}

	status, issue = doJSON(t, ts, http.MethodGet, "/issues/"+issueID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Get issue after update returned status %d", status)
	}
	if issue["status"] != "done" {
		t.Errorf("Status after update = %v, want done", issue["status"])
	}
	// Title survived the partial update; assignee stays cleared
	if issue["title"] != "Crash on save" {
		t.Errorf("Title after update = %v, want unchanged", issue["title"])
	}
	if issue["assignee"] != nil {
		t.Errorf("Assignee after update = %v, want null", issue["assignee"])
	}

	status, _ = doJSON(t, ts, http.MethodDelete, "/issues/"+issueID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Delete issue returned status %d", status)
	}
	status, _ = doJSON(t, ts, http.MethodGet, "/issues/"+issueID, token, nil)
	if status != http.StatusNotFound {
		t.Errorf("Get deleted issue returned status %d, want 404", status)
	}
}

func TestIssueValidation(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "carol@example.com", "Carol")

	// Missing title
	status, _ := doJSON(t, ts, http.MethodPost, "/issues", token, map[string]any{
		"description": "no title",
	})
	if status != http.StatusBadRequest {
		t.Errorf("Titleless create returned status %d, want 400", status)
	}

	// Bad enum value
	status, _ = doJSON(t, ts, http.MethodPost, "/issues", token, map[string]any{
		"title":       "T",
		"description": "D",
		"status":      "blocked",
	})
	if status != http.StatusBadRequest {
		t.Errorf("Bad status create returned status %d, want 400", status)
	}

	// Unknown label id rejects the whole create
	status, _ = doJSON(t, ts, http.MethodPost, "/issues", token, map[string]any{
		"title":       "T",
		"description": "D",
		"labelIds":    []string{"no-such-label"},
	})
	if status != http.StatusBadRequest {
		t.Errorf("Unknown label create returned status %d, want 400", status)
	}

	for _, query := range []string{"?page=0", "?limit=0", "?limit=101", "?page=abc"} {
		status, body := doJSON(t, ts, http.MethodGet, "/issues"+query, token, nil)
		if status != http.StatusBadRequest {
			t.Errorf("List %s returned status %d, want 400", query, status)
		}
		if body["message"] != "Invalid pagination parameters" {
			t.Errorf("List %s message = %q", query, body["message"])
		}
	}
}

func TestUpdateAssigneeOmissionClears(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "dave@example.com", "Dave")

	status, users := doJSONList(t, ts, "/users", token)
	if status != http.StatusOK || len(users) != 1 {
		t.Fatalf("List users returned status %d with %d users", status, len(users))
	}
	daveID, _ := users[0]["id"].(string)

	status, body := doJSON(t, ts, http.MethodPost, "/issues", token, map[string]any{
		"title":       "Assigned work",
		"description": "D",
		"assigneeId":  daveID,
	})
	if status != http.StatusCreated {
		t.Fatalf("Create issue returned status %d", status)
	}
	issueID, _ := body["id"].(string)

	status, issue := doJSON(t, ts, http.MethodGet, "/issues/"+issueID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Get issue returned status %d", status)
	}
	assignee, _ := issue["assignee"].(map[string]any)
	if assignee["id"] != daveID {
		t.Fatalf("Assignee = %v, want %s", issue["assignee"], daveID)
	}

	// A payload without assigneeId clears the assignment
	status, _ = doJSON(t, ts, http.MethodPut, "/issues/"+issueID, token, map[string]any{
		"title": "Assigned work (renamed)",
	})
	if status != http.StatusOK {
		t.Fatalf("Update issue returned status %d", status)
	}

	status, issue = doJSON(t, ts, http.MethodGet, "/issues/"+issueID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Get issue returned status %d", status)
	}
	if issue["assignee"] != nil {
		t.Errorf("Assignee after omitting update = %v, want null", issue["assignee"])
	}
}

func TestCommentsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "erin@example.com", "Erin")

	status, body := doJSON(t, ts, http.MethodPost, "/issues", token, map[string]any{
		"title": "Discussable", "description": "D",
	})
	if status != http.StatusCreated {
		t.Fatalf("Create issue returned status %d", status)
	}
	issueID, _ := body["id"].(string)

	status, comment := doJSON(t, ts, http.MethodPost, "/issues/"+issueID+"/comments", token,
		map[string]string{"content": "First!"})
	if status != http.StatusCreated {
		t.Fatalf("Create comment returned status %d", status)
	}
	author, _ := comment["author"].(map[string]any)
	if author["name"] != "Erin" {
		t.Errorf("Comment author = %v, want Erin", comment["author"])
	}
	commentID, _ := comment["id"].(string)

	// Empty content rejected
	status, _ = doJSON(t, ts, http.MethodPost, "/issues/"+issueID+"/comments", token,
		map[string]string{"content": "  "})
	if status != http.StatusBadRequest {
		t.Errorf("Empty comment returned status %d, want 400", status)
	}

	// Comment on a missing issue is a 404
	status, _ = doJSON(t, ts, http.MethodPost, "/issues/no-such-issue/comments", token,
		map[string]string{"content": "hello?"})
	if status != http.StatusNotFound {
		t.Errorf("Comment on missing issue returned status %d, want 404", status)
	}

	status, comments := doJSONList(t, ts, "/issues/"+issueID+"/comments", token)
	if status != http.StatusOK || len(comments) != 1 {
		t.Fatalf("List comments returned status %d with %d comments", status, len(comments))
	}

	status, _ = doJSON(t, ts, http.MethodDelete, "/comments/"+commentID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Delete comment returned status %d", status)
	}
	status, comments = doJSONList(t, ts, "/issues/"+issueID+"/comments", token)
	if status != http.StatusOK || len(comments) != 0 {
		t.Errorf("List after delete returned status %d with %d comments", status, len(comments))
	}
}

func TestLabelEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "frank@example.com", "Frank")

	status, _ := doJSON(t, ts, http.MethodPost, "/labels", token, map[string]string{"name": "bug"})
	if status != http.StatusCreated {
		t.Fatalf("Create label returned status %d", status)
	}

	// Duplicate name conflicts
	status, _ = doJSON(t, ts, http.MethodPost, "/labels", token, map[string]string{"name": "bug"})
	if status != http.StatusConflict {
		t.Errorf("Duplicate label returned status %d, want 409", status)
	}

	// Empty name rejected
	status, _ = doJSON(t, ts, http.MethodPost, "/labels", token, map[string]string{"name": " "})
	if status != http.StatusBadRequest {
		t.Errorf("Empty label name returned status %d, want 400", status)
	}

	status, labels := doJSONList(t, ts, "/labels", token)
	if status != http.StatusOK || len(labels) != 1 {
		t.Fatalf("List labels returned status %d with %d labels", status, len(labels))
	}
	labelID, _ := labels[0]["id"].(string)

	status, _ = doJSON(t, ts, http.MethodDelete, "/labels/"+labelID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Delete label returned status %d", status)
	}
	status, _ = doJSON(t, ts, http.MethodDelete, "/labels/"+labelID, token, nil)
	if status != http.StatusNotFound {
		t.Errorf("Second delete returned status %d, want 404", status)
	}
}

func TestListUsersOmitsPasswordHash(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "grace@example.com", "Grace")

	status, users := doJSONList(t, ts, "/users", token)
	if status != http.StatusOK || len(users) != 1 {
		t.Fatalf("List users returned status %d with %d users", status, len(users))
	}
	for key := range users[0] {
		if key == "passwordHash" || key == "password_hash" || key == "password" {
			t.Errorf("User payload leaks %q", key)
		}
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK {
		t.Errorf("Healthz returned status %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("Healthz status = %v, want ok", body["status"])
	}
}

func TestClientVersionCheck(t *testing.T) {
	tests := []struct {
		client  string
		wantErr bool
	}{
		{"", false},
		{ServerVersion, false},
		{"not-semver", false},
		{"99.0.0", true},
	}
	for _, tt := range tests {
		err := checkClientVersion(tt.client)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkClientVersion(%q) error = %v, wantErr %v", tt.client, err, tt.wantErr)
		}
	}

	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("X-Client-Version", "99.0.0")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("Incompatible client returned status %d, want 426", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/issues", nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Preflight returned status %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	ts := newTestServer(t)

	// Token signed with a different secret than the server's
	other, err := auth.NewTokens("wrong-secret", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token manager: %v", err)
	}
	forged, err := other.Generate("some-id", "x@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	status, body := doJSON(t, ts, http.MethodGet, "/issues", forged, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("Forged token returned status %d, want 401", status)
	}
	if body["message"] != "Invalid or expired token" {
		t.Errorf("Forged token message = %q", fmt.Sprint(body["message"]))
	}
}
