package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/issuetracker/internal/auth"
	"github.com/hitoshi/issuetracker/internal/cache"
	"github.com/hitoshi/issuetracker/internal/issue"
	"github.com/hitoshi/issuetracker/internal/model"
	"github.com/hitoshi/issuetracker/internal/password"
	"github.com/hitoshi/issuetracker/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// integrationClient はCookieJarとCSRFトークンを保持するテスト用クライアント。
type integrationClient struct {
	t         *testing.T
	baseURL   string
	http      *http.Client
	csrfToken string
}

// newIntegrationServer は実際のサービス群をインメモリのリポジトリで組み立てたサーバーを起動する。
func newIntegrationServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := newMemoryStore()
	users := memoryUserRepo{store}
	transport := session.CookieTransport{}
	sessions := session.NewStore(memorySessionRepo{store}, time.Hour)
	resolver := auth.NewResolver(sessions, users, transport)

	authService := auth.NewService(users, sessions, transport, password.NewHasher(bcrypt.MinCost), nil)
	issueService := issue.NewService(memoryIssueRepo{store}, resolver, cache.NewTagCache(time.Minute, nil), nil)

	router := NewRouter(&RouterDeps{
		Resolver:     resolver,
		APICORS:      DefaultAPICORSConfig("*"),
		AuthService:  authService,
		AuthConfig:   AuthHandlerConfig{SignInPath: "/signin"},
		IssueService: NewIssueServiceAdapter(issueService),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newIntegrationClient(t *testing.T, srv *httptest.Server) *integrationClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	c := &integrationClient{
		t:       t,
		baseURL: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	resp := c.do(http.MethodGet, "/api/csrf-token", "", nil)
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode csrf token: %v", err)
	}
	resp.Body.Close()
	c.csrfToken = body["token"]
	if c.csrfToken == "" {
		t.Fatal("csrf token should not be empty")
	}
	return c
}

func (c *integrationClient) do(method, path, contentType string, body io.Reader) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.csrfToken != "" && method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *integrationClient) form(path string, values url.Values) (int, model.ActionResult) {
	c.t.Helper()
	resp := c.do(http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
	defer resp.Body.Close()
	var result model.ActionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, result
}

func (c *integrationClient) jsonAction(method, path string, payload any) (int, model.ActionResult) {
	c.t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	resp := c.do(method, path, "application/json", bytes.NewReader(raw))
	defer resp.Body.Close()
	var result model.ActionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, result
}

func (c *integrationClient) getJSON(path string, dst any) int {
	c.t.Helper()
	resp := c.do(http.MethodGet, path, "", nil)
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			c.t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func signUpValues(email, pw string) url.Values {
	return url.Values{"email": {email}, "password": {pw}, "confirmPassword": {pw}}
}

// TestIntegration_AuthAndIssueFlow はサインアップからIssueの作成・更新・削除、サインアウトまでを通しで検証する。
func TestIntegration_AuthAndIssueFlow(t *testing.T) {
	srv := newIntegrationServer(t)
	c := newIntegrationClient(t, srv)

	// 1. サインアップでセッションが発行される
	status, result := c.form("/actions/signup", signUpValues("alice@example.com", "secret123"))
	if status != http.StatusOK || result.Message != "User has been successfully created" {
		t.Fatalf("signup = %d %+v", status, result)
	}

	var me meResponse
	if status := c.getJSON("/api/me", &me); status != http.StatusOK {
		t.Fatalf("GET /api/me status = %d", status)
	}
	if me.Email != "alice@example.com" {
		t.Errorf("me = %+v", me)
	}

	// 2. Issue作成
	status, result = c.jsonAction(http.MethodPost, "/actions/issues", map[string]any{
		"title":       "Login button does nothing",
		"description": "",
		"status":      "todo",
		"priority":    "high",
		"userId":      me.ID,
	})
	if status != http.StatusOK || result.Message != "Issue created successfully" {
		t.Fatalf("create = %d %+v", status, result)
	}

	var list issueListResponse
	c.getJSON("/issues", &list)
	if len(list.Data) != 1 {
		t.Fatalf("issues = %+v", list.Data)
	}
	created := list.Data[0]
	if created.Description != nil {
		t.Errorf("empty description should be stored as null, got %q", *created.Description)
	}
	if created.User == nil || created.User.Email != "alice@example.com" {
		t.Errorf("owner = %+v", created.User)
	}

	// 3. 部分更新はキャッシュされた一覧にも反映される
	status, result = c.jsonAction(http.MethodPatch, fmt.Sprintf("/actions/issues/%d", created.ID), map[string]any{
		"status": "done",
	})
	if status != http.StatusOK || result.Message != "Issue updated successfully" {
		t.Fatalf("update = %d %+v", status, result)
	}
	list = issueListResponse{}
	c.getJSON("/issue", &list)
	if len(list.Data) != 1 || list.Data[0].Status != "done" || list.Data[0].Title != created.Title {
		t.Errorf("after update = %+v", list.Data)
	}

	// 4. サインアウト後は認証が必要な操作が拒否される
	resp := c.do(http.MethodPost, "/actions/signout", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/signin" {
		t.Fatalf("signout = %d Location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if status := c.getJSON("/api/me", nil); status != http.StatusUnauthorized {
		t.Errorf("GET /api/me after signout status = %d, want 401", status)
	}
	status, result = c.jsonAction(http.MethodDelete, fmt.Sprintf("/actions/issues/%d", created.ID), nil)
	if status != http.StatusUnauthorized || result.Message != "Unauthorized access" {
		t.Errorf("delete while signed out = %d %+v", status, result)
	}

	// 5. 再サインインして削除
	status, result = c.form("/actions/signin", url.Values{"email": {"alice@example.com"}, "password": {"secret123"}})
	if status != http.StatusOK || result.Message != "Signed in successfully" {
		t.Fatalf("signin = %d %+v", status, result)
	}
	status, result = c.jsonAction(http.MethodDelete, fmt.Sprintf("/actions/issues/%d", created.ID), nil)
	want := fmt.Sprintf("Deleted issue with id of %d successfully", created.ID)
	if status != http.StatusOK || result.Message != want {
		t.Errorf("delete = %d %+v", status, result)
	}
	if status := c.getJSON(fmt.Sprintf("/issue/%d", created.ID), nil); status != http.StatusNotFound {
		t.Errorf("GET /issue/{id} after delete status = %d, want 404", status)
	}
}

func TestIntegration_SignInFailures(t *testing.T) {
	srv := newIntegrationServer(t)
	c := newIntegrationClient(t, srv)

	if status, _ := c.form("/actions/signup", signUpValues("bob@example.com", "hunter22")); status != http.StatusOK {
		t.Fatalf("signup status = %d", status)
	}
	resp := c.do(http.MethodPost, "/actions/signout", "", nil)
	resp.Body.Close()

	tests := []struct {
		name        string
		values      url.Values
		wantStatus  int
		wantMessage string
	}{
		{"wrong password", url.Values{"email": {"bob@example.com"}, "password": {"wrongpass"}}, http.StatusUnauthorized, "Invalid email or password"},
		{"unknown email", url.Values{"email": {"nobody@example.com"}, "password": {"hunter22"}}, http.StatusUnauthorized, "Invalid email or password"},
		{"malformed email", url.Values{"email": {"bob"}, "password": {"hunter22"}}, http.StatusBadRequest, "Incorrect or missing field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, result := c.form("/actions/signin", tt.values)
			if status != tt.wantStatus || result.Message != tt.wantMessage {
				t.Errorf("signin = %d %+v, want %d %q", status, result, tt.wantStatus, tt.wantMessage)
			}
			if status := c.getJSON("/api/me", nil); status != http.StatusUnauthorized {
				t.Errorf("no session should be created, GET /api/me = %d", status)
			}
		})
	}

	t.Run("duplicate signup", func(t *testing.T) {
		status, result := c.form("/actions/signup", signUpValues("bob@example.com", "hunter22"))
		if status != http.StatusBadRequest || result.Message != "User already exists" {
			t.Errorf("signup = %d %+v", status, result)
		}
	})
}

// TestIntegration_ReadAPI は認証なしの読み取りAPIでの作成と取得を検証する。
func TestIntegration_ReadAPI(t *testing.T) {
	srv := newIntegrationServer(t)
	c := newIntegrationClient(t, srv)

	c.form("/actions/signup", signUpValues("carol@example.com", "password1"))
	var me meResponse
	c.getJSON("/api/me", &me)

	// CSRFトークンなしでも/issueへのPOSTは通る
	anon := &http.Client{}
	resp, err := anon.Post(srv.URL+"/issue", "application/json",
		strings.NewReader(fmt.Sprintf(`{"title":"From API","userId":%q}`, me.ID)))
	if err != nil {
		t.Fatalf("POST /issue: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	var created issueCreatedResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Message != "Issue Added successfully" {
		t.Errorf("message = %q", created.Message)
	}
	if created.Issue.Status != "backlog" || created.Issue.Priority != "low" {
		t.Errorf("defaults = %s/%s, want backlog/low", created.Issue.Status, created.Issue.Priority)
	}

	var detail issueDetailResponse
	if status := c.getJSON(fmt.Sprintf("/issue/%d", created.Issue.ID), &detail); status != http.StatusOK {
		t.Fatalf("GET /issue/{id} status = %d", status)
	}
	if detail.Data.Title != "From API" || detail.Data.User == nil {
		t.Errorf("detail = %+v", detail.Data)
	}
}
