//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tasktide/desk/internal/bridge"
	"github.com/tasktide/desk/internal/client"
	"github.com/tasktide/desk/internal/domain"
	"github.com/tasktide/desk/internal/metacache"
	"github.com/tasktide/desk/internal/session"
)

type hostCall struct {
	method string
	args   []any
}

type fakeHost struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   []hostCall
}

func (f *fakeHost) Call(_ context.Context, method string, args ...any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hostCall{method: method, args: args})
	if f.err != nil {
		return nil, f.err
	}
	if reply, ok := f.replies[method]; ok {
		return json.RawMessage(reply), nil
	}
	return json.RawMessage(`{"message":"ok"}`), nil
}

func (f *fakeHost) Close() error { return nil }

func (f *fakeHost) last() hostCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return hostCall{}
	}
	return f.calls[len(f.calls)-1]
}

type testServer struct {
	router http.Handler
	host   *fakeHost
	client *client.Client
	gate   *bridge.Gate
}

func newTestServer(t *testing.T, open bool) *testServer {
	t.Helper()
	host := &fakeHost{replies: make(map[string]string)}
	gate := bridge.NewGate()
	if open {
		gate.Open()
	}
	c := client.New(host, gate, session.New(session.NewMemoryStorage(), nil), nil)
	cache := metacache.New(t.TempDir(), nil)
	t.Cleanup(func() { _ = cache.Close() })

	r := chi.NewRouter()
	NewHandler(c, cache, nil).RegisterRoutes(r)
	return &testServer{router: r, host: host, client: c, gate: gate}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	s.host.mu.Lock()
	s.host.replies[bridge.MethodLogin] = `{"token":"tok","username":"alice"}`
	s.host.mu.Unlock()
	if w := s.do(t, http.MethodPost, "/api/login", `{"username":"alice","password":"pw"}`); w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return got
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestLoginAndSession(t *testing.T) {
	s := newTestServer(t, true)

	w := s.do(t, http.MethodGet, "/api/session", "")
	if got := decodeBody(t, w); got["authenticated"] != false || got["username"] != nil {
		t.Fatalf("session before login = %v", got)
	}

	s.login(t)

	got := decodeBody(t, s.do(t, http.MethodGet, "/api/session", ""))
	if got["authenticated"] != true || got["username"] != "alice" {
		t.Errorf("session after login = %v", got)
	}

	if w := s.do(t, http.MethodPost, "/api/logout", ""); w.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", w.Code)
	}
	got = decodeBody(t, s.do(t, http.MethodGet, "/api/session", ""))
	if got["authenticated"] != false {
		t.Errorf("session after logout = %v", got)
	}
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reply  string
		status int
	}{
		{"not json", `{`, "", http.StatusBadRequest},
		{"no username", `{"password":"pw"}`, "", http.StatusBadRequest},
		{"rejected", `{"username":"a","password":"b"}`, `{"error":"Invalid credentials."}`, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true)
			if tt.reply != "" {
				s.host.replies[bridge.MethodLogin] = tt.reply
			}
			w := s.do(t, http.MethodPost, "/api/login", tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestRemoteReplyPassesThrough(t *testing.T) {
	s := newTestServer(t, true)
	s.login(t)
	s.host.replies[bridge.MethodLoadTask] = `{"id":"t-1","title":"Write report","tags":["a"]}`

	w := s.do(t, http.MethodGet, "/api/tasks/t-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"id":"t-1","title":"Write report","tags":["a"]}` {
		t.Errorf("body = %s", got)
	}
	call := s.host.last()
	if call.method != bridge.MethodLoadTask || !reflect.DeepEqual(call.args, []any{"tok", "t-1"}) {
		t.Errorf("host call = %+v", call)
	}
}

func TestErrorReplies(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		err    error
		status int
		reauth bool
	}{
		{"auth required", `{"error":"Authentication required."}`, nil, http.StatusUnauthorized, true},
		{"remote error", `{"error":"Task not found."}`, nil, http.StatusUnprocessableEntity, false},
		{"transport", "", errors.New("connection reset"), http.StatusBadGateway, false},
		{"deadline", "", context.DeadlineExceeded, http.StatusGatewayTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true)
			s.login(t)
			s.host.replies[bridge.MethodDeleteTask] = tt.reply
			s.host.err = tt.err

			w := s.do(t, http.MethodDelete, "/api/tasks/t-1", "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			got := decodeBody(t, w)
			if _, ok := got["error"].(string); !ok {
				t.Errorf("body has no error message: %v", got)
			}
			if (got["reauth"] == true) != tt.reauth {
				t.Errorf("reauth = %v, want %v", got["reauth"], tt.reauth)
			}
			if tt.reauth == s.client.Session().Authenticated() {
				t.Errorf("authenticated = %v after %s", s.client.Session().Authenticated(), tt.name)
			}
		})
	}
}

func TestListTasksQuery(t *testing.T) {
	s := newTestServer(t, true)
	s.host.replies[bridge.MethodLoadTasksSummary] = `{"tasks":[],"total":0}`

	w := s.do(t, http.MethodGet,
		"/api/tasks?q=report&category=work&categories=home&status=open&createdRF=2024-01-01&groupBy=status&sortBy=deadline&limit=25&offset=50", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	call := s.host.last()
	if len(call.args) != 3 {
		t.Fatalf("args = %v", call.args)
	}
	if call.args[0] != nil {
		t.Errorf("token = %v, want nil", call.args[0])
	}
	wantFilters := domain.TaskFilters{
		Query:       "report",
		Categories:  []string{"home", "work"},
		Statuses:    []string{"open"},
		CreatedFrom: "2024-01-01",
		GroupBy:     "status",
		SortBy:      "deadline",
	}
	if !reflect.DeepEqual(call.args[1], wantFilters) {
		t.Errorf("filters = %+v, want %+v", call.args[1], wantFilters)
	}
	if got := call.args[2]; got != (domain.Pagination{Limit: 25, Offset: 50}) {
		t.Errorf("page = %+v", got)
	}
}

func TestParseTaskQueryLeavesQueryUntouched(t *testing.T) {
	categories := make([]string, 1, 4)
	categories[0] = "home"
	q := url.Values{"categories": categories, "category": {"work"}}

	f, _, msg := parseTaskQuery(q)
	if msg != "" {
		t.Fatalf("parseTaskQuery() message = %q", msg)
	}
	if !reflect.DeepEqual(f.Categories, []string{"home", "work"}) {
		t.Fatalf("categories = %v", f.Categories)
	}

	f.Categories[0] = "changed"
	if spare := categories[:cap(categories)][1]; spare != "" {
		t.Errorf("query backing array written: %q", spare)
	}
	if q.Get("categories") != "home" {
		t.Errorf("query categories = %q, want home", q.Get("categories"))
	}
}

func TestListTasksDefaultPage(t *testing.T) {
	s := newTestServer(t, true)
	s.do(t, http.MethodGet, "/api/tasks", "")

	call := s.host.last()
	if call.method != bridge.MethodLoadTasksSummary {
		t.Fatalf("method = %q", call.method)
	}
	if got := call.args[2]; got != (domain.Pagination{Limit: domain.DefaultPageLimit}) {
		t.Errorf("page = %+v", got)
	}
}

func TestListTasksRejectsBadQuery(t *testing.T) {
	for _, q := range []string{"limit=abc", "offset=-1", "groupBy=color", "sortBy=size"} {
		t.Run(q, func(t *testing.T) {
			s := newTestServer(t, true)
			if w := s.do(t, http.MethodGet, "/api/tasks?"+q, ""); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if len(s.host.calls) != 0 {
				t.Errorf("host was called for invalid query")
			}
		})
	}
}

func TestMilestoneRoutesArgumentOrder(t *testing.T) {
	s := newTestServer(t, true)
	s.login(t)

	tests := []struct {
		method string
		target string
		body   string
		host   string
		args   []any
	}{
		{http.MethodGet, "/api/tasks/t-1/milestones", "", bridge.MethodLoadMilestonesForTask, []any{"tok", "t-1"}},
		{http.MethodGet, "/api/tasks/t-1/milestones/m-2", "", bridge.MethodLoadMilestone, []any{"tok", "t-1", "m-2"}},
		{http.MethodDelete, "/api/tasks/t-1/milestones/m-2", "", bridge.MethodDeleteMilestone, []any{"tok", "m-2", "t-1"}},
		{http.MethodPut, "/api/tasks/t-1/milestones", `{"title":"x"}`, bridge.MethodSaveMilestone, []any{"tok", json.RawMessage(`{"title":"x"}`), "t-1"}},
	}

	for _, tt := range tests {
		w := s.do(t, tt.method, tt.target, tt.body)
		if w.Code != http.StatusOK {
			t.Errorf("%s %s status = %d", tt.method, tt.target, w.Code)
			continue
		}
		call := s.host.last()
		if call.method != tt.host || !reflect.DeepEqual(call.args, tt.args) {
			t.Errorf("%s %s host call = %+v, want %s %v", tt.method, tt.target, call, tt.host, tt.args)
		}
	}
}

func TestSaveTaskRequiresJSON(t *testing.T) {
	s := newTestServer(t, true)
	if w := s.do(t, http.MethodPut, "/api/tasks", "not json"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/api/tasks", `{"title":"x"}`); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if call := s.host.last(); call.method != bridge.MethodSaveTask {
		t.Errorf("method = %q", call.method)
	}
}

func TestLookups(t *testing.T) {
	tests := []struct {
		target string
		host   string
		active any
	}{
		{"/api/statuses", bridge.MethodDistinctStatuses, false},
		{"/api/origins?active=true", bridge.MethodDistinctFromValues, true},
		{"/api/categories?active=1", bridge.MethodDistinctCategories, true},
	}

	s := newTestServer(t, true)
	for _, tt := range tests {
		if w := s.do(t, http.MethodGet, tt.target, ""); w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", tt.target, w.Code)
		}
		call := s.host.last()
		if call.method != tt.host || call.args[1] != tt.active {
			t.Errorf("%s host call = %+v", tt.target, call)
		}
	}

	if w := s.do(t, http.MethodGet, "/api/statuses?active=maybe", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid active status = %d", w.Code)
	}
}

func TestDeleteLookupValuesDecodePath(t *testing.T) {
	s := newTestServer(t, true)

	s.do(t, http.MethodDelete, "/api/statuses/In%20Progress", "")
	if call := s.host.last(); call.method != bridge.MethodDeleteStatusValues || call.args[1] != "In Progress" {
		t.Errorf("host call = %+v", call)
	}

	s.do(t, http.MethodDelete, "/api/origins/sales%2Fnorth", "")
	if call := s.host.last(); call.method != bridge.MethodDeleteFromValues || call.args[1] != "sales/north" {
		t.Errorf("host call = %+v", call)
	}

	s.do(t, http.MethodDelete, "/api/statuses/50%2520off", "")
	if call := s.host.last(); call.args[1] != "50%20off" {
		t.Errorf("literal percent: host call = %+v, want description 50%%20off", call)
	}

	s.do(t, http.MethodDelete, "/api/origins/a%2Fb%2520c", "")
	if call := s.host.last(); call.args[1] != "a/b%20c" {
		t.Errorf("escaped slash and percent: host call = %+v", call)
	}
}

func TestCounts(t *testing.T) {
	s := newTestServer(t, true)

	s.do(t, http.MethodGet, "/api/counts", "")
	if call := s.host.last(); call.method != bridge.MethodTaskCounts || call.args[1] != nil {
		t.Errorf("host call without since = %+v", call)
	}

	s.do(t, http.MethodGet, "/api/counts?since=30", "")
	if call := s.host.last(); call.args[1] != "30" {
		t.Errorf("host call with since = %+v", call)
	}

	if w := s.do(t, http.MethodGet, "/api/counts?since=last-week", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid since status = %d", w.Code)
	}
}

func TestMetaRoutes(t *testing.T) {
	s := newTestServer(t, true)

	if w := s.do(t, http.MethodGet, "/api/meta/customCategories", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing key status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/api/meta/customCategories", `["work", "home"]`); w.Code != http.StatusNoContent {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodGet, "/api/meta/customCategories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got []string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"work", "home"}) {
		t.Errorf("value = %v", got)
	}

	if w := s.do(t, http.MethodDelete, "/api/meta/customCategories", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/meta/customCategories", ""); w.Code != http.StatusNotFound {
		t.Errorf("after delete status = %d", w.Code)
	}
	if len(s.host.calls) != 0 {
		t.Errorf("meta routes called the host %d times", len(s.host.calls))
	}
}

func TestReady(t *testing.T) {
	s := newTestServer(t, false)

	if got := decodeBody(t, s.do(t, http.MethodGet, "/api/ready", "")); got["ready"] != false {
		t.Errorf("ready before open = %v", got)
	}
	s.gate.Open()
	if got := decodeBody(t, s.do(t, http.MethodGet, "/api/ready", "")); got["ready"] != true {
		t.Errorf("ready after open = %v", got)
	}
}

func TestWriteErrorCacheFailures(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&metacache.StoreError{Op: "put", Key: "k", Err: errors.New("database is locked")}, http.StatusServiceUnavailable},
		{&metacache.StoreError{Op: "put", Key: "k", Err: errors.New("disk I/O error")}, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", &client.RemoteError{Method: "m", Message: "bad"}), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeError(w, tt.err)
		if w.Code != tt.status {
			t.Errorf("writeError(%v) status = %d, want %d", tt.err, w.Code, tt.status)
		}
	}
}
