package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/joestump/joe-gate/internal/auth"
	"github.com/joestump/joe-gate/internal/handler"
	"github.com/joestump/joe-gate/internal/kv"
	"github.com/joestump/joe-gate/internal/redirect"
	"github.com/joestump/joe-gate/internal/store"
)

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	clock  *clockwork.FakeClock
	links  *store.LinkStore
}

// newTestEnv serves the full router with in-memory sessions and links and a
// fake clock, and returns a cookie-carrying client that does not follow
// redirects.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ls := store.NewLinkStore(kv.NewMemoryStore(), "")
	verifier, err := auth.NewStaticVerifier("admin", "s3cret", "")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	router := handler.NewRouter(handler.Deps{
		SessionManager: auth.NewSessionManager(auth.SessionBackend{}, time.Hour, false),
		Verifier:       verifier,
		LinkStore:      ls,
		Resolver:       redirect.NewResolver(ls, redirect.DefaultOptions()),
		Gate:           handler.GateOptions{Duration: 5, Interval: time.Second},
		Clock:          clock,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, client: client, clock: clock, links: ls}
}

type response struct {
	status int
	header http.Header
	body   string
}

func (e *testEnv) request(t *testing.T, method, path string, form url.Values, headers map[string]string) response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return response{status: resp.StatusCode, header: resp.Header, body: string(b)}
}

var jsonHeaders = map[string]string{"Accept": "application/json"}

func (e *testEnv) gateState(t *testing.T) handler.GateView {
	t.Helper()
	resp := e.request(t, http.MethodGet, "/gate", nil, jsonHeaders)
	if resp.status != http.StatusOK {
		t.Fatalf("GET /gate: status = %d", resp.status)
	}
	var v handler.GateView
	if err := json.Unmarshal([]byte(resp.body), &v); err != nil {
		t.Fatalf("decode gate state: %v (%q)", err, resp.body)
	}
	return v
}

func (e *testEnv) post(t *testing.T, path string, headers map[string]string) response {
	t.Helper()
	return e.request(t, http.MethodPost, path, url.Values{}, headers)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}}, nil)
	if resp.status != http.StatusSeeOther || resp.header.Get("Location") != "/admin" {
		t.Fatalf("login: status = %d, location = %q", resp.status, resp.header.Get("Location"))
	}
}

func TestGate_FullFlowWithRef(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/?ref=premium", nil, nil)
	if resp.status != http.StatusOK {
		t.Fatalf("GET /: status = %d", resp.status)
	}
	if !strings.Contains(resp.body, `data-phase="phase1_running"`) || !strings.Contains(resp.body, "Step 1 of 2") {
		t.Fatalf("landing page does not show phase 1:\n%s", resp.body)
	}
	if !strings.Contains(resp.body, `data-leave-guarded="true"`) {
		t.Error("phase 1 should guard navigation away")
	}

	// Early actions change nothing.
	env.post(t, "/gate/advance", jsonHeaders)
	env.post(t, "/gate/claim", jsonHeaders)
	if st := env.gateState(t); st.Phase != "phase1_running" || st.Remaining != 5 {
		t.Fatalf("state after early actions = %+v", st)
	}

	env.clock.Advance(5 * time.Second)
	st := env.gateState(t)
	if st.Phase != "phase1_complete" || !st.ContinueAvailable || st.LeaveGuarded {
		t.Fatalf("state after phase 1 = %+v", st)
	}

	resp = env.post(t, "/gate/claim", jsonHeaders)
	if strings.Contains(resp.body, `"url"`) {
		t.Fatalf("claim in phase1_complete redirected: %s", resp.body)
	}

	env.post(t, "/gate/advance", jsonHeaders)
	st = env.gateState(t)
	if st.Phase != "phase2_running" || st.Remaining != 5 || st.Step != 2 || st.ContinueAvailable {
		t.Fatalf("state after advance = %+v", st)
	}

	env.clock.Advance(5 * time.Second)
	resp = env.post(t, "/gate/claim", jsonHeaders)
	var claimed map[string]string
	if err := json.Unmarshal([]byte(resp.body), &claimed); err != nil {
		t.Fatalf("decode claim: %v (%q)", err, resp.body)
	}
	if claimed["url"] != "https://example.com/premium-content" {
		t.Errorf("claim url = %q", claimed["url"])
	}

	// The next visit starts over.
	if st := env.gateState(t); st.Phase != "phase1_running" || st.Remaining != 5 {
		t.Errorf("state after claim = %+v, want a new gate", st)
	}
}

func (e *testEnv) completeGate(t *testing.T, entry string) {
	t.Helper()
	e.request(t, http.MethodGet, entry, nil, nil)
	e.clock.Advance(5 * time.Second)
	e.post(t, "/gate/advance", nil)
	e.clock.Advance(5 * time.Second)
}

func TestGate_ClaimFormRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.completeGate(t, "/")

	resp := env.post(t, "/gate/claim", nil)
	if resp.status != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.status)
	}
	if got := resp.header.Get("Location"); got != "https://example.com/default" {
		t.Errorf("Location = %q", got)
	}
}

func TestGate_ClaimScriptedUsesHXRedirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.links.Add(ctx, "A", "https://a.example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.links.Add(ctx, "B", "https://b.example.com"); err != nil {
		t.Fatal(err)
	}
	env.completeGate(t, "/?ref=premium")

	resp := env.post(t, "/gate/claim", map[string]string{"HX-Request": "true"})
	if resp.status != http.StatusOK {
		t.Fatalf("status = %d", resp.status)
	}
	if got := resp.header.Get("HX-Redirect"); got != "https://b.example.com" {
		t.Errorf("HX-Redirect = %q, want the most recent link", got)
	}
}

func TestGate_ClaimQueryOverridesCapturedRef(t *testing.T) {
	env := newTestEnv(t)
	env.completeGate(t, "/?ref=story")

	resp := env.post(t, "/gate/claim?ref=tiktok", nil)
	if got := resp.header.Get("Location"); got != "https://example.com/ref-tiktok" {
		t.Errorf("Location = %q", got)
	}
}

func TestGate_ClaimQueryWithoutRefKeepsCapturedRef(t *testing.T) {
	env := newTestEnv(t)
	env.completeGate(t, "/?ref=story")

	resp := env.post(t, "/gate/claim?utm=x", nil)
	if got := resp.header.Get("Location"); got != "https://example.com/story-access" {
		t.Errorf("Location = %q, want the captured ref's destination", got)
	}
}

func TestGate_ResumesAcrossRequests(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodGet, "/", nil, nil)

	env.clock.Advance(2500 * time.Millisecond)
	if st := env.gateState(t); st.Remaining != 3 {
		t.Errorf("remaining = %d, want 3", st.Remaining)
	}

	// Reloading the landing page keeps the running countdown.
	resp := env.request(t, http.MethodGet, "/", nil, nil)
	if !strings.Contains(resp.body, `data-remaining="3"`) {
		t.Errorf("reload did not resume the gate:\n%s", resp.body)
	}
}

func TestGate_FragmentForScript(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/gate", nil, map[string]string{"HX-Request": "true"})
	if !strings.HasPrefix(strings.TrimSpace(resp.body), `<section id="gate"`) {
		t.Errorf("expected the gate panel fragment, got:\n%s", resp.body)
	}
	if strings.Contains(resp.body, "<html") {
		t.Error("fragment must not include the layout")
	}
}

func TestGate_UnmatchedPathsServeEntryPoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/some/deep/link", nil, nil)
	if resp.status != http.StatusOK || !strings.Contains(resp.body, `id="gate"`) {
		t.Errorf("GET unmatched path: status = %d", resp.status)
	}
	resp = env.request(t, http.MethodPost, "/some/deep/link", url.Values{}, nil)
	if resp.status != http.StatusNotFound {
		t.Errorf("POST unmatched path: status = %d, want 404", resp.status)
	}
}

func TestAdmin_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/admin", "/admin/links/x/edit"} {
		resp := env.request(t, http.MethodGet, path, nil, nil)
		if resp.status != http.StatusFound || resp.header.Get("Location") != "/" {
			t.Errorf("GET %s: status = %d, location = %q", path, resp.status, resp.header.Get("Location"))
		}
	}
	resp := env.request(t, http.MethodPost, "/admin/links", url.Values{"title": {"A"}, "url": {"https://a.example.com"}}, nil)
	if resp.status != http.StatusFound {
		t.Errorf("POST /admin/links: status = %d, want 302", resp.status)
	}
	if n := len(env.links.List(context.Background())); n != 0 {
		t.Errorf("unauthenticated post stored %d links", n)
	}
}

func TestAdmin_LoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/admin/login", url.Values{"username": {"admin"}, "password": {"nope"}}, nil)
	if resp.header.Get("Location") != "/admin/login?error=invalid" {
		t.Fatalf("location = %q", resp.header.Get("Location"))
	}
	resp = env.request(t, http.MethodGet, "/admin/login?error=invalid", nil, nil)
	if !strings.Contains(resp.body, "Invalid username or password.") {
		t.Error("login page should show the error")
	}
	if resp := env.request(t, http.MethodGet, "/admin", nil, nil); resp.status != http.StatusFound {
		t.Errorf("GET /admin after failed login: status = %d", resp.status)
	}
}

func TestAdmin_LinkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	// Already signed in: the login form redirects.
	if resp := env.request(t, http.MethodGet, "/admin/login", nil, nil); resp.header.Get("Location") != "/admin" {
		t.Errorf("login form for admin: location = %q", resp.header.Get("Location"))
	}

	resp := env.request(t, http.MethodPost, "/admin/links", url.Values{"title": {"  "}, "url": {"https://a.example.com"}}, nil)
	if resp.status != http.StatusUnprocessableEntity || !strings.Contains(resp.body, "title") {
		t.Fatalf("invalid add: status = %d", resp.status)
	}
	if !strings.Contains(resp.body, `value="https://a.example.com"`) {
		t.Error("invalid add should keep the submitted url in the form")
	}

	resp = env.request(t, http.MethodPost, "/admin/links", url.Values{"title": {"Promo"}, "url": {"https://promo.example.com"}}, nil)
	if resp.status != http.StatusSeeOther {
		t.Fatalf("add: status = %d", resp.status)
	}
	resp = env.request(t, http.MethodGet, "/admin", nil, nil)
	if !strings.Contains(resp.body, "Link added.") || !strings.Contains(resp.body, "https://promo.example.com") {
		t.Errorf("admin page after add:\n%s", resp.body)
	}
	// The flash shows once.
	if resp := env.request(t, http.MethodGet, "/admin", nil, nil); strings.Contains(resp.body, "Link added.") {
		t.Error("flash should be cleared after display")
	}

	rec, ok := env.links.MostRecent(ctx)
	if !ok {
		t.Fatal("link was not stored")
	}

	resp = env.request(t, http.MethodGet, "/admin/links/"+rec.ID+"/edit", nil, nil)
	if resp.status != http.StatusOK || !strings.Contains(resp.body, `value="Promo"`) {
		t.Fatalf("edit form: status = %d", resp.status)
	}

	resp = env.request(t, http.MethodPost, "/admin/links/"+rec.ID, url.Values{"title": {"Promo 2"}, "url": {"nope"}}, nil)
	if resp.status != http.StatusUnprocessableEntity {
		t.Errorf("invalid update: status = %d", resp.status)
	}
	resp = env.request(t, http.MethodPost, "/admin/links/"+rec.ID, url.Values{"title": {"Promo 2"}, "url": {"https://promo2.example.com"}}, nil)
	if resp.status != http.StatusSeeOther {
		t.Fatalf("update: status = %d", resp.status)
	}
	if got, _ := env.links.MostRecent(ctx); got.Title != "Promo 2" || got.ID != rec.ID {
		t.Errorf("after update = %+v", got)
	}

	resp = env.request(t, http.MethodPost, "/admin/links/missing", url.Values{"title": {"X"}, "url": {"https://x.example.com"}}, nil)
	if resp.status != http.StatusSeeOther {
		t.Errorf("update missing: status = %d", resp.status)
	}
	if resp := env.request(t, http.MethodGet, "/admin", nil, nil); !strings.Contains(resp.body, "That link no longer exists.") {
		t.Error("update of a missing link should flash an error")
	}

	env.request(t, http.MethodPost, "/admin/links/"+rec.ID+"/delete", url.Values{}, nil)
	if n := len(env.links.List(ctx)); n != 0 {
		t.Errorf("links after delete = %d", n)
	}

	env.links.Add(ctx, "A", "https://a.example.com")
	env.links.Add(ctx, "B", "https://b.example.com")
	env.request(t, http.MethodPost, "/admin/links/clear", url.Values{}, nil)
	if n := len(env.links.List(ctx)); n != 0 {
		t.Errorf("links after clear = %d", n)
	}

	resp = env.request(t, http.MethodPost, "/admin/logout", url.Values{}, nil)
	if resp.header.Get("Location") != "/" {
		t.Errorf("logout location = %q", resp.header.Get("Location"))
	}
	if resp := env.request(t, http.MethodGet, "/admin", nil, nil); resp.status != http.StatusFound {
		t.Errorf("GET /admin after logout: status = %d", resp.status)
	}
}

func TestAPI_UsesWebSession(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.request(t, http.MethodGet, "/api/v1/links", nil, nil); resp.status != http.StatusUnauthorized {
		t.Errorf("before login: status = %d, want 401", resp.status)
	}
	env.login(t)
	if resp := env.request(t, http.MethodGet, "/api/v1/links", nil, nil); resp.status != http.StatusOK {
		t.Errorf("after login: status = %d, want 200", resp.status)
	}
	if resp := env.request(t, http.MethodGet, "/api/v1/nope", nil, nil); resp.status != http.StatusNotFound || !strings.Contains(resp.body, "NOT_FOUND") {
		t.Errorf("unknown api route: status = %d body = %q", resp.status, resp.body)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.request(t, http.MethodGet, "/healthz", nil, nil); resp.status != http.StatusOK || resp.body != "ok" {
		t.Errorf("/healthz: %d %q", resp.status, resp.body)
	}
	resp := env.request(t, http.MethodGet, "/metrics", nil, nil)
	if resp.status != http.StatusOK || !strings.Contains(resp.body, "joegate_links_total") {
		t.Errorf("/metrics: status = %d", resp.status)
	}
	if resp := env.request(t, http.MethodGet, "/static/js/gate.js", nil, nil); resp.status != http.StatusOK {
		t.Errorf("/static/js/gate.js: status = %d", resp.status)
	}
}
