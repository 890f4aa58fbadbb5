package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/printables-app/server/internal/handlers"
	"github.com/printables-app/server/internal/services"
	"github.com/printables-app/server/internal/session"
	"github.com/printables-app/server/internal/storage"
	"github.com/printables-app/server/internal/store"
	"github.com/printables-app/server/internal/token"
	"github.com/printables-app/server/types"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return types.User{}, store.ErrConflict
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.Username] = user
	return user, nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, u := range r.users {
		if u.ID == id {
			u.IsVerified = true
			r.users[name] = u
			return nil
		}
	}
	return store.ErrNotFound
}

type memAuditLog struct {
	mu      sync.Mutex
	actions []string
}

func (l *memAuditLog) Append(_ context.Context, _ int, action, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, action)
	return nil
}

type captureMailer struct {
	mu   sync.Mutex
	body map[string]string
}

func (m *captureMailer) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.body == nil {
		m.body = make(map[string]string)
	}
	m.body[to] = body
	return nil
}

var confirmLinkPattern = regexp.MustCompile(`/confirm/([A-Za-z0-9._-]+)`)

type app struct {
	ts     *httptest.Server
	mailer *captureMailer
	logs   *memAuditLog
}

func newApp(t *testing.T) *app {
	t.Helper()

	files := storage.NewLocal(t.TempDir())
	tokens := token.NewService("test-secret")
	mailer := &captureMailer{}
	logs := &memAuditLog{}
	sessions := session.NewManager(session.NewMemory(), "printables_session", time.Hour, false)

	userService := services.NewUserService(newFakeUserRepo(), files, tokens, mailer, "http://localhost")
	fileService := services.NewFileService(files, logs, nil)

	router := chi.NewRouter()
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, userService, sessions)
	handlers.FilesRouter(router, fileService, sessions)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return &app{ts: ts, mailer: mailer, logs: logs}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func (a *app) register(t *testing.T, client *http.Client, username, email, password string) {
	t.Helper()
	form := url.Values{"username": {username}, "email": {email}, "password": {password}}
	resp, err := client.PostForm(a.ts.URL+"/register", form)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = resp.Body.Close()
}

func (a *app) confirm(t *testing.T, client *http.Client, email string) {
	t.Helper()
	a.mailer.mu.Lock()
	body := a.mailer.body[email]
	a.mailer.mu.Unlock()
	match := confirmLinkPattern.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("no confirmation link mailed to %s", email)
	}

	resp, err := client.Get(a.ts.URL + "/confirm/" + match[1])
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_ = resp.Body.Close()
}

func (a *app) login(t *testing.T, client *http.Client, username, password string) {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := client.PostForm(a.ts.URL+"/login", form)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_ = resp.Body.Close()
}

func (a *app) upload(t *testing.T, client *http.Client, filename, content string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = writer.Close()

	resp, err := client.Post(a.ts.URL+"/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	_ = resp.Body.Close()
}

func (a *app) dashboard(t *testing.T, client *http.Client) string {
	t.Helper()
	resp, err := client.Get(a.ts.URL + "/dashboard")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	return string(page)
}

func TestAccountAndFileLifecycle(t *testing.T) {
	a := newApp(t)
	client := newClient(t)

	a.register(t, client, "alice", "alice@x.com", "pw1")
	a.confirm(t, client, "alice@x.com")
	a.login(t, client, "alice", "pw1")

	a.upload(t, client, "notes.txt", "remember the milk")
	if page := a.dashboard(t, client); !strings.Contains(page, "notes.txt") {
		t.Fatalf("dashboard should list notes.txt:\n%s", page)
	}

	resp, err := client.Post(a.ts.URL+"/print/notes.txt", "", nil)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("print status = %d, want 204", resp.StatusCode)
	}
	if len(body) != 0 {
		t.Fatalf("print body should be empty, got %q", body)
	}

	if page := a.dashboard(t, client); strings.Contains(page, `href="/files/notes.txt"`) {
		t.Fatalf("printed file must be gone from the dashboard:\n%s", page)
	}

	a.logs.mu.Lock()
	actions := append([]string(nil), a.logs.actions...)
	a.logs.mu.Unlock()
	if len(actions) != 2 || actions[0] != types.ActionUpload || actions[1] != types.ActionPrint {
		t.Fatalf("unexpected audit trail: %v", actions)
	}
}

func TestLoginRejectedBeforeConfirmation(t *testing.T) {
	a := newApp(t)
	client := newClient(t)

	a.register(t, client, "alice", "alice@x.com", "pw1")
	a.login(t, client, "alice", "pw1")

	// Without a session the dashboard bounces to the login page.
	resp, err := noRedirectClient().Get(a.ts.URL + "/dashboard")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	// The login attempt must not have produced a usable session either.
	if page := a.dashboard(t, client); !strings.Contains(page, "Log in") {
		t.Fatalf("unverified login should land back on the login page:\n%s", page)
	}
}

func TestUploadFiltersDisallowedExtensions(t *testing.T) {
	a := newApp(t)
	client := newClient(t)

	a.register(t, client, "alice", "alice@x.com", "pw1")
	a.confirm(t, client, "alice@x.com")
	a.login(t, client, "alice", "pw1")

	a.upload(t, client, "malware.exe", "MZ")
	a.upload(t, client, "report.pdf", "%PDF-")

	page := a.dashboard(t, client)
	if strings.Contains(page, "malware.exe") {
		t.Fatalf("malware.exe must not be saved:\n%s", page)
	}
	if !strings.Contains(page, "report.pdf") {
		t.Fatalf("report.pdf should be listed:\n%s", page)
	}

	a.logs.mu.Lock()
	defer a.logs.mu.Unlock()
	if len(a.logs.actions) != 1 {
		t.Fatalf("expected one audit entry, got %v", a.logs.actions)
	}
}

func TestUsersCannotReachEachOthersFiles(t *testing.T) {
	a := newApp(t)

	bob := newClient(t)
	a.register(t, bob, "bob", "bob@x.com", "pw2")
	a.confirm(t, bob, "bob@x.com")
	a.login(t, bob, "bob", "pw2")
	a.upload(t, bob, "secret.txt", "bob's secret")

	alice := newClient(t)
	a.register(t, alice, "alice", "alice@x.com", "pw1")
	a.confirm(t, alice, "alice@x.com")
	a.login(t, alice, "alice", "pw1")

	resp, err := alice.Get(a.ts.URL + "/files/secret.txt")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("alice fetching bob's file: status = %d, want 404", resp.StatusCode)
	}

	// Deleting it from alice's account must not touch bob's copy.
	resp, err = alice.Post(a.ts.URL+"/delete/secret.txt", "", nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = resp.Body.Close()

	resp, err = bob.Get(a.ts.URL + "/files/secret.txt")
	if err != nil {
		t.Fatalf("bob download: %v", err)
	}
	content, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(content) != "bob's secret" {
		t.Fatalf("bob's file should be intact, got %d %q", resp.StatusCode, content)
	}
}

func TestDownloadServesContent(t *testing.T) {
	a := newApp(t)
	client := newClient(t)

	a.register(t, client, "alice", "alice@x.com", "pw1")
	a.confirm(t, client, "alice@x.com")
	a.login(t, client, "alice", "pw1")
	a.upload(t, client, "notes.txt", "remember the milk")

	resp, err := client.Get(a.ts.URL + "/files/notes.txt")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	content, _ := io.ReadAll(resp.Body)
	if string(content) != "remember the milk" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	a := newApp(t)
	client := newClient(t)

	a.register(t, client, "alice", "alice@x.com", "pw1")
	a.confirm(t, client, "alice@x.com")
	a.login(t, client, "alice", "pw1")

	resp, err := client.Get(a.ts.URL + "/logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	_ = resp.Body.Close()

	if page := a.dashboard(t, client); !strings.Contains(page, "Log in") {
		t.Fatalf("dashboard after logout should bounce to login:\n%s", page)
	}
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
