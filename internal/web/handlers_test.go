package web

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"gblog/internal/auth"
	"gblog/internal/config"
	"gblog/internal/post"
	"gblog/internal/store"
)

func newTestServer(t *testing.T, adminEmail string) (*Server, *post.Repository, *auth.Gate) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "blog.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	repo := post.NewRepository(post.NewOverlay(st), nil)
	gate, err := auth.NewGate(adminEmail, "", st)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	cfg := config.Config{DefaultTag: "Development"}
	return NewServer(cfg, repo, gate), repo, gate
}

func loginAdmin(t *testing.T, g *auth.Gate, email string) {
	t.Helper()
	if err := g.Login(email); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func get(h http.Handler, target string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHomeListsPosts(t *testing.T) {
	s, repo, _ := newTestServer(t, "")
	if _, err := repo.Create("Hello World", "Development", "# Hello"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create("Testing Patterns", "Testing", "# Patterns"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := get(s.Handler(), "/", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Hello World", "Testing Patterns", "Development", "Testing"} {
		if !strings.Contains(body, want) {
			t.Fatalf("home missing %q", want)
		}
	}
}

func TestHomeRejectsUnknownPaths(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	if rec := get(s.Handler(), "/nope", false); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSearchRendersPartialForHTMX(t *testing.T) {
	s, repo, _ := newTestServer(t, "")
	if _, err := repo.Create("Hello World", "Development", "hi"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create("Other", "Design", "x"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := get(s.Handler(), "/search?q=hello", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Fatalf("HX-Request must get a partial, got full page")
	}
	if !strings.Contains(body, "Hello World") || strings.Contains(body, ">Other<") {
		t.Fatalf("filter not applied: %s", body)
	}

	// Without the header the same query renders a full page.
	full := get(s.Handler(), "/search?q=hello", false)
	if !strings.Contains(full.Body.String(), "<html") {
		t.Fatalf("plain request must get the full page")
	}
}

func TestSearchFiltersByTag(t *testing.T) {
	s, repo, _ := newTestServer(t, "")
	if _, err := repo.Create("Go Notes", "Development", "x"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create("Sketches", "Design", "x"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := get(s.Handler(), "/search?tag=Design", true)
	body := rec.Body.String()
	if !strings.Contains(body, "Sketches") || strings.Contains(body, "Go Notes") {
		t.Fatalf("tag filter not applied: %s", body)
	}
}

func TestLibraryHeadingShowsFilteredCount(t *testing.T) {
	s, repo, _ := newTestServer(t, "")
	if _, err := repo.Create("Hello World", "Development", "x"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create("Other", "Design", "x"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := get(s.Handler(), "/", false)
	if !strings.Contains(rec.Body.String(), "Library (2)") {
		t.Fatalf("home heading missing full count: %s", rec.Body.String())
	}

	// The count follows the filtered view, not the whole collection.
	rec = get(s.Handler(), "/search?q=hello", true)
	if !strings.Contains(rec.Body.String(), "Library (1)") {
		t.Fatalf("search heading missing filtered count: %s", rec.Body.String())
	}
}

func TestViewPostRendersMarkdown(t *testing.T) {
	s, repo, _ := newTestServer(t, "")
	p, err := repo.Create("Hello", "Development", "# Heading\n\nbody text")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := get(s.Handler(), "/posts/"+p.Slug, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1") || !strings.Contains(body, "body text") {
		t.Fatalf("markdown not rendered: %s", body)
	}
	if !strings.Contains(body, "min read") {
		t.Fatalf("read time missing")
	}
}

func TestViewUnknownPostIs404(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	if rec := get(s.Handler(), "/posts/missing", false); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEditorOffersFilePickUpload(t *testing.T) {
	s, _, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")

	rec := get(s.Handler(), "/posts/new", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `type="file"`) || !strings.Contains(body, `accept="image/*"`) {
		t.Fatalf("editor missing file-pick input")
	}
}

func TestEditorRoutesRequireAdmin(t *testing.T) {
	s, repo, _ := newTestServer(t, "author@example.com")
	p, _ := repo.Create("Hello", "Development", "x")

	if rec := get(s.Handler(), "/posts/new", false); rec.Code != http.StatusForbidden {
		t.Fatalf("new: status = %d, want 403", rec.Code)
	}
	if rec := get(s.Handler(), "/posts/"+p.Slug+"/edit", false); rec.Code != http.StatusForbidden {
		t.Fatalf("edit: status = %d, want 403", rec.Code)
	}
	if rec := postForm(s.Handler(), "/posts/save", url.Values{"title": {"x"}}); rec.Code != http.StatusForbidden {
		t.Fatalf("save: status = %d, want 403", rec.Code)
	}
	if rec := postForm(s.Handler(), "/posts/"+p.Slug+"/delete", url.Values{"confirm": {"yes"}}); rec.Code != http.StatusForbidden {
		t.Fatalf("delete: status = %d, want 403", rec.Code)
	}
	if _, ok := repo.Get(p.Slug); !ok {
		t.Fatalf("forbidden delete must not remove the post")
	}
}

func TestSaveValidationKeepsInput(t *testing.T) {
	s, repo, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")

	rec := postForm(s.Handler(), "/posts/save", url.Values{
		"title":    {"   "},
		"tag":      {"Development"},
		"markdown": {"precious draft text"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "precious draft text") {
		t.Fatalf("entered markdown must survive a failed save")
	}
	if got := len(repo.All()); got != 0 {
		t.Fatalf("failed save must not persist, have %d posts", got)
	}
}

func TestSaveCreatesAndRedirects(t *testing.T) {
	s, repo, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")

	rec := postForm(s.Handler(), "/posts/save", url.Values{
		"title":    {"Fresh Post"},
		"tag":      {"Development"},
		"markdown": {"# Fresh"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/posts/local-") {
		t.Fatalf("redirect target = %q", loc)
	}
	posts := repo.All()
	if len(posts) != 1 || posts[0].Title != "Fresh Post" {
		t.Fatalf("post not created: %+v", posts)
	}
}

func TestSaveUpdateRedirects(t *testing.T) {
	s, repo, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")
	p, _ := repo.Create("Before", "Development", "old")

	rec := postForm(s.Handler(), "/posts/save", url.Values{
		"title":        {"After"},
		"tag":          {"Development"},
		"markdown":     {"new"},
		"editing_slug": {p.Slug},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	got, ok := repo.Get(p.Slug)
	if !ok || got.Title != "After" || got.Body() != "new" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestDeleteWithoutConfirmIsNoop(t *testing.T) {
	s, repo, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")
	p, _ := repo.Create("Keep Me", "Development", "x")

	rec := postForm(s.Handler(), "/posts/"+p.Slug+"/delete", url.Values{"confirm": {""}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if _, ok := repo.Get(p.Slug); !ok {
		t.Fatalf("declined confirmation must not delete")
	}

	rec = postForm(s.Handler(), "/posts/"+p.Slug+"/delete", url.Values{"confirm": {"yes"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if _, ok := repo.Get(p.Slug); ok {
		t.Fatalf("confirmed delete must remove the post")
	}
}

func TestPreviewRendersSubmittedMarkdown(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	rec := postForm(s.Handler(), "/preview", url.Values{"content": {"# Draft\n\nsome words"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1") || !strings.Contains(body, "some words") {
		t.Fatalf("preview missing rendered content: %s", body)
	}
	if !strings.Contains(body, "1 min read") {
		t.Fatalf("preview missing read time: %s", body)
	}
}

func TestLoginLogoutFlow(t *testing.T) {
	s, _, gate := newTestServer(t, "author@example.com")

	rec := postForm(s.Handler(), "/login", url.Values{"email": {"intruder@example.com"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Access denied") {
		t.Fatalf("denied login must show a generic error")
	}
	if gate.IsAdmin() {
		t.Fatalf("denied login must not grant admin")
	}

	rec = postForm(s.Handler(), "/login", url.Values{"email": {" Author@Example.com "}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if !gate.IsAdmin() {
		t.Fatalf("login did not grant admin")
	}

	rec = postForm(s.Handler(), "/logout", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if gate.IsAdmin() {
		t.Fatalf("logout did not clear admin")
	}
}

// 1x1 transparent PNG.
const pngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func postImage(t *testing.T, h http.Handler, fields map[string]string, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestImageUploadAppendsDataURI(t *testing.T) {
	s, _, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")
	png, _ := base64.StdEncoding.DecodeString(pngB64)

	rec := postImage(t, s.Handler(), map[string]string{"markdown": "# Draft"}, "shot.png", "image/png", png)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := rec.Body.String()
	if !strings.HasPrefix(got, "# Draft") || !strings.Contains(got, "![image](data:image/png;base64,") {
		t.Fatalf("data URI not appended: %s", got)
	}
}

func TestImageUploadPasteSplicesAtSelection(t *testing.T) {
	s, _, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")
	png, _ := base64.StdEncoding.DecodeString(pngB64)

	fields := map[string]string{
		"markdown":  "foobar",
		"mode":      "paste",
		"sel_start": "3",
		"sel_end":   "3",
	}
	rec := postImage(t, s.Handler(), fields, "shot.png", "image/png", png)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := rec.Body.String()
	if !strings.HasPrefix(got, "foo![image](data:image/png;base64,") || !strings.HasSuffix(got, ")bar") {
		t.Fatalf("image not spliced at caret: %s", got)
	}
}

func TestImageUploadRejectsNonImages(t *testing.T) {
	s, _, gate := newTestServer(t, "author@example.com")
	loginAdmin(t, gate, "author@example.com")

	rec := postImage(t, s.Handler(), map[string]string{"markdown": "draft"}, "notes.txt", "text/plain", []byte("just text"))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}
