package web

import (
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gblog/internal/editor"
	"gblog/internal/post"
	"gblog/internal/render"
	"gblog/internal/search"
)

// Cards for posts whose body has not loaded show a placeholder estimate.
const fallbackReadTime = 3

const maxImageUpload = 10 << 20

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := s.libraryData(r)
	data.Title = "Home"
	data.ContentTemplate = "home"
	s.views.RenderPage(w, data)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	data := s.libraryData(r)
	if r.Header.Get("HX-Request") == "true" {
		s.views.RenderTemplate(w, "library", data)
		return
	}
	data.Title = "Search"
	data.ContentTemplate = "home"
	s.views.RenderPage(w, data)
}

// libraryData recomputes the filtered view from scratch on every request;
// the collection is small enough that caching would only invite staleness.
func (s *Server) libraryData(r *http.Request) ViewData {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	selected := r.URL.Query().Get("tag")

	posts := s.repo.All()
	filtered := search.Filter(posts, query, selected)

	return ViewData{
		IsAdmin:     s.gate.IsAdmin(),
		SearchQuery: query,
		SelectedTag: selected,
		Tags:        tagLinks(search.Tags(posts), query, selected),
		Posts:       cards(filtered),
		Featured:    featuredCard(filtered),
	}
}

func tagLinks(tags []string, query, selected string) []TagLink {
	out := make([]TagLink, 0, len(tags))
	for _, name := range tags {
		vals := url.Values{}
		if query != "" {
			vals.Set("q", query)
		}
		if next := search.Toggle(selected, name); next != "" {
			vals.Set("tag", next)
		}
		href := "/search"
		if enc := vals.Encode(); enc != "" {
			href += "?" + enc
		}
		out = append(out, TagLink{Name: name, Href: href, Active: name == selected})
	}
	return out
}

func cards(posts []post.Post) []PostCard {
	out := make([]PostCard, 0, len(posts))
	for _, p := range posts {
		out = append(out, card(p))
	}
	return out
}

func card(p post.Post) PostCard {
	readTime := fallbackReadTime
	if p.Content != nil {
		readTime = render.ReadingTime(p.Body())
	}
	return PostCard{
		Slug:     p.Slug,
		Title:    p.Title,
		Tag:      p.Tag,
		Date:     p.Date,
		ReadTime: readTime,
	}
}

func featuredCard(filtered []post.Post) *PostCard {
	f := search.Featured(filtered)
	if f == nil {
		return nil
	}
	c := card(*f)
	return &c
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	pathPart := strings.TrimPrefix(r.URL.Path, "/posts/")
	pathPart = strings.TrimSuffix(pathPart, "/")
	if pathPart == "" {
		http.NotFound(w, r)
		return
	}
	if strings.HasSuffix(pathPart, "/edit") {
		s.handleEditPost(w, r, strings.TrimSuffix(pathPart, "/edit"))
		return
	}
	if strings.HasSuffix(pathPart, "/delete") {
		s.handleDeletePost(w, r, strings.TrimSuffix(pathPart, "/delete"))
		return
	}
	s.handleViewPost(w, r, pathPart)
}

func (s *Server) handleViewPost(w http.ResponseWriter, r *http.Request, slug string) {
	p, ok := s.repo.Get(slug)
	if !ok {
		http.NotFound(w, r)
		return
	}
	htmlStr, err := s.md.Render(p.Body())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	c := card(p)
	data := ViewData{
		Title:           p.Title,
		ContentTemplate: "view",
		IsAdmin:         s.gate.IsAdmin(),
		Post:            &c,
		RenderedHTML:    template.HTML(htmlStr),
		ReadTime:        render.ReadingTime(p.Body()),
	}
	if r.URL.Query().Get("shadowed") == "1" {
		data.Notice = "This edit shadows a published post; the original returns if the local copy is deleted."
	}
	s.views.RenderPage(w, data)
}

func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w) {
		return
	}
	buf := editor.NewBuffer(s.cfg.DefaultTag)
	s.renderEditor(w, buf, "", http.StatusOK)
}

func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w) {
		return
	}
	p, ok := s.repo.Get(slug)
	if !ok {
		http.NotFound(w, r)
		return
	}
	buf := editor.NewBuffer(s.cfg.DefaultTag)
	buf.Edit(p)
	s.renderEditor(w, buf, "", http.StatusOK)
}

func (s *Server) renderEditor(w http.ResponseWriter, buf *editor.Buffer, errMsg string, status int) {
	title := "New post"
	if buf.EditingSlug != "" {
		title = "Edit post"
	}
	data := ViewData{
		Title:           title,
		ContentTemplate: "edit",
		IsAdmin:         true,
		Editor: &EditorView{
			Title:       buf.Title,
			Tag:         buf.Tag,
			Markdown:    buf.Markdown,
			EditingSlug: buf.EditingSlug,
			Error:       errMsg,
		},
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	s.views.RenderPage(w, data)
}

func (s *Server) handleSavePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buf := editor.NewBuffer(s.cfg.DefaultTag)
	buf.Title = r.Form.Get("title")
	buf.Tag = r.Form.Get("tag")
	buf.Markdown = r.Form.Get("markdown")
	buf.EditingSlug = r.Form.Get("editing_slug")

	saved, shadowed, err := buf.Save(s.repo)
	switch {
	case errors.Is(err, post.ErrTitleRequired), errors.Is(err, post.ErrTagRequired):
		// The buffer keeps the author's input so they can correct and retry.
		s.renderEditor(w, buf, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, post.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("post saved", "slug", saved.Slug, "shadowed", shadowed)
	target := "/posts/" + url.PathEscape(saved.Slug)
	if shadowed {
		target += "?shadowed=1"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Declined confirmation means no side effect at all.
	if r.Form.Get("confirm") != "yes" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.repo.Delete(slug); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("post deleted", "slug", slug)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	content := r.Form.Get("content")
	htmlStr, err := s.md.Render(content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := ViewData{
		RenderedHTML: template.HTML(htmlStr),
		ReadTime:     render.ReadingTime(content),
	}
	s.views.RenderTemplate(w, "preview", data)
}

// handleImage embeds an uploaded image into the submitted markdown as a
// data URI. mode=paste splices at the caret, replacing the selection;
// anything else appends at the end (drop and file-pick behavior).
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w) {
		return
	}
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	item := editor.Item{Type: header.Header.Get("Content-Type"), Data: data}

	buf := editor.NewBuffer(s.cfg.DefaultTag)
	buf.Markdown = r.FormValue("markdown")

	var handled bool
	if r.FormValue("mode") == "paste" {
		selStart, _ := strconv.Atoi(r.FormValue("sel_start"))
		selEnd, _ := strconv.Atoi(r.FormValue("sel_end"))
		handled = buf.PasteImage([]editor.Item{item}, selStart, selEnd)
	} else {
		handled = buf.AppendImage(item)
	}
	if !handled {
		http.Error(w, "not an image", http.StatusUnsupportedMediaType)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, buf.Markdown)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.gate.Login(r.Form.Get("email")); err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		s.views.RenderTemplate(w, "login", ViewData{LoginError: "Access denied"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.gate.Logout(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) requireAdmin(w http.ResponseWriter) bool {
	if s.gate.IsAdmin() {
		return true
	}
	http.Error(w, "forbidden", http.StatusForbidden)
	return false
}
