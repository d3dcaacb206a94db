package web

import (
	"net/http"

	"gblog/internal/auth"
	"gblog/internal/config"
	"gblog/internal/post"
	"gblog/internal/render"
)

type Server struct {
	cfg   config.Config
	repo  *post.Repository
	md    *render.Renderer
	gate  *auth.Gate
	mux   *http.ServeMux
	views *Templates
}

func NewServer(cfg config.Config, repo *post.Repository, gate *auth.Gate) *Server {
	s := &Server{
		cfg:   cfg,
		repo:  repo,
		md:    render.New(),
		gate:  gate,
		mux:   http.NewServeMux(),
		views: MustParseTemplates(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/search", s.handleSearch)
	s.mux.HandleFunc("/posts/new", s.handleNewPost)
	s.mux.HandleFunc("/posts/save", s.handleSavePost)
	s.mux.HandleFunc("/posts/", s.handlePosts)
	s.mux.HandleFunc("/preview", s.handlePreview)
	s.mux.HandleFunc("/images", s.handleImage)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/logout", s.handleLogout)
}
