package server

import (
	"embed"
	"html/template"
	"net/http"
	"path"
	"strings"

	"github.com/ratelens/demoserver/internal/session"
	"github.com/ratelens/demoserver/web"
)

//go:embed templates/*.html
var templateFS embed.FS

var gateTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// handleRoot serves every path outside /api: the SPA for authenticated
// sessions, the gate pages for everyone else.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromRequest(r); ok {
		if _, found := s.registry.FindByID(sess.ClientID); found {
			s.serveStatic(w, r)
			return
		}
	}
	s.renderGate(w, r)
}

// serveStatic maps extension-bearing paths to files under the asset root and
// serves the SPA entry document for everything else, including misses, so
// client-side routes deep-link correctly.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if p == "" || p == "." || !strings.Contains(path.Base(p), ".") {
		s.serveIndex(w, r)
		return
	}

	f, err := s.assets.Open(p)
	if err != nil {
		s.serveIndex(w, r)
		return
	}
	f.Close()
	http.ServeFileFS(w, r, s.assets, p)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, s.assets, web.IndexDocument)
}

// renderGate renders the unauthenticated pages. A missing data root always
// wins (setup required); an absent or unknown invite renders the same
// no-invite page so responses do not reveal which invite codes are valid.
func (s *Server) renderGate(w http.ResponseWriter, r *http.Request) {
	if !s.registry.DataDirExists() {
		s.renderTemplate(w, "setup.html", nil)
		return
	}

	invite := r.URL.Query().Get("invite")
	if invite == "" {
		s.renderTemplate(w, "noinvite.html", nil)
		return
	}
	client, ok := s.registry.FindByInviteCode(invite)
	if !ok {
		s.renderTemplate(w, "noinvite.html", nil)
		return
	}

	s.renderTemplate(w, "login.html", map[string]string{
		"ClientName": client.Name,
		"Invite":     invite,
	})
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := gateTemplates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("failed to render gate page", "template", name, "err", err)
	}
}
