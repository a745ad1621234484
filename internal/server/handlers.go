package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ratelens/demoserver/internal/registry"
	"github.com/ratelens/demoserver/internal/session"
	"github.com/ratelens/demoserver/internal/version"
)

// authFailedMessage is deliberately identical for unknown invites and wrong
// passwords so responses do not leak which invite codes exist.
const authFailedMessage = "invalid invite code or password"

type contextKey int

const (
	clientKey contextKey = iota
	versionKey
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}

// clientFrom returns the authenticated client stored by requireSession.
func clientFrom(ctx context.Context) *registry.ClientConfig {
	c, _ := ctx.Value(clientKey).(*registry.ClientConfig)
	return c
}

// versionFrom returns the session's selected version id.
func versionFrom(ctx context.Context) string {
	v, _ := ctx.Value(versionKey).(string)
	return v
}

// requireSession resolves the session cookie against the registry. A valid
// session attaches the client and version to the request context; anything
// else falls through to the gate pages, exactly like an unauthenticated
// page load. The version is not re-validated here: a stale session pointing
// at a removed version simply 404s on file lookups.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := session.FromRequest(r); ok {
			if client, found := s.registry.FindByID(sess.ClientID); found {
				ctx := context.WithValue(r.Context(), clientKey, client)
				ctx = context.WithValue(ctx, versionKey, sess.VersionID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		s.renderGate(w, r)
	})
}

// handleAuth handles POST /auth credential submission. A malformed body is
// treated as a failed credential check, not a distinct error.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.authFailed(w)
		return
	}

	var req struct {
		Invite   string `json:"invite"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.authFailed(w)
		return
	}

	client, ok := s.registry.FindByInviteCode(req.Invite)
	if !ok {
		s.authFailed(w)
		return
	}
	if subtle.ConstantTimeCompare([]byte(client.Password), []byte(req.Password)) != 1 {
		s.authFailed(w)
		return
	}

	http.SetCookie(w, session.NewCookie(session.Encode(client.ID, client.DefaultVersion)))
	s.log.Info("client authenticated", "client", client.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"client":  map[string]string{"id": client.ID, "name": client.Name},
	})
}

func (s *Server) authFailed(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"error":   authFailedMessage,
	})
}

// handleLogout always succeeds; it just asks the browser to drop the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, session.Clear())
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleStatus reports registry health without requiring a session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	exists := s.registry.DataDirExists()

	status := "healthy"
	message := fmt.Sprintf("serving %d clients", s.registry.Count())
	code := http.StatusOK
	if !exists {
		status = "degraded"
		message = "data directory not found"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":        status,
		"dataDir":       s.registry.DataDir(),
		"dataDirExists": exists,
		"clientsLoaded": s.registry.Count(),
		"message":       message,
	})
}

// handleReload re-scans the data directory. The registry replaces its
// contents wholesale; on failure it is left empty, and the response says so.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.registry.Load()

	message := fmt.Sprintf("reloaded %d clients", s.registry.Count())
	if err != nil {
		message = err.Error()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": err == nil,
		"clients": s.registry.Count(),
		"dataDir": s.registry.DataDir(),
		"message": message,
	})
}

// handleVersionSwitch re-issues the session cookie for a different data
// version. The requested version must be in the discovered set; otherwise
// the existing cookie is left untouched.
func (s *Server) handleVersionSwitch(w http.ResponseWriter, r *http.Request) {
	client := clientFrom(r.Context())

	body, err := readBody(r)
	if err != nil {
		s.versionSwitchFailed(w)
		return
	}
	var req struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Version == "" {
		s.versionSwitchFailed(w)
		return
	}
	if !s.resolver.Contains(client, req.Version) {
		s.versionSwitchFailed(w)
		return
	}

	http.SetCookie(w, session.NewCookie(session.Encode(client.ID, req.Version)))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"version": req.Version,
	})
}

func (s *Server) versionSwitchFailed(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"error":   "unknown or invalid version",
	})
}

// handleHealth is the authenticated health check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"client":  clientFrom(r.Context()).ID,
		"version": versionFrom(r.Context()),
	})
}

// handleClient describes the authenticated client.
func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	client := clientFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":              client.ID,
		"name":            client.Name,
		"current_version": versionFrom(r.Context()),
	})
}

// handleClientVersions lists the discovered versions with their metadata,
// substituting a synthetic record where a folder has no version.json.
func (s *Server) handleClientVersions(w http.ResponseWriter, r *http.Request) {
	client := clientFrom(r.Context())

	ids := s.resolver.Discover(client)
	versions := make([]*version.Config, 0, len(ids))
	for _, id := range ids {
		meta := s.resolver.Metadata(client, id)
		if meta == nil {
			meta = version.Synthetic(id)
		}
		versions = append(versions, meta)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"current":  versionFrom(r.Context()),
		"versions": versions,
	})
}
