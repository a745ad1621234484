package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	"github.com/ratelens/demoserver/internal/session"
)

// paramReplacer neutralizes path-separator and colon characters in
// data-supplied identifiers before they are substituted into a file path.
// This mirrors the extraction step that wrote the fixtures (plan keys are
// stored with ":" and "/" replaced by "_") and is the defense against
// directory traversal via crafted identifiers.
var paramReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

func sanitizeParam(v string) string {
	return paramReplacer.Replace(v)
}

// registerContentRoutes wires the JSON fixture passthrough routes. All of
// them are scoped to the authenticated client's data root and selected
// version, except pipeline-config which is shared across clients.
//
// Identifier patterns: merchant ids are numeric, contract ids alphanumeric
// plus hyphen, transaction ids hex plus hyphen. Non-matching ids never reach
// a handler and fall through to the API 404.
func (s *Server) registerContentRoutes(r chi.Router) {
	r.Get("/merchants", s.fixture("merchants.json"))
	r.Get("/merchants/{id:[0-9]+}", s.fixture("merchants/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/monthly", s.fixture("monthly/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/plans", s.fixture("plans/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/plans/{planKey}", s.fixture("plans/details/%s.json", "planKey"))
	r.Get("/merchants/{id:[0-9]+}/stability", s.fixture("stability/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/dynamics", s.fixture("dynamics/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/analysis", s.fixture("analysis/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/rate-plan-analysis", s.fixture("analysis/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/analysis-config", s.fixture("analysis-config/%s.json", "id"))
	r.Get("/merchants/{id:[0-9]+}/plan-dynamics/{planId}", s.fixture("plan-dynamics/%s/%s.json", "id", "planId"))

	r.Get("/contracts/{merchantId:[0-9]+}", s.fixture("contracts/%s.json", "merchantId"))
	r.Get("/contracts/{merchantId:[0-9]+}/{contractId:[A-Za-z0-9-]+}", s.fixture("contracts/details/%s.json", "contractId"))
	r.Get("/contracts/{merchantId:[0-9]+}/{contractId:[A-Za-z0-9-]+}/mapping", s.fixture("contracts/mapping/%s.json", "contractId"))

	r.Get("/transactions/{txId:[0-9a-f-]+}", s.fixture("transactions/%s.json", "txId"))
	r.Get("/transactions/{txId:[0-9a-f-]+}/why", s.fixture("transactions/why/%s.json", "txId"))

	r.Get("/reports/deviation", s.fixture("reports/deviation.json"))
	r.Get("/reports/deviation/underpay", s.fixture("reports/deviation-underpay.json"))
	r.Get("/reports/contract-mismatch", s.fixture("reports/contract-mismatch.json"))
	r.Get("/reports/anomalies", s.fixture("reports/anomalies.json"))

	r.Get("/dsl-config", s.fixture("dsl-config.json"))
	r.Get("/ontology-mapping", s.fixture("ontology-mapping.json"))
	r.Get("/experiments", s.fixture("experiments.json"))

	r.Get("/pipeline-config", s.sharedFixture("pipeline-config.json"))
}

// fixture returns a handler serving a file inside the session's version
// folder. pattern is a fmt template; params name the chi URL parameters
// substituted into it after sanitization.
func (s *Server) fixture(pattern string, params ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := make([]any, len(params))
		for i, name := range params {
			args[i] = sanitizeParam(chi.URLParam(r, name))
		}
		client := clientFrom(r.Context())
		rel := fmt.Sprintf(pattern, args...)
		s.serveDataFile(w, filepath.Join(client.DataDir, versionFrom(r.Context()), rel))
	}
}

// sharedFixture serves a file at the data root, outside any client or
// version scope.
func (s *Server) sharedFixture(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveDataFile(w, filepath.Join(s.registry.DataDir(), name))
	}
}

// serveDataFile writes a fixture verbatim. A miss is a structured 404, never
// an error to the caller.
func (s *Server) serveDataFile(w http.ResponseWriter, path string) {
	data, err := afero.ReadFile(s.dataFS, path)
	if err != nil {
		s.notFoundJSON(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) notFoundJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// apiNotFound is the catch-all under /api. Authenticated callers get the
// structured 404; anyone else gets the gate, same as every other path.
func (s *Server) apiNotFound(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromRequest(r); ok {
		if _, found := s.registry.FindByID(sess.ClientID); found {
			s.notFoundJSON(w)
			return
		}
	}
	s.renderGate(w, r)
}
