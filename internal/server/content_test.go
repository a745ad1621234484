package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratelens/demoserver/internal/session"
)

func TestSanitizeParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"abc:def", "abc_def"},
		{"a/b/c", "a_b_c"},
		{"../escape", ".._escape"},
		{`a\b`, "a_b"},
		{"plain-key", "plain-key"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeParam(tt.in))
	}
}

func TestContentRoutes(t *testing.T) {
	t.Parallel()

	srv, fsys := newTestServer(t)

	// Per-version fixtures for the mainline dataset.
	fixtures := map[string]string{
		"/data/acme/mainline/merchants/30.json":                `{"id":30,"name":"Corner Shop"}`,
		"/data/acme/mainline/monthly/30.json":                  `{"months":[]}`,
		"/data/acme/mainline/plans/30.json":                    `[{"plan_key":"abc:def"}]`,
		"/data/acme/mainline/plans/details/abc_def.json":       `{"plan_key":"abc:def","rate":1.5}`,
		"/data/acme/mainline/stability/30.json":                `{"score":0.9}`,
		"/data/acme/mainline/dynamics/30.json":                 `{"trend":"flat"}`,
		"/data/acme/mainline/analysis/30.json":                 `{"verdict":"ok"}`,
		"/data/acme/mainline/analysis-config/30.json":          `{"thresholds":{}}`,
		"/data/acme/mainline/plan-dynamics/30/p-1.json":        `{"points":[]}`,
		"/data/acme/mainline/contracts/30.json":                `[{"contract_id":"c-77"}]`,
		"/data/acme/mainline/contracts/details/c-77.json":      `{"contract_id":"c-77"}`,
		"/data/acme/mainline/contracts/mapping/c-77.json":      `{"mapping":{}}`,
		"/data/acme/mainline/transactions/dd12a0ff-1.json":     `{"amount":100}`,
		"/data/acme/mainline/transactions/why/dd12a0ff-1.json": `{"reason":"contract"}`,
		"/data/acme/mainline/reports/deviation.json":           `{"rows":[]}`,
		"/data/acme/mainline/reports/deviation-underpay.json":  `{"rows":["u"]}`,
		"/data/acme/mainline/reports/contract-mismatch.json":   `{"rows":["m"]}`,
		"/data/acme/mainline/reports/anomalies.json":           `{"rows":["a"]}`,
		"/data/acme/mainline/dsl-config.json":                  `{"dsl":true}`,
		"/data/acme/mainline/ontology-mapping.json":            `{"ontology":true}`,
		"/data/acme/mainline/experiments.json":                 `["exp-1"]`,
	}
	for path, content := range fixtures {
		writeFixture(t, fsys, path, content)
	}

	h := srv.Handler()
	cookie := login(t, h)

	routes := map[string]string{
		"/api/merchants":                          `[{"id":30}]`,
		"/api/merchants/30":                       `{"id":30,"name":"Corner Shop"}`,
		"/api/merchants/30/monthly":               `{"months":[]}`,
		"/api/merchants/30/plans":                 `[{"plan_key":"abc:def"}]`,
		"/api/merchants/30/plans/abc:def":         `{"plan_key":"abc:def","rate":1.5}`,
		"/api/merchants/30/stability":             `{"score":0.9}`,
		"/api/merchants/30/dynamics":              `{"trend":"flat"}`,
		"/api/merchants/30/analysis":              `{"verdict":"ok"}`,
		"/api/merchants/30/rate-plan-analysis":    `{"verdict":"ok"}`,
		"/api/merchants/30/analysis-config":       `{"thresholds":{}}`,
		"/api/merchants/30/plan-dynamics/p-1":     `{"points":[]}`,
		"/api/contracts/30":                       `[{"contract_id":"c-77"}]`,
		"/api/contracts/30/c-77":                  `{"contract_id":"c-77"}`,
		"/api/contracts/30/c-77/mapping":          `{"mapping":{}}`,
		"/api/transactions/dd12a0ff-1":            `{"amount":100}`,
		"/api/transactions/dd12a0ff-1/why":        `{"reason":"contract"}`,
		"/api/reports/deviation":                  `{"rows":[]}`,
		"/api/reports/deviation/underpay":         `{"rows":["u"]}`,
		"/api/reports/contract-mismatch":          `{"rows":["m"]}`,
		"/api/reports/anomalies":                  `{"rows":["a"]}`,
		"/api/dsl-config":                         `{"dsl":true}`,
		"/api/ontology-mapping":                   `{"ontology":true}`,
		"/api/experiments":                        `["exp-1"]`,
		"/api/pipeline-config":                    `{"stages":[]}`,
	}

	for target, want := range routes {
		t.Run(target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, target, "", cookie)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, want, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestContentRoutes_IdentifierPatterns(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()
	cookie := login(t, h)

	// Identifiers that do not match their pattern never reach a handler.
	for _, target := range []string{
		"/api/merchants/not-numeric",
		"/api/merchants/30x/monthly",
		"/api/contracts/abc",
		"/api/contracts/30/c_77",     // underscore not allowed in contract ids
		"/api/transactions/XYZ",      // uppercase is not hex
		"/api/transactions/dd12..5e", // dots are not hex
	} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, target, "", cookie)
			require.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
		})
	}
}

func TestContentRoutes_MissingFixture(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()
	cookie := login(t, h)

	rec := do(t, h, http.MethodGet, "/api/merchants/999", "", cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}

func TestContentRoutes_VersionScoping(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()
	cookie := login(t, h)

	// mainline and v2 carry different merchants listings.
	rec := do(t, h, http.MethodGet, "/api/merchants", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":30}]`, rec.Body.String())

	v2Cookie := session.NewCookie(session.Encode("acme", "v2"))
	rec = do(t, h, http.MethodGet, "/api/merchants", "", v2Cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":30},{"id":243}]`, rec.Body.String())

	// A stale session pointing at a version that no longer exists just 404s.
	staleCookie := session.NewCookie(session.Encode("acme", "ghost"))
	rec = do(t, h, http.MethodGet, "/api/merchants", "", staleCookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPINotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	t.Run("authenticated gets structured 404", func(t *testing.T) {
		cookie := login(t, h)
		rec := do(t, h, http.MethodGet, "/api/no-such-thing", "", cookie)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
	})

	t.Run("unauthenticated gets the gate", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/no-such-thing", "", nil)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	})
}
