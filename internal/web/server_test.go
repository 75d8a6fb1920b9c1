// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regform-scan/internal/config"
	"regform-scan/internal/detector"
)

const formHTML = `<html><body><form>
<label for="bn">Business Name</label><input id="bn" name="businessName" type="text" required>
<label for="ein">EIN</label><input id="ein" name="ein" type="text" placeholder="XX-XXXXXXX">
</form></body></html>`

const formSnapshot = `{"address":"https://efile.sunbiz.org/llc_file.html","root":{"tag":"html","children":[
{"tag":"body","children":[{"tag":"form","children":[
{"tag":"label","attrs":{"for":"ein"},"children":[{"text":"EIN"}]},
{"tag":"input","attrs":{"id":"ein","name":"ein","type":"text"}}]}]}]}}`

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, nil, nil)
}

func do(s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "regform-scan", body["service"])
	build, ok := body["build_info"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, build, "go_version")
}

func TestFormats(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/formats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mime_type"`)
}

func TestSummary_NotFoundBeforeFirstPass(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodGet, "/api/summary", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Kind)

	rec = do(s, http.MethodGet, "/api/report", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScan_HTML(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodPost, "/api/scan?address=https://example.gov/register", "text/html", formHTML)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report detector.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, "tax_identifier", findCategory(report, "EIN"))

	rec = do(s, http.MethodGet, "/api/summary", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary detector.DetectionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Total)
}

func TestScan_SnapshotIdentifiesRegion(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodPost, "/api/scan", "application/json", formSnapshot)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report detector.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "FL", report.Summary.Region)
}

func TestScan_RegionOverride(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodPost, "/api/scan?region=tx", "application/json", formSnapshot)
	require.Equal(t, http.StatusOK, rec.Code)

	var report detector.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "TX", report.Summary.Region)
}

func TestScan_TextFormat(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodPost, "/api/scan?format=text", "text/html", formHTML)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "REGISTRATION FORM SCAN")
}

func TestScan_Errors(t *testing.T) {
	small := newTestServer(t, func(c *config.Config) { c.Web.MaxBodyBytes = 16 })

	tests := []struct {
		name        string
		server      *Server
		method      string
		target      string
		contentType string
		body        string
		status      int
		kind        string
	}{
		{"malformed snapshot", nil, http.MethodPost, "/api/scan", "application/json", "{not json", http.StatusBadRequest, "invalid_input"},
		{"empty body", nil, http.MethodPost, "/api/scan", "text/html", "   ", http.StatusBadRequest, "invalid_input"},
		{"unsupported format", nil, http.MethodPost, "/api/scan?format=sarif", "text/html", formHTML, http.StatusBadRequest, "invalid_input"},
		{"body too large", small, http.MethodPost, "/api/scan", "text/html", formHTML, http.StatusRequestEntityTooLarge, "invalid_input"},
		{"wrong method", nil, http.MethodGet, "/api/scan", "", "", http.StatusMethodNotAllowed, "invalid_input"},
		{"unknown route", nil, http.MethodGet, "/api/nothing", "", "", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.server
			if s == nil {
				s = newTestServer(t, nil)
			}
			rec := do(s, tt.method, tt.target, tt.contentType, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			detail := decodeError(t, rec)
			assert.Equal(t, tt.kind, detail.Kind)
			assert.NotEmpty(t, detail.Message)
		})
	}
}

func TestRecoverer_StructuredPanic(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "internal", detail.Kind)
	assert.Contains(t, detail.Message, "boom")
}

func TestStats_CountsPasses(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, http.MethodPost, "/api/scan", "text/html", formHTML)

	rec := do(s, http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"passes":1`)
}

func findCategory(r detector.Report, label string) string {
	for _, f := range r.Fields() {
		if f.Label.Text == label {
			return f.Classification.Category
		}
	}
	return ""
}
