package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klavins/tender-finder/internal/config"
)

const testNoticeXML = `<?xml version="1.0" encoding="UTF-8"?>
<notice>
  <name>Sporta inventāra piegāde</name>
  <description>Sporta inventāra piegāde izglītības iestādēm</description>
  <authority_name>Rīgas dome</authority_name>
  <procurement_code>IUB-2025-0001</procurement_code>
  <main_cpv><code>37400000-2</code></main_cpv>
  <deadline>2099-01-01</deadline>
  <status>IZSLUDINĀTS</status>
</notice>`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	base := t.TempDir()
	corpus := filepath.Join(base, "corpus")
	day := filepath.Join(corpus, "01_07_2025")
	if err := os.MkdirAll(day, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(day, "notice.xml"), []byte(testNoticeXML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.CorpusDir = corpus
	cfg.ArchiveDir = filepath.Join(base, "archive")
	return NewServer(cfg)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSearch_ReturnsMatches(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/search",
		`{"start_date":"2025-07-01","end_date":"2025-07-01","keywords":["sports"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp searchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalFound != 1 {
		t.Fatalf("total_found = %d", resp.TotalFound)
	}
	if got := resp.Results[0].Title; got != "Sporta inventāra piegāde" {
		t.Errorf("title = %q", got)
	}
}

func TestSearch_ResultsAreFlatRecords(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/search",
		`{"start_date":"2025-07-01","end_date":"2025-07-01","keywords":["sports"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Results []map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	entry := resp.Results[0]
	for _, key := range []string{"title", "status", "cpv_codes", "matched_keywords"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("missing top-level %q in result entry", key)
		}
	}
	if _, ok := entry["notice"]; ok {
		t.Error("result entry must not nest the record under a wrapper key")
	}
}

func TestSearch_SnippetsOnRequest(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/search",
		`{"start_date":"2025-07-01","end_date":"2025-07-01","keywords":["sports"],"include_snippets":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp searchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || len(resp.Results[0].Snippets) == 0 {
		t.Fatalf("expected snippets, got %+v", resp.Results)
	}
}

func TestSearch_MissingDatesRejected(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/search", `{"keywords":["sports"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSearch_InvertedRangeRejected(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/search",
		`{"start_date":"2025-07-02","end_date":"2025-07-01","keywords":["sports"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"suggested_keywords", "common_cpv_codes", "statuses", "deadline_statuses", "procedure_groups"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("missing %q in config response", key)
		}
	}
}

func TestStatus_NoMetadata(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "error" {
		t.Errorf("status field = %v, want error before first fetch", resp["status"])
	}
}

func TestAdmin_RejectsWithoutSecret(t *testing.T) {
	t.Setenv("ADMIN_SECRET", "test-secret")
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/admin/fetch", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdmin_JobNotFound(t *testing.T) {
	t.Setenv("ADMIN_SECRET", "test-secret")
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/job/nope", nil)
	req.Header.Set("X-Admin-Secret", "test-secret")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
