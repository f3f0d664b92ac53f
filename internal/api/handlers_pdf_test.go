package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/pdfsift/internal/artifacts"
	"github.com/dgallion1/pdfsift/internal/config"
	"github.com/dgallion1/pdfsift/internal/pdftest"
	"github.com/dgallion1/pdfsift/internal/pipeline"
)

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := artifacts.New(t.TempDir(), time.Hour, log)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	sup := pipeline.NewSupervisor(cfg, nil, store, log)
	return NewServer(sup, store, nil, log, cfg)
}

func defaultTestConfig() config.Config {
	return config.Config{
		MaxConcurrentWork: 4,
		WorkTimeout:       30 * time.Second,
		MaxUploadBytes:    10 << 20,
	}
}

// multipartBody builds a request body with an optional query field and
// any number of file parts under the "pdf" field.
func multipartBody(t *testing.T, query string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if query != "" {
		if err := w.WriteField("query", query); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range files {
		part, err := w.CreateFormFile("pdf", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func doSearch(t *testing.T, srv *Server, query string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, query, files)
	req := httptest.NewRequest(http.MethodPost, "/api/pdf/search", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSearchSuccess(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	pdf := pdftest.MinimalPDF(
		"Preamble text.",
		"The quarterly revenue grew by 12 percent.",
	)

	rec := doSearch(t, srv, "revenue", map[string][]byte{"report.pdf": pdf})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var res struct {
		SearchQuery      string   `json:"search_query"`
		TotalMatches     int      `json:"total_matches"`
		MatchedSentences []string `json:"matched_sentences"`
		HighlightedPDF   string   `json:"highlighted_pdf"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.SearchQuery != "revenue" {
		t.Errorf("search_query = %q", res.SearchQuery)
	}
	if res.TotalMatches != 1 || len(res.MatchedSentences) != 1 {
		t.Fatalf("unexpected matches: %+v", res)
	}
	if !strings.HasPrefix(res.HighlightedPDF, "/static/") {
		t.Errorf("highlighted_pdf = %q", res.HighlightedPDF)
	}

	// The advertised artifact must be served by the static route.
	req := httptest.NewRequest(http.MethodGet, res.HighlightedPDF, nil)
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("static fetch of %q: status %d", res.HighlightedPDF, rec2.Code)
	}
	if !bytes.HasPrefix(rec2.Body.Bytes(), []byte("%PDF-")) {
		t.Error("served artifact is not a PDF")
	}
}

func TestSearchMissingQuery(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	rec := doSearch(t, srv, "", map[string][]byte{"a.pdf": pdftest.MinimalPDF("text.")})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	var res struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Error.Kind != "invalid_query" {
		t.Errorf("kind = %q", res.Error.Kind)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	rec := doSearch(t, srv, "   ", map[string][]byte{"a.pdf": pdftest.MinimalPDF("text.")})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d", rec.Code)
	}
}

func TestSearchUnreadablePDF(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	rec := doSearch(t, srv, "revenue", map[string][]byte{"junk.pdf": []byte("definitely not a pdf")})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Error.Kind != "unreadable_pdf" {
		t.Errorf("kind = %q", res.Error.Kind)
	}
}

func TestSearchRejectsNonPDFUpload(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	rec := doSearch(t, srv, "q", map[string][]byte{"notes.txt": []byte("plain text")})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d", rec.Code)
	}
}

func TestSearchRejectsMultipleFiles(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	rec := doSearch(t, srv, "q", map[string][]byte{
		"a.pdf": pdftest.MinimalPDF("one."),
		"b.pdf": pdftest.MinimalPDF("two."),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d", rec.Code)
	}
}

func TestSearchRejectsEmptyFile(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	rec := doSearch(t, srv, "q", map[string][]byte{"a.pdf": {}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d", rec.Code)
	}
}

func TestSearchRejectsOversizedFile(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.MaxUploadBytes = 64
	srv := newTestServer(t, cfg)
	rec := doSearch(t, srv, "q", map[string][]byte{"a.pdf": bytes.Repeat([]byte("x"), 128)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status %d", rec.Code)
	}
}

func TestSummarizeRejectsUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	body, ct := multipartBody(t, "", map[string][]byte{"binary.exe": []byte("MZ")})
	req := httptest.NewRequest(http.MethodPost, "/api/pdf/summarize", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body %q", rec.Body.String())
	}
}

func TestLLMStatsUnavailableWithoutClient(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.PDFSiftAPIKey = "secret-key"
	srv := newTestServer(t, cfg)

	pdf := pdftest.MinimalPDF("Revenue line.")

	rec := doSearch(t, srv, "revenue", map[string][]byte{"a.pdf": pdf})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	body, ct := multipartBody(t, "revenue", map[string][]byte{"a.pdf": pdf})
	req := httptest.NewRequest(http.MethodPost, "/api/pdf/search", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d: %s", rec2.Code, rec2.Body.String())
	}

	// Health stays public.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec3 := httptest.NewRecorder()
	srv.ServeHTTP(rec3, req)
	if rec3.Code != http.StatusOK {
		t.Errorf("health should not require auth, got %d", rec3.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"dir/sub/file.pdf", "file.pdf"},
		{"", "unnamed"},
		{".", "unnamed"},
		{"weird..name.pdf", "weird_name.pdf"},
		{`c:\temp\evil.pdf`, "c:_temp_evil.pdf"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
