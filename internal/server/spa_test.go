package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleSPA(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o644)
	os.MkdirAll(filepath.Join(dir, "assets"), 0o755)
	os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644)

	h := handleSPA(dir)

	tests := []struct {
		path        string
		wantStatus  int
		wantBody    string
		wantCaching string
	}{
		{"/assets/app.js", http.StatusOK, "console.log", "immutable"},
		{"/board/zones", http.StatusOK, "board", "no-cache"},
		{"/book", http.StatusOK, "board", "no-cache"},
		{"/api/unknown", http.StatusNotFound, "not found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
			if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, tt.wantCaching) {
				t.Errorf("cache-control = %q, want %q", got, tt.wantCaching)
			}
		})
	}
}
