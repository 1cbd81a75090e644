package mock

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandler_Routes(t *testing.T) {
	h := NewHandler(nil)

	tests := map[string]int{
		"/ok":      http.StatusOK,
		"/missing": http.StatusNotFound,
		"/flaky":   http.StatusOK,
	}
	for path, want := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, path, nil))
		if rec.Code != want {
			t.Errorf("HEAD %s = %d, want %d", path, rec.Code, want)
		}
	}
}
