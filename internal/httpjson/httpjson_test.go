package httpjson

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteCodedError(rr, http.StatusBadRequest, "invalid_params", "page must be >= 1")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type: %q", ct)
	}
	want := `{"error":"page must be >= 1","code":"invalid_params"}` + "\n"
	if rr.Body.String() != want {
		t.Fatalf("body: want %q, got %q", want, rr.Body.String())
	}
}

func TestWriteKeepsURLsReadable(t *testing.T) {
	rr := httptest.NewRecorder()
	Write(rr, http.StatusOK, map[string]string{"streamUrl": "https://s1.example/play?id=1&q=hd"})

	want := `{"streamUrl":"https://s1.example/play?id=1&q=hd"}` + "\n"
	if rr.Body.String() != want {
		t.Fatalf("body: want %q, got %q", want, rr.Body.String())
	}
}
