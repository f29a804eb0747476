package net

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		Errorf(w, http.StatusBadRequest, "parsing %s: %s", "owner", "bad hex")
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	err = ResponseError(resp)
	if err == nil || !strings.HasSuffix(err.Error(), "parsing owner: bad hex") {
		t.Errorf("got error %v, want one ending in the reply message", err)
	}
}

func TestResponseErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "no such route", http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	err = ResponseError(resp)
	if err == nil || !strings.Contains(err.Error(), "no such route") || !strings.HasPrefix(err.Error(), "404") {
		t.Errorf("got error %v, want the status and body", err)
	}
}
