package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})

	if c.HTTPClient == nil {
		t.Fatal("Expected HTTPClient to be initialized")
	}
	if c.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("Expected timeout %v, got %v", defaultTimeout, c.HTTPClient.Timeout)
	}
	if c.Retries != defaultRetries {
		t.Errorf("Expected retries %d, got %d", defaultRetries, c.Retries)
	}
}

func TestNew_CustomValues(t *testing.T) {
	cfg := Config{
		Timeout:   10 * time.Second,
		Retries:   5,
		UserAgent: "Custom Agent",
		Referer:   "https://example.com",
	}

	c := New(cfg)

	if c.HTTPClient.Timeout != cfg.Timeout {
		t.Errorf("Expected timeout %v, got %v", cfg.Timeout, c.HTTPClient.Timeout)
	}
	if c.Retries != cfg.Retries {
		t.Errorf("Expected retries %d, got %d", cfg.Retries, c.Retries)
	}
	if c.UserAgent != cfg.UserAgent {
		t.Errorf("Expected user agent %q, got %q", cfg.UserAgent, c.UserAgent)
	}
}

func TestGet_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotReferer, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "TestAgent/1.0", Referer: "https://vixsrc.to"})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "TestAgent/1.0" {
		t.Errorf("User-Agent = %q, expected TestAgent/1.0", gotUA)
	}
	if gotReferer != "https://vixsrc.to" {
		t.Errorf("Referer = %q, expected https://vixsrc.to", gotReferer)
	}
	if gotAccept != acceptValue {
		t.Errorf("Accept = %q, expected %q", gotAccept, acceptValue)
	}
}

func TestGetWithReferer_OverridesDefault(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
	}))
	defer srv.Close()

	c := New(Config{Referer: "https://vixsrc.to"})
	resp, err := c.GetWithReferer(srv.URL, "https://vixsrc.to/movie/550")
	if err != nil {
		t.Fatalf("GetWithReferer() error: %v", err)
	}
	resp.Body.Close()

	if gotReferer != "https://vixsrc.to/movie/550" {
		t.Errorf("Referer = %q, expected embed URL", gotReferer)
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{Retries: 3})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected final status 200, got %d", resp.StatusCode)
	}
}

func TestGet_ExhaustedRetriesReturnReadableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream broke"))
	}))
	defer srv.Close()

	c := New(Config{Retries: 2})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected final status 500, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Final response body must stay readable, got %v", err)
	}
	if string(body) != "upstream broke" {
		t.Errorf("Body = %q, expected upstream error text", body)
	}
}

func TestGetBody_RejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(Config{Retries: 1})
	if _, err := c.GetBody(srv.URL); err == nil {
		t.Error("GetBody() with 404 expected error, got nil")
	}
}
