package extractor

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stormino/vixsrc-downloader/internal/client"
	"github.com/stormino/vixsrc-downloader/internal/errs"
)

func newTestExtractor(srv *httptest.Server) *Extractor {
	c := client.New(client.Config{Retries: 1, UserAgent: "test"})
	return New(c, srv.URL, true)
}

// masterPlaylistPage builds a frozen embed-page fixture with a
// window.masterPlaylist object pointing at base.
func masterPlaylistPage(base string) string {
	return fmt.Sprintf(`<html><script>
window.masterPlaylist = {
    params: {
        'token': 'abc123',
        'expires': '1700000000',
        'asn': '1234'
    },
    url: '%s'
}
</script></html>`, base)
}

func TestExtract_MasterPlaylistStrategy(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	playlistBase := srv.URL + "/playlist/99999"
	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, masterPlaylistPage(playlistBase))
	})
	mux.HandleFunc("/playlist/99999", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720\nchunk.m3u8\n")
	})

	e := newTestExtractor(srv)
	res, err := e.Extract(srv.URL+"/movie/550", "en")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	expected := playlistBase + "?token=abc123&expires=1700000000&asn=1234&h=1&lang=en"
	if res.PlaylistURL != expected {
		t.Errorf("PlaylistURL = %q, expected %q", res.PlaylistURL, expected)
	}
	if !res.Verified {
		t.Error("Expected verified result")
	}
}

func TestExtract_VerificationFailureIsSoft(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	playlistBase := srv.URL + "/playlist/99999"
	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, masterPlaylistPage(playlistBase))
	})
	mux.HandleFunc("/playlist/99999", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a manifest</html>")
	})

	e := newTestExtractor(srv)
	res, err := e.Extract(srv.URL+"/movie/550", "en")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if res.PlaylistURL == "" {
		t.Fatal("Expected a playlist URL despite failed verification")
	}
	if res.Verified {
		t.Error("Expected unverified result")
	}
}

func TestExtract_StrategyOrderIsFixed(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	playlistBase := srv.URL + "/playlist/11111"
	page := masterPlaylistPage(playlistBase) +
		`<a href="https://vixsrc.to/playlist/22222?token=other&expires=1">direct</a>`
	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/playlist/11111", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n")
	})

	e := newTestExtractor(srv)
	res, err := e.Extract(srv.URL+"/movie/550", "en")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if !strings.HasPrefix(res.PlaylistURL, playlistBase) {
		t.Errorf("Expected master playlist strategy to win, got %q", res.PlaylistURL)
	}
	if strings.Contains(res.PlaylistURL, "22222") {
		t.Errorf("Direct-link strategy took priority: %q", res.PlaylistURL)
	}
}

func TestExtract_DirectLinkStrategy(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>var src = "https://vixsrc.to/playlist/4242?token=tok&amp;expires=170";</script></html>`)
	})

	e := newTestExtractor(srv)
	res, err := e.Extract(srv.URL+"/movie/550", "en")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	expected := "https://vixsrc.to/playlist/4242?token=tok&expires=170"
	if res.PlaylistURL != expected {
		t.Errorf("PlaylistURL = %q, expected %q", res.PlaylistURL, expected)
	}
	if res.Verified {
		t.Error("Direct-link results are never marked verified")
	}
}

func TestExtract_APIEndpointStrategy(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>fetch('/api/broken'); fetch('/api/source/550');</script></html>`)
	})
	mux.HandleFunc("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/source/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 550, "stream": "https://cdn.example.com/hls/550/master.m3u8"}`)
	})

	e := newTestExtractor(srv)
	res, err := e.Extract(srv.URL+"/movie/550", "en")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if res.PlaylistURL != "https://cdn.example.com/hls/550/master.m3u8" {
		t.Errorf("PlaylistURL = %q", res.PlaylistURL)
	}
}

func TestExtract_VideoIDStrategy(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>var player = { video_id: "31337" };</script></html>`)
	})
	mux.HandleFunc("/playlist/31337", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		fmt.Fprint(w, "#EXTM3U\nsegment.m3u8\n")
	})

	e := newTestExtractor(srv)
	res, err := e.Extract(srv.URL+"/movie/550", "en")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if !strings.Contains(res.PlaylistURL, "/playlist/31337") {
		t.Errorf("PlaylistURL = %q, expected video-id probe result", res.PlaylistURL)
	}
}

func TestExtract_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing to see here</body></html>`)
	})

	e := newTestExtractor(srv)
	_, err := e.Extract(srv.URL+"/movie/550", "en")
	if err != errs.ErrNotFound {
		t.Errorf("Extract() error = %v, expected errs.ErrNotFound", err)
	}
}

func TestAssemblePlaylistURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		asn      string
		expected string
	}{
		{
			name:     "plain base",
			base:     "https://cdn.example.com/hls/master",
			asn:      "",
			expected: "https://cdn.example.com/hls/master?token=tok&expires=123&h=1&lang=it",
		},
		{
			name:     "base with query",
			base:     "https://cdn.example.com/hls/master?b=1",
			asn:      "",
			expected: "https://cdn.example.com/hls/master?b=1&token=tok&expires=123&h=1&lang=it",
		},
		{
			name:     "with asn",
			base:     "https://cdn.example.com/hls/master",
			asn:      "5609",
			expected: "https://cdn.example.com/hls/master?token=tok&expires=123&asn=5609&h=1&lang=it",
		},
		{
			name:     "entity escaped base",
			base:     "https://cdn.example.com/hls/master?a=1&amp;b=2",
			asn:      "",
			expected: "https://cdn.example.com/hls/master?a=1&b=2&token=tok&expires=123&h=1&lang=it",
		},
	}

	for _, test := range tests {
		got := AssemblePlaylistURL(test.base, "tok", "123", test.asn, "it")
		if got != test.expected {
			t.Errorf("%s: AssemblePlaylistURL() = %q, expected %q", test.name, got, test.expected)
		}

		// Exactly one h=1 and one lang token, idempotent output.
		if strings.Count(got, "h=1") != 1 {
			t.Errorf("%s: expected exactly one h=1 token in %q", test.name, got)
		}
		if strings.Count(got, "lang=it") != 1 {
			t.Errorf("%s: expected exactly one lang token in %q", test.name, got)
		}
		if again := AssemblePlaylistURL(test.base, "tok", "123", test.asn, "it"); again != got {
			t.Errorf("%s: assembly not idempotent: %q vs %q", test.name, got, again)
		}
	}
}

func TestEmbedURLs(t *testing.T) {
	c := client.New(client.Config{})
	e := New(c, "https://vixsrc.to", true)

	if got := e.MovieEmbedURL(550, "en"); got != "https://vixsrc.to/movie/550?lang=en" {
		t.Errorf("MovieEmbedURL() = %q", got)
	}
	if got := e.EpisodeEmbedURL(60625, 4, 4, "it"); got != "https://vixsrc.to/tv/60625/4/4?lang=it" {
		t.Errorf("EpisodeEmbedURL() = %q", got)
	}
}
