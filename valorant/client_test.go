package valorant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func statsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/valorant/eu/Player/1234" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRankMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "translated rank",
			status: http.StatusOK,
			body:   "  Player#1234 [Gold 2] : 45 RR\n",
			want:   "Rank of Player: 🥇 Oro 2\nRating: 45 RR",
		},
		{
			name:   "untranslated rank",
			status: http.StatusOK,
			body:   "Player#1234 [Custom Rank] : 10 RR",
			want:   "Rank of Player: Custom Rank (not translated)\nRating: 10 RR",
		},
		{
			name:   "unexpected format",
			status: http.StatusOK,
			body:   "player not found",
			want:   msgParseFailure,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   "nope",
			want:   "❌ Lookup failed: code 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := statsServer(t, tt.status, tt.body)
			c := &Client{BaseURL: server.URL + "/valorant", Timeout: time.Second}
			if got := c.RankMessage(context.Background(), "eu", "Player", "1234"); got != tt.want {
				t.Errorf("RankMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRankMessage_UntranslatedSuffix(t *testing.T) {
	server := statsServer(t, http.StatusOK, "Player#1234 [Custom Rank] : 10 RR")
	c := &Client{BaseURL: server.URL + "/valorant", Timeout: time.Second}
	got := c.RankMessage(context.Background(), "eu", "Player", "1234")
	firstLine, rest, _ := strings.Cut(got, "\n")
	if !strings.HasSuffix(firstLine, "(not translated)") {
		t.Errorf("rank line = %q", firstLine)
	}
	if !strings.Contains(rest, "10 RR") {
		t.Errorf("rating line = %q", rest)
	}
}

func TestRankMessage_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := &Client{BaseURL: server.URL, Timeout: 50 * time.Millisecond}
	start := time.Now()
	got := c.RankMessage(context.Background(), "eu", "Player", "1234")
	if got != msgTimeout {
		t.Errorf("RankMessage() = %q, want timeout message", got)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout not enforced")
	}
}

func TestRankMessage_Transport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	c := &Client{BaseURL: base, Timeout: time.Second}
	if got := c.RankMessage(context.Background(), "eu", "Player", "1234"); got != msgTransport {
		t.Errorf("RankMessage() = %q, want transport message", got)
	}
}

func TestFailureMessagesDistinct(t *testing.T) {
	msgs := []string{msgParseFailure, msgTimeout, msgTransport, "❌ Lookup failed: code 500"}
	seen := map[string]bool{}
	for _, m := range msgs {
		if seen[m] {
			t.Errorf("duplicate message %q", m)
		}
		seen[m] = true
	}
}

func TestRankMessage_Idempotent(t *testing.T) {
	server := statsServer(t, http.StatusOK, "Player#1234 [Diamond 3] : 77 RR")
	c := &Client{BaseURL: server.URL + "/valorant", Timeout: time.Second}
	first := c.RankMessage(context.Background(), "eu", "Player", "1234")
	second := c.RankMessage(context.Background(), "eu", "Player", "1234")
	if first != second {
		t.Errorf("messages differ: %q vs %q", first, second)
	}
}

func TestLookupURL(t *testing.T) {
	c := &Client{BaseURL: "https://stats.example/valorant/"}
	got := c.LookupURL("na", "Some Name", "a/b")
	want := "https://stats.example/valorant/na/Some%20Name/a%2Fb"
	if got != want {
		t.Errorf("LookupURL() = %q, want %q", got, want)
	}
}

func TestFormatRank(t *testing.T) {
	got := FormatRank(PlayerLookupResult{PlayerName: "P", RawRank: "Radiant", Rating: 600})
	if got != "Rank of P: 🌟 Radiante\nRating: 600 RR" {
		t.Errorf("FormatRank() = %q", got)
	}
}
