package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onnwee/clip-tender/testutil"
	"github.com/onnwee/clip-tender/upstream"
)

func newTestClient(baseURL string, timeout time.Duration) *HelixClient {
	return &HelixClient{
		Tokens:   StaticToken("test-token"),
		ClientID: "test-client-id",
		BaseURL:  baseURL,
		Timeout:  timeout,
	}
}

func TestHelixClient_IsLive(t *testing.T) {
	tests := []struct {
		response   interface{}
		name       string
		statusCode int
		wantLive   bool
		wantKind   upstream.Kind
	}{
		{
			name:       "empty data is offline",
			response:   map[string]interface{}{"data": []map[string]string{}},
			statusCode: http.StatusOK,
			wantLive:   false,
			wantKind:   upstream.KindOK,
		},
		{
			name: "one stream is live",
			response: map[string]interface{}{
				"data": []map[string]string{{"user_login": "livechannel", "title": "Live Now", "started_at": "2024-10-15T14:30:00Z"}},
			},
			statusCode: http.StatusOK,
			wantLive:   true,
			wantKind:   upstream.KindOK,
		},
		{
			name:       "missing data field is offline",
			response:   map[string]interface{}{},
			statusCode: http.StatusOK,
			wantLive:   false,
			wantKind:   upstream.KindOK,
		},
		{
			name:       "unauthorized is a status error",
			response:   map[string]interface{}{"error": "Unauthorized"},
			statusCode: http.StatusUnauthorized,
			wantKind:   upstream.KindStatus,
		},
		{
			name:       "garbage body is a parse error",
			response:   "not json",
			statusCode: http.StatusOK,
			wantKind:   upstream.KindParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/helix/streams" {
					t.Errorf("path = %s, want /helix/streams", r.URL.Path)
				}
				if r.Header.Get("Client-Id") != "test-client-id" {
					t.Errorf("missing or wrong Client-Id header")
				}
				if r.Header.Get("Authorization") != "Bearer test-token" {
					t.Errorf("missing or wrong Authorization header")
				}
				if got := r.URL.Query().Get("user_login"); got != "livechannel" {
					t.Errorf("user_login = %q, want livechannel", got)
				}
				w.WriteHeader(tt.statusCode)
				if s, ok := tt.response.(string); ok {
					_, _ = w.Write([]byte(s))
					return
				}
				_ = json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			live, err := newTestClient(server.URL+"/helix", time.Second).IsLive(context.Background(), "livechannel")
			if kind := upstream.Classify(err); kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v (err=%v)", kind, tt.wantKind, err)
			}
			if err == nil && live != tt.wantLive {
				t.Errorf("IsLive() = %v, want %v", live, tt.wantLive)
			}
			if err != nil && live {
				t.Errorf("a failure must not report live")
			}
		})
	}
}

func TestHelixClient_GetStreams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{
				"title":      "Live Now",
				"started_at": "2024-10-15T14:30:00Z",
			}},
		})
	}))
	defer server.Close()

	streams, err := newTestClient(server.URL, time.Second).GetStreams(context.Background(), "livechannel")
	if err != nil {
		t.Fatalf("GetStreams() error = %v", err)
	}
	if len(streams) != 1 || streams[0].Title != "Live Now" {
		t.Fatalf("unexpected streams %+v", streams)
	}
	if !streams[0].StartedAt.Equal(time.Date(2024, 10, 15, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("started_at = %v", streams[0].StartedAt)
	}
}

func TestHelixClient_GetStreamsEmptyLogin(t *testing.T) {
	if _, err := newTestClient("http://unused", time.Second).GetStreams(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty login")
	}
}

func fixedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHelixClient_LiveMessage(t *testing.T) {
	live := fixedServer(t, http.StatusOK, `{"data":[{"title":"x"}]}`)
	if got := newTestClient(live.URL, time.Second).LiveMessage(context.Background(), "chan"); !strings.Contains(got, "is live") || !strings.Contains(got, "https://www.twitch.tv/chan") {
		t.Errorf("live message = %q", got)
	}

	offline := fixedServer(t, http.StatusOK, `{"data":[]}`)
	if got := newTestClient(offline.URL, time.Second).LiveMessage(context.Background(), "chan"); !strings.Contains(got, "is not live") {
		t.Errorf("offline message = %q", got)
	}

	unavailable := fixedServer(t, http.StatusServiceUnavailable, "")
	statusMsg := newTestClient(unavailable.URL, time.Second).LiveMessage(context.Background(), "chan")
	if !strings.Contains(statusMsg, "503") {
		t.Errorf("status message = %q", statusMsg)
	}

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)
	timeoutMsg := newTestClient(slow.URL, 100*time.Millisecond).LiveMessage(context.Background(), "chan")
	if !strings.Contains(timeoutMsg, "too long") {
		t.Errorf("timeout message = %q", timeoutMsg)
	}

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	goneURL := gone.URL
	gone.Close()
	transportMsg := newTestClient(goneURL, time.Second).LiveMessage(context.Background(), "chan")
	if !strings.Contains(transportMsg, "Could not reach") {
		t.Errorf("transport message = %q", transportMsg)
	}

	seen := map[string]bool{}
	for _, m := range []string{statusMsg, timeoutMsg, transportMsg, failureMessage(upstream.ErrParse)} {
		if seen[m] || strings.Contains(m, "not live") {
			t.Errorf("failure message %q is not distinguishable", m)
		}
		seen[m] = true
	}
}

func TestHelixClient_LiveMessageIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"title":"x"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, time.Second)
	first := client.LiveMessage(context.Background(), "chan")
	second := client.LiveMessage(context.Background(), "chan")
	if first != second {
		t.Errorf("messages differ: %q vs %q", first, second)
	}
}

func TestHelixClient_OneRequestPerCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, _ = newTestClient(server.URL, time.Second).IsLive(context.Background(), "chan")
	if calls.Load() != 1 {
		t.Errorf("expected exactly one request (no retries), got %d", calls.Load())
	}
}

func TestHelixClient_AppTokenAndStreams(t *testing.T) {
	tw := testutil.NewMockTwitchServer(t)
	tw.MockOAuthTokenResponse("app-token", 3600)
	tw.MockStreamsResponse([]map[string]interface{}{{"user_login": "livechannel"}})

	tokens, err := NewTokenSource(TokenConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-secret",
		TokenURL:     tw.URL + "/oauth2/token",
	})
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}
	client := &HelixClient{Tokens: tokens, ClientID: "test-client-id", BaseURL: tw.URL + "/helix", Timeout: time.Second}

	for i := 0; i < 2; i++ {
		live, err := client.IsLive(context.Background(), "livechannel")
		if err != nil || !live {
			t.Fatalf("IsLive() = %v, %v", live, err)
		}
	}
	// one token fetch, then one streams request per call
	if got := tw.Requests.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestHelixClient_StalledTokenEndpointTimesOut(t *testing.T) {
	stalled := testutil.NewHangingServer(t)
	tokens, err := NewTokenSource(TokenConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-secret",
		TokenURL:     stalled.URL,
		FetchTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}
	client := &HelixClient{Tokens: tokens, ClientID: "test-client-id", BaseURL: "http://unused", Timeout: 150 * time.Millisecond}

	type result struct {
		err  error
		took time.Duration
	}
	results := make(chan result, 3)
	for i := 0; i < 3; i++ {
		go func() {
			start := time.Now()
			_, err := client.IsLive(context.Background(), "chan")
			results <- result{err: err, took: time.Since(start)}
		}()
	}
	for i := 0; i < 3; i++ {
		r := <-results
		if upstream.Classify(r.err) != upstream.KindTimeout {
			t.Errorf("kind = %v (err %v), want timeout", upstream.Classify(r.err), r.err)
		}
		if r.took > 400*time.Millisecond {
			t.Errorf("call took %v, per-call timeout not enforced", r.took)
		}
	}

	msg := client.LiveMessage(context.Background(), "chan")
	if !strings.Contains(msg, "too long") {
		t.Errorf("LiveMessage = %q, want the timeout message", msg)
	}
}
