// Package twitchapi contains the Twitch Helix client used to answer "is this channel live".
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/clip-tender/telemetry"
	"github.com/onnwee/clip-tender/upstream"
)

const provider = "twitch"

// HelixClient issues one authenticated request per call; it holds no mutable state.
type HelixClient struct {
	Tokens     TokenSource
	ClientID   string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

// Stream is the subset of a Helix stream object we use.
type Stream struct {
	UserLogin string    `json:"user_login"`
	Title     string    `json:"title"`
	GameName  string    `json:"game_name"`
	StartedAt time.Time `json:"started_at"`
}

// GetStreams returns the live streams for a login; empty when offline.
func (hc *HelixClient) GetStreams(ctx context.Context, login string) (streams []Stream, err error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	ctx, span := telemetry.StartSpan(ctx, "twitchapi", "helix.streams", attribute.String("channel", login))
	start := time.Now()
	defer func() {
		telemetry.ObserveUpstream(provider, upstream.Classify(err).String(), time.Since(start))
		telemetry.EndSpan(span, err)
	}()

	// the token fetch and the streams request share one per-call deadline
	if hc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hc.Timeout)
		defer cancel()
	}
	tok, err := hc.Tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("twitch token: %w", upstream.TransportError(ctx, provider, err))
	}
	header := http.Header{}
	header.Set("Client-Id", hc.ClientID)
	header.Set("Authorization", "Bearer "+tok.AccessToken)

	q := url.Values{}
	q.Set("user_login", login)
	resp, err := upstream.Get(ctx, hc.http(), provider, hc.BaseURL+"/streams?"+q.Encode(), header, 0)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode streams: %w", errors.Join(upstream.ErrParse, err))
	}
	return body.Data, nil
}

// IsLive reports whether channel is broadcasting. Failures are never "not live".
func (hc *HelixClient) IsLive(ctx context.Context, channel string) (bool, error) {
	streams, err := hc.GetStreams(ctx, channel)
	if err != nil {
		return false, err
	}
	return len(streams) > 0, nil
}

// LiveMessage answers /islive. Every failure kind has its own message.
func (hc *HelixClient) LiveMessage(ctx context.Context, channel string) string {
	live, err := hc.IsLive(ctx, channel)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("twitch live check failed",
			slog.String("channel", channel),
			slog.String("kind", upstream.Classify(err).String()),
			slog.Any("err", err))
		return failureMessage(err)
	}
	if live {
		return fmt.Sprintf("🎥 Channel **%s** is live on Twitch: https://www.twitch.tv/%s", channel, channel)
	}
	return fmt.Sprintf("❌ Channel **%s** is not live right now.", channel)
}

func failureMessage(err error) string {
	switch upstream.Classify(err) {
	case upstream.KindStatus:
		se, _ := upstream.AsStatusError(err)
		return fmt.Sprintf("⚠️ Could not check the channel: Twitch answered with code %d.", se.Code)
	case upstream.KindTimeout:
		return "⏱️ Twitch took too long to answer. Try again in a moment."
	case upstream.KindParse:
		return "⚠️ Twitch sent a response that could not be read."
	default:
		return "❌ Could not reach Twitch. It may be down or unavailable."
	}
}
