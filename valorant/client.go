// Package valorant looks up a player's competitive rank through the plain-text stats
// service and formats it for Discord.
package valorant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/clip-tender/rank"
	"github.com/onnwee/clip-tender/telemetry"
	"github.com/onnwee/clip-tender/upstream"
)

const provider = "valorant"

const (
	msgParseFailure = "❌ Could not extract the player information. Unexpected format."
	msgTimeout      = "⏱️ The request took too long. The server may be slow. Try again."
	msgTransport    = "❌ Could not connect to the server. It may be down or unavailable."
)

// Client calls the stats service. The zero HTTPClient uses http.DefaultClient.
type Client struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// LookupURL builds <base>/<region>/<name>/<tag>.
func (c *Client) LookupURL(region, name, tag string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/" + url.PathEscape(region) + "/" + url.PathEscape(name) + "/" + url.PathEscape(tag)
}

// Lookup performs the single request and parses the payload.
func (c *Client) Lookup(ctx context.Context, region, name, tag string) (res PlayerLookupResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "valorant", "stats.lookup",
		attribute.String("region", region),
		attribute.String("player", name),
	)
	start := time.Now()
	defer func() {
		telemetry.ObserveUpstream(provider, upstream.Classify(err).String(), time.Since(start))
		telemetry.EndSpan(span, err)
	}()

	var hc upstream.Doer = http.DefaultClient
	if c.HTTPClient != nil {
		hc = c.HTTPClient
	}
	resp, err := upstream.Get(ctx, hc, provider, c.LookupURL(region, name, tag), nil, c.Timeout)
	if err != nil {
		return PlayerLookupResult{}, err
	}
	payload := strings.TrimSpace(string(resp.Body))
	telemetry.LoggerWithCorr(ctx).Debug("stats response", slog.String("payload", truncate(payload, 200)))
	return ParsePlayerLine(payload)
}

// RankMessage answers /valrank. It never returns an error; every failure kind has
// its own message.
func (c *Client) RankMessage(ctx context.Context, region, name, tag string) string {
	res, err := c.Lookup(ctx, region, name, tag)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("rank lookup failed",
			slog.String("region", region),
			slog.String("name", name),
			slog.String("kind", upstream.Classify(err).String()),
			slog.Any("err", err))
		return failureMessage(err)
	}
	return FormatRank(res)
}

// FormatRank renders a parsed result, annotating ranks the table does not translate.
func FormatRank(res PlayerLookupResult) string {
	switch r := rank.Normalize(res.RawRank).(type) {
	case rank.Translated:
		return fmt.Sprintf("Rank of %s: %s %s\nRating: %d RR", res.PlayerName, r.Icon, r.Label, res.Rating)
	case rank.Untranslated:
		return fmt.Sprintf("Rank of %s: %s (not translated)\nRating: %d RR", res.PlayerName, r.Raw, res.Rating)
	default:
		return fmt.Sprintf("Rank of %s: %s\nRating: %d RR", res.PlayerName, res.RawRank, res.Rating)
	}
}

func failureMessage(err error) string {
	switch upstream.Classify(err) {
	case upstream.KindParse:
		return msgParseFailure
	case upstream.KindStatus:
		se, _ := upstream.AsStatusError(err)
		return fmt.Sprintf("❌ Lookup failed: code %d", se.Code)
	case upstream.KindTimeout:
		return msgTimeout
	default:
		return msgTransport
	}
}
