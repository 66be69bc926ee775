package valorant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/onnwee/clip-tender/upstream"
)

// playerLine matches `<tag> [<rank>] : <digits> RR`. The rank capture stops at the
// first `]`, so rank labels containing `]` are rejected.
var playerLine = regexp.MustCompile(`([a-zA-Z0-9#]+) \[([^\]]*)\] : (\d+) RR`)

// PlayerLookupResult is produced per request from one upstream payload.
type PlayerLookupResult struct {
	Tag        string // as emitted, e.g. "Player#1234"
	PlayerName string // Tag up to the first '#'
	RawRank    string
	Rating     int
}

// ParsePlayerLine extracts the first player line found in raw. It returns an error
// wrapping upstream.ErrParse when nothing matches.
func ParsePlayerLine(raw string) (PlayerLookupResult, error) {
	m := playerLine.FindStringSubmatch(raw)
	if m == nil {
		return PlayerLookupResult{}, fmt.Errorf("player line %q: %w", truncate(raw, 80), upstream.ErrParse)
	}
	rating, err := strconv.Atoi(m[3])
	if err != nil {
		return PlayerLookupResult{}, fmt.Errorf("rating %q: %w", m[3], upstream.ErrParse)
	}
	name, _, _ := strings.Cut(m[1], "#")
	return PlayerLookupResult{
		Tag:        m[1],
		PlayerName: name,
		RawRank:    m[2],
		Rating:     rating,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
