// Package rank maps canonical Valorant rank labels, as emitted by the stats service,
// to the localized label and icon shown in Discord.
package rank

import "fmt"

// Entry is one row of the static rank table.
type Entry struct {
	Canonical string
	Localized string
	Icon      string
}

var entries = []Entry{
	{"Iron 1", "Hierro 1", "🛠️"}, {"Iron 2", "Hierro 2", "🛠️"}, {"Iron 3", "Hierro 3", "🛠️"},
	{"Bronze 1", "Bronce 1", "🥉"}, {"Bronze 2", "Bronce 2", "🥉"}, {"Bronze 3", "Bronce 3", "🥉"},
	{"Silver 1", "Plata 1", "🥈"}, {"Silver 2", "Plata 2", "🥈"}, {"Silver 3", "Plata 3", "🥈"},
	{"Gold 1", "Oro 1", "🥇"}, {"Gold 2", "Oro 2", "🥇"}, {"Gold 3", "Oro 3", "🥇"},
	{"Platinum 1", "Platino 1", "💎"}, {"Platinum 2", "Platino 2", "💎"}, {"Platinum 3", "Platino 3", "💎"},
	{"Diamond 1", "Diamante 1", "💎"}, {"Diamond 2", "Diamante 2", "💎"}, {"Diamond 3", "Diamante 3", "💎"},
	{"Immortal 1", "Inmortal 1", "⚡"}, {"Immortal 2", "Inmortal 2", "⚡"}, {"Immortal 3", "Inmortal 3", "⚡"},
	{"Radiant", "Radiante", "🌟"},
}

// table is written once here and only read afterwards.
var table = buildTable(entries)

func buildTable(rows []Entry) map[string]Entry {
	m := make(map[string]Entry, len(rows))
	for _, e := range rows {
		if _, dup := m[e.Canonical]; dup {
			panic(fmt.Sprintf("rank: duplicate canonical label %q", e.Canonical))
		}
		m[e.Canonical] = e
	}
	return m
}

// Entries returns a copy of the table in tier order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Result is either Translated or Untranslated.
type Result interface {
	// Display returns the label and icon to show. Icon is empty when untranslated.
	Display() (label, icon string)
	isResult()
}

// Translated is a table hit.
type Translated struct {
	Label string
	Icon  string
}

func (t Translated) Display() (string, string) { return t.Label, t.Icon }
func (Translated) isResult()                   {}

// Untranslated carries a rank label the table does not know.
type Untranslated struct {
	Raw string
}

func (u Untranslated) Display() (string, string) { return u.Raw, "" }
func (Untranslated) isResult()                   {}

// Normalize looks raw up with an exact, case-sensitive match. It never fails.
func Normalize(raw string) Result {
	if e, ok := table[raw]; ok {
		return Translated{Label: e.Localized, Icon: e.Icon}
	}
	return Untranslated{Raw: raw}
}
