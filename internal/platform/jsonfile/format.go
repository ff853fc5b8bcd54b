package jsonfile

import (
	"strings"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
)

// timestampLayout is the round-trip format for dueIsoUtc and lastSessionUtc.
const timestampLayout = time.RFC3339Nano

// saveFile is the on-disk shape of a palace.
type saveFile struct {
	PalaceID       string     `json:"palaceId"`
	Cards          []cardJSON `json:"cards"`
	Streak         int        `json:"streak"`
	LastSessionUTC string     `json:"lastSessionUtc"`
}

// cardJSON is the on-disk shape of a card.
type cardJSON struct {
	ID           string  `json:"id"`
	LocusID      string  `json:"locusId"`
	Front        string  `json:"front"`
	Back         string  `json:"back"`
	ImagePath    string  `json:"imagePath"`
	DueISOUTC    string  `json:"dueIsoUtc"`
	IntervalDays int     `json:"intervalDays"`
	Ease         float64 `json:"ease"`
	Reps         int     `json:"reps"`
	Lapses       int     `json:"lapses"`
}

func toSaveFile(p *domain.Palace) saveFile {
	cards := make([]cardJSON, 0, len(p.Cards))
	for _, c := range p.Cards {
		cards = append(cards, cardJSON{
			ID:           c.ID,
			LocusID:      c.LocusID,
			Front:        c.Front,
			Back:         c.Back,
			ImagePath:    c.ImagePath,
			DueISOUTC:    formatTimestamp(c.DueAt),
			IntervalDays: c.IntervalDays,
			Ease:         c.Ease,
			Reps:         c.Reps,
			Lapses:       c.Lapses,
		})
	}

	return saveFile{
		PalaceID:       p.ID,
		Cards:          cards,
		Streak:         p.Streak,
		LastSessionUTC: formatTimestamp(p.LastSessionAt),
	}
}

func fromSaveFile(f saveFile) *domain.Palace {
	p := domain.NewPalace()
	if f.PalaceID != "" {
		p.ID = f.PalaceID
	}
	p.Streak = f.Streak
	p.LastSessionAt = parseTimestamp(f.LastSessionUTC)

	for _, c := range f.Cards {
		p.Cards = append(p.Cards, domain.Card{
			ID:           c.ID,
			LocusID:      c.LocusID,
			Front:        c.Front,
			Back:         c.Back,
			ImagePath:    c.ImagePath,
			DueAt:        parseTimestamp(c.DueISOUTC),
			IntervalDays: c.IntervalDays,
			Ease:         c.Ease,
			Reps:         c.Reps,
			Lapses:       c.Lapses,
		})
	}

	return p
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp reads an ISO-8601 timestamp. Empty or unparseable values
// yield the zero time, which the scheduler treats as "not yet scheduled".
// Values without a zone designator are taken as UTC.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
