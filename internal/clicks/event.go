package clicks

import "time"

// millisThreshold separates unix-second from unix-millisecond timestamps.
// Producers are inconsistent about the unit; anything above this value is
// treated as milliseconds.
const millisThreshold = int64(1_000_000_000_000)

// Event records one visit through an alias.
type Event struct {
	Alias     string `json:"alias"`
	TS        int64  `json:"ts"`
	UserAgent string `json:"ua,omitempty"`
	Referer   string `json:"ref,omitempty"`
}

// Valid reports whether the event can enter aggregation. Malformed events
// are dropped and acknowledged so they never block batch progress.
func (e Event) Valid() bool { return e.Alias != "" }

// Day returns the UTC calendar date of the click as "YYYY-MM-DD".
func (e Event) Day() string {
	return time.Unix(e.unixSeconds(), 0).UTC().Format("2006-01-02")
}

func (e Event) unixSeconds() int64 {
	if e.TS > millisThreshold {
		return e.TS / 1000
	}
	return e.TS
}
