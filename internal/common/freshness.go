package common

import "time"

// Freshness defaults for cached provider data. Financial statements change
// at most once per reporting period, so a day-old copy is normally current.
const (
	FreshnessStatements    = 24 * time.Hour
	FreshnessRefreshWindow = 6 * time.Hour
)

// IsFreshAt reports whether updated is within ttl of now. A zero timestamp
// is never fresh.
func IsFreshAt(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
