package sqlite

import "time"

// SQLite has no native datetime type; timestamps are stored as RFC3339 TEXT.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
