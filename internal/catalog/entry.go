package catalog

import "time"

type Entry struct {
	ID         string    `db:"id" json:"id"`
	Path       string    `db:"path" json:"path"`
	Payload    string    `db:"payload" json:"payload"`
	RecordedAt time.Time `db:"recorded_at" json:"recordedAt"` // stored as unix nanoseconds
}
