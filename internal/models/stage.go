package models

import "time"

// Stage is an academic stage. IsEvening marks evening-programme stages; exams
// scheduled against such a stage inherit the flag as a snapshot.
type Stage struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsEvening bool      `db:"is_evening" json:"is_evening"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
