package models

import (
	"time"

	"github.com/lib/pq"
)

// PriorityConfig records per-class scheduling preferences. Priority
// subjects prefer early periods, heavy subjects should not sit
// back-to-back, weak subjects are advisory metadata only.
type PriorityConfig struct {
	ID               string         `db:"id" json:"id"`
	ClassID          string         `db:"class_id" json:"class_id"`
	PrioritySubjects pq.StringArray `db:"priority_subjects" json:"priority_subjects"`
	WeakSubjects     pq.StringArray `db:"weak_subjects" json:"weak_subjects"`
	HeavySubjects    pq.StringArray `db:"heavy_subjects" json:"heavy_subjects"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// IsPriority reports whether the subject is flagged priority for this class.
func (p PriorityConfig) IsPriority(subject string) bool {
	return containsString(p.PrioritySubjects, subject)
}

// IsHeavy reports whether the subject is flagged heavy for this class.
func (p PriorityConfig) IsHeavy(subject string) bool {
	return containsString(p.HeavySubjects, subject)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
