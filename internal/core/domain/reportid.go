package domain

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

var reportIDPattern = regexp.MustCompile(`^RPT\d{8}_\d{3}$`)

// NewReportID builds a public report identifier: RPT + yyyymmdd + a random
// zero-padded 3-digit suffix. Suffixes collide on busy days; uniqueness is
// enforced by the store's unique index, and callers retry with a fresh suffix.
func NewReportID(now time.Time) string {
	return fmt.Sprintf("RPT%s_%03d", now.Format("20060102"), rand.IntN(1000))
}

// ValidReportID reports whether s has the public report identifier shape.
func ValidReportID(s string) bool {
	return reportIDPattern.MatchString(s)
}
