// Package ids generates the human-legible identifiers used for requirements
// and candidates. Identifiers are derived from entity attributes plus the
// time of day, so they are readable but not collision-proof: callers must
// retry with WithSuffix when a uniqueness constraint rejects an insert.
package ids

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxAttempts bounds collision-retry loops around insert operations.
const MaxAttempts = 3

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^\w\-]`)
)

// RequirementID builds an identifier from the title (whitespace stripped,
// truncated to 10 characters) and the compact time of day, e.g.
// "JavaDev_142355".
func RequirementID(title string, now time.Time) string {
	clean := whitespace.ReplaceAllString(title, "")
	if len(clean) > 10 {
		clean = clean[:10]
	}
	return clean + "_" + now.Format("150405")
}

// CandidateID builds an identifier from the sanitized candidate name and the
// compact time of day with centisecond precision.
func CandidateID(name string, now time.Time) string {
	clean := nonWord.ReplaceAllString(strings.TrimSpace(name), "")
	if clean == "" {
		clean = "unknown"
	}
	cs := now.Nanosecond() / int(10*time.Millisecond)
	return clean + "_" + now.Format("150405") + fmt.Sprintf("%02d", cs)
}

// WithSuffix appends a short random fragment to an identifier that collided.
func WithSuffix(id string) string {
	return id + "_" + uuid.NewString()[:8]
}
