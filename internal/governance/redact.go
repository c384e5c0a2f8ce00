package governance

import "regexp"

var (
	ssnPattern   = regexp.MustCompile(`\d{3}-\d{2}-\d{4}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\d{3}-\d{3}-\d{4}`)
)

// RedactSensitive replaces SSN, email, and US-phone-shaped substrings
// in s with "[REDACTED]". Used only to sanitize log output, never to
// reject queries.
func RedactSensitive(s string) string {
	s = ssnPattern.ReplaceAllString(s, "[REDACTED]")
	s = emailPattern.ReplaceAllString(s, "[REDACTED]")
	s = phonePattern.ReplaceAllString(s, "[REDACTED]")
	return s
}

// ContainsSensitive reports whether s contains any recognized
// sensitive pattern, used to decide whether an audit entry's query
// field must be redacted.
func ContainsSensitive(s string) bool {
	return ssnPattern.MatchString(s) || emailPattern.MatchString(s) || phonePattern.MatchString(s)
}
