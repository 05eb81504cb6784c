// Package redact strips PII from message text before it crosses the network
// boundary to the remote classifier. This is a hard privacy requirement:
// every string sent off-box must pass through Redact first.
package redact

import "regexp"

// Literal placeholders the classifier backend is trained to tolerate.
const (
	PhonePlaceholder = "[PHONE_REDACTED]"
	EmailPlaceholder = "[EMAIL_REDACTED]"
)

// Pre-compiled patterns (compiled once, used per message).
var (
	rePhone = regexp.MustCompile(`(?:\+91[\-\s]?)?[6-9]\d{9}\b`)
	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// redactor pairs a pattern with its replacement. Order matters: phone
// numbers go first so a digits-in-email corner case never leaks a number.
type redactor struct {
	pattern     *regexp.Regexp
	replacement string
}

var redactors = []redactor{
	{rePhone, PhonePlaceholder},
	{reEmail, EmailPlaceholder},
}

// Redact replaces phone numbers and email addresses with literal
// placeholders. Pure function; idempotent on text without PII, and the
// placeholders themselves contain no matchable PII, so Redact(Redact(x))
// == Redact(x) for all inputs.
func Redact(text string) string {
	if text == "" {
		return ""
	}
	for _, r := range redactors {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}
