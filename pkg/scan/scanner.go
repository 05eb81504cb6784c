// Package scan implements the local, zero-network heuristic scanner. It
// produces a coarse risk hint that gates the remote classifier call and
// serves as the fallback signal when that call fails.
package scan

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/HoneyTrapAI/sentinel/pkg/patterns"
)

// Category is the kind of signal that produced a hint.
type Category string

const (
	CategoryUPI     Category = "upi"     // Payment-handle identifier found
	CategoryLink    Category = "link"    // URL found
	CategoryKeyword Category = "keyword" // Risk keyword density
)

// Severity is the coarse risk level of a hint.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Hint is the scanner's verdict for one message. Absence of a hint (nil)
// means the text carries no local fraud signal at all.
type Hint struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Pattern  string   `json:"pattern,omitempty"` // Name of the matching rule, if any
}

// Scanner matches text against the shared pattern registry.
type Scanner struct {
	reg *patterns.Registry
}

// New creates a scanner backed by the global pattern registry.
func New() *Scanner {
	return &Scanner{reg: patterns.Get()}
}

// NewWithRegistry creates a scanner with an explicit registry (tests).
func NewWithRegistry(reg *patterns.Registry) *Scanner {
	return &Scanner{reg: reg}
}

// Scan classifies text and returns a hint, or nil when no signal is found.
// Priority order is deliberate and first-match-wins: a payment handle marks
// the message high-risk regardless of what else it contains, a URL is
// medium, keyword density decides the rest.
func (s *Scanner) Scan(text string) *Hint {
	lower := Normalize(text)
	if lower == "" {
		return nil
	}

	if p := s.reg.MatchAny(lower, patterns.CategoryUPI); p != nil {
		return &Hint{Category: CategoryUPI, Severity: SeverityHigh, Pattern: p.Name}
	}

	if p := s.reg.MatchAny(lower, patterns.CategoryLink); p != nil {
		return &Hint{Category: CategoryLink, Severity: SeverityMedium, Pattern: p.Name}
	}

	switch hits := s.reg.KeywordHits(lower); {
	case hits >= 2:
		return &Hint{Category: CategoryKeyword, Severity: SeverityMedium}
	case hits == 1:
		return &Hint{Category: CategoryKeyword, Severity: SeverityLow}
	}

	return nil
}

// zero-width characters scammers splice into handles to dodge matching
var zeroWidthReplacer = strings.NewReplacer(
	"​", "", // zero width space
	"‌", "", // zero width non-joiner
	"‍", "", // zero width joiner
	"\uFEFF", "", // BOM
)

// Normalize lower-cases text and folds unicode obfuscation (fullwidth
// digits, compatibility forms, zero-width joins) so the rule set only has
// to express the plain-ASCII shape of each pattern.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded := norm.NFKC.String(text)
	folded = zeroWidthReplacer.Replace(folded)
	return strings.ToLower(strings.TrimSpace(folded))
}
