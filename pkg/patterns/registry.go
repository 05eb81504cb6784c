// Package patterns provides a centralized pattern registry for
// financial-fraud detection. All regex patterns are compiled once at first
// use and shared across the scanner and redactor.
//
// Design principles:
// - COMPILE ONCE: All patterns compiled at init, not per-request
// - DRY: Single source of truth for all fraud patterns
// - CATEGORIZED: Patterns organized by category for targeted scans
// - EXTENSIBLE: Extra rules load from YAML without touching control flow
package patterns

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Category represents a fraud pattern category
type Category string

const (
	// Detection categories (heuristic scanner)
	CategoryUPI         Category = "upi"          // Payment-handle identifiers
	CategoryBankAccount Category = "bank_account" // Long digit runs plausible as account numbers
	CategoryLink        Category = "link"         // Generic URL shape
	CategoryKeyword     Category = "keyword"      // Risk keyword list (substring match)

	// Redaction categories (privacy boundary)
	CategoryPhone Category = "phone" // National mobile-number shape
	CategoryEmail Category = "email" // Email addresses
)

// Pattern holds a compiled regex with metadata
type Pattern struct {
	Name        string         // Human-readable name for logging
	Regex       *regexp.Regexp // Compiled regex (never nil after registration)
	Category    Category       // Fraud category
	Severity    int            // Risk contribution (0-100)
	Description string         // What this pattern detects
}

// Registry holds all compiled patterns, organized by category, plus the
// keyword list used for density checks.
type Registry struct {
	mu         sync.RWMutex
	byCategory map[Category][]*Pattern
	all        []*Pattern
	keywords   []string
}

// global singleton - initialized once at first use
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton).
// Thread-safe and guaranteed to be initialized.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

// newRegistry creates and populates the pattern registry
func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Pattern),
		all:        make([]*Pattern, 0, 16),
	}

	r.registerFinancialPatterns()
	r.registerContactPatterns()
	r.registerKeywords()

	return r
}

// register adds a pattern to the registry (internal use only)
func (r *Registry) register(name, pattern string, category Category, severity int, description string) {
	compiled := regexp.MustCompile(pattern)
	p := &Pattern{
		Name:        name,
		Regex:       compiled,
		Category:    category,
		Severity:    severity,
		Description: description,
	}

	r.byCategory[category] = append(r.byCategory[category], p)
	r.all = append(r.all, p)
}

// GetByCategory returns all patterns for a specific category.
// Returns empty slice if category not found (never nil).
func (r *Registry) GetByCategory(cat Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if patterns, ok := r.byCategory[cat]; ok {
		return patterns
	}
	return []*Pattern{}
}

// MatchAny checks if text matches any pattern in the given categories.
// Returns the first matching pattern or nil; optimized for early exit.
func (r *Registry) MatchAny(text string, cats ...Category) *Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cat := range cats {
		for _, p := range r.byCategory[cat] {
			if p.Regex.MatchString(text) {
				return p
			}
		}
	}
	return nil
}

// Keywords returns the risk keyword list. Keyword matching is a
// case-insensitive substring presence test, deliberately not regex.
func (r *Registry) Keywords() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keywords
}

// KeywordHits counts distinct keywords present in the (lower-cased) text.
func (r *Registry) KeywordHits(lower string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

// TotalPatterns returns the total count of registered regex patterns
func (r *Registry) TotalPatterns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// ruleFile is the YAML shape for user-supplied rule extensions.
type ruleFile struct {
	Patterns []struct {
		Name        string `yaml:"name"`
		Regex       string `yaml:"regex"`
		Category    string `yaml:"category"`
		Severity    int    `yaml:"severity"`
		Description string `yaml:"description"`
	} `yaml:"patterns"`
	Keywords []string `yaml:"keywords"`
}

// LoadFile merges extra rules from a YAML file into the registry. Rules are
// additive; built-in patterns are never removed or overridden.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rule file: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("parse rule file %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range rf.Patterns {
		compiled, err := regexp.Compile(p.Regex)
		if err != nil {
			return fmt.Errorf("rule %q: %w", p.Name, err)
		}
		pat := &Pattern{
			Name:        p.Name,
			Regex:       compiled,
			Category:    Category(p.Category),
			Severity:    p.Severity,
			Description: p.Description,
		}
		r.byCategory[pat.Category] = append(r.byCategory[pat.Category], pat)
		r.all = append(r.all, pat)
	}

	for _, kw := range rf.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			r.keywords = append(r.keywords, kw)
		}
	}

	return nil
}
