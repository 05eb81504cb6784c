package patterns

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegistryInit(t *testing.T) {
	// Get should return a singleton registry
	r1 := Get()
	r2 := Get()

	if r1 != r2 {
		t.Error("Get() should return the same registry instance")
	}
}

func TestRegistryHasPatterns(t *testing.T) {
	r := Get()

	if total := r.TotalPatterns(); total < 5 {
		t.Errorf("expected at least 5 built-in patterns, got %d", total)
	}
	if len(r.Keywords()) < 30 {
		t.Errorf("expected the full keyword list, got %d entries", len(r.Keywords()))
	}
}

func TestMatchAny(t *testing.T) {
	r := Get()

	testCases := []struct {
		name       string
		text       string
		categories []Category
		wantMatch  bool
	}{
		{
			name:       "paytm handle",
			text:       "send money to 9876543210@paytm now",
			categories: []Category{CategoryUPI},
			wantMatch:  true,
		},
		{
			name:       "okaxis handle",
			text:       "my id is rahul.sharma@okaxis",
			categories: []Category{CategoryUPI},
			wantMatch:  true,
		},
		{
			name:       "plain email is not a payment handle",
			text:       "write to support@example.com",
			categories: []Category{CategoryUPI},
			wantMatch:  false,
		},
		{
			name:       "http url",
			text:       "click http://kyc-update.example.in/verify",
			categories: []Category{CategoryLink},
			wantMatch:  true,
		},
		{
			name:       "https url with path",
			text:       "visit https://secure.example.com/a/b?x=1",
			categories: []Category{CategoryLink},
			wantMatch:  true,
		},
		{
			name:       "no url",
			text:       "see you tomorrow at the office",
			categories: []Category{CategoryLink},
			wantMatch:  false,
		},
		{
			name:       "account number length digits",
			text:       "transfer to 123456789012",
			categories: []Category{CategoryBankAccount},
			wantMatch:  true,
		},
		{
			name:       "indian mobile",
			text:       "call me on +91 9876543210",
			categories: []Category{CategoryPhone},
			wantMatch:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.MatchAny(tc.text, tc.categories...)
			if (got != nil) != tc.wantMatch {
				t.Errorf("MatchAny(%q) match=%v, want %v", tc.text, got != nil, tc.wantMatch)
			}
		})
	}
}

func TestKeywordHits(t *testing.T) {
	r := Get()

	testCases := []struct {
		text string
		want int
	}{
		{"hello, how are you", 0},
		{"your account is blocked", 1},
		{"urgent: verify your kyc or account will be blocked", 4},
	}

	for _, tc := range testCases {
		if got := r.KeywordHits(tc.text); got != tc.want {
			t.Errorf("KeywordHits(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	yamlBody := `
patterns:
  - name: test_gift_card
    regex: 'gift ?card code [a-z0-9]{8}'
    category: keyword
    severity: 60
    description: Gift card code solicitation
keywords:
  - "gift card"
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	// Use a private registry so the singleton stays pristine for other tests
	r := newRegistry()
	before := r.TotalPatterns()

	if err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if got := r.TotalPatterns(); got != before+1 {
		t.Errorf("expected %d patterns after load, got %d", before+1, got)
	}
	if r.MatchAny("giftcard code ab12cd34", CategoryKeyword) == nil {
		t.Error("loaded pattern should match")
	}
	if r.KeywordHits("send me a gift card") != 1 {
		t.Error("loaded keyword should count as a hit")
	}
}

func TestLoadFileRejectsBadRegex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(path, []byte("patterns:\n  - name: broken\n    regex: '('\n    category: keyword\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := newRegistry()
	if err := r.LoadFile(path); err == nil {
		t.Error("expected error for invalid regex")
	}
}
