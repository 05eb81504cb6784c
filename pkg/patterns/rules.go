package patterns

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All built-in rules are registered here and compiled once at first use.
// Matching is always performed on lower-cased text, so character classes
// only need the lower-case range.
// =============================================================================

// --- FINANCIAL IDENTIFIER PATTERNS (SCANNER) ---
func (r *Registry) registerFinancialPatterns() {
	// Payment handles: alphanumeric local part + a known provider suffix.
	// The provider list mirrors the handles actually seen in fraud
	// solicitations; unknown providers fall through to the keyword check.
	r.register("upi_handle",
		`[a-z0-9.\-_]{2,256}@(paytm|ybl|okaxis|oksbi|axl|ibl|upi|okhdfcbank|okicici|barodampay|idbi|aubank|axisbank|bandhan|federal|hdfcbank|icici|indus|kbl|kotak|paywiz|rbl|sbi|sc|sib|uco|unionbank|yesbank)\b`,
		CategoryUPI, 90, "Payment handle (VPA)")

	// Bare digit runs of account-number length. Low severity on its own;
	// the scanner only consults this category for redaction hints.
	r.register("bank_account",
		`\b\d{9,18}\b`,
		CategoryBankAccount, 60, "Plausible bank account number")

	r.register("url",
		`https?://(?:www\.)?[-a-z0-9@:%._\+~#=]{1,256}\.[a-z0-9()]{1,6}\b(?:[-a-z0-9()@:%_\+.~#?&//=]*)`,
		CategoryLink, 70, "Generic URL")
}

// --- CONTACT / PII PATTERNS (REDACTOR) ---
func (r *Registry) registerContactPatterns() {
	// Indian mobile shape: optional +91 prefix, first digit 6-9.
	r.register("phone_in",
		`(?:\+91[\-\s]?)?[6-9]\d{9}\b`,
		CategoryPhone, 50, "Mobile number")

	r.register("email",
		`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`,
		CategoryEmail, 50, "Email address")
}

// --- RISK KEYWORD LIST (SCANNER DENSITY CHECK) ---
// Urgency, authority impersonation, financial bait, and distress terms.
// Presence test, not regex: two or more distinct hits mark a message as
// suspicious, a single hit as low-grade.
func (r *Registry) registerKeywords() {
	r.keywords = []string{
		"blocked", "suspended", "verify", "kyc", "urgency", "urgent", "immediate",
		"expire", "lapse", "refund", "lottery", "winner", "prize", "password", "otp",
		"pin", "cvv", "atm card", "credit card", "debit card", "click here", "link",
		"police", "arrest", "jail", "cbi", "customs", "suicide", "died", "killed",
		"accident", "hospital", "drugs", "illegal", "fbi", "income tax", "seized",
	}
}
