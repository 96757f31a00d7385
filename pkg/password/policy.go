package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinLength is the minimum number of characters a password must have
	MinLength = 8

	// MaxBytes is the longest password bcrypt accepts
	MaxBytes = 72

	// SpecialCharacters is the set of symbols accepted by the strength policy
	SpecialCharacters = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

// Rule violations reported by Violations
const (
	RuleMinLength = "at least 8 characters"
	RuleMaxLength = "at most 72 bytes"
	RuleUpper     = "an uppercase letter"
	RuleLower     = "a lowercase letter"
	RuleDigit     = "a digit"
	RuleSpecial   = "a special character"
)

// IsStrong reports whether the password satisfies the strength policy
func IsStrong(password string) bool {
	return len(Violations(password)) == 0
}

// Violations returns the policy rules the password does not satisfy, in a stable order.
// An empty result means the password is strong.
func Violations(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(SpecialCharacters, r):
			hasSpecial = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(password) < MinLength {
		violations = append(violations, RuleMinLength)
	}
	if len(password) > MaxBytes {
		violations = append(violations, RuleMaxLength)
	}
	if !hasUpper {
		violations = append(violations, RuleUpper)
	}
	if !hasLower {
		violations = append(violations, RuleLower)
	}
	if !hasDigit {
		violations = append(violations, RuleDigit)
	}
	if !hasSpecial {
		violations = append(violations, RuleSpecial)
	}
	return violations
}

// Describe renders violations as a single user-facing sentence
func Describe(violations []string) string {
	if len(violations) == 0 {
		return ""
	}
	return "Password must contain " + strings.Join(violations, ", ")
}
