// Package validate holds the pure input predicates applied to every
// identifier and quota before it reaches the database.
package validate

import (
	"regexp"
	"strings"

	"github.com/nbutton23/zxcvbn-go"
)

const (
	// MinPasswordLength is the shortest accepted mailbox password.
	MinPasswordLength = 8
	// MaxQuotaBytes is 10 GiB.
	MaxQuotaBytes int64 = 10737418240
	// DefaultQuotaBytes applies when a mailbox is created without a quota.
	DefaultQuotaBytes int64 = 1000000000
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	domainRegex   = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+$`)
)

// Email reports whether s is a full mailbox address.
func Email(s string) bool {
	return emailRegex.MatchString(s)
}

// Domain reports whether s is a domain name with an alphabetic TLD.
func Domain(s string) bool {
	return domainRegex.MatchString(s)
}

// Username reports whether s is a valid local part.
func Username(s string) bool {
	return usernameRegex.MatchString(s)
}

// Normalize trims and lower-cases an email address or domain.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PasswordLength reports whether pw meets MinPasswordLength, counted in
// characters rather than bytes.
func PasswordLength(pw string) bool {
	return len([]rune(pw)) >= MinPasswordLength
}

// PasswordStrength returns the zxcvbn score (0-4) of pw. The user inputs
// (typically the local part and domain) are penalised when they appear in
// the password.
func PasswordStrength(pw string, userInputs ...string) int {
	return zxcvbn.PasswordStrength(pw, userInputs).Score
}
