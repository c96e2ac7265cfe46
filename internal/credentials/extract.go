// Package credentials recovers identifiers and passwords from instruction text
// and asks for the ones the instruction does not contain.
package credentials

import (
	"regexp"
	"strings"
)

// Credential is what an instruction reveals about the account to use.
// It is never persisted; only its effect on the plan and the secret store is.
type Credential struct {
	Usernames []string
	Emails    []string
	Phones    []string
	Password  string
}

// Username returns the first username found, if any.
func (c Credential) Username() string { return first(c.Usernames) }

// Email returns the first email found, if any.
func (c Credential) Email() string { return first(c.Emails) }

// Phone returns the first phone number found, if any.
func (c Credential) Phone() string { return first(c.Phones) }

// Empty reports whether nothing was extracted.
func (c Credential) Empty() bool {
	return len(c.Usernames) == 0 && len(c.Emails) == 0 && len(c.Phones) == 0 && c.Password == ""
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

var (
	usernameRe      = regexp.MustCompile(`(?i)\b(?:username|user|login\s+as)\b\s*(?:is\s+|=\s*|:\s*)?['"]?([^\s,'"]+)['"]?`)
	emailRe         = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	digitRunRe      = regexp.MustCompile(`(?:\+91[\s-]?)?\d+`)
	passwordFieldRe = regexp.MustCompile(`password|passwd|\bpass\b|\bpwd\b|passcode`)
	passwordRe      = regexp.MustCompile(`(?i)\b(?:password|passwd|pass|pwd)\b\s*(?:(?:set\s+to|set|to|is|was)\b\s*)?(?:[=:]\s*)?['"]?(.*?)['"]?\s*(?:,|;|\b(?:and|then|with|for|on|in|at|into|username|user|email|phone|login)\b|$)`)
)

// fillers are words the broad patterns capture when no real value follows the marker.
var fillers = map[string]bool{
	"":      true,
	"to":    true,
	"and":   true,
	"was":   true,
	"is":    true,
	"set":   true,
	"the":   true,
	"field": true,
	"box":   true,
	"input": true,
}

var usernameFillers = map[string]bool{
	"and":   true,
	"or":    true,
	"is":    true,
	"to":    true,
	"the":   true,
	"with":  true,
	"field": true,
	"name":  true,
}

// Extract scans an instruction for credentials. Missing categories are left empty.
// Identifiers keep every match in order; for the password the last match wins.
func Extract(instruction string) Credential {
	var c Credential

	for _, m := range usernameRe.FindAllStringSubmatch(instruction, -1) {
		u := strings.Trim(m[1], `'"`)
		if usernameFillers[strings.ToLower(u)] {
			continue
		}
		c.Usernames = append(c.Usernames, u)
	}

	c.Emails = emailRe.FindAllString(instruction, -1)
	c.Phones = findPhones(instruction)

	for _, m := range passwordRe.FindAllStringSubmatchIndex(instruction, -1) {
		p := strings.TrimSpace(instruction[m[2]:m[3]])
		if !quotedAt(instruction, m[3]) {
			// Unquoted values lose sentence punctuation; quote a password ending in "." or "!".
			p = strings.TrimRight(p, ".!?")
		}
		p = strings.TrimSpace(strings.Trim(p, `'"`))
		if fillers[strings.ToLower(p)] {
			continue
		}
		c.Password = p
	}
	return c
}

func quotedAt(s string, i int) bool {
	return i < len(s) && (s[i] == '\'' || s[i] == '"')
}

// IsPasswordField reports whether a form-field description names a password input.
func IsPasswordField(target string) bool {
	return passwordFieldRe.MatchString(strings.ToLower(target))
}

// findPhones accepts Indian mobile numbers: optional +91 or 0, then ten digits starting 6-9.
func findPhones(text string) []string {
	var phones []string
	for _, run := range digitRunRe.FindAllString(text, -1) {
		digits := run
		if strings.HasPrefix(digits, "+91") {
			digits = strings.TrimLeft(digits[3:], " -")
		} else if len(digits) == 11 && digits[0] == '0' {
			digits = digits[1:]
		}
		if len(digits) == 10 && digits[0] >= '6' && digits[0] <= '9' {
			phones = append(phones, strings.TrimSpace(run))
		}
	}
	return phones
}
