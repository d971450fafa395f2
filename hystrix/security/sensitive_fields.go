package security

import (
	"slices"
	"strings"
	"unicode"
)

// Redacted replaces the value of a sensitive field.
const Redacted = "[REDACTED]"

// sensitiveTokens match when they appear as a whole word of the field name.
var sensitiveTokens = map[string]bool{
	"password":      true,
	"passwd":        true,
	"token":         true,
	"secret":        true,
	"key":           true,
	"authorization": true,
	"auth":          true,
	"credential":    true,
	"credentials":   true,
	"cookie":        true,
}

// sensitiveCompounds match two adjacent words, or the whole name once
// separators are removed ("api_key", "APIKey", "apikey").
var sensitiveCompounds = map[string]bool{
	"apikey":       true,
	"accesstoken":  true,
	"refreshtoken": true,
	"privatekey":   true,
	"clientid":     true,
	"clientsecret": true,
	"passwordsalt": true,
	"sessionid":    true,
}

// DefaultSensitiveFields returns the words and compounds treated as sensitive, sorted.
func DefaultSensitiveFields() []string {
	out := make([]string, 0, len(sensitiveTokens)+len(sensitiveCompounds))

	for k := range sensitiveTokens {
		out = append(out, k)
	}

	for k := range sensitiveCompounds {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}

// words splits a field name into lowercase words on separators and camelCase
// boundaries: "X-Api-Key" and "apiKey" both yield [api key], "APIKey" yields
// [api key].
func words(name string) []string {
	var (
		out     []string
		current []rune
	)

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	runes := []rune(name)

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()

			continue
		}

		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}

		current = append(current, r)
	}

	flush()

	return out
}

// IsSensitiveField reports whether values stored under fieldName should not
// be logged. Matching is by whole word, so "monkey" is not sensitive while
// "api_key" and "sessionToken" are.
func IsSensitiveField(fieldName string) bool {
	parts := words(fieldName)
	if len(parts) == 0 {
		return false
	}

	if sensitiveCompounds[strings.Join(parts, "")] {
		return true
	}

	for i, w := range parts {
		if sensitiveTokens[w] {
			return true
		}

		if i > 0 && sensitiveCompounds[parts[i-1]+w] {
			return true
		}
	}

	return false
}

// Redact returns Redacted when key is sensitive, value otherwise.
func Redact(key, value string) string {
	if IsSensitiveField(key) {
		return Redacted
	}

	return value
}
