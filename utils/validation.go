// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// NormalizePhone drops the spacing characters people type into the admin form.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "(", "")
	cleaned = strings.ReplaceAll(cleaned, ")", "")
	return cleaned
}

// ValidatePhone checks the stored form: digits only, no prefix.
func ValidatePhone(phone string) bool {
	return digitsOnly.MatchString(phone)
}
