package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

const maxFileNameLen = 255

// ValidateFileName checks an uploaded file's client-supplied name.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if len(name) > maxFileNameLen {
		return fmt.Errorf("file name longer than %d bytes", maxFileNameLen)
	}
	if !utf8.ValidString(name) || strings.ContainsAny(name, "\x00\r\n") {
		return fmt.Errorf("invalid characters in file name")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// SanitizeField sanitizes a free-text form field and caps its length in runes.
func SanitizeField(input string, maxRunes int) string {
	s := SanitizeString(input)
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxRunes]))
	}
	return s
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates a 1-based page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ParseIntParam reads an optional integer query value; blank or malformed gives 0.
func ParseIntParam(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
