package openlibrary

import "strings"

// CleanISBN strips separators and whitespace from a raw ISBN string.
func CleanISBN(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, raw)
	return strings.ToUpper(strings.TrimSpace(cleaned))
}

// ValidateISBN checks the shape of a cleaned ISBN: ten or thirteen
// digits, where the tenth character of an ISBN-10 may be the check
// character X. Checksums are left to Open Library.
func ValidateISBN(isbn string) bool {
	switch len(isbn) {
	case 10:
		for i, r := range isbn {
			if r >= '0' && r <= '9' {
				continue
			}
			if i == 9 && r == 'X' {
				continue
			}
			return false
		}
		return true
	case 13:
		for _, r := range isbn {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}
