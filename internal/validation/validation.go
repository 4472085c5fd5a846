// Package validation provides centralized input validation for speedlog.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/xtxerr/speedlog/internal/errors"
)

// =============================================================================
// OUI Prefix Validation
// =============================================================================

// PrefixLength is the number of hex digits in an OUI prefix.
const PrefixLength = 6

// IsHex reports whether s consists of hex digits only.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ValidatePrefix checks that prefix is exactly six hex digits.
func ValidatePrefix(prefix string) error {
	if len(prefix) != PrefixLength {
		return fmt.Errorf("%q: want %d hex digits, got %d characters: %w",
			prefix, PrefixLength, len(prefix), errors.ErrInvalidPrefix)
	}
	if !IsHex(prefix) {
		return fmt.Errorf("%q: non-hex character: %w", prefix, errors.ErrInvalidPrefix)
	}
	return nil
}

// NormalizePrefix accepts an OUI in any of the usual spellings
// ("28-6F-B9", "28:6f:b9", "286fb9") or a full MAC address and returns
// the compact upper-case six digit prefix.
func NormalizePrefix(s string) (string, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case '-', ':', '.', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	if len(compact) > PrefixLength && IsHex(compact) {
		compact = compact[:PrefixLength]
	}
	if err := ValidatePrefix(compact); err != nil {
		return "", err
	}
	return strings.ToUpper(compact), nil
}

// =============================================================================
// MAC Address Validation
// =============================================================================

// FormatMAC renders a hardware address as upper-case colon separated
// octets (1A:2B:3C:4D:5E:6F).
func FormatMAC(hw net.HardwareAddr) (string, error) {
	if len(hw) != 6 {
		return "", fmt.Errorf("%q: want 6 octets, got %d: %w", hw.String(), len(hw), errors.ErrInvalidMAC)
	}
	return strings.ToUpper(hw.String()), nil
}

// ParseMAC parses a textual MAC address and returns it in FormatMAC form.
func ParseMAC(s string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%q: %v: %w", s, err, errors.ErrInvalidMAC)
	}
	return FormatMAC(hw)
}

// PrefixOf returns the OUI prefix of a hardware address.
func PrefixOf(hw net.HardwareAddr) (string, error) {
	if len(hw) < 3 {
		return "", fmt.Errorf("%q: too short: %w", hw.String(), errors.ErrInvalidMAC)
	}
	return fmt.Sprintf("%02X%02X%02X", hw[0], hw[1], hw[2]), nil
}

// =============================================================================
// SQL LIKE Escaping
// =============================================================================

var sqlLikeMetaChars = regexp.MustCompile(`[%_\[\]\\]`)

// EscapeLikePattern escapes special characters in a LIKE pattern.
func EscapeLikePattern(pattern string) string {
	return sqlLikeMetaChars.ReplaceAllStringFunc(pattern, func(s string) string {
		return "\\" + s
	})
}

// SafeLikeContains creates a safe LIKE contains pattern.
func SafeLikeContains(pattern string) string {
	return "%" + EscapeLikePattern(pattern) + "%"
}
