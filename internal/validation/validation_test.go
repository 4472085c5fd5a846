package validation

import (
	"net"
	"testing"

	"github.com/xtxerr/speedlog/internal/errors"
)

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"upper", "286FB9", false},
		{"lower", "286fb9", false},
		{"digits", "001122", false},
		{"empty", "", true},
		{"short", "286FB", true},
		{"long", "286FB9A", true},
		{"dashes", "28-6F-B9", true},
		{"non hex", "28G6B9", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrefix(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrefix(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidPrefix) {
				t.Errorf("ValidatePrefix(%q) error should wrap ErrInvalidPrefix, got %v", tt.input, err)
			}
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"28-6F-B9", "286FB9", false},
		{"28:6f:b9", "286FB9", false},
		{"286fb9", "286FB9", false},
		{" 001122 ", "001122", false},
		{"e0:94:67:aa:bb:cc", "E09467", false},
		{"e094.67aa.bbcc", "E09467", false},
		{"xyz", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizePrefix(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizePrefix(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatMAC(t *testing.T) {
	hw := net.HardwareAddr{0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x6f}
	got, err := FormatMAC(hw)
	if err != nil {
		t.Fatalf("FormatMAC: %v", err)
	}
	if got != "1A:2B:3C:4D:5E:6F" {
		t.Errorf("FormatMAC = %q", got)
	}

	if _, err := FormatMAC(net.HardwareAddr{1, 2, 3}); !errors.Is(err, errors.ErrInvalidMAC) {
		t.Errorf("short address: expected ErrInvalidMAC, got %v", err)
	}
}

func TestParseMAC(t *testing.T) {
	got, err := ParseMAC("1a-2b-3c-4d-5e-6f")
	if err != nil {
		t.Fatalf("ParseMAC: %v", err)
	}
	if got != "1A:2B:3C:4D:5E:6F" {
		t.Errorf("ParseMAC = %q", got)
	}

	if _, err := ParseMAC("not a mac"); !errors.Is(err, errors.ErrInvalidMAC) {
		t.Errorf("expected ErrInvalidMAC, got %v", err)
	}
}

func TestPrefixOf(t *testing.T) {
	got, err := PrefixOf(net.HardwareAddr{0xe0, 0x94, 0x67, 0, 0, 1})
	if err != nil {
		t.Fatalf("PrefixOf: %v", err)
	}
	if got != "E09467" {
		t.Errorf("PrefixOf = %q, want E09467", got)
	}
}

func TestEscapeLikePattern(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Apple", "Apple"},
		{"100%", "100\\%"},
		{"a_b", "a\\_b"},
		{"[x]", "\\[x\\]"},
	}

	for _, tt := range tests {
		if got := EscapeLikePattern(tt.input); got != tt.want {
			t.Errorf("EscapeLikePattern(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if got := SafeLikeContains("Cisco"); got != "%Cisco%" {
		t.Errorf("SafeLikeContains = %q", got)
	}
}
