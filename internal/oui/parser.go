// Package oui parses the IEEE OUI registry dump and keeps the local copy of
// it up to date.
//
// The registry is a plain text file in which every assignment is a block of
// lines separated from the next block by a blank line:
//
//	28-6F-B9   (hex)		Nokia Shanghai Bell Co., Ltd.
//	286FB9     (base 16)		Nokia Shanghai Bell Co., Ltd.
//					No.388 Ning Qiao Road,Jin Qiao Pudong Shanghai
//					Shanghai   201206
//					CN
//
// Malformed blocks abort the whole parse. A partially parsed registry is
// never handed to the vendor store, because a rebuild replaces every row.
package oui

import (
	"fmt"
	"os"
	"strings"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/validation"
)

const (
	hexMarker     = "(hex)"
	base16Marker  = "(base 16)"
	base16Compact = "(base16)"

	// Column offsets of the names in the IEEE layout, used when a line
	// carries no marker.
	longNameColumn  = 18
	shortNameColumn = 22
)

// VendorRecord is one OUI assignment.
type VendorRecord struct {
	// PrefixHex is the compact upper-case form of the "(hex)" line.
	PrefixHex string

	// PrefixBase16 is the "(base 16)" prefix, used as the lookup key.
	PrefixBase16 string

	// NameLong is the organization name from the "(hex)" line.
	NameLong string

	// NameShort is the organization name from the "(base 16)" line.
	// Both names are kept verbatim even though they usually agree.
	NameShort string

	// Address is the postal address, one line per row, tabs removed.
	// The last line conventionally holds the two letter country code.
	Address string
}

// Name returns the display name of the vendor.
func (r VendorRecord) Name() string {
	if r.NameShort != "" {
		return r.NameShort
	}
	return r.NameLong
}

// AddressLines splits Address into its lines.
func (r VendorRecord) AddressLines() []string {
	if r.Address == "" {
		return nil
	}
	return strings.Split(r.Address, "\n")
}

// AddressLine joins the address lines with sep.
func (r VendorRecord) AddressLine(sep string) string {
	return strings.Join(r.AddressLines(), sep)
}

// CountryCode returns the last address line when it looks like a two letter
// country code, otherwise "".
func (r VendorRecord) CountryCode() string {
	lines := r.AddressLines()
	if len(lines) == 0 {
		return ""
	}
	cc := strings.TrimSpace(lines[len(lines)-1])
	if len(cc) != 2 {
		return ""
	}
	return cc
}

// ParseFile reads and parses a registry dump from disk.
func ParseFile(path string) ([]VendorRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oui dump: %w", err)
	}
	return Parse(string(data))
}

// Parse turns the full text of a registry dump into vendor records.
//
// Blocks are numbered from 1 in the order they appear, counting every
// non-empty block including the header preamble, so a ParseError points at
// the block a reader would find in the file.
func Parse(text string) ([]VendorRecord, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var records []VendorRecord
	inPreamble := true
	pos := 0

	for _, block := range strings.Split(text, "\n\n") {
		lines := trimBlock(block)
		if len(lines) == 0 {
			continue
		}
		pos++

		// The IEEE file starts with a column header block; skip blocks
		// before the first "(hex)" line.
		if inPreamble {
			if !strings.Contains(lines[0], hexMarker) {
				continue
			}
			inPreamble = false
		}

		rec, err := parseBlock(pos, lines)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// trimBlock splits a block into lines, dropping blank leading and trailing
// lines left over from runs of more than one blank line.
func trimBlock(block string) []string {
	lines := strings.Split(block, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func parseBlock(pos int, lines []string) (VendorRecord, error) {
	if len(lines) < 2 {
		return VendorRecord{}, &errors.ParseError{
			Block:  pos,
			Reason: fmt.Sprintf("want at least 2 lines, got %d", len(lines)),
		}
	}

	hexLine, baseLine := lines[0], lines[1]

	prefixHex := strings.ToUpper(compactPrefix(hexLine))
	if err := validation.ValidatePrefix(prefixHex); err != nil {
		return VendorRecord{}, &errors.ParseError{Block: pos, Reason: "hex prefix: " + err.Error()}
	}

	if len(baseLine) < validation.PrefixLength {
		return VendorRecord{}, &errors.ParseError{Block: pos, Reason: "base16 line too short"}
	}
	prefixBase16 := baseLine[:validation.PrefixLength]
	if err := validation.ValidatePrefix(prefixBase16); err != nil {
		return VendorRecord{}, &errors.ParseError{Block: pos, Reason: "base16 prefix: " + err.Error()}
	}

	address := make([]string, 0, len(lines)-2)
	for _, l := range lines[2:] {
		address = append(address, strings.ReplaceAll(l, "\t", ""))
	}

	return VendorRecord{
		PrefixHex:    prefixHex,
		PrefixBase16: prefixBase16,
		NameLong:     nameAfter(hexLine, longNameColumn, hexMarker),
		NameShort:    nameAfter(baseLine, shortNameColumn, base16Marker, base16Compact),
		Address:      strings.Join(address, "\n"),
	}, nil
}

// compactPrefix returns the first field of line with dashes removed.
func compactPrefix(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ReplaceAll(fields[0], "-", "")
}

// nameAfter returns the text following the first marker found in line, or
// the text from the fixed column when no marker is present.
func nameAfter(line string, column int, markers ...string) string {
	for _, m := range markers {
		if i := strings.Index(line, m); i >= 0 {
			return strings.TrimSpace(line[i+len(m):])
		}
	}
	if len(line) <= column {
		return ""
	}
	return strings.TrimSpace(line[column:])
}
