package oui

import (
	"strings"
	"testing"

	"github.com/xtxerr/speedlog/internal/errors"
	testutil "github.com/xtxerr/speedlog/internal/testing"
)

func TestParse_Sample(t *testing.T) {
	records, err := Parse(testutil.RegistrySample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != testutil.RegistrySampleCount {
		t.Fatalf("expected %d records, got %d", testutil.RegistrySampleCount, len(records))
	}

	first := records[0]
	want := VendorRecord{
		PrefixHex:    "286FB9",
		PrefixBase16: "286FB9",
		NameLong:     "Nokia Shanghai Bell Co., Ltd.",
		NameShort:    "Nokia Shanghai Bell Co., Ltd.",
		Address:      "No.388 Ning Qiao Road,Jin Qiao Pudong Shanghai\nShanghai   Shanghai   201206\nCN",
	}
	if first != want {
		t.Errorf("unexpected first record:\n got  %+v\n want %+v", first, want)
	}

	if records[2].PrefixBase16 != "F4BD9E" || records[2].Name() != "Cisco Systems, Inc" {
		t.Errorf("unexpected last record %+v", records[2])
	}
}

func TestParse_SingleBlock(t *testing.T) {
	records, err := Parse("AABBCC  (hex)  SomeVendor\n001122  (base16)  OtherName\n123 Main St\nUS")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.PrefixHex != "AABBCC" || r.PrefixBase16 != "001122" {
		t.Errorf("unexpected prefixes %q / %q", r.PrefixHex, r.PrefixBase16)
	}
	if r.NameLong != "SomeVendor" || r.NameShort != "OtherName" {
		t.Errorf("names must be kept separately, got %q / %q", r.NameLong, r.NameShort)
	}
	if r.CountryCode() != "US" {
		t.Errorf("expected country US, got %q", r.CountryCode())
	}
	if got := r.AddressLines(); len(got) != 2 || got[0] != "123 Main St" {
		t.Errorf("unexpected address lines %q", got)
	}
}

func TestParse_BlockCount(t *testing.T) {
	block := "AABBCC  (hex)  V\nAABBCC  (base 16)  V\nUS"
	for _, n := range []int{0, 1, 5, 50} {
		blocks := make([]string, n)
		for i := range blocks {
			blocks[i] = block
		}
		records, err := Parse(strings.Join(blocks, "\n\n"))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(records) != n {
			t.Errorf("n=%d: got %d records", n, len(records))
		}
	}
}

func TestParse_LineEndingsAndBlankRuns(t *testing.T) {
	crlf := strings.ReplaceAll(testutil.RegistrySample, "\n", "\r\n")
	records, err := Parse(crlf)
	if err != nil {
		t.Fatalf("CRLF: %v", err)
	}
	if len(records) != testutil.RegistrySampleCount {
		t.Errorf("CRLF: expected %d records, got %d", testutil.RegistrySampleCount, len(records))
	}
	if strings.Contains(records[0].Address, "\r") {
		t.Errorf("carriage return left in address %q", records[0].Address)
	}

	spaced := strings.ReplaceAll(testutil.RegistrySample, "\n\n", "\n\n\n\n")
	records, err = Parse(spaced)
	if err != nil {
		t.Fatalf("blank runs: %v", err)
	}
	if len(records) != testutil.RegistrySampleCount {
		t.Errorf("blank runs: expected %d records, got %d", testutil.RegistrySampleCount, len(records))
	}
}

func TestParse_NameColumnsWithoutMarkers(t *testing.T) {
	first := "AABBCC  (hex)  A\nAABBCC  (base 16)  A"
	hex := "DD-EE-FF          Long Name Ltd"
	base := "DDEEFF                Short Name"
	records, err := Parse(first + "\n\n" + hex + "\n" + base)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].NameLong != "Long Name Ltd" || records[1].NameShort != "Short Name" {
		t.Errorf("unexpected names %q / %q", records[1].NameLong, records[1].NameShort)
	}
}

func TestParse_MalformedAborts(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		block int
	}{
		{
			name:  "single line block",
			text:  testutil.RegistrySample + "\nAA-BB-CC   (hex)\t\tLonely\n",
			block: 5,
		},
		{
			name:  "bad hex prefix",
			text:  "AABBCC  (hex)  A\nAABBCC  (base 16)  A\n\nAABBZZ  (hex)  B\nAABBCC  (base 16)  B",
			block: 2,
		},
		{
			name:  "bad base16 prefix",
			text:  "AABBCC  (hex)  A\nXYZ123  (base 16)  A",
			block: 1,
		},
		{
			name:  "bad hex prefix in first assignment",
			text:  testutil.RegistryHeader + "\n\nZZZZZZ  (hex)  Foo\nAABBCC  (base 16)  Foo",
			block: 2,
		},
		{
			name:  "short base16 line",
			text:  "AABBCC  (hex)  A\nAB",
			block: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("expected error, got %d records", len(records))
			}
			if records != nil {
				t.Errorf("no records may be returned on error, got %d", len(records))
			}
			if !errors.IsParse(err) {
				t.Errorf("expected parse error, got %v", err)
			}
			var pe *errors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Block != tt.block {
				t.Errorf("expected block %d, got %d", tt.block, pe.Block)
			}
		})
	}
}

func TestParse_OnlyPreamble(t *testing.T) {
	records, err := Parse(testutil.RegistryHeader + "\n\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestParseFile(t *testing.T) {
	path := testutil.WriteFile(t, "1700000000"+DumpSuffix, testutil.RegistrySample)
	records, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != testutil.RegistrySampleCount {
		t.Errorf("expected %d records, got %d", testutil.RegistrySampleCount, len(records))
	}

	if _, err := ParseFile(path + ".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestVendorRecord_Helpers(t *testing.T) {
	r := VendorRecord{NameLong: "Long", Address: "Street 1\nCity\nDE"}
	if r.Name() != "Long" {
		t.Errorf("Name should fall back to the long name, got %q", r.Name())
	}
	if r.AddressLine(", ") != "Street 1, City, DE" {
		t.Errorf("unexpected address line %q", r.AddressLine(", "))
	}
	if r.CountryCode() != "DE" {
		t.Errorf("expected DE, got %q", r.CountryCode())
	}
	if (VendorRecord{Address: "Somewhere"}).CountryCode() != "" {
		t.Error("non-code last line should give empty country")
	}
	if (VendorRecord{}).AddressLines() != nil {
		t.Error("empty address should have no lines")
	}
}
