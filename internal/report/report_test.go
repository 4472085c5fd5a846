package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/xtxerr/speedlog/internal/measure"
	"github.com/xtxerr/speedlog/internal/oui"
	"github.com/xtxerr/speedlog/internal/storage/aggregate"
)

func init() {
	color.NoColor = true
}

func TestResult(t *testing.T) {
	var buf bytes.Buffer
	Result(&buf, true, &measure.RawResult{
		Download:      123_450_000,
		Upload:        9_870_000,
		Ping:          12.3456,
		BytesSent:     1000,
		BytesReceived: 2000,
		Server:        measure.RawServer{Sponsor: "Example ISP", Name: "Berlin", Country: "Germany", Host: "speed.example:8080", Distance: 4.2},
	})

	out := buf.String()
	for _, want := range []string{
		"best server: Example ISP (Berlin, Germany)",
		"123.45 Mbit/s",
		"9.87 Mbit/s",
		"12.35 ms",
		"1000 bytes sent, 2000 bytes received",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVendor(t *testing.T) {
	tests := []struct {
		name  string
		rec   oui.VendorRecord
		found bool
		want  []string
	}{
		{
			name: "found",
			rec: oui.VendorRecord{
				PrefixHex:    "286FB9",
				PrefixBase16: "286FB9",
				NameLong:     "Nokia Shanghai Bell Co., Ltd.",
				NameShort:    "Nokia Shanghai Bell Co., Ltd.",
				Address:      "No.388 Ning Qiao Road\nShanghai  201206\nCN",
			},
			found: true,
			want:  []string{"286FB9  Nokia Shanghai Bell Co., Ltd.", "Shanghai  201206", "CN"},
		},
		{
			name: "missing",
			want: []string{"AABBCC: vendor not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Vendor(&buf, "AABBCC", tt.rec, tt.found)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestSummary(t *testing.T) {
	s := aggregate.Summarize([]measure.Record{
		{Best: true, Download: 100_000_000, Upload: 10_000_000, Ping: 10},
		{Best: true, Download: 200_000_000, Upload: 20_000_000, Ping: 20},
	}, true)

	var buf bytes.Buffer
	Summary(&buf, s)
	out := buf.String()

	if !strings.Contains(out, "best server (2 sessions)") {
		t.Errorf("missing best heading:\n%s", out)
	}
	if !strings.Contains(out, "random server (0 sessions)") {
		t.Errorf("missing random heading:\n%s", out)
	}
	if !strings.Contains(out, "avg 150.00  min 100.00  max 200.00") {
		t.Errorf("missing download line:\n%s", out)
	}
	if !strings.Contains(out, "all servers (2 sessions)") {
		t.Errorf("missing overall heading:\n%s", out)
	}
	if !strings.Contains(out, "p50") {
		t.Errorf("missing percentiles:\n%s", out)
	}
}
