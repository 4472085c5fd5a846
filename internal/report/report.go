// Package report renders speed-test results, vendor records and session
// statistics for the terminal.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/xtxerr/speedlog/internal/measure"
	"github.com/xtxerr/speedlog/internal/oui"
	"github.com/xtxerr/speedlog/internal/storage/aggregate"
)

var (
	heading = color.New(color.Bold, color.FgCyan)
	label   = color.New(color.FgHiBlack)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
)

// Result prints the outcome of one speed test.
func Result(w io.Writer, best bool, raw *measure.RawResult) {
	kind := "random server"
	if best {
		kind = "best server"
	}
	heading.Fprintf(w, "%s: %s (%s, %s)\n", kind, raw.Server.Sponsor, raw.Server.Name, raw.Server.Country)
	field(w, "host", raw.Server.Host)
	field(w, "distance", fmt.Sprintf("%.2f km", raw.Server.Distance))
	field(w, "ping", fmt.Sprintf("%.2f ms", raw.Ping))
	field(w, "download", good.Sprintf("%.2f Mbit/s", measure.Mbps(raw.Download)))
	field(w, "upload", good.Sprintf("%.2f Mbit/s", measure.Mbps(raw.Upload)))
	field(w, "transferred", fmt.Sprintf("%d bytes sent, %d bytes received", raw.BytesSent, raw.BytesReceived))
}

// Vendor prints one registry record. A miss prints the queried prefix.
func Vendor(w io.Writer, prefix string, rec oui.VendorRecord, found bool) {
	if !found {
		warn.Fprintf(w, "%s: vendor not found\n", prefix)
		return
	}
	heading.Fprintf(w, "%s  %s\n", rec.PrefixHex, rec.Name())
	if rec.NameLong != rec.Name() {
		field(w, "organization", rec.NameLong)
	}
	if addr := rec.AddressLine(", "); addr != "" {
		field(w, "address", addr)
	}
	if cc := rec.CountryCode(); cc != "" {
		field(w, "country", cc)
	}
}

// Summary prints per-group statistics of the session log.
func Summary(w io.Writer, s *aggregate.Summary) {
	group(w, "best server", s.Best)
	group(w, "random server", s.Random)
	group(w, "all servers", s.Overall())
}

func group(w io.Writer, title string, g *aggregate.Group) {
	results := g.Results()
	heading.Fprintf(w, "%s (%d sessions)\n", title, results[0].Count)
	if g.Download.IsEmpty() {
		return
	}
	for _, r := range results {
		line := fmt.Sprintf("avg %.2f  min %.2f  max %.2f", r.Avg, r.Min, r.Max)
		if r.HasPercentiles() {
			line += fmt.Sprintf("  p50 %.2f  p90 %.2f  p99 %.2f", *r.P50, *r.P90, *r.P99)
		}
		field(w, r.Name, line)
	}
}

func field(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %s %s\n", label.Sprintf("%-15s", name+":"), value)
}
