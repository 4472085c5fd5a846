// Package shell is the interactive vendor lookup prompt.
package shell

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/xtxerr/speedlog/internal/logging"
	"github.com/xtxerr/speedlog/internal/oui"
	"github.com/xtxerr/speedlog/internal/report"
	"github.com/xtxerr/speedlog/internal/validation"
)

// VendorFinder is the part of the store the shell queries.
type VendorFinder interface {
	LookupVendor(ctx context.Context, prefix string) (oui.VendorRecord, bool, error)
	SearchVendors(ctx context.Context, term string, limit int) ([]oui.VendorRecord, error)
	CountVendors(ctx context.Context) (int64, error)
}

var commands = []prompt.Suggest{
	{Text: "lookup", Description: "lookup <prefix|mac>... vendor of an OUI or MAC address"},
	{Text: "search", Description: "search <text> vendors whose name contains text"},
	{Text: "count", Description: "number of registry entries"},
	{Text: "help", Description: "list commands"},
	{Text: "exit", Description: "leave the shell"},
}

// Shell executes lookup commands against a VendorFinder.
type Shell struct {
	ctx    context.Context
	finder VendorFinder
	out    io.Writer
	limit  int
	done   bool
}

// New creates a shell writing to out. limit caps search results.
func New(ctx context.Context, finder VendorFinder, out io.Writer, limit int) *Shell {
	return &Shell{ctx: ctx, finder: finder, out: out, limit: limit}
}

// Run reads commands from the terminal until exit.
func (s *Shell) Run() {
	p := prompt.New(
		s.Execute,
		s.Complete,
		prompt.OptionPrefix("speedlog> "),
		prompt.OptionTitle("speedlog vendor lookup"),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool { return s.done }),
	)
	p.Run()
}

// Done reports whether exit was requested.
func (s *Shell) Done() bool {
	return s.done
}

// Execute runs one command line.
func (s *Shell) Execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "lookup", "l":
		s.lookup(args)
	case "search", "s":
		s.search(strings.Join(args, " "))
	case "count":
		s.count()
	case "help", "?":
		for _, c := range commands {
			fmt.Fprintf(s.out, "  %-8s %s\n", c.Text, c.Description)
		}
	case "exit", "quit", "q":
		s.done = true
	default:
		// A bare prefix is a lookup.
		if _, err := validation.NormalizePrefix(fields[0]); err == nil {
			s.lookup(fields)
			return
		}
		fmt.Fprintf(s.out, "unknown command %q, try help\n", cmd)
	}
}

func (s *Shell) lookup(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "usage: lookup <prefix|mac>...")
		return
	}
	for _, arg := range args {
		prefix, err := validation.NormalizePrefix(arg)
		if err != nil {
			fmt.Fprintf(s.out, "%s: %v\n", arg, err)
			continue
		}
		rec, found, err := s.finder.LookupVendor(s.ctx, prefix)
		if err != nil {
			s.fail("lookup", err)
			return
		}
		report.Vendor(s.out, prefix, rec, found)
	}
}

func (s *Shell) search(term string) {
	if strings.TrimSpace(term) == "" {
		fmt.Fprintln(s.out, "usage: search <text>")
		return
	}
	recs, err := s.finder.SearchVendors(s.ctx, term, s.limit)
	if err != nil {
		s.fail("search", err)
		return
	}
	if len(recs) == 0 {
		fmt.Fprintf(s.out, "no vendor matches %q\n", term)
		return
	}
	for _, r := range recs {
		fmt.Fprintf(s.out, "  %s  %s\n", r.PrefixHex, r.Name())
	}
}

func (s *Shell) count() {
	n, err := s.finder.CountVendors(s.ctx)
	if err != nil {
		s.fail("count", err)
		return
	}
	fmt.Fprintf(s.out, "%d vendors\n", n)
}

func (s *Shell) fail(op string, err error) {
	logging.Component("shell").Error(op+" failed", "error", err)
	fmt.Fprintf(s.out, "%s failed: %v\n", op, err)
}

// Complete suggests command names for the first word.
func (s *Shell) Complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
}
