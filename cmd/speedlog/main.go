// speedlog measures broadband throughput and keeps a local log of the
// results, enriched with host and network vendor context.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/hostinfo"
	"github.com/xtxerr/speedlog/internal/loader"
	"github.com/xtxerr/speedlog/internal/logging"
	"github.com/xtxerr/speedlog/internal/manager"
	"github.com/xtxerr/speedlog/internal/measure"
	"github.com/xtxerr/speedlog/internal/oui"
	"github.com/xtxerr/speedlog/internal/report"
	"github.com/xtxerr/speedlog/internal/shell"
	"github.com/xtxerr/speedlog/internal/storage/aggregate"
	"github.com/xtxerr/speedlog/internal/storage/parquet"
	"github.com/xtxerr/speedlog/internal/store"
	"github.com/xtxerr/speedlog/internal/validation"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `usage: speedlog [flags] <command> [args]

commands:
  update [-force]          download the OUI registry and rebuild vendors
  run                      test best and random server, store both sessions
  lookup <prefix|mac>...   print vendor records
  shell                    interactive vendor lookup
  stats [-from file]       session statistics per server kind
  export <file.parquet>    write all sessions to a Parquet file

flags:
`

// Exit codes by failure category.
const (
	exitFailure     = 1
	exitInvalid     = 2
	exitFetch       = 3
	exitParse       = 4
	exitMeasurement = 5
	exitDatabase    = 6
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		code, hint := classify(err)
		if hint != "" {
			color.Red("speedlog: %s: %v", hint, err)
		} else {
			color.Red("speedlog: %v", err)
		}
		os.Exit(code)
	}
}

// classify maps an error to the process exit code and a short hint.
func classify(err error) (int, string) {
	switch {
	case errors.IsFetch(err):
		return exitFetch, "network request failed"
	case errors.IsMeasurement(err):
		return exitMeasurement, "speed test failed"
	case errors.IsParse(err):
		return exitParse, "registry dump is malformed, previous vendors kept"
	case errors.IsDatabase(err):
		return exitDatabase, "database failure"
	case errors.IsValidation(err):
		return exitInvalid, "invalid input"
	default:
		return exitFailure, ""
	}
}

func execute(args []string) error {
	fs := flag.NewFlagSet("speedlog", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	// CLI flags
	cfgPath := fs.String("config", "", "config file path")
	dbPath := fs.String("db", "", "database path (overrides config)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	logJSON := fs.Bool("log-json", false, "log as JSON")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *version {
		fmt.Println("speedlog", Version)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		return err
	}

	// CLI overrides
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}

	if err := loader.Validate(cfg); err != nil {
		return err
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	log := logging.Component("cmd")
	log.Debug("speedlog starting", "version", Version, "database", cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(loader.ToStoreConfig(&cfg.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Health(ctx); err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "update":
		return cmdUpdate(ctx, cfg, st, rest)
	case "run":
		return cmdRun(ctx, cfg, st)
	case "lookup":
		return cmdLookup(ctx, st, rest)
	case "shell":
		shell.New(ctx, st, os.Stdout, cfg.Shell.SearchLimit).Run()
		return nil
	case "stats":
		return cmdStats(ctx, st, rest)
	case "export":
		return cmdExport(ctx, cfg, st, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdUpdate(ctx context.Context, cfg *loader.Config, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	force := fs.Bool("force", false, "rebuild even when the registry did not change")
	if err := fs.Parse(args); err != nil {
		return err
	}

	updater := &oui.Updater{
		Downloader: &oui.Fetcher{
			URL:    cfg.OUI.URL,
			Dir:    cfg.OUI.Dir,
			Client: &http.Client{Timeout: cfg.OUI.Timeout.Duration()},
		},
		Store: st,
		Dir:   cfg.OUI.Dir,
		Keep:  cfg.OUI.Keep,
		Force: *force,
	}

	res, err := updater.Run(ctx)
	if err != nil {
		return err
	}

	n, err := st.CountVendors(ctx)
	if err != nil {
		return err
	}
	if res.Records > 0 {
		color.Green("vendor table rebuilt from %s: %d vendors", res.Path, n)
	} else {
		color.Yellow("registry unchanged, %d vendors", n)
	}
	return nil
}

func cmdRun(ctx context.Context, cfg *loader.Config, st *store.Store) error {
	progress := measure.NewProgressLine(os.Stdout)
	driver := measure.NewDriver(loader.ToDriverConfig(&cfg.Speedtest), progress)

	resolver := &hostinfo.Resolver{
		CheckIPURL: cfg.HostInfo.CheckIPURL,
		IPInfoURL:  cfg.HostInfo.IPInfoURL,
		Client:     &http.Client{Timeout: cfg.HostInfo.Timeout.Duration()},
	}

	mgr, err := manager.New(&manager.Config{
		Tester:   driver,
		Resolver: resolver,
		Store:    st,
		OnResult: func(best bool, raw *measure.RawResult) {
			report.Result(os.Stdout, best, raw)
		},
	})
	if err != nil {
		return err
	}

	res, err := mgr.Run(ctx)
	if err != nil {
		return err
	}

	if res.Best.Vendor != measure.VendorNotFound {
		fmt.Printf("network adapter: %s (%s)\n", res.Best.Vendor, res.Best.MACAddress)
	}
	total, err := st.CountSessions(ctx)
	if err != nil {
		return err
	}
	color.Green("sessions stored (run %s, %d in log)", res.RunID, total)
	return nil
}

func cmdLookup(ctx context.Context, st *store.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("lookup: at least one prefix or MAC address required")
	}
	for _, arg := range args {
		prefix, err := validation.NormalizePrefix(arg)
		if err != nil {
			return err
		}
		rec, found, err := st.LookupVendor(ctx, prefix)
		if err != nil {
			return err
		}
		report.Vendor(os.Stdout, prefix, rec, found)
	}
	return nil
}

func cmdStats(ctx context.Context, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	from := fs.String("from", "", "read sessions from a Parquet export instead of the database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var records []measure.Record
	if *from != "" {
		r, err := parquet.NewSessionReader(*from)
		if err != nil {
			return err
		}
		defer r.Close()

		logging.Component("cmd").Debug("reading export", "path", r.Path(), "rows", r.NumRows())
		if records, err = r.ReadAll(); err != nil {
			return err
		}
	} else {
		var err error
		if records, err = st.ListSessions(ctx, store.SessionFilter{}); err != nil {
			return err
		}
	}

	report.Summary(os.Stdout, aggregate.Summarize(records, true))
	return nil
}

func cmdExport(ctx context.Context, cfg *loader.Config, st *store.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("export: output file required")
	}

	records, err := st.ListSessions(ctx, store.SessionFilter{})
	if err != nil {
		return err
	}

	n, err := parquet.Export(args[0], records, loader.ToParquetOptions(&cfg.Export))
	if err != nil {
		return err
	}
	color.Green("%d sessions written to %s", n, args[0])
	return nil
}
