// Package manager provides the business logic of speedlog: one run measures
// the best and a random server, enriches both results with host and vendor
// context and appends them to the session log.
package manager

import (
	"context"
	"fmt"

	uuid "github.com/nu7hatch/gouuid"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/speedlog/internal/hostinfo"
	"github.com/xtxerr/speedlog/internal/logging"
	"github.com/xtxerr/speedlog/internal/measure"
	"github.com/xtxerr/speedlog/internal/oui"
)

// Tester runs speed tests.
type Tester interface {
	RunBest(ctx context.Context) (*measure.RawResult, error)
	RunRandom(ctx context.Context) (*measure.RawResult, error)
}

// HostResolver supplies the host context and the local hardware address.
type HostResolver interface {
	Resolve(ctx context.Context) (measure.HostContext, error)
	PrimaryHardware() (hostinfo.Hardware, error)
}

// Store is the persistence the manager needs.
type Store interface {
	LookupVendor(ctx context.Context, prefix string) (oui.VendorRecord, bool, error)
	EnsureSessionSchema(ctx context.Context, rec *measure.Record) error
	AppendSession(ctx context.Context, rec *measure.Record) error
}

// Config wires the manager's collaborators.
type Config struct {
	Tester   Tester
	Resolver HostResolver
	Store    Store
	Clock    measure.Clock

	// OnResult is called after each test finishes, before anything is
	// stored. It is used to print the per-server report.
	OnResult func(best bool, raw *measure.RawResult)
}

// Manager coordinates a speed-test run.
type Manager struct {
	cfg Config
}

// New creates a Manager.
func New(cfg *Config) (*Manager, error) {
	if cfg.Tester == nil || cfg.Resolver == nil || cfg.Store == nil {
		return nil, fmt.Errorf("manager: tester, resolver and store are required")
	}
	c := *cfg
	if c.Clock == nil {
		c.Clock = measure.SystemClock
	}
	return &Manager{cfg: c}, nil
}

// RunResult holds the two records stored by one run.
type RunResult struct {
	RunID  string
	Best   *measure.Record
	Random *measure.Record
}

// enrichment is the context shared by both records of a run.
type enrichment struct {
	host        measure.HostContext
	mac         string
	vendor      oui.VendorRecord
	vendorFound bool
}

// Run measures the best server, then a random server, and appends both
// sessions. Both records are normalized before either is stored, so a
// coercion failure stores nothing.
func (m *Manager) Run(ctx context.Context) (*RunResult, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	runID := id.String()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.WithContext(ctx).With("component", "manager")

	log.Info("testing best server")
	best, err := m.cfg.Tester.RunBest(ctx)
	if err != nil {
		return nil, err
	}
	m.report(true, best)

	log.Info("testing random server")
	random, err := m.cfg.Tester.RunRandom(ctx)
	if err != nil {
		return nil, err
	}
	m.report(false, random)

	enr, err := m.enrich(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{RunID: runID}
	result.Best, err = m.normalize(runID, true, best, enr)
	if err != nil {
		return nil, err
	}
	result.Random, err = m.normalize(runID, false, random, enr)
	if err != nil {
		return nil, err
	}

	if err := m.cfg.Store.EnsureSessionSchema(ctx, result.Best); err != nil {
		return nil, err
	}
	for _, rec := range []*measure.Record{result.Best, result.Random} {
		if err := m.cfg.Store.AppendSession(ctx, rec); err != nil {
			return nil, err
		}
	}

	log.Info("statistics saved")
	return result, nil
}

func (m *Manager) report(best bool, raw *measure.RawResult) {
	if m.cfg.OnResult != nil {
		m.cfg.OnResult(best, raw)
	}
}

// enrich resolves the host context and the local vendor concurrently.
func (m *Manager) enrich(ctx context.Context) (*enrichment, error) {
	log := logging.WithContext(ctx).With("component", "manager")
	enr := &enrichment{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		host, err := m.cfg.Resolver.Resolve(gctx)
		if err != nil {
			return err
		}
		enr.host = host
		return nil
	})

	g.Go(func() error {
		hw, err := m.cfg.Resolver.PrimaryHardware()
		if err != nil {
			log.Warn("no hardware address, vendor left empty", "error", err)
			return nil
		}
		enr.mac = hw.MAC

		rec, found, err := m.cfg.Store.LookupVendor(gctx, hw.Prefix)
		if err != nil {
			return err
		}
		if !found {
			log.Info("vendor not found", "prefix", hw.Prefix)
		}
		enr.vendor, enr.vendorFound = rec, found
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return enr, nil
}

func (m *Manager) normalize(runID string, best bool, raw *measure.RawResult, enr *enrichment) (*measure.Record, error) {
	return measure.Normalize(measure.Input{
		Raw:         *raw,
		Host:        enr.host,
		Vendor:      enr.vendor,
		VendorFound: enr.vendorFound,
		MAC:         enr.mac,
		RunID:       runID,
		Best:        best,
	}, m.cfg.Clock)
}
