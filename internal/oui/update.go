package oui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/logging"
)

// Changed reports whether two dump files differ byte for byte.
func Changed(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, errors.Wrap(err, "open dump")
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, errors.Wrap(err, "open dump")
	}
	defer fb.Close()

	sa, err := fa.Stat()
	if err != nil {
		return false, errors.Wrap(err, "stat dump")
	}
	sb, err := fb.Stat()
	if err != nil {
		return false, errors.Wrap(err, "stat dump")
	}
	if sa.Size() != sb.Size() {
		return true, nil
	}

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return true, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !doneA {
			return false, fmt.Errorf("read dump: %w", errA)
		}
		if errB != nil && !doneB {
			return false, fmt.Errorf("read dump: %w", errB)
		}
		if doneA || doneB {
			return doneA != doneB, nil
		}
	}
}

// Prune removes all but the newest keep dumps from dir.
// keep values below 2 are raised to 2 so the next run can still compare.
func Prune(dir string, keep int) (int, error) {
	if keep < 2 {
		keep = 2
	}
	dumps, err := ListDumps(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, d := range dumps[min(keep, len(dumps)):] {
		if err := os.Remove(d.Path); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrap(err, "remove dump")
		}
		removed++
	}
	return removed, nil
}

// VendorRebuilder is the part of the vendor store the updater needs.
type VendorRebuilder interface {
	RebuildVendors(ctx context.Context, records []VendorRecord) error
	CountVendors(ctx context.Context) (int64, error)
}

// Downloader fetches a fresh dump and returns its path.
type Downloader interface {
	Download(ctx context.Context) (string, error)
}

// Updater downloads the registry and rebuilds the vendor table when the
// download differs from the previous one.
type Updater struct {
	Downloader Downloader
	Store      VendorRebuilder
	Dir        string

	// Keep is the number of dumps retained after an update.
	Keep int

	// Force rebuilds even when the dump did not change.
	Force bool
}

// UpdateResult describes one updater run.
type UpdateResult struct {
	Path     string
	Previous string
	Changed  bool
	Records  int
	Pruned   int
}

// Run performs download, compare and, when needed, parse and rebuild.
//
// An empty vendor table is always rebuilt, so a first run or a database
// deleted by hand is repopulated from the newest dump. A dump that fails
// to parse or to load is removed, so the next run compares against the
// last dump that was applied.
func (u *Updater) Run(ctx context.Context) (*UpdateResult, error) {
	log := logging.Component("oui")

	result := &UpdateResult{Changed: true}

	previous, err := LatestDump(u.Dir)
	switch {
	case err == nil:
		result.Previous = previous.Path
	case !errors.IsNotFound(err):
		return nil, err
	}

	path, err := u.Downloader.Download(ctx)
	if err != nil {
		return nil, err
	}
	result.Path = path

	if result.Previous != "" {
		result.Changed, err = Changed(result.Previous, path)
		if err != nil {
			return nil, err
		}
	}

	rebuild := result.Changed || u.Force
	if !rebuild {
		n, err := u.Store.CountVendors(ctx)
		if err != nil {
			return nil, err
		}
		rebuild = n == 0
	}

	if rebuild {
		n, err := u.apply(ctx, path)
		if err != nil {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("remove rejected dump failed", "path", path, "error", rmErr)
			}
			return nil, err
		}
		result.Records = n
		log.Info("vendor table rebuilt", "records", n, "changed", result.Changed)
	} else {
		log.Info("oui dump unchanged, no rebuild", "previous", result.Previous)
	}

	result.Pruned, err = Prune(u.Dir, u.Keep)
	if err != nil {
		log.Warn("prune dumps failed", "error", err)
	}

	return result, nil
}

func (u *Updater) apply(ctx context.Context, path string) (int, error) {
	records, err := ParseFile(path)
	if err != nil {
		return 0, err
	}
	if err := u.Store.RebuildVendors(ctx, records); err != nil {
		return 0, errors.Wrapf(err, "rebuild vendors from %s", path)
	}
	return len(records), nil
}
