package oui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/logging"
)

// DumpSuffix is the file name suffix of downloaded registry dumps.
// Dumps are named "<unix seconds>.ieee_oui.txt".
const DumpSuffix = ".ieee_oui.txt"

// Fetcher downloads the registry dump into a directory.
type Fetcher struct {
	URL    string
	Dir    string
	Client *http.Client

	// Now is used for the file name timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Download fetches the registry and stores it as a new timestamped file.
// It returns the path of the new file. A partially written file is removed.
func (f *Fetcher) Download(ctx context.Context) (string, error) {
	log := logging.Component("oui")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return "", errors.Wrap(err, "create dump directory")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", &errors.FetchError{URL: f.URL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &errors.FetchError{URL: f.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &errors.FetchError{URL: f.URL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	path, err := nextDumpPath(f.Dir, now().Unix())
	if err != nil {
		return "", err
	}
	tmp := path + ".part"

	out, err := os.Create(tmp)
	if err != nil {
		return "", errors.Wrap(err, "create dump file")
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", &errors.FetchError{URL: f.URL, Err: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", errors.Wrap(err, "rename dump file")
	}

	log.Info("oui dump downloaded", "path", path, "bytes", n)
	return path, nil
}

// nextDumpPath returns the dump path for ts, moving to the next free second
// when a dump with that timestamp already exists.
func nextDumpPath(dir string, ts int64) (string, error) {
	for {
		path := filepath.Join(dir, strconv.FormatInt(ts, 10)+DumpSuffix)
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "stat dump file")
		}
		ts++
	}
}

// Dump is a downloaded registry file.
type Dump struct {
	Path      string
	Timestamp int64
}

// ListDumps returns the dumps found in dir, newest first.
// Files that do not follow the dump naming scheme are ignored.
func ListDumps(dir string) ([]Dump, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list dumps: %w", err)
	}

	var dumps []Dump
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, DumpSuffix) {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSuffix(name, DumpSuffix), 10, 64)
		if err != nil {
			continue
		}
		dumps = append(dumps, Dump{Path: filepath.Join(dir, name), Timestamp: ts})
	}

	sort.Slice(dumps, func(i, j int) bool {
		return dumps[i].Timestamp > dumps[j].Timestamp
	})
	return dumps, nil
}

// LatestDump returns the newest dump in dir.
func LatestDump(dir string) (Dump, error) {
	dumps, err := ListDumps(dir)
	if err != nil {
		return Dump{}, err
	}
	if len(dumps) == 0 {
		return Dump{}, fmt.Errorf("%s: %w", dir, errors.ErrDumpNotFound)
	}
	return dumps[0], nil
}
