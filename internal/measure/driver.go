package measure

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/showwin/speedtest-go/speedtest"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/logging"
)

// Stage names reported in MeasurementError.
const (
	StageUserInfo = "user-info"
	StageServers  = "servers"
	StagePing     = "ping"
	StageDownload = "download"
	StageUpload   = "upload"
)

// DriverConfig configures the speed-test driver.
type DriverConfig struct {
	// Timeout bounds every HTTP request of a test.
	Timeout time.Duration

	// ProgressCells is the number of progress slots per transfer stage.
	ProgressCells int

	// ServerIDs restricts the best-server search to these ids when set.
	ServerIDs []int
}

// Driver runs speed tests through speedtest.net servers.
//
// A fresh speedtest client is created for every run so that the transfer
// statistics of the best-server run never leak into the random-server run.
type Driver struct {
	cfg       DriverConfig
	transport *countingTransport
	http      *http.Client
	progress  Progress

	// pick chooses the random comparison server.
	pick func(n int) int

	// newClient and test reach the speed-test service.
	newClient func(doer *http.Client) speedClient
	test      func(ctx context.Context, server *speedtest.Server, stage string) error
}

// speedClient is the part of the speedtest client a run needs.
type speedClient interface {
	FetchUserInfoContext(ctx context.Context) (*speedtest.User, error)
	FetchServerListContext(ctx context.Context) (speedtest.Servers, error)
}

// NewDriver creates a driver that reports transfer progress to progress.
// A nil progress discards updates.
func NewDriver(cfg DriverConfig, progress Progress) *Driver {
	if progress == nil {
		progress = nopProgress{}
	}
	if cfg.ProgressCells <= 0 {
		cfg.ProgressCells = 40
	}
	t := newCountingTransport(nil)
	return &Driver{
		cfg:       cfg,
		transport: t,
		http:      &http.Client{Transport: t, Timeout: cfg.Timeout},
		progress:  progress,
		pick:      rand.IntN,
		newClient: func(doer *http.Client) speedClient {
			return speedtest.New(speedtest.WithDoer(doer))
		},
		test: serverTest,
	}
}

// serverTest runs one stage against server; the results land in the
// server's Latency, DLSpeed and ULSpeed fields.
func serverTest(ctx context.Context, server *speedtest.Server, stage string) error {
	switch stage {
	case StagePing:
		return server.PingTestContext(ctx, func(time.Duration) {})
	case StageDownload:
		return server.DownloadTestContext(ctx)
	case StageUpload:
		return server.UploadTestContext(ctx)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

// RunBest tests against the nearest server.
func (d *Driver) RunBest(ctx context.Context) (*RawResult, error) {
	return d.run(ctx, func(servers speedtest.Servers) (*speedtest.Server, error) {
		targets, err := servers.FindServer(d.cfg.ServerIDs)
		if err != nil {
			return nil, err
		}
		if len(targets) == 0 {
			return nil, fmt.Errorf("no server found")
		}
		return targets[0], nil
	})
}

// RunRandom tests against a server picked uniformly from the server list.
func (d *Driver) RunRandom(ctx context.Context) (*RawResult, error) {
	return d.run(ctx, func(servers speedtest.Servers) (*speedtest.Server, error) {
		if len(servers) == 0 {
			return nil, fmt.Errorf("empty server list")
		}
		return servers[d.pick(len(servers))], nil
	})
}

func (d *Driver) run(ctx context.Context, choose func(speedtest.Servers) (*speedtest.Server, error)) (*RawResult, error) {
	client := d.newClient(d.http)

	user, err := client.FetchUserInfoContext(ctx)
	if err != nil {
		return nil, &errors.MeasurementError{Stage: StageUserInfo, Err: err}
	}

	servers, err := client.FetchServerListContext(ctx)
	if err != nil {
		return nil, &errors.MeasurementError{Stage: StageServers, Err: err}
	}

	server, err := choose(servers)
	if err != nil {
		return nil, &errors.MeasurementError{Stage: StageServers, Err: err}
	}

	ctx = logging.ContextWithServer(ctx, server.Host)
	log := logging.WithContext(ctx).With("component", "measure")
	log.Info("server selected", "sponsor", server.Sponsor, "name", server.Name, "distance_km", server.Distance)

	if err := d.test(ctx, server, StagePing); err != nil {
		return nil, &errors.MeasurementError{Stage: StagePing, Err: err}
	}

	d.transport.resetCounters()

	for _, stage := range []string{StageDownload, StageUpload} {
		if err := d.stage(func() error { return d.test(ctx, server, stage) }); err != nil {
			return nil, &errors.MeasurementError{Stage: stage, Err: err}
		}
	}

	sent, received := d.transport.counters()
	res := resultFrom(server, user, sent, received, time.Now())

	log.Info("speed test finished",
		"download_mbps", Mbps(res.Download),
		"upload_mbps", Mbps(res.Upload),
		"ping_ms", res.Ping)
	return res, nil
}

// resultFrom maps a finished speedtest server and the client identity to a
// RawResult. Speeds are reported by speedtest-go in bytes per second.
func resultFrom(server *speedtest.Server, user *speedtest.User, sent, received int64, finished time.Time) *RawResult {
	latency := float64(server.Latency) / float64(time.Millisecond)

	res := &RawResult{
		Download:      float64(server.DLSpeed) * 8,
		Upload:        float64(server.ULSpeed) * 8,
		Ping:          latency,
		Timestamp:     finished.UTC().Format(time.RFC3339Nano),
		BytesSent:     sent,
		BytesReceived: received,
		Server: RawServer{
			URL:      server.URL,
			Lat:      server.Lat,
			Lon:      server.Lon,
			Name:     server.Name,
			Country:  server.Country,
			Sponsor:  server.Sponsor,
			ID:       server.ID,
			Host:     server.Host,
			Distance: server.Distance,
			Latency:  latency,
		},
	}
	if user != nil {
		res.Client = RawClient{
			IP:  user.IP,
			Lat: user.Lat,
			Lon: user.Lon,
			ISP: user.Isp,
		}
	}
	return res
}

// stage runs one transfer stage with progress attached.
func (d *Driver) stage(fn func() error) error {
	d.transport.attach(d.progress, d.cfg.ProgressCells)
	defer func() {
		d.transport.attach(nil, 0)
		d.progress.Reset()
	}()
	return fn()
}
