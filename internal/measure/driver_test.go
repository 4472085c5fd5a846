package measure

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/showwin/speedtest-go/speedtest"

	"github.com/xtxerr/speedlog/internal/errors"
)

func TestNewDriver_Defaults(t *testing.T) {
	d := NewDriver(DriverConfig{Timeout: time.Second}, nil)

	if d.cfg.ProgressCells != 40 {
		t.Errorf("expected 40 progress cells, got %d", d.cfg.ProgressCells)
	}
	if _, ok := d.progress.(nopProgress); !ok {
		t.Errorf("nil progress should be replaced, got %T", d.progress)
	}
	if d.http.Timeout != time.Second {
		t.Errorf("expected client timeout 1s, got %v", d.http.Timeout)
	}
	if d.http.Transport != d.transport {
		t.Error("client must use the counting transport")
	}
}

type resetCounter struct {
	recordingProgress
	resets int
}

func (r *resetCounter) Reset() { r.resets++ }

func TestDriver_StageAttachesProgress(t *testing.T) {
	progress := &resetCounter{}
	d := NewDriver(DriverConfig{ProgressCells: 8}, progress)

	var during Progress
	var slots int
	err := d.stage(func() error {
		during, slots = d.transport.current()
		return fmt.Errorf("transfer failed")
	})
	if err == nil {
		t.Fatal("stage should return the transfer error")
	}

	if during != progress || slots != 8 {
		t.Errorf("progress not attached during stage: %v %d", during, slots)
	}
	if after, _ := d.transport.current(); after != nil {
		t.Error("progress still attached after stage")
	}
	if progress.resets != 1 {
		t.Errorf("expected one reset, got %d", progress.resets)
	}
}

type fakeSpeedClient struct {
	user       *speedtest.User
	servers    speedtest.Servers
	userErr    error
	serversErr error
}

func (c *fakeSpeedClient) FetchUserInfoContext(context.Context) (*speedtest.User, error) {
	return c.user, c.userErr
}

func (c *fakeSpeedClient) FetchServerListContext(context.Context) (speedtest.Servers, error) {
	return c.servers, c.serversErr
}

func testServers() speedtest.Servers {
	return speedtest.Servers{
		{ID: "1", Host: "near.example:8080", Sponsor: "Near", Name: "Berlin", Country: "Germany", Lat: "52.52", Lon: "13.40", Distance: 3.5},
		{ID: "2", Host: "mid.example:8080", Sponsor: "Mid", Name: "Hamburg", Country: "Germany", Lat: "53.55", Lon: "9.99", Distance: 255},
		{ID: "3", Host: "far.example:8080", Sponsor: "Far", Name: "Paris", Country: "France", Lat: "48.85", Lon: "2.35", Distance: 878},
	}
}

// newTestDriver returns a driver whose stages fill in fixed speeds, failing
// the stage named failStage.
func newTestDriver(client *fakeSpeedClient, failStage string) *Driver {
	d := NewDriver(DriverConfig{ProgressCells: 4}, nil)
	d.newClient = func(*http.Client) speedClient { return client }
	d.test = func(_ context.Context, server *speedtest.Server, stage string) error {
		if stage == failStage {
			return fmt.Errorf("%s failed", stage)
		}
		switch stage {
		case StagePing:
			server.Latency = 12500 * time.Microsecond
		case StageDownload:
			server.DLSpeed = 12_500_000
		case StageUpload:
			server.ULSpeed = 2_500_000
		}
		return nil
	}
	return d
}

func TestResultFrom(t *testing.T) {
	server := &speedtest.Server{
		URL: "http://near.example:8080/upload.php", Lat: "52.52", Lon: "13.40",
		Name: "Berlin", Country: "Germany", Sponsor: "Near", ID: "1",
		Host: "near.example:8080", Distance: 3.5,
		Latency: 7250 * time.Microsecond,
		DLSpeed: 1_000_000,
		ULSpeed: 250_000,
	}
	user := &speedtest.User{IP: "203.0.113.7", Lat: "52.5", Lon: "13.4", Isp: "Example ISP"}
	finished := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	res := resultFrom(server, user, 100, 2000, finished)

	want := &RawResult{
		Download:      8_000_000,
		Upload:        2_000_000,
		Ping:          7.25,
		Timestamp:     "2024-03-01T11:00:00Z",
		BytesSent:     100,
		BytesReceived: 2000,
		Server: RawServer{
			URL: "http://near.example:8080/upload.php", Lat: "52.52", Lon: "13.40",
			Name: "Berlin", Country: "Germany", Sponsor: "Near", ID: "1",
			Host: "near.example:8080", Distance: 3.5, Latency: 7.25,
		},
		Client: RawClient{IP: "203.0.113.7", Lat: "52.5", Lon: "13.4", ISP: "Example ISP"},
	}
	if *res != *want {
		t.Errorf("unexpected result\n got  %+v\n want %+v", *res, *want)
	}

	if res := resultFrom(server, nil, 0, 0, finished); res.Client != (RawClient{}) {
		t.Errorf("nil user should leave client empty, got %+v", res.Client)
	}
}

func TestDriver_RunBest(t *testing.T) {
	client := &fakeSpeedClient{user: &speedtest.User{IP: "203.0.113.7"}, servers: testServers()}
	d := newTestDriver(client, "")
	d.cfg.ServerIDs = []int{2}

	res, err := d.RunBest(context.Background())
	if err != nil {
		t.Fatalf("RunBest: %v", err)
	}
	if res.Server.ID != "2" || res.Server.Sponsor != "Mid" {
		t.Errorf("expected configured server 2, got %+v", res.Server)
	}
	if res.Download != 100_000_000 || res.Upload != 20_000_000 || res.Ping != 12.5 {
		t.Errorf("unexpected speeds %v / %v / %v", res.Download, res.Upload, res.Ping)
	}
	if res.Client.IP != "203.0.113.7" {
		t.Errorf("client not mapped: %+v", res.Client)
	}
}

func TestDriver_RunRandom(t *testing.T) {
	client := &fakeSpeedClient{user: &speedtest.User{}, servers: testServers()}
	d := newTestDriver(client, "")

	var gotN int
	d.pick = func(n int) int {
		gotN = n
		return 2
	}

	res, err := d.RunRandom(context.Background())
	if err != nil {
		t.Fatalf("RunRandom: %v", err)
	}
	if gotN != 3 {
		t.Errorf("pick called with %d, want 3", gotN)
	}
	if res.Server.ID != "3" {
		t.Errorf("expected picked server 3, got %s", res.Server.ID)
	}

	empty := newTestDriver(&fakeSpeedClient{user: &speedtest.User{}}, "")
	_, err = empty.RunRandom(context.Background())
	var me *errors.MeasurementError
	if !errors.As(err, &me) || me.Stage != StageServers {
		t.Errorf("empty server list: expected servers stage error, got %v", err)
	}
}

func TestDriver_StageErrors(t *testing.T) {
	offline := fmt.Errorf("offline")

	tests := []struct {
		name   string
		client *fakeSpeedClient
		fail   string
		stage  string
	}{
		{"user info", &fakeSpeedClient{userErr: offline}, "", StageUserInfo},
		{"server list", &fakeSpeedClient{user: &speedtest.User{}, serversErr: offline}, "", StageServers},
		{"ping", &fakeSpeedClient{user: &speedtest.User{}, servers: testServers()}, StagePing, StagePing},
		{"download", &fakeSpeedClient{user: &speedtest.User{}, servers: testServers()}, StageDownload, StageDownload},
		{"upload", &fakeSpeedClient{user: &speedtest.User{}, servers: testServers()}, StageUpload, StageUpload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDriver(tt.client, tt.fail)
			d.pick = func(int) int { return 0 }

			res, err := d.RunRandom(context.Background())
			if res != nil {
				t.Errorf("no result expected on error, got %+v", res)
			}
			if !errors.IsMeasurement(err) {
				t.Fatalf("expected measurement error, got %v", err)
			}
			var me *errors.MeasurementError
			if !errors.As(err, &me) || me.Stage != tt.stage {
				t.Errorf("expected stage %q, got %v", tt.stage, err)
			}
		})
	}
}
