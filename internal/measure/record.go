// Package measure runs speed tests and flattens their results into the
// session record that is persisted by the store.
//
// Normalize is a pure function: given the same Input and a frozen Clock it
// returns the same Record. All upstream values are coerced to the declared
// field types; a value that cannot be coerced fails the whole record.
package measure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/oui"
)

// BitsPerMegabit converts throughput in bits per second to Mbit/s.
const BitsPerMegabit = 1_000_000

// Mbps converts a throughput in bits per second to megabits per second.
func Mbps(bitsPerSecond float64) float64 {
	return bitsPerSecond / BitsPerMegabit
}

// =============================================================================
// Raw inputs
// =============================================================================

// RawResult is the outcome of one speed test as the driver reports it.
// Coordinates and the server id arrive as text from the speed-test service.
type RawResult struct {
	// Download and Upload are in bits per second.
	Download float64
	Upload   float64

	// Ping is the round trip time to the server in milliseconds.
	Ping float64

	// Timestamp is the RFC 3339 time the test finished.
	Timestamp string

	BytesSent     int64
	BytesReceived int64

	Server RawServer
	Client RawClient
}

// RawServer identifies the speed-test server.
type RawServer struct {
	URL     string
	Lat     string
	Lon     string
	Name    string
	Country string
	CC      string
	Sponsor string
	ID      string
	Host    string

	// Distance is in kilometres.
	Distance float64

	// Latency is in milliseconds.
	Latency float64
}

// RawClient is the client identity as seen by the speed-test service.
type RawClient struct {
	IP      string
	Lat     string
	Lon     string
	ISP     string
	Country string
}

// HostContext describes the local host and its public address.
type HostContext struct {
	IPRemote   string
	IPLocal    string
	NameRemote string
	NameLocal  string
	City       string
	Region     string
	Country    string
	Timezone   string

	// Location is "lat,lon" as reported by the geo service.
	Location string

	Org    string
	Postal string
}

// Input groups everything Normalize needs for one record.
type Input struct {
	Raw  RawResult
	Host HostContext

	Vendor      oui.VendorRecord
	VendorFound bool

	// MAC is the local hardware address in 1A:2B:3C:4D:5E:6F form.
	MAC string

	// RunID is shared by the records of one invocation.
	RunID string

	// Best marks the nearest-server run.
	Best bool
}

// =============================================================================
// Record
// =============================================================================

// Record is one persisted session row. Every field is required; the db tag
// names the column.
type Record struct {
	RunID string `db:"run_id" parquet:"run_id"`
	Best  bool   `db:"best" parquet:"best"`

	Download float64 `db:"download" parquet:"download"`
	Upload   float64 `db:"upload" parquet:"upload"`
	Ping     float64 `db:"ping" parquet:"ping"`

	URL         string  `db:"url" parquet:"url"`
	TestLat     float64 `db:"test_lat" parquet:"test_lat"`
	TestLon     float64 `db:"test_lon" parquet:"test_lon"`
	TestName    string  `db:"test_name" parquet:"test_name"`
	TestCountry string  `db:"test_country" parquet:"test_country"`
	TestCC      string  `db:"test_cc" parquet:"test_cc"`
	Sponsor     string  `db:"sponsor" parquet:"sponsor"`
	TestID      int64   `db:"test_id" parquet:"test_id"`
	TestHost    string  `db:"test_host" parquet:"test_host"`
	Distance    float64 `db:"d" parquet:"d"`
	Latency     float64 `db:"latency" parquet:"latency"`

	Timestamp     string `db:"timestamp" parquet:"timestamp"`
	BytesSent     int64  `db:"bytes_sent" parquet:"bytes_sent"`
	BytesReceived int64  `db:"bytes_received" parquet:"bytes_received"`

	ClientIP      string  `db:"client_ip" parquet:"client_ip"`
	ClientLat     float64 `db:"client_lat" parquet:"client_lat"`
	ClientLon     float64 `db:"client_lon" parquet:"client_lon"`
	ClientISP     string  `db:"client_isp" parquet:"client_isp"`
	ClientCountry string  `db:"client_country" parquet:"client_country"`

	IPRemote     string  `db:"ip_remote" parquet:"ip_remote"`
	IPLocal      string  `db:"ip_local" parquet:"ip_local"`
	NameRemote   string  `db:"name_remote" parquet:"name_remote"`
	NameLocal    string  `db:"name_local" parquet:"name_local"`
	City         string  `db:"city" parquet:"city"`
	Region       string  `db:"region" parquet:"region"`
	Country      string  `db:"country" parquet:"country"`
	Timezone     string  `db:"timezone" parquet:"timezone"`
	PublicIPLat  float64 `db:"public_ip_lat" parquet:"public_ip_lat"`
	PublicIPLon  float64 `db:"public_ip_lon" parquet:"public_ip_lon"`
	Organization string  `db:"organization" parquet:"organization"`
	Postal       string  `db:"postal" parquet:"postal"`

	Vendor        string `db:"vendor" parquet:"vendor"`
	OUIHex        string `db:"oui_hex" parquet:"oui_hex"`
	OUIBase16     string `db:"oui_base16" parquet:"oui_base16"`
	VendorAddress string `db:"vendor_address" parquet:"vendor_address"`
	MACAddress    string `db:"mac_address" parquet:"mac_address"`

	UnixTime float64 `db:"unixtime" parquet:"unixtime"`
}

// VendorNotFound is the value stored in every vendor column when the local
// interface prefix has no registry entry.
const VendorNotFound = ""

// =============================================================================
// Clock
// =============================================================================

// Clock supplies the wall-clock time stamped on each record.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the real time.
var SystemClock Clock = ClockFunc(time.Now)

// =============================================================================
// Normalize
// =============================================================================

// Normalize flattens one speed-test result and its context into a Record.
//
// Any numeric value that cannot be parsed, or that is not finite, fails
// with a *errors.CoercionError and no record is returned.
func Normalize(in Input, clock Clock) (*Record, error) {
	if clock == nil {
		clock = SystemClock
	}

	c := &coercer{}
	raw, host := in.Raw, in.Host

	rec := &Record{
		RunID: in.RunID,
		Best:  in.Best,

		Download: c.finite("download", raw.Download),
		Upload:   c.finite("upload", raw.Upload),
		Ping:     c.finite("ping", raw.Ping),

		URL:         raw.Server.URL,
		TestLat:     c.float("test_lat", raw.Server.Lat),
		TestLon:     c.float("test_lon", raw.Server.Lon),
		TestName:    raw.Server.Name,
		TestCountry: raw.Server.Country,
		TestCC:      raw.Server.CC,
		Sponsor:     raw.Server.Sponsor,
		TestID:      c.integer("test_id", raw.Server.ID),
		TestHost:    raw.Server.Host,
		Distance:    c.finite("d", raw.Server.Distance),
		Latency:     c.finite("latency", raw.Server.Latency),

		Timestamp:     raw.Timestamp,
		BytesSent:     raw.BytesSent,
		BytesReceived: raw.BytesReceived,

		ClientIP:      raw.Client.IP,
		ClientLat:     c.float("client_lat", raw.Client.Lat),
		ClientLon:     c.float("client_lon", raw.Client.Lon),
		ClientISP:     raw.Client.ISP,
		ClientCountry: raw.Client.Country,

		IPRemote:     host.IPRemote,
		IPLocal:      host.IPLocal,
		NameRemote:   host.NameRemote,
		NameLocal:    host.NameLocal,
		City:         host.City,
		Region:       host.Region,
		Country:      host.Country,
		Timezone:     host.Timezone,
		Organization: host.Org,
		Postal:       host.Postal,

		MACAddress: in.MAC,

		Vendor:        VendorNotFound,
		OUIHex:        VendorNotFound,
		OUIBase16:     VendorNotFound,
		VendorAddress: VendorNotFound,
	}

	rec.PublicIPLat, rec.PublicIPLon = c.location("public_ip_location", host.Location)

	if in.VendorFound {
		rec.Vendor = in.Vendor.Name()
		rec.OUIHex = in.Vendor.PrefixHex
		rec.OUIBase16 = in.Vendor.PrefixBase16
		rec.VendorAddress = in.Vendor.Address
	}

	if c.err != nil {
		return nil, c.err
	}

	rec.UnixTime = float64(clock.Now().UnixNano()) / float64(time.Second)
	return rec, nil
}

// coercer converts raw values and keeps the first failure.
type coercer struct {
	err error
}

func (c *coercer) fail(field, value string, err error) {
	if c.err == nil {
		c.err = &errors.CoercionError{Field: field, Value: value, Err: err}
	}
}

func (c *coercer) float(field, s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		c.fail(field, s, err)
		return 0
	}
	return c.finite(field, v)
}

func (c *coercer) finite(field string, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		c.fail(field, strconv.FormatFloat(v, 'g', -1, 64), fmt.Errorf("not a finite number"))
		return 0
	}
	return v
}

func (c *coercer) integer(field, s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		c.fail(field, s, err)
		return 0
	}
	return v
}

func (c *coercer) location(field, s string) (lat, lon float64) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		c.fail(field, s, fmt.Errorf("want \"lat,lon\""))
		return 0, 0
	}
	return c.float(field, parts[0]), c.float(field, parts[1])
}
