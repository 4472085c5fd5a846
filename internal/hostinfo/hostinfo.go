// Package hostinfo resolves the identity of the local host: public address
// and its geolocation, local hostname and address, and the hardware address
// of the primary network interface.
package hostinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"regexp"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/logging"
	"github.com/xtxerr/speedlog/internal/measure"
	"github.com/xtxerr/speedlog/internal/validation"
)

// maxBody caps the bytes read from the check-ip and geo services.
const maxBody = 1 << 20

var ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)

// Resolver looks up the host context of the machine running the test.
type Resolver struct {
	// CheckIPURL returns a page containing the public IPv4 address.
	CheckIPURL string

	// IPInfoURL is a format string taking the public address, returning
	// ipinfo.io style JSON.
	IPInfoURL string

	Client *http.Client

	// Hostname and Interfaces are replaced in tests.
	Hostname   func() (string, error)
	Interfaces func() ([]net.Interface, error)
}

// ipInfo is the ipinfo.io JSON document.
type ipInfo struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Loc      string `json:"loc"`
	Org      string `json:"org"`
	Postal   string `json:"postal"`
	Timezone string `json:"timezone"`
}

// Resolve returns the host context. Network failures are *errors.FetchError.
func (r *Resolver) Resolve(ctx context.Context) (measure.HostContext, error) {
	log := logging.Component("hostinfo")

	public, err := r.PublicIP(ctx)
	if err != nil {
		return measure.HostContext{}, err
	}

	info, err := r.geo(ctx, public)
	if err != nil {
		return measure.HostContext{}, err
	}

	name, local := r.local()
	log.Debug("host resolved", "public_ip", public, "local_ip", local, "hostname", name)

	return measure.HostContext{
		IPRemote:   public,
		IPLocal:    local,
		NameRemote: info.Hostname,
		NameLocal:  name,
		City:       info.City,
		Region:     info.Region,
		Country:    info.Country,
		Timezone:   info.Timezone,
		Location:   info.Loc,
		Org:        info.Org,
		Postal:     info.Postal,
	}, nil
}

// PublicIP fetches the check-ip page and extracts the first IPv4 address.
func (r *Resolver) PublicIP(ctx context.Context) (string, error) {
	body, err := r.get(ctx, r.CheckIPURL)
	if err != nil {
		return "", err
	}
	ip := ipv4Pattern.FindString(string(body))
	if ip == "" {
		return "", &errors.FetchError{URL: r.CheckIPURL, Err: fmt.Errorf("no IPv4 address in response")}
	}
	return ip, nil
}

func (r *Resolver) geo(ctx context.Context, ip string) (*ipInfo, error) {
	url := fmt.Sprintf(r.IPInfoURL, ip)
	body, err := r.get(ctx, url)
	if err != nil {
		return nil, err
	}
	info := &ipInfo{}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, &errors.FetchError{URL: url, Err: fmt.Errorf("decode geo info: %w", err)}
	}
	return info, nil
}

func (r *Resolver) get(ctx context.Context, url string) ([]byte, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errors.FetchError{URL: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &errors.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &errors.FetchError{URL: url, Err: err}
	}
	return body, nil
}

// local returns the hostname and the address it resolves to. When the name
// does not resolve the source address of the default route is used.
func (r *Resolver) local() (name, ip string) {
	hostname := r.Hostname
	if hostname == nil {
		hostname = os.Hostname
	}
	name, err := hostname()
	if err != nil {
		name = "localhost"
	}

	if addrs, err := net.LookupHost(name); err == nil {
		for _, a := range addrs {
			if parsed := net.ParseIP(a); parsed != nil && parsed.To4() != nil {
				return name, a
			}
		}
	}

	// UDP dial sends no packets; it only selects the outbound address.
	conn, err := net.Dial("udp", "192.0.2.1:9")
	if err != nil {
		return name, "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return name, addr.IP.String()
	}
	return name, "127.0.0.1"
}

// Hardware is the hardware address of the primary interface.
type Hardware struct {
	Interface string
	MAC       string
	Prefix    string
}

// PrimaryHardware returns the first up, non-loopback interface with a
// six octet hardware address.
func (r *Resolver) PrimaryHardware() (Hardware, error) {
	list := r.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return Hardware{}, fmt.Errorf("list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		mac, err := validation.FormatMAC(iface.HardwareAddr)
		if err != nil {
			continue
		}
		prefix, err := validation.PrefixOf(iface.HardwareAddr)
		if err != nil {
			continue
		}
		return Hardware{Interface: iface.Name, MAC: mac, Prefix: prefix}, nil
	}
	return Hardware{}, fmt.Errorf("no interface with a hardware address: %w", errors.ErrNotFound)
}
