package discovery

import (
	"context"
	"fmt"
	"net"
)

const (
	DefaultServerType = "_desktransfer._tcp"
	DefaultDomain     = "local"
)

// TXT record keys published with every receiver.
const (
	TxtName    = "name"
	TxtFraming = "framing"
)

type ServiceInfo struct {
	Name   string // instance name, shown to the user
	Type   string // service type, e.g. "_desktransfer._tcp"
	Domain string // domain, e.g. "local"
	Addr   net.IP
	Port   int
	Text   map[string]string
}

// Address is host:port for dialing the service.
func (s ServiceInfo) Address() string {
	host := ""
	if s.Addr != nil {
		host = s.Addr.String()
	}
	return net.JoinHostPort(host, fmt.Sprint(s.Port))
}

// DiscoveryResult is one snapshot of the services currently visible, or the
// error that ended the lookup.
type DiscoveryResult struct {
	Services []ServiceInfo
	Error    error
}

type Adapter interface {
	// Announce publishes service until ctx is done.
	Announce(ctx context.Context, service ServiceInfo) error
	// Discover browses for service ("<type>.<domain>.") until ctx is done.
	// The channel is closed when browsing stops.
	Discover(ctx context.Context, service string) <-chan DiscoveryResult
}

// ServiceName is the fully qualified browse name for a service type.
func ServiceName(serviceType, domain string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return fmt.Sprintf("%s.%s.", serviceType, domain)
}
