package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/nao1215/recongraph/internal/model"
)

// DefaultResolveTimeout bounds one DNS exchange.
const DefaultResolveTimeout = 5 * time.Second

// fallbackNameserver is used when no server is configured and
// /etc/resolv.conf cannot be read.
const fallbackNameserver = "1.1.1.1:53"

// errNoAddress is wrapped in a ResolutionError when the answer holds no A record.
var errNoAddress = errors.New("no A record in answer")

// Resolver maps a domain to one IPv4 address.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (string, error)
}

// DNSResolver resolves A records with a plain DNS client.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver that queries server ("host:port").
// An empty server selects the first nameserver of /etc/resolv.conf.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	if server == "" {
		server = systemNameserver()
	}
	return &DNSResolver{
		server: server,
		client: &dns.Client{Timeout: timeout},
	}
}

// Server returns the nameserver address in use.
func (r *DNSResolver) Server() string {
	return r.server
}

// Resolve returns the first A record for domain. Every failure is a
// *model.ResolutionError.
func (r *DNSResolver) Resolve(ctx context.Context, domain string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err == nil && resp.Truncated {
		tcp := &dns.Client{Net: "tcp", Timeout: r.client.Timeout}
		resp, _, err = tcp.ExchangeContext(ctx, msg, r.server)
	}
	if err != nil {
		return "", &model.ResolutionError{Domain: domain, Err: err}
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", &model.ResolutionError{
			Domain: domain,
			Err:    fmt.Errorf("nameserver answered %s", dns.RcodeToString[resp.Rcode]),
		}
	}

	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok && a.A.To4() != nil {
			return a.A.String(), nil
		}
	}
	return "", &model.ResolutionError{Domain: domain, Err: errNoAddress}
}

func systemNameserver() string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return fallbackNameserver
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}
