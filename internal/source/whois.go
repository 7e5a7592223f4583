package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/nao1215/recongraph/internal/model"
)

// WhoisLookup fetches the raw WHOIS record of a domain.
// *whois.Client satisfies it.
type WhoisLookup interface {
	Whois(domain string, servers ...string) (string, error)
}

// WhoisPayload is the parsed registration record of a domain.
type WhoisPayload struct {
	Registered  bool     `json:"registered"`
	Registrar   string   `json:"registrar,omitempty"`
	Created     string   `json:"created,omitempty"`
	Updated     string   `json:"updated,omitempty"`
	Expires     string   `json:"expires,omitempty"`
	NameServers []string `json:"name_servers,omitempty"`
	Status      []string `json:"status,omitempty"`
}

// Whois looks up domain registration data over the WHOIS protocol.
type Whois struct {
	name   string
	lookup WhoisLookup
}

// NewWhois creates the WHOIS provider. A nil lookup uses a likexian client
// with timeout.
func NewWhois(lookup WhoisLookup, timeout time.Duration) *Whois {
	if lookup == nil {
		c := whois.NewClient()
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
		lookup = c
	}
	return &Whois{name: model.SourceWhois, lookup: lookup}
}

// Name implements scan.Source.
func (w *Whois) Name() string {
	return w.name
}

// Key implements scan.Source.
func (w *Whois) Key() model.SourceKey {
	return model.KeyDomain
}

// Query implements scan.Source. The WHOIS client has no context support, so
// the lookup runs in its own goroutine and is abandoned on cancellation.
func (w *Whois) Query(ctx context.Context, domain string) (any, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := w.lookup.Whois(domain)
		ch <- result{text, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &model.TransportError{Op: w.name, Err: ctx.Err()}
	}
	if res.err != nil {
		return nil, &model.TransportError{Op: w.name, Err: res.err}
	}

	info, err := whoisparser.Parse(res.text)
	switch {
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return WhoisPayload{Registered: false}, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", &model.FormatError{Source: w.name, Field: "domain"}, err)
	case info.Domain == nil:
		return nil, &model.FormatError{Source: w.name, Field: "domain"}
	}

	payload := WhoisPayload{
		Registered:  true,
		Created:     info.Domain.CreatedDate,
		Updated:     info.Domain.UpdatedDate,
		Expires:     info.Domain.ExpirationDate,
		NameServers: info.Domain.NameServers,
		Status:      info.Domain.Status,
	}
	if info.Registrar != nil {
		payload.Registrar = info.Registrar.Name
	}
	return payload, nil
}
