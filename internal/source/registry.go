package source

import (
	"context"
	"net/url"

	"github.com/nao1215/recongraph/internal/model"
)

// DefaultRegistryEndpoint is the RIPE database REST search endpoint.
const DefaultRegistryEndpoint = "https://rest.db.ripe.net/search.json"

// RegistryPayload is the network block registered for an address.
type RegistryPayload struct {
	Inetnum     string   `json:"inetnum,omitempty"`
	Netname     string   `json:"netname,omitempty"`
	Country     string   `json:"country,omitempty"`
	Org         string   `json:"org,omitempty"`
	Description []string `json:"description,omitempty"`
}

// Registry queries the RIPE database for the owner of an address block.
type Registry struct {
	base
}

// NewRegistry creates the RIPE provider.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{base: newBase(model.SourceRegistry, DefaultRegistryEndpoint, opts)}
}

// Key implements scan.Source.
func (r *Registry) Key() model.SourceKey {
	return model.KeyAddress
}

// Query implements scan.Source.
func (r *Registry) Query(ctx context.Context, ip string) (any, error) {
	q := url.Values{}
	q.Set("query-string", ip)
	q.Set("flags", "no-referenced")

	resp, err := r.get(ctx, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if err := r.expectOK(resp); err != nil {
		return nil, err
	}

	var raw struct {
		Objects *struct {
			Object []struct {
				Type       string `json:"type"`
				Attributes struct {
					Attribute []struct {
						Name  string `json:"name"`
						Value string `json:"value"`
					} `json:"attribute"`
				} `json:"attributes"`
			} `json:"object"`
		} `json:"objects"`
	}
	if err := r.decode(resp, &raw); err != nil {
		return nil, err
	}
	if raw.Objects == nil {
		return nil, &model.FormatError{Source: r.name, Field: "objects"}
	}

	var payload RegistryPayload
	for _, obj := range raw.Objects.Object {
		if obj.Type != "inetnum" {
			continue
		}
		for _, attr := range obj.Attributes.Attribute {
			switch attr.Name {
			case "inetnum":
				payload.Inetnum = attr.Value
			case "netname":
				payload.Netname = attr.Value
			case "country":
				payload.Country = attr.Value
			case "org":
				payload.Org = attr.Value
			case "descr":
				payload.Description = append(payload.Description, attr.Value)
			}
		}
		break
	}
	return payload, nil
}
