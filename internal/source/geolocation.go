package source

import (
	"context"
	"fmt"

	"github.com/nao1215/recongraph/internal/model"
)

// DefaultGeolocationEndpoint is the ip-api.com batch endpoint.
const DefaultGeolocationEndpoint = "http://ip-api.com/batch"

const geolocationFields = "status,message,country,countryCode,region,regionName,city,zip,timezone,isp,org,as"

// GeoPayload is the location and network owner of an address.
type GeoPayload struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Region      string `json:"region"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	Timezone    string `json:"timezone"`
	ISP         string `json:"isp"`
	Org         string `json:"org"`
	AS          string `json:"as"`
}

// Geolocation queries ip-api.com for the location of an address.
type Geolocation struct {
	base
}

// NewGeolocation creates the ip-api.com provider.
func NewGeolocation(opts ...Option) *Geolocation {
	return &Geolocation{base: newBase(model.SourceGeolocation, DefaultGeolocationEndpoint, opts)}
}

// Key implements scan.Source.
func (g *Geolocation) Key() model.SourceKey {
	return model.KeyAddress
}

// Query implements scan.Source.
func (g *Geolocation) Query(ctx context.Context, ip string) (any, error) {
	req := []map[string]string{{
		"query":  ip,
		"fields": geolocationFields,
		"lang":   "en",
	}}

	resp, err := g.postJSON(ctx, g.endpoint, req, nil)
	if err != nil {
		return nil, err
	}
	if err := g.expectOK(resp); err != nil {
		return nil, err
	}

	var batch []struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		GeoPayload
	}
	if err := g.decode(resp, &batch); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, &model.FormatError{Source: g.name, Field: "status"}
	}

	entry := batch[0]
	switch entry.Status {
	case "success":
		return entry.GeoPayload, nil
	case "fail":
		return nil, fmt.Errorf("%w: %s", &model.FormatError{Source: g.name, Field: "status"}, entry.Message)
	default:
		return nil, &model.FormatError{Source: g.name, Field: "status"}
	}
}
