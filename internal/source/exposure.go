package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/recongraph/internal/model"
)

const (
	// DefaultExposureEndpoint is Shodan's keyless InternetDB API.
	DefaultExposureEndpoint = "https://internetdb.shodan.io"

	nvdDetailURL = "https://nvd.nist.gov/vuln/detail/"
)

// CVE is one vulnerability reported for an address.
type CVE struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ExposurePayload lists what InternetDB knows about an address.
// An address InternetDB has never seen yields the zero payload.
type ExposurePayload struct {
	Hostnames []string `json:"hostnames"`
	Ports     []int    `json:"ports"`
	Tags      []string `json:"tags"`
	CVEs      []CVE    `json:"cves"`
}

// OpenPortCount implements model.ExposureSignals.
func (p ExposurePayload) OpenPortCount() int { return len(p.Ports) }

// CVECount implements model.ExposureSignals.
func (p ExposurePayload) CVECount() int { return len(p.CVEs) }

// TagSet implements model.ExposureSignals.
func (p ExposurePayload) TagSet() []string { return p.Tags }

// Exposure queries InternetDB for open ports, tags and known CVEs.
type Exposure struct {
	base
}

// NewExposure creates the InternetDB provider.
func NewExposure(opts ...Option) *Exposure {
	return &Exposure{base: newBase(model.SourceExposure, DefaultExposureEndpoint, opts)}
}

// Key implements scan.Source.
func (e *Exposure) Key() model.SourceKey {
	return model.KeyAddress
}

// Query implements scan.Source.
func (e *Exposure) Query(ctx context.Context, ip string) (any, error) {
	resp, err := e.get(ctx, strings.TrimRight(e.endpoint, "/")+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return ExposurePayload{}, nil
	}
	if err := e.expectOK(resp); err != nil {
		return nil, err
	}

	var raw struct {
		Hostnames []string `json:"hostnames"`
		Ports     *[]int   `json:"ports"`
		Tags      []string `json:"tags"`
		Vulns     []string `json:"vulns"`
	}
	if err := e.decode(resp, &raw); err != nil {
		return nil, err
	}
	if raw.Ports == nil {
		return nil, &model.FormatError{Source: e.name, Field: "ports"}
	}

	payload := ExposurePayload{
		Hostnames: raw.Hostnames,
		Ports:     *raw.Ports,
		Tags:      raw.Tags,
		CVEs:      make([]CVE, 0, len(raw.Vulns)),
	}
	for _, id := range raw.Vulns {
		payload.CVEs = append(payload.CVEs, CVE{
			ID:  id,
			URL: nvdDetailURL + strings.ToLower(id),
		})
	}
	return payload, nil
}
