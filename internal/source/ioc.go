package source

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nao1215/recongraph/internal/model"
)

const (
	// DefaultIOCEndpoint is the ThreatFox API.
	DefaultIOCEndpoint = "https://threatfox-api.abuse.ch/api/v1/"

	threatFoxIOCURL = "https://threatfox.abuse.ch/ioc/"
)

// IOCPayload is the first ThreatFox indicator matching a domain.
type IOCPayload struct {
	Found           bool   `json:"found"`
	ID              string `json:"id,omitempty"`
	IOC             string `json:"ioc,omitempty"`
	ThreatType      string `json:"threat_type,omitempty"`
	Malware         string `json:"malware,omitempty"`
	ConfidenceLevel int    `json:"confidence_level,omitempty"`
	Reference       string `json:"reference,omitempty"`
	Link            string `json:"link,omitempty"`
}

// MalwareAssociated implements model.MalwareSignal.
func (p IOCPayload) MalwareAssociated() bool {
	return p.Found && p.Malware != ""
}

// IOC searches ThreatFox for indicators of compromise.
type IOC struct {
	base
}

// NewIOC creates the ThreatFox provider. ThreatFox accepts an optional
// Auth-Key set with WithAPIKey.
func NewIOC(opts ...Option) *IOC {
	return &IOC{base: newBase(model.SourceIOC, DefaultIOCEndpoint, opts)}
}

// Key implements scan.Source.
func (i *IOC) Key() model.SourceKey {
	return model.KeyDomain
}

// Query implements scan.Source.
func (i *IOC) Query(ctx context.Context, domain string) (any, error) {
	var header http.Header
	if i.apiKey != "" {
		header = http.Header{"Auth-Key": []string{i.apiKey}}
	}

	resp, err := i.postJSON(ctx, i.endpoint, map[string]string{
		"query":       "search_ioc",
		"search_term": domain,
	}, header)
	if err != nil {
		return nil, err
	}
	if err := i.expectOK(resp); err != nil {
		return nil, err
	}

	var raw struct {
		QueryStatus string          `json:"query_status"`
		Data        json.RawMessage `json:"data"`
	}
	if err := i.decode(resp, &raw); err != nil {
		return nil, err
	}
	if raw.QueryStatus == "" {
		return nil, &model.FormatError{Source: i.name, Field: "query_status"}
	}

	// "data" is a list of indicators on a hit and a message string otherwise.
	var hits []struct {
		ID              json.Number `json:"id"`
		IOC             string      `json:"ioc"`
		ThreatType      string      `json:"threat_type"`
		Malware         string      `json:"malware_printable"`
		ConfidenceLevel int         `json:"confidence_level"`
		Reference       string      `json:"reference"`
	}
	if raw.QueryStatus != "ok" || json.Unmarshal(raw.Data, &hits) != nil || len(hits) == 0 {
		return IOCPayload{}, nil
	}

	hit := hits[0]
	payload := IOCPayload{
		Found:           true,
		ID:              hit.ID.String(),
		IOC:             hit.IOC,
		ThreatType:      hit.ThreatType,
		Malware:         hit.Malware,
		ConfidenceLevel: hit.ConfidenceLevel,
		Reference:       hit.Reference,
	}
	if payload.ID != "" {
		payload.Link = threatFoxIOCURL + payload.ID
	}
	return payload, nil
}
