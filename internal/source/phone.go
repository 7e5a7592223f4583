package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nao1215/recongraph/internal/model"
)

// DefaultPhoneEndpoint is the numverify validation endpoint.
const DefaultPhoneEndpoint = "http://apilayer.net/api/validate"

const phoneSourceName = "numverify"

var (
	// ErrMissingAPIKey is returned when a provider that requires a key has
	// none configured. No request is sent.
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrRejected is returned when a provider answers with an error object.
	ErrRejected = errors.New("provider rejected the request")
)

// PhonePayload is the numverify view of a phone number.
// Only Valid is set for numbers numverify does not recognize.
type PhonePayload struct {
	Valid               bool   `json:"valid"`
	Number              string `json:"number,omitempty"`
	LocalFormat         string `json:"local_format,omitempty"`
	InternationalFormat string `json:"international_format,omitempty"`
	CountryPrefix       string `json:"country_prefix,omitempty"`
	CountryCode         string `json:"country_code,omitempty"`
	CountryName         string `json:"country_name,omitempty"`
	Location            string `json:"location,omitempty"`
	Carrier             string `json:"carrier,omitempty"`
	LineType            string `json:"line_type,omitempty"`
}

// Phone validates phone numbers with numverify.
type Phone struct {
	base
}

// NewPhone creates the numverify client. The access key is set with
// WithAPIKey.
func NewPhone(opts ...Option) *Phone {
	return &Phone{base: newBase(phoneSourceName, DefaultPhoneEndpoint, opts)}
}

// Validate looks number up. Without an access key it fails with
// ErrMissingAPIKey before any request is made.
func (p *Phone) Validate(ctx context.Context, number string) (*PhonePayload, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", p.name, ErrMissingAPIKey)
	}

	q := url.Values{}
	q.Set("access_key", p.apiKey)
	q.Set("number", number)
	q.Set("format", "1")

	resp, err := p.get(ctx, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if err := p.expectOK(resp); err != nil {
		return nil, err
	}

	var raw struct {
		PhonePayload
		Valid   *bool `json:"valid"`
		Success *bool `json:"success"`
		Error   *struct {
			Code int    `json:"code"`
			Type string `json:"type"`
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := p.decode(resp, &raw); err != nil {
		return nil, err
	}
	if raw.Error != nil || (raw.Success != nil && !*raw.Success) {
		reason := "unknown error"
		if raw.Error != nil {
			reason = fmt.Sprintf("%s (%d)", raw.Error.Type, raw.Error.Code)
		}
		return nil, fmt.Errorf("%s: %w: %s", p.name, ErrRejected, reason)
	}
	if raw.Valid == nil {
		return nil, &model.FormatError{Source: p.name, Field: "valid"}
	}
	if !*raw.Valid {
		return &PhonePayload{Valid: false}, nil
	}

	payload := raw.PhonePayload
	payload.Valid = true
	return &payload, nil
}
