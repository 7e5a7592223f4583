package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/recongraph/internal/model"
)

// DefaultBreachEndpoint is the XposedOrNot API.
const DefaultBreachEndpoint = "https://api.xposedornot.com"

// breachSourceName names the breach provider in errors.
const breachSourceName = "xposedornot"

// BreachDetail is one breach an email address appeared in.
type BreachDetail struct {
	Breach        string `json:"breach"`
	Domain        string `json:"domain,omitempty"`
	Industry      string `json:"industry,omitempty"`
	XposedDate    string `json:"xposed_date,omitempty"`
	XposedRecords int    `json:"xposed_records,omitempty"`
	XposedData    string `json:"xposed_data,omitempty"`
	PasswordRisk  string `json:"password_risk,omitempty"`
}

// PasswordStrength counts exposed passwords by storage strength.
type PasswordStrength struct {
	EasyToCrack int `json:"EasyToCrack"`
	PlainText   int `json:"PlainText"`
	StrongHash  int `json:"StrongHash"`
	Unknown     int `json:"Unknown"`
}

// BreachRisk is the provider's overall rating for an address.
type BreachRisk struct {
	Label string `json:"risk_label"`
	Score int    `json:"risk_score"`
}

// BreachPayload is the breach exposure of one email address.
type BreachPayload struct {
	Found            bool               `json:"found"`
	Message          string             `json:"message,omitempty"`
	Breaches         []BreachDetail     `json:"breaches,omitempty"`
	PasswordStrength []PasswordStrength `json:"password_strength,omitempty"`
	Risk             []BreachRisk       `json:"risk,omitempty"`
}

// Breach checks email addresses against the XposedOrNot breach database.
type Breach struct {
	base
}

// NewBreach creates the XposedOrNot client.
func NewBreach(opts ...Option) *Breach {
	return &Breach{base: newBase(breachSourceName, DefaultBreachEndpoint, opts)}
}

// CheckEmail reports the breaches email appeared in. An address that is in
// no breach yields a payload with Found unset, not an error.
func (b *Breach) CheckEmail(ctx context.Context, email string) (*BreachPayload, error) {
	root := strings.TrimRight(b.endpoint, "/")

	resp, err := b.get(ctx, root+"/v1/check-email/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return notBreached(), nil
	}
	if err := b.expectOK(resp); err != nil {
		return nil, err
	}

	var check map[string]any
	if err := b.decode(resp, &check); err != nil {
		return nil, err
	}
	if _, miss := check["Error"]; miss {
		return notBreached(), nil
	}

	q := url.Values{}
	q.Set("email", email)
	resp, err = b.get(ctx, root+"/v1/breach-analytics?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if err := b.expectOK(resp); err != nil {
		return nil, err
	}

	var analytics struct {
		ExposedBreaches *struct {
			Details []BreachDetail `json:"breaches_details"`
		} `json:"ExposedBreaches"`
		BreachMetrics *struct {
			PasswordsStrength []PasswordStrength `json:"passwords_strength"`
			Risk              []BreachRisk       `json:"risk"`
		} `json:"BreachMetrics"`
	}
	if err := b.decode(resp, &analytics); err != nil {
		return nil, err
	}
	if analytics.ExposedBreaches == nil {
		return nil, &model.FormatError{Source: b.name, Field: "ExposedBreaches"}
	}
	if analytics.BreachMetrics == nil {
		return nil, &model.FormatError{Source: b.name, Field: "BreachMetrics"}
	}

	return &BreachPayload{
		Found:            true,
		Breaches:         analytics.ExposedBreaches.Details,
		PasswordStrength: analytics.BreachMetrics.PasswordsStrength,
		Risk:             analytics.BreachMetrics.Risk,
	}, nil
}

func notBreached() *BreachPayload {
	return &BreachPayload{Message: "email address not found in any breach database"}
}
