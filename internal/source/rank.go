package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/recongraph/internal/model"
)

// DefaultRankEndpoint is the Tranco domain rank API.
const DefaultRankEndpoint = "https://tranco-list.eu/api/ranks/domain"

// RankPayload is the popularity rank of a domain on the latest Tranco list.
type RankPayload struct {
	Found bool   `json:"found"`
	Rank  int    `json:"rank,omitempty"`
	Date  string `json:"date,omitempty"`
}

// Rank queries the Tranco list for a domain's popularity.
type Rank struct {
	base
}

// NewRank creates the Tranco provider.
func NewRank(opts ...Option) *Rank {
	return &Rank{base: newBase(model.SourceRank, DefaultRankEndpoint, opts)}
}

// Key implements scan.Source.
func (r *Rank) Key() model.SourceKey {
	return model.KeyDomain
}

// Query implements scan.Source.
func (r *Rank) Query(ctx context.Context, domain string) (any, error) {
	resp, err := r.get(ctx, strings.TrimRight(r.endpoint, "/")+"/"+url.PathEscape(domain), nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return RankPayload{}, nil
	}
	if err := r.expectOK(resp); err != nil {
		return nil, err
	}

	var raw struct {
		Ranks []struct {
			Date string `json:"date"`
			Rank int    `json:"rank"`
		} `json:"ranks"`
	}
	if err := r.decode(resp, &raw); err != nil {
		return nil, err
	}
	if len(raw.Ranks) == 0 {
		return RankPayload{}, nil
	}

	// The first entry is the most recent list.
	latest := raw.Ranks[0]
	return RankPayload{Found: true, Rank: latest.Rank, Date: latest.Date}, nil
}
