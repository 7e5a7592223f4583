package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/recongraph/internal/model"
)

func jsonServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGeolocation(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var body []map[string]string
		srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // Checked below
			_, _ = io.WriteString(w, `[{"status":"success","country":"Germany","countryCode":"DE","city":"Berlin","isp":"Example ISP","as":"AS64500 Example"}]`) //nolint:errcheck // Test server
		})

		g := NewGeolocation(WithEndpoint(srv.URL))
		if g.Name() != model.SourceGeolocation || g.Key() != model.KeyAddress {
			t.Errorf("unexpected identity %s/%v", g.Name(), g.Key())
		}

		got, err := g.Query(context.Background(), "192.0.2.1")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		geo, ok := got.(GeoPayload)
		if !ok {
			t.Fatalf("payload type = %T", got)
		}
		if geo.Country != "Germany" || geo.City != "Berlin" || geo.AS != "AS64500 Example" {
			t.Errorf("unexpected payload %+v", geo)
		}
		if len(body) != 1 || body[0]["query"] != "192.0.2.1" || !strings.Contains(body[0]["fields"], "isp") {
			t.Errorf("unexpected request body %+v", body)
		}
	})

	t.Run("status fail is a format error", func(t *testing.T) {
		t.Parallel()

		srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `[{"status":"fail","message":"reserved range"}]`) //nolint:errcheck // Test server
		})

		_, err := NewGeolocation(WithEndpoint(srv.URL)).Query(context.Background(), "10.0.0.1")
		if !errors.Is(err, model.ErrFormat) {
			t.Fatalf("error = %v, want format error", err)
		}
		if !strings.Contains(err.Error(), "reserved range") {
			t.Errorf("error %q should carry the provider message", err)
		}
	})

	t.Run("empty batch is a format error", func(t *testing.T) {
		t.Parallel()

		srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `[]`) //nolint:errcheck // Test server
		})

		_, err := NewGeolocation(WithEndpoint(srv.URL)).Query(context.Background(), "192.0.2.1")
		if !errors.Is(err, model.ErrFormat) {
			t.Errorf("error = %v, want format error", err)
		}
	})
}

func TestExposure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantPorts int
		wantCVEs  []CVE
	}{
		{
			name:      "full record",
			status:    http.StatusOK,
			body:      `{"ip":"192.0.2.1","hostnames":["host.example"],"ports":[22,80,443],"tags":["self-signed"],"vulns":["CVE-2023-1234"]}`,
			wantPorts: 3,
			wantCVEs:  []CVE{{ID: "CVE-2023-1234", URL: "https://nvd.nist.gov/vuln/detail/cve-2023-1234"}},
		},
		{
			name:   "unknown address",
			status: http.StatusNotFound,
			body:   `{"detail":"No information available"}`,
		},
		{
			name:    "missing ports",
			status:  http.StatusOK,
			body:    `{"hostnames":[],"tags":[],"vulns":[]}`,
			wantErr: model.ErrFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/192.0.2.1" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body) //nolint:errcheck // Test server
			})

			got, err := NewExposure(WithEndpoint(srv.URL)).Query(context.Background(), "192.0.2.1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}

			exp, ok := got.(ExposurePayload)
			if !ok {
				t.Fatalf("payload type = %T", got)
			}
			var signals model.ExposureSignals = exp
			if signals.OpenPortCount() != tt.wantPorts {
				t.Errorf("OpenPortCount() = %d, want %d", signals.OpenPortCount(), tt.wantPorts)
			}
			if !slices.Equal(exp.CVEs, tt.wantCVEs) {
				t.Errorf("CVEs = %+v, want %+v", exp.CVEs, tt.wantCVEs)
			}
		})
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want RankPayload
	}{
		{
			name: "ranked domain uses latest entry",
			body: `{"domain":"example.com","ranks":[{"date":"2026-10-14","rank":12},{"date":"2026-10-13","rank":15}]}`,
			want: RankPayload{Found: true, Rank: 12, Date: "2026-10-14"},
		},
		{
			name: "unranked domain",
			body: `{"domain":"nobody.example","ranks":[]}`,
			want: RankPayload{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body) //nolint:errcheck // Test server
			})

			r := NewRank(WithEndpoint(srv.URL))
			if r.Key() != model.KeyDomain {
				t.Error("rank must be domain-keyed")
			}
			got, err := r.Query(context.Background(), "example.com")
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("payload = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIOC(t *testing.T) {
	t.Parallel()

	t.Run("hit", func(t *testing.T) {
		t.Parallel()

		var req map[string]string
		var authKey string
		srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
			authKey = r.Header.Get("Auth-Key")
			_ = json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck // Checked below
			_, _ = io.WriteString(w, `{"query_status":"ok","data":[{"id":"1234","ioc":"bad.example","threat_type":"botnet_cc","malware_printable":"Cobalt Strike","confidence_level":90,"reference":null}]}`) //nolint:errcheck // Test server
		})

		got, err := NewIOC(WithEndpoint(srv.URL), WithAPIKey("secret")).Query(context.Background(), "bad.example")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		p, ok := got.(IOCPayload)
		if !ok {
			t.Fatalf("payload type = %T", got)
		}
		want := IOCPayload{
			Found:           true,
			ID:              "1234",
			IOC:             "bad.example",
			ThreatType:      "botnet_cc",
			Malware:         "Cobalt Strike",
			ConfidenceLevel: 90,
			Link:            "https://threatfox.abuse.ch/ioc/1234",
		}
		if p != want {
			t.Errorf("payload = %+v, want %+v", p, want)
		}
		if !p.MalwareAssociated() {
			t.Error("named malware must set the malware signal")
		}
		if req["query"] != "search_ioc" || req["search_term"] != "bad.example" {
			t.Errorf("unexpected request %+v", req)
		}
		if authKey != "secret" {
			t.Errorf("Auth-Key = %q", authKey)
		}
	})

	t.Run("no result", func(t *testing.T) {
		t.Parallel()

		srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"query_status":"no_result","data":"Your search did not yield any results"}`) //nolint:errcheck // Test server
		})

		got, err := NewIOC(WithEndpoint(srv.URL)).Query(context.Background(), "clean.example")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if p := got.(IOCPayload); p.Found || p.MalwareAssociated() {
			t.Errorf("payload = %+v, want empty", p)
		}
	})

	t.Run("missing status", func(t *testing.T) {
		t.Parallel()

		srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"data":[]}`) //nolint:errcheck // Test server
		})

		_, err := NewIOC(WithEndpoint(srv.URL)).Query(context.Background(), "x.example")
		if !errors.Is(err, model.ErrFormat) {
			t.Errorf("error = %v, want format error", err)
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	var query string
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query-string")
		_, _ = io.WriteString(w, `{"objects":{"object":[
			{"type":"route","attributes":{"attribute":[{"name":"route","value":"192.0.2.0/24"}]}},
			{"type":"inetnum","attributes":{"attribute":[
				{"name":"inetnum","value":"192.0.2.0 - 192.0.2.255"},
				{"name":"netname","value":"EXAMPLE-NET"},
				{"name":"descr","value":"Example Networks"},
				{"name":"descr","value":"Berlin"},
				{"name":"country","value":"DE"}
			]}}
		]}}`) //nolint:errcheck // Test server
	})

	got, err := NewRegistry(WithEndpoint(srv.URL)).Query(context.Background(), "192.0.2.10")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	p := got.(RegistryPayload)
	if p.Netname != "EXAMPLE-NET" || p.Country != "DE" || p.Inetnum != "192.0.2.0 - 192.0.2.255" {
		t.Errorf("unexpected payload %+v", p)
	}
	if !slices.Equal(p.Description, []string{"Example Networks", "Berlin"}) {
		t.Errorf("Description = %v", p.Description)
	}
	if query != "192.0.2.10" {
		t.Errorf("query-string = %q", query)
	}
}

func TestScoringPayloadsImplementSignals(t *testing.T) {
	t.Parallel()

	var _ model.ExposureSignals = ExposurePayload{}
	var _ model.BlacklistSignal = TalosPayload{}
	var _ model.MalwareSignal = IOCPayload{}

	if !(TalosPayload{Listed: true}).Blacklisted() {
		t.Error("listed address must report Blacklisted")
	}
	if (IOCPayload{Found: true}).MalwareAssociated() {
		t.Error("an indicator without a malware family must not set the malware signal")
	}
}
