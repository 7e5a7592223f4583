package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/recongraph/internal/model"
)

const (
	// DefaultTimeout is the HTTP client timeout used when no client is injected.
	DefaultTimeout = 20 * time.Second

	// maxResponseSize caps how much of a provider response is read.
	maxResponseSize = 8 << 20

	userAgent = "recongraph (+https://github.com/nao1215/recongraph)"
)

// HTTPDoer is the subset of *http.Client used by the providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a provider.
type Option func(*base)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c HTTPDoer) Option {
	return func(b *base) {
		if c != nil {
			b.client = c
		}
	}
}

// WithEndpoint overrides the provider's base URL.
func WithEndpoint(endpoint string) Option {
	return func(b *base) {
		if endpoint != "" {
			b.endpoint = endpoint
		}
	}
}

// WithAPIKey sets the credential sent to providers that accept one.
func WithAPIKey(key string) Option {
	return func(b *base) {
		b.apiKey = key
	}
}

// base holds what every HTTP provider shares.
type base struct {
	name     string
	client   HTTPDoer
	endpoint string
	apiKey   string
}

func newBase(name, endpoint string, opts []Option) base {
	b := base{
		name:     name,
		client:   &http.Client{Timeout: DefaultTimeout},
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name returns the provider name.
func (b *base) Name() string {
	return b.name
}

// Endpoint returns the provider base URL in use.
func (b *base) Endpoint() string {
	return b.endpoint
}

// response is a fully read provider response.
type response struct {
	status int
	body   []byte
}

// do sends req and reads at most maxResponseSize bytes of the body.
// Network faults become *model.TransportError.
func (b *base) do(req *http.Request, header http.Header) (*response, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: b.name, Err: redactURLError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &model.TransportError{Op: b.name, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

// credentialParams are query parameters whose values never leave the client.
var credentialParams = []string{"access_key", "api_key", "apikey", "auth_key", "key", "token"}

// redactURLError masks credential query values in the URL that *url.Error
// embeds in its message. Reports print transport errors verbatim.
//
// Design decision: We keep the URL with masked values rather than dropping
// it, so a failure still names the endpoint that was unreachable. Timeout and
// Temporary checks keep working because the result is still a *url.Error.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{Op: urlErr.Op, URL: redactURL(urlErr.URL), Err: urlErr.Err}
}

// redactURL replaces the values of credential query parameters with
// "REDACTED". An unparsable URL is dropped entirely.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid url]"
	}
	q := u.Query()
	changed := false
	for name := range q {
		for _, p := range credentialParams {
			if strings.EqualFold(name, p) {
				q.Set(name, "REDACTED")
				changed = true
			}
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	u.User = nil
	return u.String()
}

// get issues a GET against url.
func (b *base) get(ctx context.Context, url string, header http.Header) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", b.name, err)
	}
	return b.do(req, header)
}

// postJSON issues a POST with payload encoded as the JSON body.
func (b *base) postJSON(ctx context.Context, url string, payload any, header http.Header) (*response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode request: %w", b.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", b.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, header)
}

// expectOK turns a non-200 status into a *model.TransportError.
func (b *base) expectOK(r *response) error {
	if r.status != http.StatusOK {
		return &model.TransportError{Op: b.name, Err: fmt.Errorf("unexpected status %d", r.status)}
	}
	return nil
}

// decode unmarshals a JSON body. Malformed JSON is a *model.FormatError.
func (b *base) decode(r *response, out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("%w: %v", &model.FormatError{Source: b.name, Field: "body"}, err)
	}
	return nil
}
