package enumerator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/recongraph/internal/catalog"
	"github.com/nao1215/recongraph/internal/model"
)

const (
	// DefaultProbeTimeout bounds one probe round-trip including the body read.
	DefaultProbeTimeout = 15 * time.Second

	// DefaultMaxBodySize caps how much of a profile page is read.
	// Profile pages above 2MB are rare and the identity and title appear
	// near the top of the document.
	DefaultMaxBodySize = 2 * 1024 * 1024

	// maxRedirects stops redirect loops on auth walls.
	maxRedirects = 10
)

// Prober checks one catalog site for one identity.
// Implementations must never panic or return an error: every fault is
// reported through the returned ProbeResult.
type Prober interface {
	Probe(ctx context.Context, entry catalog.Entry, identity string, header http.Header) model.ProbeResult
}

// Worker is the HTTP Prober. It is safe for concurrent use.
type Worker struct {
	client      *http.Client
	classifier  *Classifier
	timeout     time.Duration
	maxBodySize int64
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithProbeTimeout sets the per-probe timeout.
func WithProbeTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per probe.
func WithMaxBodySize(n int64) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxBodySize = n
		}
	}
}

// NewWorker creates a Worker. If client is nil, NewHTTPClient() is used.
func NewWorker(client *http.Client, classifier *Classifier, opts ...WorkerOption) *Worker {
	if client == nil {
		client = NewHTTPClient()
	}
	w := &Worker{
		client:      client,
		classifier:  classifier,
		timeout:     DefaultProbeTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewHTTPClient returns the default client for direct probes.
// Timeouts are applied per request through the context, so the client
// itself carries none.
//
// Design decision: We stop after maxRedirects and keep the last response
// rather than failing, so a redirect loop on one site is classified from
// its status instead of surfacing as a transport error.
func NewHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Probe issues one GET for the identity's profile URL on entry.
//
// The result is ProbeFound only when the status is 200, the body contains
// the identity (case-insensitive) and the page is not a soft-404. Any other
// response is ProbeNotFound. Transport faults and timeouts are ProbeError.
// The worker never retries.
func (w *Worker) Probe(ctx context.Context, entry catalog.Entry, identity string, header http.Header) model.ProbeResult {
	profileURL := entry.URL(identity)

	if err := ctx.Err(); err != nil {
		return model.ProbeFailed(entry.Name, profileURL, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return model.ProbeFailed(entry.Name, profileURL, fmt.Sprintf("invalid request: %v", err))
	}
	req.Header = header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		terr := &model.TransportError{Op: "GET " + profileURL, Err: err}
		return model.ProbeFailed(entry.Name, profileURL, terr.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // Best effort drain
		return model.NotFound(entry.Name, profileURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBodySize))
	if err != nil {
		terr := &model.TransportError{Op: "read " + profileURL, Err: err}
		return model.ProbeFailed(entry.Name, profileURL, terr.Error())
	}

	page := string(body)
	if !strings.Contains(fold(page), fold(identity)) {
		return model.NotFound(entry.Name, profileURL)
	}
	if w.classifier.IsSoftNotFoundFor(entry.Name, page) {
		return model.NotFound(entry.Name, profileURL)
	}
	return model.Found(entry.Name, profileURL)
}
