package footprint

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/recongraph/internal/model"
	"github.com/nao1215/recongraph/internal/source"
)

var (
	// ErrBreachNotConfigured is recorded when an email arrives and no
	// breach client is set.
	ErrBreachNotConfigured = errors.New("breach lookup is not configured")

	// ErrPhoneNotConfigured is recorded when a phone number arrives and no
	// phone client is set.
	ErrPhoneNotConfigured = errors.New("phone lookup is not configured")

	// ErrEnumeratorNotConfigured is returned when a username arrives and no
	// enumerator is set.
	ErrEnumeratorNotConfigured = errors.New("username enumeration is not configured")
)

// Enumerator probes the site catalog for a username.
// *enumerator.Enumerator satisfies it.
type Enumerator interface {
	Enumerate(ctx context.Context, identity string, foundOnly bool) (*model.EnumerationReport, error)
}

// BreachChecker looks an email address up in breach databases.
// *source.Breach satisfies it.
type BreachChecker interface {
	CheckEmail(ctx context.Context, email string) (*source.BreachPayload, error)
}

// PhoneValidator checks a phone number. *source.Phone satisfies it.
type PhoneValidator interface {
	Validate(ctx context.Context, number string) (*source.PhonePayload, error)
}

// Runner dispatches identities to their lookup.
type Runner struct {
	enumerator Enumerator
	breach     BreachChecker
	phone      PhoneValidator
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithBreachChecker sets the email lookup.
func WithBreachChecker(b BreachChecker) Option {
	return func(r *Runner) {
		r.breach = b
	}
}

// WithPhoneValidator sets the phone lookup.
func WithPhoneValidator(p PhoneValidator) Option {
	return func(r *Runner) {
		r.phone = p
	}
}

// New creates a Runner that enumerates usernames with enum.
func New(enum Enumerator, opts ...Option) *Runner {
	r := &Runner{enumerator: enum}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run classifies raw and performs the lookup for its kind.
//
// An empty identity fails with a *model.ValidationError. Breach and phone
// failures are recorded in the report's Error field and never returned.
// For usernames the enumerator's error, such as a deadline, is returned
// alongside the report.
//
// Design decision: We keep breach and phone failures inside the report
// rather than returning them because:
//  1. A footprint is still useful when one provider is down
//  2. The CLI prints one report whatever the outcome
//  3. Callers only see errors they can act on, such as bad input
func (r *Runner) Run(ctx context.Context, raw string, foundOnly bool) (*model.FootprintReport, error) {
	id, err := model.ParseIdentity(raw)
	if err != nil {
		return nil, err
	}

	report := &model.FootprintReport{
		Identity:    id,
		Kind:        id.Kind.String(),
		DateScanned: time.Now(),
	}
	r.logger.Info("starting footprint", "kind", report.Kind, "identity", id.Value)

	switch id.Kind {
	case model.IdentityEmail:
		r.checkEmail(ctx, id.Value, report)
	case model.IdentityPhone:
		r.checkPhone(ctx, id.Value, report)
	default:
		if r.enumerator == nil {
			return nil, ErrEnumeratorNotConfigured
		}
		enum, err := r.enumerator.Enumerate(ctx, id.Value, foundOnly)
		report.Enumeration = enum
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *Runner) checkEmail(ctx context.Context, email string, report *model.FootprintReport) {
	if r.breach == nil {
		report.Error = ErrBreachNotConfigured.Error()
		return
	}
	payload, err := r.breach.CheckEmail(ctx, email)
	if err != nil {
		r.logger.Warn("breach lookup failed", "email", email, "error", err)
		report.Error = err.Error()
		return
	}
	report.Breach = payload
}

func (r *Runner) checkPhone(ctx context.Context, number string, report *model.FootprintReport) {
	if r.phone == nil {
		report.Error = ErrPhoneNotConfigured.Error()
		return
	}
	payload, err := r.phone.Validate(ctx, number)
	if err != nil {
		r.logger.Warn("phone lookup failed", "phone", number, "error", err)
		report.Error = err.Error()
		return
	}
	report.Phone = payload
}
