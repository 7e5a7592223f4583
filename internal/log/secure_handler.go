package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces redacted credentials.
const MaskValue = "***REDACTED***"

// identityMask is inserted in place of the hidden part of an identity.
const identityMask = "***"

// credentialKeys are attribute keys whose value is always redacted.
var credentialKeys = map[string]bool{
	"access_key":    true,
	"accesskey":     true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"auth-key":      true,
	"auth_key":      true,
	"authorization": true,
	"numverify":     true,
	"password":      true,
	"secret":        true,
	"token":         true,
}

// credentialKeywords redact any key that contains them.
var credentialKeywords = []string{"secret", "token", "password", "apikey", "api_key", "access_key"}

// identityKeys are attribute keys whose value is an identity to mask.
var identityKeys = map[string]bool{
	"identity": true,
	"email":    true,
	"phone":    true,
	"username": true,
}

// queryCredential matches credential parameters embedded in URLs, as found
// in *url.Error messages.
var queryCredential = regexp.MustCompile(`(?i)((?:access_key|api_key|apikey|auth-key|key)=)[^&\s"']+`)

var (
	emailShape = regexp.MustCompile(`^([^@\s]+)@([^@\s]+)$`)
	phoneShape = regexp.MustCompile(`^\+?\d{4,15}$`)
)

// SecureHandler wraps an slog.Handler and redacts credentials and masks
// identities in every attribute, including nested groups.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps slog.Default's.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, scrubText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(sanitize(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitize(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitize(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, g := range group {
			clean[i] = sanitize(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	key := strings.ToLower(a.Key)
	if isCredentialKey(key) {
		return slog.String(a.Key, MaskValue)
	}
	if identityKeys[key] {
		return slog.String(a.Key, MaskIdentity(a.Value.String()))
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); queryCredential.MatchString(s) {
			return slog.String(a.Key, scrubText(s))
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, scrubText(err.Error()))
		}
	}
	return a
}

func isCredentialKey(key string) bool {
	if credentialKeys[key] {
		return true
	}
	for _, kw := range credentialKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// scrubText redacts credential query parameters inside free text.
func scrubText(s string) string {
	return queryCredential.ReplaceAllString(s, "${1}"+MaskValue)
}

// MaskIdentity hides most of an identity while keeping it recognizable:
// the first character and domain of an email, the first two and last two
// digits of a phone number, and the first character of anything else.
func MaskIdentity(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if m := emailShape.FindStringSubmatch(v); m != nil {
		return firstRune(m[1]) + identityMask + "@" + m[2]
	}
	if phoneShape.MatchString(v) {
		return v[:2] + identityMask + v[len(v)-2:]
	}
	return firstRune(v) + identityMask
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSecureLogger returns a text logger writing to w through a
// SecureHandler. verbose selects Debug; otherwise only warnings and errors
// are written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFor(verbose)})))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(verbose)})))
}
