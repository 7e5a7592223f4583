// Package log provides the slog handler used by every recongraph command.
//
// SecureHandler wraps any slog.Handler and rewrites attributes before they
// reach it:
//   - provider credentials (numverify access keys, ThreatFox Auth-Key,
//     Authorization headers) are replaced with MaskValue, whether they
//     appear as an attribute of their own or inside a URL query string
//     carried by an error;
//   - identities under the keys identity, email, phone and username are
//     partially masked, e.g. "j***@example.com" or "+1***73", so that logs
//     can be shared without exposing who was looked up.
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
