// Package tor routes identity probes through the Tor network.
//
// A Client wraps a SOCKS5 dialer for an already running Tor proxy and
// builds HTTP clients that send every request through it. EmbeddedTor
// launches a private Tor daemon with tornago when no external proxy is
// configured.
package tor
