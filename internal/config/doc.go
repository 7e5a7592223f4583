// Package config holds recongraph's runtime settings: request deadlines and
// per-branch timeouts, enumeration limits, report format, Tor routing, and
// the optional .recongraph YAML file that supplies provider API keys and
// per-source switches.
package config
