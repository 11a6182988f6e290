// Package host gathers the facts the installer classifies: the platform
// identification string, the invoking identity and executable presence.
package host
