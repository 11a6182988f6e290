// Package integration holds end-to-end tests that run the setup workflow
// against fake package-manager executables placed on PATH.
package integration
