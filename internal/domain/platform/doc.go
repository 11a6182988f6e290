// Package platform contains the core domain types of the installer.
//
// It defines Family (the coarse distribution classification) and Profile
// (the package-manager parameters resolved for the host), and Classify,
// which turns a platform identification string into a Profile exactly once.
package platform
