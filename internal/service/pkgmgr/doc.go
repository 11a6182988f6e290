// Package pkgmgr turns a platform profile into package-manager invocations
// and runs them.
//
// Plan builds the ordered argv steps (elevation, prepare, install), the
// Executor runs one step and returns a typed Result, and WaitIdle keeps the
// run from racing a package manager that is already working.
package pkgmgr
