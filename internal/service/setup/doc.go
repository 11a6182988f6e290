// Package setup installs the build and multimedia dependencies of rocJPEG.
//
// Run loads the configuration, verifies the ROCm installation, classifies the
// host once, plans the package-manager invocations and executes them in
// order. A failed invocation stops the run unless keep-going is enabled, in
// which case every failure is collected and returned at the end.
package setup
