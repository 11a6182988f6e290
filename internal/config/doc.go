// Package config defines the settings of a setup run and provides helpers
// to load, validate and save them in YAML format.
//
// The Config type holds the ROCm path, the optional manifest override, the
// elevation tool and the timeouts applied to package-manager invocations.
package config
