// Package manifest holds the hand-maintained package lists installed per
// distribution family. The default lists are embedded YAML; a file named in
// the configuration replaces them.
package manifest
