// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder, colored on terminals,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The setup workflow accepts a context and extracts the logger from it, so
// every package-manager step is logged with its own name and fields.
package logger
