// Package monitoring carries the package-level diagnostic logger shared by the
// qagmire commands and libraries.
package monitoring

import "log"

// Logf is the shared diagnostic logger. It defaults to log.Printf; callers that
// need to mute or capture output (tests, the HTTP server) replace it with
// SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. A nil argument installs a no-op
// logger, which silences all diagnostic output.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
