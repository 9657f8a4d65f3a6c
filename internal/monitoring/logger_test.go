package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerCaptures(t *testing.T) {
	orig := Logf
	defer SetLogger(orig)

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	Logf("run %s: %d tests", "abc", 4)
	if len(got) != 1 || got[0] != "run abc: 4 tests" {
		t.Fatalf("captured %q", got)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	orig := Logf
	defer SetLogger(orig)

	SetLogger(nil)
	// Must not panic.
	Logf("dropped %d", 1)
}
