//go:build debug

package debug

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Enabled reports whether trace logging is compiled in.
const Enabled = true

var (
	mu      sync.RWMutex
	enabled = ParseCategories(os.Getenv("TRIAGE_DEBUG"))
	logger  = newLogger(os.Stderr)
)

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		With().Timestamp().Logger()
}

// Log writes one trace line if cat is enabled.
func Log(cat Category, format string, args ...any) {
	mu.RLock()
	on := enabled[cat]
	l := logger
	mu.RUnlock()
	if on {
		l.Log().Str("cat", string(cat)).Msg(fmt.Sprintf(format, args...))
	}
}

// EnableAll turns on every category, verbose ones included.
func EnableAll() {
	mu.Lock()
	enabled = ParseCategories("all")
	mu.Unlock()
}

// SetOutput redirects trace lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger = newLogger(w)
	mu.Unlock()
}
