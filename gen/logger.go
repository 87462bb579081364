package gen

import (
	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/internal/logging"
)

var pkgLogger logging.Slot

// Logger returns the logger used by Build and Emit. It is a no-op logger
// unless SetLogger was called.
func Logger() *zap.Logger {
	return pkgLogger.Get()
}

// SetLogger replaces the gen package's logger. It may be called at any time.
func SetLogger(l *zap.Logger) {
	pkgLogger.Set(l)
}
