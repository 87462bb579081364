package wasmhost

import (
	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/internal/logging"
)

var pkgLogger logging.Slot

// Logger returns the logger used by host module calls. It is a no-op logger
// unless SetLogger was called.
func Logger() *zap.Logger {
	return pkgLogger.Get()
}

// SetLogger replaces the wasmhost package's logger. It may be called at any time.
func SetLogger(l *zap.Logger) {
	pkgLogger.Set(l)
}
