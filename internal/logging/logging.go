// Package logging backs the Logger and SetLogger functions of the
// class, gen and wasmhost packages.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var nop = zap.NewNop()

// Slot holds a replaceable logger. The zero Slot logs nothing.
type Slot struct {
	l atomic.Pointer[zap.Logger]
}

// Get returns the current logger.
func (s *Slot) Get() *zap.Logger {
	if l := s.l.Load(); l != nil {
		return l
	}
	return nop
}

// Set replaces the logger. nil restores the no-op logger.
func (s *Slot) Set(l *zap.Logger) {
	s.l.Store(l)
}
