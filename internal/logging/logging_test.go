package logging

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSlot(t *testing.T) {
	var s Slot
	if s.Get() == nil {
		t.Fatal("zero Slot should return a no-op logger")
	}
	s.Get().Info("dropped")

	core, logs := observer.New(zapcore.DebugLevel)
	s.Set(zap.New(core))
	s.Get().Info("kept", zap.Int("n", 1))
	if logs.Len() != 1 || logs.All()[0].Message != "kept" {
		t.Errorf("logged entries: %v", logs.All())
	}

	s.Set(nil)
	s.Get().Info("dropped again")
	if logs.Len() != 1 {
		t.Errorf("nil should restore the no-op logger, got %d entries", logs.Len())
	}
}

func TestSlot_Concurrent(t *testing.T) {
	var s Slot
	core, _ := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					s.Set(l)
				} else {
					s.Get().Debug("tick")
				}
			}
		}(i)
	}
	wg.Wait()
}
