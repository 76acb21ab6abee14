package testutil

import (
	"strings"
	"sync"

	"github.com/roach88/costbook/internal/kv"
)

// RecordingEngine wraps a kv.Engine and records every write.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingEngine struct {
	kv.Engine

	mu     sync.Mutex
	writes []Write
}

// Write is one recorded Put or Delete.
type Write struct {
	Key    string
	Value  []byte // nil for deletes
	Delete bool
}

// Compile-time interface check.
var _ kv.Engine = (*RecordingEngine)(nil)

// NewRecordingEngine wraps inner.
func NewRecordingEngine(inner kv.Engine) *RecordingEngine {
	return &RecordingEngine{Engine: inner}
}

// Put records the write and forwards it.
func (e *RecordingEngine) Put(key string, value []byte) error {
	e.mu.Lock()
	e.writes = append(e.writes, Write{Key: key, Value: append([]byte(nil), value...)})
	e.mu.Unlock()
	return e.Engine.Put(key, value)
}

// Delete records the delete and forwards it.
func (e *RecordingEngine) Delete(key string) error {
	e.mu.Lock()
	e.writes = append(e.writes, Write{Key: key, Delete: true})
	e.mu.Unlock()
	return e.Engine.Delete(key)
}

// Writes returns the recorded writes whose key starts with prefix.
func (e *RecordingEngine) Writes(prefix string) []Write {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Write
	for _, w := range e.writes {
		if strings.HasPrefix(w.Key, prefix) {
			out = append(out, w)
		}
	}
	return out
}

// Reset forgets every recorded write.
func (e *RecordingEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes = nil
}
