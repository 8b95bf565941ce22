package scmd

import (
	"sync"

	"github.com/ehrlich-b/go-scmd/internal/interfaces"
)

// MockBackend provides a mock implementation of Backend for testing.
// It implements the optional interfaces, tracks method calls, can inject
// errors and can hold operations until released so tests can observe
// commands that are still executing.
type MockBackend struct {
	data   []byte
	size   int64
	closed bool
	stats  map[string]interface{}

	mu         sync.RWMutex
	readCalls  int
	writeCalls int
	flushCalls int
	discards   int

	readErr  error
	writeErr error
	flushErr error

	holdMu sync.Mutex
	gate   chan struct{}
}

// NewMockBackend creates a new mock backend with the specified size.
func NewMockBackend(size int64) *MockBackend {
	return &MockBackend{
		data:  make([]byte, size),
		size:  size,
		stats: make(map[string]interface{}),
	}
}

// wait blocks while the backend is held
func (m *MockBackend) wait() {
	m.holdMu.Lock()
	gate := m.gate
	m.holdMu.Unlock()
	if gate != nil {
		<-gate
	}
}

// Hold makes every subsequent data operation block until Release.
func (m *MockBackend) Hold() {
	m.holdMu.Lock()
	defer m.holdMu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks operations waiting on Hold.
func (m *MockBackend) Release() {
	m.holdMu.Lock()
	defer m.holdMu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// ReadAt implements the Backend interface
func (m *MockBackend) ReadAt(p []byte, off int64) (int, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCalls++

	if m.closed {
		return 0, ErrCodeHostOffline
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	if off >= m.size {
		return 0, nil
	}

	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}

	n := copy(p, m.data[off:off+int64(len(p))])
	return n, nil
}

// WriteAt implements the Backend interface
func (m *MockBackend) WriteAt(p []byte, off int64) (int, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCalls++

	if m.closed {
		return 0, ErrCodeHostOffline
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	if off >= m.size {
		return 0, ErrCodeNoSpace
	}

	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}

	n := copy(m.data[off:off+int64(len(p))], p)
	return n, nil
}

// Size implements the Backend interface
func (m *MockBackend) Size() int64 {
	return m.size
}

// Close implements the Backend interface
func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Flush implements the Backend interface
func (m *MockBackend) Flush() error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushCalls++
	return m.flushErr
}

// Discard implements the DiscardBackend interface
func (m *MockBackend) Discard(offset, length int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.discards++
	if m.closed || offset >= m.size {
		return nil
	}

	end := offset + length
	if end > m.size {
		end = m.size
	}
	clear(m.data[offset:end])
	return nil
}

// WriteZeroes implements the WriteZeroesBackend interface
func (m *MockBackend) WriteZeroes(offset, length int64) error {
	return m.Discard(offset, length)
}

// Stats implements the StatBackend interface
func (m *MockBackend) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]interface{})
	for k, v := range m.stats {
		stats[k] = v
	}

	stats["read_calls"] = m.readCalls
	stats["write_calls"] = m.writeCalls
	stats["flush_calls"] = m.flushCalls

	return stats
}

// Testing utility methods

// SetErrors injects errors returned by ReadAt, WriteAt and Flush. Nil
// clears an injection.
func (m *MockBackend) SetErrors(readErr, writeErr, flushErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr, m.writeErr, m.flushErr = readErr, writeErr, flushErr
}

// IsClosed returns true if the backend has been closed
func (m *MockBackend) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// CallCounts returns the number of times each method has been called
func (m *MockBackend) CallCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int{
		"read":    m.readCalls,
		"write":   m.writeCalls,
		"flush":   m.flushCalls,
		"discard": m.discards,
	}
}

// Bytes returns a copy of the backing data
func (m *MockBackend) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

// SetCustomStats allows setting custom statistics for testing
func (m *MockBackend) SetCustomStats(stats map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats = make(map[string]interface{})
	for k, v := range stats {
		m.stats[k] = v
	}
}

// Compile-time interface checks
var (
	_ interfaces.Backend            = (*MockBackend)(nil)
	_ interfaces.DiscardBackend     = (*MockBackend)(nil)
	_ interfaces.WriteZeroesBackend = (*MockBackend)(nil)
	_ interfaces.StatBackend        = (*MockBackend)(nil)
)
