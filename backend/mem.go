// Package backend provides backing stores for scmd hosts
package backend

import (
	"sync"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/interfaces"
)

// Memory is a RAM-backed logical unit
type Memory struct {
	data []byte
	size int64
	mu   sync.RWMutex

	discarded int64
}

// NewMemory creates a new memory backend of the specified size
func NewMemory(size int64) *Memory {
	return &Memory{
		data: make([]byte, size),
		size: size,
	}
}

// ReadAt implements the Backend interface
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return 0, scmd.NewError("READ", scmd.ErrCodeHostOffline, "backend closed")
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
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return 0, scmd.NewError("WRITE", scmd.ErrCodeHostOffline, "backend closed")
	}
	if off >= m.size {
		return 0, scmd.NewError("WRITE", scmd.ErrCodeNoSpace, "write beyond end of logical unit")
	}

	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}

	n := copy(m.data[off:off+int64(len(p))], p)
	return n, nil
}

// Size implements the Backend interface
func (m *Memory) Size() int64 {
	return m.size
}

// Close implements the Backend interface
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}

// Flush implements the Backend interface
func (m *Memory) Flush() error {
	return nil
}

// Discard implements the DiscardBackend interface
func (m *Memory) Discard(offset, length int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil || offset >= m.size {
		return nil
	}

	end := offset + length
	if end > m.size {
		end = m.size
	}
	clear(m.data[offset:end])
	m.discarded += end - offset
	return nil
}

// WriteZeroes implements the WriteZeroesBackend interface
func (m *Memory) WriteZeroes(offset, length int64) error {
	return m.Discard(offset, length)
}

// Stats implements the StatBackend interface
func (m *Memory) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"type":            "memory",
		"size":            m.size,
		"allocated":       len(m.data),
		"discarded_bytes": m.discarded,
	}
}

// Compile-time interface checks
var (
	_ interfaces.Backend            = (*Memory)(nil)
	_ interfaces.DiscardBackend     = (*Memory)(nil)
	_ interfaces.WriteZeroesBackend = (*Memory)(nil)
	_ interfaces.StatBackend        = (*Memory)(nil)
)
