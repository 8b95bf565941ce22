package host

import (
	"sync"

	"github.com/ehrlich-b/go-scmd/internal/constants"
)

// Bounce buffers carry command data between the submitter and the
// backend. They come from size-bucketed pools (64KB up to 1MB, powers of
// two); larger transfers are allocated and dropped on release.

const (
	size64k  = constants.PooledBufferSize
	size128k = 128 * 1024
	size256k = 256 * 1024
	size512k = 512 * 1024
	size1m   = 1024 * 1024
)

var bufferPool = struct {
	pool64k  sync.Pool
	pool128k sync.Pool
	pool256k sync.Pool
	pool512k sync.Pool
	pool1m   sync.Pool
}{
	pool64k:  sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
	pool128k: sync.Pool{New: func() any { b := make([]byte, size128k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool512k: sync.Pool{New: func() any { b := make([]byte, size512k); return &b }},
	pool1m:   sync.Pool{New: func() any { b := make([]byte, size1m); return &b }},
}

// getBuffer returns a buffer of exactly size bytes. Release it with
// putBuffer.
func getBuffer(size int) []byte {
	switch {
	case size <= 0:
		return nil
	case size <= size64k:
		return (*bufferPool.pool64k.Get().(*[]byte))[:size]
	case size <= size128k:
		return (*bufferPool.pool128k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*bufferPool.pool256k.Get().(*[]byte))[:size]
	case size <= size512k:
		return (*bufferPool.pool512k.Get().(*[]byte))[:size]
	case size <= size1m:
		return (*bufferPool.pool1m.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// putBuffer returns buf to the pool matching its capacity. Buffers of any
// other capacity are left to the garbage collector.
func putBuffer(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size64k:
		bufferPool.pool64k.Put(&buf)
	case size128k:
		bufferPool.pool128k.Put(&buf)
	case size256k:
		bufferPool.pool256k.Put(&buf)
	case size512k:
		bufferPool.pool512k.Put(&buf)
	case size1m:
		bufferPool.pool1m.Put(&buf)
	}
}
