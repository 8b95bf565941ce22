package interfaces

// Backend is the backing store a host executes commands against. Offsets
// and lengths are in bytes; the host converts from logical blocks.
type Backend interface {
	// ReadAt reads len(p) bytes into p starting at offset off, with
	// io.ReaderAt semantics. Implementations must not retain p.
	ReadAt(p []byte, off int64) (n int, err error)

	// WriteAt writes len(p) bytes from p at offset off, with io.WriterAt
	// semantics. Implementations must not retain p.
	WriteAt(p []byte, off int64) (n int, err error)

	// Size returns the capacity in bytes.
	Size() int64

	// Close releases the backend. No other method may be called afterwards.
	Close() error

	// Flush makes previously completed writes durable. Called for
	// SYNCHRONIZE CACHE.
	Flush() error
}

// DiscardBackend is implemented by backends that can deallocate ranges.
// Used for UNMAP and WRITE SAME with the unmap bit.
type DiscardBackend interface {
	Backend

	Discard(offset, length int64) error
}

// WriteZeroesBackend is implemented by backends that can zero a range
// without a data buffer. Used for WRITE SAME of an all-zero block.
type WriteZeroesBackend interface {
	Backend

	WriteZeroes(offset, length int64) error
}

// StatBackend exposes backend-specific counters for status files.
type StatBackend interface {
	Backend

	// Stats returns string keys with numeric values.
	Stats() map[string]interface{}
}
