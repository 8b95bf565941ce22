package backend

import (
	"sync/atomic"
	"time"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/interfaces"
)

// Delayed wraps a backend and stalls every Nth data operation. It is used
// to reproduce commands that outlive their timeout.
type Delayed struct {
	interfaces.Backend

	every uint64
	delay time.Duration
	ops   atomic.Uint64
}

// NewDelayed stalls one of every `every` operations for delay. every <= 0
// stalls nothing.
func NewDelayed(inner interfaces.Backend, every int, delay time.Duration) *Delayed {
	d := &Delayed{Backend: inner, delay: delay}
	if every > 0 {
		d.every = uint64(every)
	}
	return d
}

func (d *Delayed) stall() {
	n := d.ops.Add(1)
	if d.every != 0 && n%d.every == 0 {
		time.Sleep(d.delay)
	}
}

// ReadAt implements the Backend interface
func (d *Delayed) ReadAt(p []byte, off int64) (int, error) {
	d.stall()
	return d.Backend.ReadAt(p, off)
}

// WriteAt implements the Backend interface
func (d *Delayed) WriteAt(p []byte, off int64) (int, error) {
	d.stall()
	return d.Backend.WriteAt(p, off)
}

// Flush implements the Backend interface
func (d *Delayed) Flush() error {
	d.stall()
	return d.Backend.Flush()
}

// Discard passes through to the wrapped backend when it can discard.
func (d *Delayed) Discard(offset, length int64) error {
	db, ok := d.Backend.(interfaces.DiscardBackend)
	if !ok {
		return scmd.NewError("DISCARD", scmd.ErrCodeNotSupported, "backend cannot discard")
	}
	d.stall()
	return db.Discard(offset, length)
}

// Stats reports the wrapped backend's counters plus the stall count.
func (d *Delayed) Stats() map[string]interface{} {
	stats := map[string]interface{}{}
	if sb, ok := d.Backend.(interfaces.StatBackend); ok {
		for k, v := range sb.Stats() {
			stats[k] = v
		}
	}
	stats["stalled"] = d.Stalled()
	return stats
}

// Stalled returns how many operations have been stalled so far.
func (d *Delayed) Stalled() uint64 {
	if d.every == 0 {
		return 0
	}
	return d.ops.Load() / d.every
}

var (
	_ interfaces.DiscardBackend = (*Delayed)(nil)
	_ interfaces.StatBackend    = (*Delayed)(nil)
)
